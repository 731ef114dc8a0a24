package contribution

import (
	"context"

	"github.com/memoirhq/memoir/internal/contribution"
	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type UpdateContributionLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Record a response or status change on a contribution
func NewUpdateContributionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateContributionLogic {
	return &UpdateContributionLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *UpdateContributionLogic) UpdateContribution(req *types.ContributionUpdateRequest) (*contribution.Contribution, error) {
	e, err := elicitorFor(l.ctx, l.svcCtx, middleware.MemberID(l.ctx))
	if err != nil {
		return nil, err
	}
	return e.Update(l.ctx, req.ID, contribution.Update{
		Response: req.Response,
		Status:   contribution.Status(req.Status),
	})
}
