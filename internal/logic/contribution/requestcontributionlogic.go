package contribution

import (
	"context"

	"github.com/memoirhq/memoir/internal/contribution"
	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type RequestContributionLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Build a contribution request for a category
func NewRequestContributionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *RequestContributionLogic {
	return &RequestContributionLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *RequestContributionLogic) RequestContribution(req *types.ContributionRequestRequest) (*contribution.Contribution, error) {
	e, err := elicitorFor(l.ctx, l.svcCtx, middleware.MemberID(l.ctx))
	if err != nil {
		return nil, err
	}
	return e.Request(l.ctx, req.Category)
}
