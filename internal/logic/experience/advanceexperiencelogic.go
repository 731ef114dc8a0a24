package experience

import (
	"context"

	"github.com/memoirhq/memoir/internal/avatar"
	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type AdvanceExperienceLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Continue the member's active experience
func NewAdvanceExperienceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AdvanceExperienceLogic {
	return &AdvanceExperienceLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *AdvanceExperienceLogic) AdvanceExperience(req *types.ExperienceAdvanceRequest) (*avatar.ExperienceBatch, error) {
	memberID := middleware.MemberID(l.ctx)
	av, err := l.svcCtx.Avatars.Avatar(l.ctx, memberID)
	if err != nil {
		return nil, err
	}
	return av.AdvanceExperience(l.ctx, req.ExperienceID, req.MemberInput)
}
