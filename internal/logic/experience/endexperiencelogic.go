package experience

import (
	"context"

	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type EndExperienceLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Archive a skippable experience early
func NewEndExperienceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *EndExperienceLogic {
	return &EndExperienceLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *EndExperienceLogic) EndExperience(experienceID string) (*types.ExperienceEndResponse, error) {
	memberID := middleware.MemberID(l.ctx)
	av, err := l.svcCtx.Avatars.Avatar(l.ctx, memberID)
	if err != nil {
		return nil, err
	}
	if err := av.EndExperience(l.ctx, experienceID); err != nil {
		return nil, err
	}
	return &types.ExperienceEndResponse{Ended: true}, nil
}
