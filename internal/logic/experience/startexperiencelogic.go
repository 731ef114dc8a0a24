package experience

import (
	"context"

	"github.com/memoirhq/memoir/internal/avatar"
	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type StartExperienceLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Begin an experience at its first scene
func NewStartExperienceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *StartExperienceLogic {
	return &StartExperienceLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *StartExperienceLogic) StartExperience(req *types.ExperienceStartRequest) (*avatar.ExperienceBatch, error) {
	memberID := middleware.MemberID(l.ctx)
	av, err := l.svcCtx.Avatars.Avatar(l.ctx, memberID)
	if err != nil {
		return nil, err
	}
	return av.StartExperience(l.ctx, req.ExperienceID, req.SceneID)
}
