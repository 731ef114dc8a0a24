package experience

import (
	"context"

	"github.com/memoirhq/memoir/internal/avatar"
	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type ExperienceInputLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Answer the pending input event and resume the walk
func NewExperienceInputLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExperienceInputLogic {
	return &ExperienceInputLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *ExperienceInputLogic) SubmitInput(req *types.ExperienceInputRequest) (*avatar.ExperienceBatch, error) {
	memberID := middleware.MemberID(l.ctx)
	av, err := l.svcCtx.Avatars.Avatar(l.ctx, memberID)
	if err != nil {
		return nil, err
	}
	return av.SubmitExperienceInput(l.ctx, req.ExperienceID, req.MemberInput)
}
