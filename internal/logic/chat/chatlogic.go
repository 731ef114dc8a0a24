package chat

import (
	"context"

	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type ChatLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Run one member message through the active bot
func NewChatLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ChatLogic {
	return &ChatLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *ChatLogic) Chat(req *types.ChatRequest) ([]types.ChatResponse, error) {
	memberID := middleware.MemberID(l.ctx)
	av, err := l.svcCtx.Avatars.Avatar(l.ctx, memberID)
	if err != nil {
		return nil, err
	}
	return av.Chat(l.ctx, *req)
}
