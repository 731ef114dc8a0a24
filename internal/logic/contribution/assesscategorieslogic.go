package contribution

import (
	"context"

	"github.com/memoirhq/memoir/internal/contribution"
	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

// elicitorFor builds a member-scoped elicitor backed by the member's
// avatar for section reads and LLM question generation.
func elicitorFor(ctx context.Context, svcCtx *svc.ServiceContext, memberID string) (*contribution.Elicitor, error) {
	av, err := svcCtx.Avatars.Avatar(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return contribution.NewElicitor(
		svcCtx.Store,
		memberID,
		av,
		av.Generate,
		svcCtx.Config.Contribution.LLMQuestions,
	), nil
}

type AssessCategoriesLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Rank the next categories to elicit
func NewAssessCategoriesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AssessCategoriesLogic {
	return &AssessCategoriesLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *AssessCategoriesLogic) AssessCategories(req *types.ContributionCategoriesRequest) (*types.ContributionCategoriesResponse, error) {
	e, err := elicitorFor(l.ctx, l.svcCtx, middleware.MemberID(l.ctx))
	if err != nil {
		return nil, err
	}
	categories, err := e.AssessCategories(l.ctx, req.Count)
	if err != nil {
		return nil, err
	}
	return &types.ContributionCategoriesResponse{Categories: categories}, nil
}
