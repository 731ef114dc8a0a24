package experience

import (
	"context"

	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

type ListExperiencesLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// List the loaded experience definitions
func NewListExperiencesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListExperiencesLogic {
	return &ListExperiencesLogic{ctx: ctx, svcCtx: svcCtx}
}

func (l *ListExperiencesLogic) ListExperiences() (*types.ExperienceListResponse, error) {
	resp := &types.ExperienceListResponse{Experiences: []types.ExperienceSummary{}}
	for _, exp := range l.svcCtx.Factory.List() {
		resp.Experiences = append(resp.Experiences, types.ExperienceSummary{
			ID:        exp.ID,
			Title:     exp.Title,
			Skippable: exp.Skippable,
			Scenes:    len(exp.Scenes),
		})
	}
	return resp, nil
}
