package contribution

import (
	"net/http"

	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/contribution"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

// Rank the next categories to elicit
func AssessCategoriesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ContributionCategoriesRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := contribution.NewAssessCategoriesLogic(r.Context(), svcCtx)
		resp, err := l.AssessCategories(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
