package experience

import (
	"net/http"

	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/experience"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

// Continue the member's active experience
func AdvanceExperienceHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ExperienceAdvanceRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := experience.NewAdvanceExperienceLogic(r.Context(), svcCtx)
		resp, err := l.AdvanceExperience(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
