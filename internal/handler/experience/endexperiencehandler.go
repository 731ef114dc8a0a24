package experience

import (
	"net/http"

	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/experience"
	"github.com/memoirhq/memoir/internal/svc"
)

// Archive a skippable experience early
func EndExperienceHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		experienceID := httputil.PathVar(r, "experienceId")

		l := experience.NewEndExperienceLogic(r.Context(), svcCtx)
		resp, err := l.EndExperience(experienceID)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
