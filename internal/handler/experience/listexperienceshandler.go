package experience

import (
	"net/http"

	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/experience"
	"github.com/memoirhq/memoir/internal/svc"
)

// List the loaded experience definitions
func ListExperiencesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := experience.NewListExperiencesLogic(r.Context(), svcCtx)
		resp, err := l.ListExperiences()
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
