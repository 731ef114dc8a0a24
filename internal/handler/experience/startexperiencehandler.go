package experience

import (
	"errors"
	"net/http"

	"github.com/memoirhq/memoir/internal/avatar"
	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/experience"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

// Begin an experience at its first scene
func StartExperienceHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ExperienceStartRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := experience.NewStartExperienceLogic(r.Context(), svcCtx)
		resp, err := l.StartExperience(&req)
		switch {
		case errors.Is(err, avatar.ErrExperienceActive) || errors.Is(err, avatar.ErrConflict):
			httputil.Conflict(w, err.Error())
		case err != nil:
			httputil.Error(w, err)
		default:
			httputil.OkJSON(w, resp)
		}
	}
}
