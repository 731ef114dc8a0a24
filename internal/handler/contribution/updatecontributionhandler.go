package contribution

import (
	"net/http"

	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/contribution"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

// Record a response or status change on a contribution
func UpdateContributionHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ContributionUpdateRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := contribution.NewUpdateContributionLogic(r.Context(), svcCtx)
		resp, err := l.UpdateContribution(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
