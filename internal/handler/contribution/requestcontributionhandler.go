package contribution

import (
	"net/http"

	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/contribution"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

// Build a contribution request for a category
func RequestContributionHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ContributionRequestRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := contribution.NewRequestContributionLogic(r.Context(), svcCtx)
		resp, err := l.RequestContribution(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
