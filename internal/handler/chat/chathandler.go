package chat

import (
	"net/http"

	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logic/chat"
	"github.com/memoirhq/memoir/internal/svc"
	"github.com/memoirhq/memoir/internal/types"
)

// Run one member message through the active bot
func ChatHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := chat.NewChatLogic(r.Context(), svcCtx)
		resp, err := l.Chat(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
