package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"babelchat/internal/app/chat"
	"babelchat/internal/pkg/auth/jwt"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/limiter"
	"babelchat/internal/pkg/logx"
	"babelchat/internal/pkg/resp"
)

// HandleWebSocket upgrades the request, authenticates the connection and runs it until it closes.
// The credential may come from the Authorization header, the token query parameter, or the first frame.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		token := jwt.ExtractToken(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		u, err := deps.Auth.Handshake(r.Context(), conn, token, deps.Config.HandshakeTimeout)
		if err != nil {
			logx.Warn("WebSocket handshake rejected", "error", err.Error())
			return
		}

		logx.Info("WebSocket connection authenticated", "user_id", u.ID)

		chat.NewClient(conn, u, deps.Engine).Serve()
	}
}
