package jwt

import (
	"net/http"
	"strings"
)

// ExtractToken returns the bearer credential carried by r.
// The Authorization header wins; browsers cannot set headers on a websocket
// handshake, so the "token" query parameter is accepted as a fallback.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	return strings.TrimSpace(r.URL.Query().Get("token"))
}
