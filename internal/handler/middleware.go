package handler

import (
	"context"
	"net/http"

	"babelchat/internal/app/user"
	"babelchat/internal/pkg/auth/jwt"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/resp"
)

type contextKey string

const userContextKey contextKey = "user"

// RequireAuth resolves the bearer credential to an account and stores it in the request context.
func RequireAuth(deps *AppDeps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := deps.Auth.Authenticate(r.Context(), jwt.ExtractToken(r))
			if err != nil {
				resp.RespondErr(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := CurrentUser(r)
		if u == nil || !u.IsAdmin {
			resp.RespondError(w, r, errs.NewError(errs.ErrAdminRequired))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the account attached by RequireAuth, or nil.
func CurrentUser(r *http.Request) *user.User {
	u, _ := r.Context().Value(userContextKey).(*user.User)
	return u
}
