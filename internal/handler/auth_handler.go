package handler

import (
	"errors"
	"net/http"

	"babelchat/internal/app/user"
	"babelchat/internal/pkg/auth/jwt"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/logx"
	"babelchat/internal/pkg/req"
	"babelchat/internal/pkg/resp"
)

type credentialsInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

// HandleRegister creates an account and signs it in.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input credentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !user.ValidUsername(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}
		if !user.ValidPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hash, err := user.HashPassword(input.Password)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		u := &user.User{
			Username:          input.Username,
			PasswordHash:      hash,
			PreferredLanguage: user.DefaultLanguage,
		}

		if err := deps.Users.Create(r.Context(), u); err != nil {
			if errors.Is(err, user.ErrUsernameTaken) {
				logx.Warn("Registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			resp.RespondError(w, r, errs.NewError(errs.ErrPersistence, err))
			return
		}

		logx.Info("Account registered", "user_id", u.ID)

		deps.respondSession(w, r, u, http.StatusCreated)
	}
}

// HandleLogin verifies credentials and issues a token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input credentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u, err := deps.Users.FindByUsername(r.Context(), input.Username)
		if errors.Is(err, user.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistence, err))
			return
		}

		if !u.CheckPassword(input.Password) {
			logx.Warn("Login rejected: password mismatch", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if u.IsBlocked {
			resp.RespondError(w, r, errs.NewError(errs.ErrAccountBlocked))
			return
		}

		deps.respondSession(w, r, u, http.StatusOK)
	}
}

func (d *AppDeps) respondSession(w http.ResponseWriter, r *http.Request, u *user.User, status int) {
	token, err := jwt.GenerateToken(&jwt.Payload{ID: u.ID, Username: u.Username}, d.Config.JWTSecret, d.Config.TokenTTL)
	if err != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	body := sessionResponse{Token: token, User: d.view(u, false)}
	if status == http.StatusCreated {
		resp.RespondCreated(w, r, body)
		return
	}
	resp.RespondSuccess(w, r, body)
}

// HandleMe returns the signed-in account.
func HandleMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := CurrentUser(r)
		_, online := deps.onlineSet(r)[u.ID]
		resp.RespondSuccess(w, r, map[string]any{"user": deps.view(u, online)})
	}
}

type updateProfileInput struct {
	PreferredLanguage string `json:"preferredLanguage" validate:"required,bcp47_language_tag"`
}

// HandleUpdateProfile changes the preferred translation language.
// Live connections keep the profile they were opened with.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input updateProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u, err := deps.Users.UpdatePreferredLanguage(r.Context(), CurrentUser(r).ID, input.PreferredLanguage)
		if errors.Is(err, user.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistence, err))
			return
		}

		_, online := deps.onlineSet(r)[u.ID]
		resp.RespondSuccess(w, r, map[string]any{"user": deps.view(u, online)})
	}
}
