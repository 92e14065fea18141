package handler

import (
	"net/url"
	"time"

	"babelchat/internal/app/chat"
	"babelchat/internal/app/storage"
	"babelchat/internal/app/translate"
	"babelchat/internal/app/user"
	"babelchat/internal/configs"
)

// AppDeps bundles the collaborators the HTTP layer needs.
type AppDeps struct {
	Config *configs.AppConfig
	Users  user.Store
	Engine *chat.Engine
	Auth   *chat.Authenticator

	// Storage is nil when avatar uploads are disabled.
	Storage    storage.StorageService
	Translator translate.Translator
}

// avatarURL maps a stored avatar key to the redirecting endpoint.
func (d *AppDeps) avatarURL(key string) string {
	if key == "" {
		return ""
	}
	return "/api/users/avatar?k=" + url.QueryEscape(key)
}

// userView is the public rendering of an account.
type userView struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Avatar            string     `json:"avatar,omitempty"`
	PreferredLanguage string     `json:"preferredLanguage"`
	IsAdmin           bool       `json:"isAdmin"`
	IsBlocked         bool       `json:"isBlocked"`
	Online            bool       `json:"online"`
	LastSeen          *time.Time `json:"lastSeen,omitempty"`
}

func (d *AppDeps) view(u *user.User, online bool) userView {
	p := u.Profile()

	return userView{
		ID:                u.ID,
		Username:          u.Username,
		Avatar:            d.avatarURL(u.Avatar),
		PreferredLanguage: p.PreferredLanguage,
		IsAdmin:           u.IsAdmin,
		IsBlocked:         u.IsBlocked,
		Online:            online,
		LastSeen:          u.LastSeen,
	}
}
