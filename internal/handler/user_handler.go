package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"babelchat/internal/app/storage"
	"babelchat/internal/app/user"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/logx"
	"babelchat/internal/pkg/req"
	"babelchat/internal/pkg/resp"
)

const avatarDeleteTimeout = 10 * time.Second

// onlineSet returns the ids of users holding at least one live connection.
// A hub that cannot answer yields an empty set.
func (d *AppDeps) onlineSet(r *http.Request) map[string]struct{} {
	snap, err := d.Engine.Hub().Snapshot(r.Context())
	if err != nil {
		logx.Warn("Presence snapshot unavailable", "error", err.Error())
		return map[string]struct{}{}
	}
	return lo.Keyify(snap.OnlineUserIDs)
}

// HandleListUsers returns every account, online users first, then by username.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.Users.List(r.Context())
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistence, err))
			return
		}

		online := deps.onlineSet(r)

		views := lo.Map(users, func(u user.User, _ int) userView {
			_, ok := online[u.ID]
			return deps.view(&u, ok)
		})

		slices.SortStableFunc(views, func(a, b userView) int {
			if a.Online != b.Online {
				if a.Online {
					return -1
				}
				return 1
			}
			return strings.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
		})

		resp.RespondSuccess(w, r, map[string]any{"users": views})
	}
}

// HandleUploadAvatar stores a new avatar image and removes the previous one.
func HandleUploadAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, _, err := r.FormFile("avatar")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		avatar, err := storage.ReadAvatar(file)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		current := CurrentUser(r)
		key := storage.AvatarKey(current.ID, avatar.Ext)

		if err := deps.Storage.Upload(r.Context(), key, avatar.ContentType, avatar.Reader()); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		previous, err := deps.Users.UpdateAvatar(r.Context(), current.ID, key)
		if err != nil {
			deps.deleteAvatarAsync(key)
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistence, err))
			return
		}

		if previous != "" && previous != key {
			deps.deleteAvatarAsync(previous)
		}

		updated := *current
		updated.Avatar = key
		_, online := deps.onlineSet(r)[current.ID]

		resp.RespondSuccess(w, r, map[string]any{"user": deps.view(&updated, online)})
	}
}

func (d *AppDeps) deleteAvatarAsync(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), avatarDeleteTimeout)
		defer cancel()

		if err := d.Storage.Delete(ctx, key); err != nil {
			logx.Error(err, "Failed to delete avatar object", "key", key)
		}
	}()
}

// HandleAvatarRedirect redirects to a short-lived URL for the avatar key k.
func HandleAvatarRedirect(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		key := r.URL.Query().Get("k")
		if !strings.HasPrefix(key, "avatars/") || strings.Contains(key, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		target, err := deps.Storage.URL(r.Context(), key, storage.URLDuration)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		http.Redirect(w, r, target, http.StatusFound)
	}
}

// HandleToggleBlock flips the blocked flag of an account. Blocking closes every live
// connection of that user; admins cannot be blocked.
func HandleToggleBlock(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		target, err := deps.Users.FindByID(r.Context(), id)
		if errors.Is(err, user.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistence, err))
			return
		}

		if target.IsAdmin {
			resp.RespondError(w, r, errs.NewError(errs.ErrCannotBlockAdmin))
			return
		}

		updated, err := deps.Users.SetBlocked(r.Context(), id, !target.IsBlocked)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistence, err))
			return
		}

		hub := deps.Engine.Hub()
		if updated.IsBlocked {
			hub.Block(updated.ID)
		} else {
			hub.Unblock(updated.ID)
		}

		logx.Info("Account block toggled", "user_id", updated.ID, "blocked", updated.IsBlocked, "by", CurrentUser(r).ID)

		resp.RespondSuccess(w, r, map[string]any{"user": deps.view(updated, false)})
	}
}
