package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"babelchat/internal/app/message"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/req"
	"babelchat/internal/pkg/resp"
)

// HandleListMessages returns one history page selected by ?page=N (1-based) or ?before=<id>.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := message.PageQuery{Page: 1, IncludeDeleted: !deps.Config.HideDeletedMessages}

		if raw := r.URL.Query().Get("page"); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			q.Page = page
		}

		if raw := r.URL.Query().Get("before"); raw != "" {
			before, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || before < 1 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			q.Before = before
		}

		page, err := deps.Engine.History(r.Context(), q)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, page)
	}
}

type editMessageInput struct {
	Text string `json:"text"`
}

// HandleEditMessage edits a message through the realtime engine, so connected clients see the change.
func HandleEditMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := messageID(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input editMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		msg, err := deps.Engine.Edit(r.Context(), CurrentUser(r).Profile(), id, input.Text)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, msg)
	}
}

// HandleDeleteMessage soft-deletes a message through the realtime engine.
func HandleDeleteMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := messageID(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Engine.Delete(r.Context(), CurrentUser(r).Profile(), id); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]int64{"id": id})
	}
}

func messageID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
