package handler

import (
	"net/http"

	"babelchat/internal/pkg/req"
	"babelchat/internal/pkg/resp"
)

type translateInput struct {
	Text   string `json:"text" validate:"required,max=5000"`
	Target string `json:"target" validate:"required,bcp47_language_tag"`
}

// HandleTranslate translates a text into the target language.
func HandleTranslate(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input translateInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, err := deps.Translator.Translate(r.Context(), input.Text, input.Target)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}
