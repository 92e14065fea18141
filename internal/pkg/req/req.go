/*
Package req provides helper functions for HTTP request parsing, binding and validation.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"babelchat/internal/pkg/errs"
)

const (
	// MaxJSONBody caps JSON request bodies. A chat message is at most 2000 code points,
	// so 64 KiB leaves room for multi-byte text and JSON escaping.
	MaxJSONBody int64 = 64 << 10

	// MaxFormMemory is the amount of a multipart form kept in memory.
	MaxFormMemory int64 = 4 << 20

	// MaxRequestFileSize caps the whole multipart body, file included.
	MaxRequestFileSize int64 = 4 << 20
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator exposes the shared validator so handlers can register custom rules.
func Validator() *validator.Validate {
	return validate
}

// BindJSON decodes the JSON body of r into dst and runs struct validation on it.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	if err := validate.Struct(dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}

// SetupMultipart parses a multipart form from r, bounded by MaxRequestFileSize.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}
