/*
Package textx cleans user-supplied chat text before it is stored or broadcast.

Text is trimmed, length checked in code points, censored, and stripped of markup.
The cleaned form is what gets persisted, so every viewer sees the same bytes.
*/
package textx

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxMessageRunes is the longest accepted message, in Unicode code points.
const MaxMessageRunes = 2000

var (
	// ErrEmpty is returned when nothing is left after trimming and sanitization.
	ErrEmpty = errors.New("text is empty")

	// ErrTooLong is returned when the trimmed input or its sanitized form exceeds MaxMessageRunes.
	ErrTooLong = errors.New("text is too long")
)

// Sanitizer is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
	censor *Censor
}

// NewSanitizer returns a Sanitizer that strips all markup and applies censor (which may be nil).
func NewSanitizer(censor *Censor) *Sanitizer {
	return &Sanitizer{
		policy: bluemonday.StrictPolicy(),
		censor: censor,
	}
}

// Clean validates and sanitizes raw message text.
func (s *Sanitizer) Clean(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmpty
	}

	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return "", ErrTooLong
	}

	text = s.censor.Apply(text)
	text = strings.TrimSpace(s.policy.Sanitize(text))
	if text == "" {
		return "", ErrEmpty
	}

	// Escaping can grow the text, and the escaped form is what gets stored.
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return "", ErrTooLong
	}

	return text, nil
}
