/*
Package translate proxies message translation to a MyMemory-compatible HTTP API.
*/
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/abadojack/whatlanggo"

	"babelchat/internal/pkg/errs"
)

// FallbackLanguage is used when the source language cannot be detected reliably.
const FallbackLanguage = "en"

// Result is a translated text together with the detected source language.
type Result struct {
	Translated string `json:"translated"`
	Source     string `json:"source"`
}

// Translator translates text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (*Result, error)
}

// Client calls a MyMemory-compatible `GET ?q=&langpair=src|target` endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.Number `json:"responseStatus"`
}

func (c *Client) Translate(ctx context.Context, text, target string) (*Result, error) {
	source := DetectLanguage(text)
	if source == target {
		return &Result{Translated: text, Source: source}, nil
	}

	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", source+"|"+target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errs.NewError(errs.ErrTranslationFailed, err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errs.NewError(errs.ErrTranslationFailed, fmt.Errorf("call translation API: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errs.NewError(errs.ErrTranslationFailed, fmt.Errorf("translation API returned HTTP %d", res.StatusCode))
	}

	var body apiResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, errs.NewError(errs.ErrTranslationFailed, fmt.Errorf("decode translation response: %w", err))
	}

	if body.ResponseStatus.String() != "200" {
		return nil, errs.NewError(errs.ErrTranslationFailed,
			fmt.Errorf("translation API status %s", body.ResponseStatus))
	}

	return &Result{Translated: body.ResponseData.TranslatedText, Source: source}, nil
}

// DetectLanguage returns the ISO 639-1 code of text, or FallbackLanguage.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return FallbackLanguage
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return FallbackLanguage
	}
	return code
}
