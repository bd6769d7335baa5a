// Package translate normalizes user input to the catalog's working
// language before it reaches the matcher. Translation is a boundary
// collaborator: the matching engine itself never translates.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode"
)

// Translator converts text into the store's working language and reports
// the detected source locale.
type Translator interface {
	Translate(ctx context.Context, text string) (translated, locale string, err error)
}

// Noop passes text through unchanged, for deployments that only serve
// the store language.
type Noop struct{}

func (Noop) Translate(_ context.Context, text string) (string, string, error) {
	return text, "en", nil
}

// Config holds settings for the HTTP translator.
type Config struct {
	Endpoint string
	APIKey   string
	Target   string
}

// HTTPTranslator calls a LibreTranslate-compatible endpoint.
type HTTPTranslator struct {
	cfg    Config
	client *http.Client
}

// NewHTTPTranslator builds a translator against cfg.Endpoint.
func NewHTTPTranslator(cfg Config) *HTTPTranslator {
	if cfg.Target == "" {
		cfg.Target = "en"
	}
	return &HTTPTranslator{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage struct {
		Language string `json:"language"`
	} `json:"detectedLanguage"`
}

// Translate sends text for auto-detected translation. ASCII-only input is
// assumed to already be in the target language and skips the round trip,
// mirroring the original service's short-circuit.
func (t *HTTPTranslator) Translate(ctx context.Context, text string) (string, string, error) {
	if looksLikeTarget(text) {
		return text, t.cfg.Target, nil
	}

	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: "auto",
		Target: t.cfg.Target,
		APIKey: t.cfg.APIKey,
	})
	if err != nil {
		return "", "", fmt.Errorf("translate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("translate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("translate: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("translate: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("translate: decode response: %w", err)
	}

	locale := result.DetectedLanguage.Language
	if locale == "" {
		locale = "auto"
	}
	return result.TranslatedText, locale, nil
}

// looksLikeTarget is a cheap pre-filter: text made only of basic Latin
// letters, digits, and punctuation is treated as already-translated.
func looksLikeTarget(text string) bool {
	for _, r := range text {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
