package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"pdf-translator/internal/types"
)

// SelfHostedProvider translates through a self-hosted LibreTranslate
// compatible endpoint. It sits last in the chain as the fallback that
// keeps working when the public endpoints are unreachable.
type SelfHostedProvider struct {
	endpoint   string
	sourceLang string
	targetLang string
	client     *http.Client
}

// NewSelfHostedProvider creates a provider for the given base URL.
// The /translate path is appended when missing.
func NewSelfHostedProvider(baseURL, sourceLang, targetLang string) *SelfHostedProvider {
	if sourceLang == "" {
		sourceLang = "auto"
	}
	return &SelfHostedProvider{
		endpoint:   normalizeEndpoint(baseURL),
		sourceLang: sourceLang,
		targetLang: targetLang,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
}

// normalizeEndpoint ensures the URL ends with the /translate path.
func normalizeEndpoint(baseURL string) string {
	u := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(u, "/translate") {
		u += "/translate"
	}
	return u
}

func (p *SelfHostedProvider) Name() string {
	return "selfhosted:" + p.targetLang
}

// Translate posts text to the endpoint and returns the translated text.
func (p *SelfHostedProvider) Translate(ctx context.Context, text string) (string, error) {
	reqBody := map[string]string{
		"q":      text,
		"source": p.sourceLang,
		"target": p.targetLang,
		"format": "text",
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to encode API request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to create API request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", types.NewAppError(types.ErrNetwork, "translate request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewAppError(types.ErrNetwork, "failed to read API response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", handleHTTPError(resp.StatusCode, body)
	}

	var result struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", types.NewAppError(types.ErrAPICall, "failed to parse API response", err)
	}

	return result.TranslatedText, nil
}
