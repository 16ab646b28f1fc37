package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"pdf-translator/internal/types"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleProvider translates through the public Google Translate web
// endpoint. No API key is required; the endpoint enforces informal rate
// limits and echoes the input on some soft failures, which the service
// catches through its acceptance check rather than here.
type GoogleProvider struct {
	endpoint   string
	sourceLang string
	targetLang string
	client     *http.Client
}

// NewGoogleProvider creates a provider against the public endpoint.
func NewGoogleProvider(sourceLang, targetLang string) *GoogleProvider {
	return NewGoogleProviderWithEndpoint(googleEndpoint, sourceLang, targetLang)
}

// NewGoogleProviderWithEndpoint creates a provider against a specific
// endpoint URL.
func NewGoogleProviderWithEndpoint(endpoint, sourceLang, targetLang string) *GoogleProvider {
	if sourceLang == "" {
		sourceLang = "auto"
	}
	return &GoogleProvider{
		endpoint:   endpoint,
		sourceLang: sourceLang,
		targetLang: targetLang,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
}

// Name identifies the provider together with the target code it queries
// under, so chain logs show which code convention succeeded.
func (p *GoogleProvider) Name() string {
	return "google:" + p.targetLang
}

// Translate requests a translation of text from the endpoint.
func (p *GoogleProvider) Translate(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", p.sourceLang)
	params.Set("tl", p.targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to create API request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

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

	return decodeGoogleResponse(body)
}

// decodeGoogleResponse extracts the translated text from the endpoint's
// nested-array payload. The first element is a list of segments and each
// segment's first element is its translated text.
func decodeGoogleResponse(body []byte) (string, error) {
	var payload []interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", types.NewAppError(types.ErrAPICall, "failed to parse API response", err)
	}
	if len(payload) == 0 {
		return "", types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"unexpected API response",
			"empty payload",
			nil,
		)
	}

	segments, ok := payload[0].([]interface{})
	if !ok {
		return "", types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"unexpected API response",
			"missing segment list",
			nil,
		)
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}
