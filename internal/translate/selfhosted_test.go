package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdf-translator/internal/types"
)

func TestSelfHostedProviderTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/translate" {
			t.Errorf("Expected /translate path, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected application/json content type, got %s", r.Header.Get("Content-Type"))
		}

		var reqBody struct {
			Q      string `json:"q"`
			Source string `json:"source"`
			Target string `json:"target"`
			Format string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		if reqBody.Q != "Hello world" {
			t.Errorf("Expected q=Hello world, got %s", reqBody.Q)
		}
		if reqBody.Source != "en" {
			t.Errorf("Expected source=en, got %s", reqBody.Source)
		}
		if reqBody.Target != "sw" {
			t.Errorf("Expected target=sw, got %s", reqBody.Target)
		}
		if reqBody.Format != "text" {
			t.Errorf("Expected format=text, got %s", reqBody.Format)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"translatedText": "Habari dunia"})
	}))
	defer server.Close()

	p := NewSelfHostedProvider(server.URL, "en", "sw")
	out, err := p.Translate(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "Habari dunia" {
		t.Errorf("Expected 'Habari dunia', got %q", out)
	}
}

func TestSelfHostedProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"model not loaded"}}`))
	}))
	defer server.Close()

	p := NewSelfHostedProvider(server.URL, "en", "sw")
	_, err := p.Translate(context.Background(), "Hello world")
	if err == nil {
		t.Fatal("Expected error")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Code != types.ErrAPICall {
		t.Errorf("Expected API call error, got %s", appErr.Code)
	}
	if !isRetryableError(err) {
		t.Error("Expected server error to be retryable")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare host", "http://localhost:5000", "http://localhost:5000/translate"},
		{"trailing slash", "http://localhost:5000/", "http://localhost:5000/translate"},
		{"already normalized", "http://localhost:5000/translate", "http://localhost:5000/translate"},
		{"surrounding whitespace", "  http://localhost:5000 ", "http://localhost:5000/translate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeEndpoint(tt.in); got != tt.want {
				t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSelfHostedProviderName(t *testing.T) {
	p := NewSelfHostedProvider("http://localhost:5000", "auto", "sw")
	if p.Name() != "selfhosted:sw" {
		t.Errorf("Expected selfhosted:sw, got %s", p.Name())
	}
}
