package translate

import (
	"context"
	"fmt"
	"time"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// Service runs text through the provider chain. The first provider is
// the primary path and gets up to maxRetries attempts with exponential
// backoff; the rest are fallbacks consulted when the primary echoes the
// input, and once more in a final sweep after the primary is exhausted.
type Service struct {
	providers   []Provider
	maxRetries  int
	backoffBase time.Duration
}

// NewService creates a Service over an ordered provider chain.
// Non-positive maxRetries or backoffBase fall back to the defaults.
func NewService(providers []Provider, maxRetries int, backoffBase time.Duration) *Service {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	return &Service{
		providers:   providers,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
	}
}

// ChainConfig lists the settings needed to assemble a provider chain.
type ChainConfig struct {
	SourceLang    string
	TargetLang    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	SelfHostedURL string
}

// BuildChain assembles the ordered provider chain: the public endpoint
// under the canonical target code, the same endpoint under alternate
// code conventions, an optional chat-model provider when an API key is
// configured, and an optional self-hosted endpoint.
func BuildChain(ctx context.Context, cfg ChainConfig) ([]Provider, error) {
	providers := []Provider{NewGoogleProvider(cfg.SourceLang, cfg.TargetLang)}

	for _, alt := range alternateCodes(cfg.TargetLang) {
		providers = append(providers, NewGoogleProvider(cfg.SourceLang, alt))
	}

	if cfg.OpenAIAPIKey != "" {
		llm, err := NewLLMProvider(ctx, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.TargetLang)
		if err != nil {
			return nil, err
		}
		providers = append(providers, llm)
	}

	if cfg.SelfHostedURL != "" {
		providers = append(providers, NewSelfHostedProvider(cfg.SelfHostedURL, cfg.SourceLang, cfg.TargetLang))
	}

	return providers, nil
}

// Translate returns an accepted translation of text, or an error after
// the primary path and the fallback chain are both exhausted.
//
// An unchanged result from the primary is not treated as success: the
// rest of the chain is probed immediately as a correction step, and the
// attempt counts as failed if no fallback produces an accepted result.
func (s *Service) Translate(ctx context.Context, text string) (string, error) {
	if len(s.providers) == 0 {
		return "", types.NewAppError(types.ErrConfig, "no translation providers configured", nil)
	}

	primary := s.providers[0]
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		out, err := primary.Translate(ctx, text)
		if err == nil {
			if acceptable(text, out) {
				return out, nil
			}
			lastErr = types.NewAppErrorWithDetails(
				types.ErrDegenerate,
				"provider returned input unchanged",
				primary.Name(),
				nil,
			)
			logger.Debug("degenerate primary result, probing fallback chain",
				logger.String("provider", primary.Name()),
				logger.Int("attempt", attempt))
			if corrected, ok := s.sweep(ctx, text, s.providers[1:]); ok {
				return corrected, nil
			}
		} else {
			lastErr = err
			logger.Warn("translation attempt failed",
				logger.String("provider", primary.Name()),
				logger.Int("attempt", attempt),
				logger.Int("max_retries", s.maxRetries),
				logger.Err(err))
			if !isRetryableError(err) {
				break
			}
		}

		if attempt < s.maxRetries {
			delay := s.backoffDelay(attempt)
			logger.Debug("retrying after backoff", logger.Duration("delay", delay))
			if err := sleepCtx(ctx, delay); err != nil {
				return "", types.NewAppError(types.ErrInternal, "translation canceled", err)
			}
		}
	}

	// One last sweep across the full chain before giving up
	if out, ok := s.sweep(ctx, text, s.providers); ok {
		return out, nil
	}

	logger.Error("translation failed after provider chain exhausted", lastErr,
		logger.Int("max_retries", s.maxRetries),
		logger.Int("providers", len(s.providers)))
	return "", types.NewAppErrorWithDetails(
		types.ErrChunkFailed,
		"translation failed after provider chain exhausted",
		fmt.Sprintf("attempted %d times across %d providers", s.maxRetries, len(s.providers)),
		lastErr,
	)
}

// sweep tries each provider once, in order, and returns the first
// accepted result.
func (s *Service) sweep(ctx context.Context, text string, providers []Provider) (string, bool) {
	for _, p := range providers {
		out, err := p.Translate(ctx, text)
		if err != nil {
			logger.Debug("fallback provider failed",
				logger.String("provider", p.Name()), logger.Err(err))
			continue
		}
		if acceptable(text, out) {
			return out, true
		}
		logger.Debug("fallback provider returned input unchanged",
			logger.String("provider", p.Name()))
	}
	return "", false
}

// backoffDelay returns base * 2^(attempt-1), capped at maxBackoffDelay.
func (s *Service) backoffDelay(attempt int) time.Duration {
	d := s.backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoffDelay {
			return maxBackoffDelay
		}
	}
	return d
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
