package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"pdf-translator/internal/types"
)

const llmSystemPrompt = `You are a professional translator. Translate the user's text into %s.

CRITICAL rules:
1. Output ONLY the translated text, with no explanations, notes, or quotes.
2. Preserve line breaks and paragraph structure exactly.
3. Keep numbers, code fragments, URLs, and untranslatable proper nouns unchanged.`

// LLMProvider translates through an OpenAI-compatible chat model. It is
// slower and costs tokens, so it sits behind the web endpoints in the
// chain and is only consulted when they fail or echo.
type LLMProvider struct {
	model      *openai.ChatModel
	modelName  string
	targetName string
}

// NewLLMProvider builds the chat model client. baseURL may be empty to
// use the default OpenAI endpoint.
func NewLLMProvider(ctx context.Context, apiKey, baseURL, model, targetLang string) (*LLMProvider, error) {
	cfg := &openai.ChatModelConfig{
		Model:  model,
		APIKey: apiKey,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}

	return &LLMProvider{
		model:      chatModel,
		modelName:  model,
		targetName: languageName(targetLang),
	}, nil
}

func (p *LLMProvider) Name() string {
	return "llm:" + p.modelName
}

// Translate prompts the model with the text and returns its content.
func (p *LLMProvider) Translate(ctx context.Context, text string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(llmSystemPrompt, p.targetName)),
		schema.UserMessage(text),
	}

	response, err := p.model.Generate(ctx, messages)
	if err != nil {
		return "", classifyModelError(err)
	}

	if strings.TrimSpace(response.Content) == "" {
		return "", types.NewAppErrorWithDetails(
			types.ErrDegenerate,
			"chat model returned empty content",
			p.modelName,
			nil,
		)
	}

	return response.Content, nil
}

// classifyModelError maps opaque client errors onto retryable codes by
// inspecting the message text, which is the only signal the client
// library exposes.
func classifyModelError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return types.NewAppError(types.ErrAPIRateLimit, "API rate limit exceeded", err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection"):
		return types.NewAppError(types.ErrNetwork, "API request failed", err)
	default:
		return types.NewAppError(types.ErrAPICall, "chat model request failed", err)
	}
}
