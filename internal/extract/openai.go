package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const extractionSystemPrompt = "You extract collectible-card show listings from web page text. " +
	"Respond with a raw JSON array and nothing else."

const extractionInstruction = `Extract every trading-card or collectible show event from the page text below.
Return ONLY a JSON array. Each element may contain these string fields when present:
"name", "startDate", "endDate", "venueName", "address", "city", "state", "entryFee", "description", "url", "contactInfo".
Omit fields you cannot find. Do not invent events. Return [] when the page lists none.

Page URL: %s

Page text:
%s`

// maxDocumentChars bounds the prompt so oversized pages cannot blow the
// model's context window.
const maxDocumentChars = 24000

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIExtractor submits source documents to a chat-completion model
// constrained to emit a JSON array of candidate records.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	// timeout bounds each extraction call.
	timeout time.Duration
}

func NewOpenAIExtractor(cfg OpenAIConfig) (*OpenAIExtractor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("extraction API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT4oMini
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &OpenAIExtractor{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

func (e *OpenAIExtractor) Extract(ctx context.Context, sourceAddress, documentText string) (Result, error) {
	if e == nil || e.client == nil {
		return Result{}, fmt.Errorf("extractor is not initialized")
	}

	text := documentText
	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars]
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractionInstruction, sourceAddress, text)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("extraction API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("extraction API returned no choices")
	}

	return ParseCandidates(resp.Choices[0].Message.Content), nil
}
