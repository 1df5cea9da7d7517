package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// SDKClient sends chat requests through the official OpenAI Go SDK.
type SDKClient struct {
	client  openai.Client
	baseURL string
	logger  *slog.Logger
}

// NewSDKClient creates an SDK-backed client. endpoint may be a base URL or a full chat completions URL.
func NewSDKClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) (client *SDKClient) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := BaseURL(endpoint)
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client = &SDKClient{
		client:  openai.NewClient(opts...),
		baseURL: baseURL,
		logger:  logger,
	}
	return client
}

// Name identifies the backend.
func (c *SDKClient) Name() (name string) {
	name = BackendOpenAI
	return name
}

// Complete sends req through the SDK and returns the response, or nil on failure.
func (c *SDKClient) Complete(ctx context.Context, req ChatRequest) (resp *ChatResponse) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    toSDKMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	c.logger.Info("sending chat request", slog.String("endpoint", c.baseURL), slog.String("model", req.Model))

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error("chat request failed", slog.String("endpoint", c.baseURL), slog.Any("error", err))
		return resp
	}

	resp = fromSDKCompletion(completion)
	return resp
}

// BaseURL trims a trailing chat completions path so the SDK can append its own.
func BaseURL(endpoint string) (base string) {
	base = strings.TrimSpace(endpoint)
	base = strings.TrimSuffix(base, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	if base != "" {
		base += "/"
	}
	return base
}

// toSDKMessages converts conversation turns to SDK message params.
func toSDKMessages(messages []Message) (params []openai.ChatCompletionMessageParamUnion) {
	params = make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}
	return params
}

// fromSDKCompletion maps an SDK completion onto the wire response type.
func fromSDKCompletion(completion *openai.ChatCompletion) (resp *ChatResponse) {
	if completion == nil {
		return resp
	}

	resp = &ChatResponse{
		ID:                completion.ID,
		Object:            string(completion.Object),
		Created:           completion.Created,
		Model:             completion.Model,
		SystemFingerprint: completion.SystemFingerprint,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}

	for _, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index:        int(choice.Index),
			FinishReason: choice.FinishReason,
			Message: &Message{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
		})
	}

	return resp
}
