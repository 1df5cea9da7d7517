package llm

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UnboundedTokens asks the completion service not to cap output length.
const UnboundedTokens = -1

// ChatRequest represents the chat completion request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// Message represents a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents the chat completion response body.
type ChatResponse struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	Choices           []Choice `json:"choices"`
	Usage             Usage    `json:"usage"`
	SystemFingerprint string   `json:"system_fingerprint"`
}

// Choice represents one completion alternative.
type Choice struct {
	Index        int      `json:"index"`
	Logprobs     any      `json:"logprobs"`
	FinishReason string   `json:"finish_reason"`
	Message      *Message `json:"message"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewChatRequest builds the two-turn request sent for one document type.
func NewChatRequest(model string, temperature float64, system, user string) (req ChatRequest) {
	req = ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   UnboundedTokens,
		Stream:      false,
	}
	return req
}

// UserPrompt returns the content of the first user turn.
func (r ChatRequest) UserPrompt() (prompt string) {
	for _, msg := range r.Messages {
		if msg.Role == RoleUser {
			prompt = msg.Content
			return prompt
		}
	}
	return prompt
}

// FirstContent returns the first choice's message content.
// ok is false for a nil response, an empty choice list or a choice without a message.
func (r *ChatResponse) FirstContent() (content string, ok bool) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return content, ok
	}
	content = r.Choices[0].Message.Content
	ok = true
	return content, ok
}
