package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sampleResponse(content string) (resp ChatResponse) {
	resp = ChatResponse{
		ID:      "chatcmpl-1",
		Object:  "chat.completion",
		Created: 1700000000,
		Model:   "m",
		Choices: []Choice{
			{
				Index:        0,
				FinishReason: "stop",
				Message:      &Message{Role: RoleAssistant, Content: content},
			},
		},
		Usage:             Usage{PromptTokens: 3, CompletionTokens: 5, TotalTokens: 8},
		SystemFingerprint: "fp",
	}
	return resp
}

func TestNewClient(t *testing.T) {
	client := NewClient("", "key", 0, nil)

	if client == nil {
		t.Fatal("Expected non-nil client")
	}

	if client.endpoint != DefaultEndpoint {
		t.Errorf("Expected endpoint '%s', got '%s'", DefaultEndpoint, client.endpoint)
	}

	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}

	if client.Name() != BackendHTTP {
		t.Errorf("Expected backend '%s', got '%s'", BackendHTTP, client.Name())
	}
}

func TestComplete(t *testing.T) {
	// Create test server.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request.
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("Missing or incorrect Content-Type header")
		}

		if r.Header.Get("Accept") != "application/json" {
			t.Error("Missing or incorrect Accept header")
		}

		if r.Header.Get("Authorization") != "Basic test-key" {
			t.Errorf("Expected 'Basic test-key', got '%s'", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var req ChatRequest
		err := json.Unmarshal(body, &req)
		if err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if req.MaxTokens != UnboundedTokens {
			t.Errorf("Expected max_tokens %d, got %d", UnboundedTokens, req.MaxTokens)
		}

		if req.Stream {
			t.Error("Expected stream to be false")
		}

		if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
			t.Errorf("Expected system then user turn, got %+v", req.Messages)
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(sampleResponse("hello"))
	}))
	defer server.Close()

	// Create client pointing to test server.
	client := NewClient(server.URL, "test-key", time.Minute, nil)

	resp := client.Complete(context.Background(), NewChatRequest("m", 0.5, "sys", "user"))
	if resp == nil {
		t.Fatal("Expected response, got nil")
	}

	content, ok := resp.FirstContent()
	if !ok || content != "hello" {
		t.Errorf("Expected content 'hello', got '%s' (ok=%v)", content, ok)
	}

	if resp.Usage.TotalTokens != 8 {
		t.Errorf("Expected 8 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteNoCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("Expected no Authorization header, got '%s'", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(sampleResponse("ok"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Minute, nil)
	if resp := client.Complete(context.Background(), NewChatRequest("m", 0.5, "s", "u")); resp == nil {
		t.Error("Expected response, got nil")
	}
}

func TestCompleteFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			payload: `{"error":"model overloaded"}`,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			payload: `{"error":"bad key"}`,
		},
		{
			name:    "created is not ok",
			status:  http.StatusCreated,
			payload: `{}`,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			payload: `{"choices": [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			client := NewClient(server.URL, "key", time.Minute, nil)
			resp := client.Complete(context.Background(), NewChatRequest("m", 0.5, "s", "u"))
			if resp != nil {
				t.Errorf("Expected nil response, got %+v", resp)
			}
		})
	}
}

func TestCompleteUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient(endpoint, "key", time.Second, nil)
	resp := client.Complete(context.Background(), NewChatRequest("m", 0.5, "s", "u"))
	if resp != nil {
		t.Errorf("Expected nil response for unreachable endpoint, got %+v", resp)
	}
}

func TestSendRequestErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", time.Minute, nil)
	_, err := client.sendRequest(context.Background(), NewChatRequest("m", 0.5, "s", "u"))
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("Expected status and body in error, got '%v'", err)
	}
}

func TestChatRequestWireShape(t *testing.T) {
	data, err := json.Marshal(NewChatRequest("gemma", 0.15, "Expert resume writer", "prompt"))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var raw map[string]any
	err = json.Unmarshal(data, &raw)
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	for _, key := range []string{"model", "messages", "temperature", "max_tokens", "stream"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key '%s' in request JSON", key)
		}
	}
}

func TestChatResponseDecode(t *testing.T) {
	payload := `{"id":"x","object":"chat.completion","created":1,"model":"m",
		"choices":[{"index":0,"logprobs":null,"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}],
		"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3},"system_fingerprint":"fp"}`

	var resp ChatResponse
	err := json.Unmarshal([]byte(payload), &resp)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if resp.SystemFingerprint != "fp" || resp.Usage.CompletionTokens != 2 {
		t.Errorf("Unexpected decode result: %+v", resp)
	}

	content, ok := resp.FirstContent()
	if !ok || content != "hi" {
		t.Errorf("Expected 'hi', got '%s'", content)
	}
}

func TestFirstContent(t *testing.T) {
	tests := []struct {
		name   string
		resp   *ChatResponse
		wantOK bool
	}{
		{name: "nil response", resp: nil, wantOK: false},
		{name: "no choices", resp: &ChatResponse{}, wantOK: false},
		{name: "choice without message", resp: &ChatResponse{Choices: []Choice{{Index: 0}}}, wantOK: false},
		{name: "choice with message", resp: &ChatResponse{Choices: []Choice{{Message: &Message{Content: ""}}}}, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.resp.FirstContent()
			if ok != tt.wantOK {
				t.Errorf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
		})
	}
}

func TestUserPrompt(t *testing.T) {
	req := NewChatRequest("m", 1, "system text", "user text")
	if req.UserPrompt() != "user text" {
		t.Errorf("Expected 'user text', got '%s'", req.UserPrompt())
	}

	if (ChatRequest{}).UserPrompt() != "" {
		t.Error("Expected empty prompt for request without messages")
	}
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "default http", opts: Options{Endpoint: "http://x"}, want: BackendHTTP},
		{name: "mock flag wins", opts: Options{Backend: BackendOpenAI, Mock: true}, want: BackendMock},
		{name: "mock backend", opts: Options{Backend: "MOCK"}, want: BackendMock},
		{name: "openai backend", opts: Options{Backend: BackendOpenAI, Endpoint: "http://x/v1", APIKey: "k"}, want: BackendOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCompleter(tt.opts, nil)
			if got.Name() != tt.want {
				t.Errorf("Expected backend '%s', got '%s'", tt.want, got.Name())
			}
		})
	}
}
