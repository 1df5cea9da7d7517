package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBaseURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{endpoint: "http://localhost:11434/v1/chat/completions", want: "http://localhost:11434/v1/"},
		{endpoint: "http://localhost:11434/v1/", want: "http://localhost:11434/v1/"},
		{endpoint: "http://localhost:11434/v1", want: "http://localhost:11434/v1/"},
		{endpoint: "", want: ""},
	}

	for _, tt := range tests {
		got := BaseURL(tt.endpoint)
		if got != tt.want {
			t.Errorf("BaseURL(%q): expected '%s', got '%s'", tt.endpoint, tt.want, got)
		}
	}
}

func TestSDKClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected path '/v1/chat/completions', got '%s'", r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		if req["model"] != "gemma" {
			t.Errorf("Expected model 'gemma', got '%v'", req["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleResponse("from sdk"))
	}))
	defer server.Close()

	client := NewSDKClient(server.URL+"/v1/chat/completions", "key", time.Minute, nil)

	resp := client.Complete(context.Background(), NewChatRequest("gemma", 0.4, "sys", "user"))
	if resp == nil {
		t.Fatal("Expected response, got nil")
	}

	content, ok := resp.FirstContent()
	if !ok || content != "from sdk" {
		t.Errorf("Expected 'from sdk', got '%s'", content)
	}

	if resp.Usage.TotalTokens != 8 {
		t.Errorf("Expected 8 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestSDKClientFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	client := NewSDKClient(server.URL+"/v1", "key", time.Minute, nil)

	resp := client.Complete(context.Background(), NewChatRequest("gemma", 0.4, "sys", "user"))
	if resp != nil {
		t.Errorf("Expected nil response, got %+v", resp)
	}
}
