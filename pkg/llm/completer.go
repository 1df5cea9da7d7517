package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Backend names.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
	BackendMock   = "mock"
)

// Completer sends a chat request and returns the reply, or nil when no completion is available.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (resp *ChatResponse)
	Name() (name string)
}

// Options selects and configures a Completer.
type Options struct {
	Backend  string
	Endpoint string
	APIKey   string
	Mock     bool
	Timeout  time.Duration
}

// NewCompleter returns the backend described by opts.
func NewCompleter(opts Options, logger *slog.Logger) (completer Completer) {
	if opts.Mock {
		completer = NewMockClient(logger)
		return completer
	}

	switch strings.ToLower(opts.Backend) {
	case BackendMock:
		completer = NewMockClient(logger)
	case BackendOpenAI:
		completer = NewSDKClient(opts.Endpoint, opts.APIKey, opts.Timeout, logger)
	default:
		completer = NewClient(opts.Endpoint, opts.APIKey, opts.Timeout, logger)
	}

	return completer
}
