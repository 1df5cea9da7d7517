package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultEndpoint is a local OpenAI-compatible chat completion endpoint.
	DefaultEndpoint = "http://localhost:11434/v1/chat/completions"
	// DefaultTimeout bounds one completion call. Generation latency is unpredictable, so it is long.
	DefaultTimeout = 4 * time.Hour
)

// Client posts chat requests to an OpenAI-compatible HTTP endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

// NewClient creates a new completion client. A zero timeout uses DefaultTimeout.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) (client *Client) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	client = &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
	return client
}

// Name identifies the backend.
func (c *Client) Name() (name string) {
	name = BackendHTTP
	return name
}

// Complete sends req and returns the response, or nil when the call fails for any reason.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (resp *ChatResponse) {
	c.logger.Info("sending chat request", slog.String("endpoint", c.endpoint), slog.String("model", req.Model))

	result, err := c.sendRequest(ctx, req)
	if err != nil {
		c.logger.Error("chat request failed", slog.String("endpoint", c.endpoint), slog.Any("error", err))
		return resp
	}

	resp = &result
	return resp
}

// sendRequest performs the POST and decodes the reply.
func (c *Client) sendRequest(ctx context.Context, req ChatRequest) (result ChatResponse, err error) {
	var reqBody []byte
	reqBody, err = json.Marshal(req)
	if err != nil {
		err = errors.Wrap(err, "failed to marshal request")
		return result, err
	}

	// Create HTTP request
	var httpReq *http.Request
	httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return result, err
	}

	// Set headers
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Basic "+c.apiKey)
	}

	// Send request
	var resp *http.Response
	resp, err = c.httpClient.Do(httpReq)
	if err != nil {
		err = errors.Wrap(err, "HTTP request failed")
		return result, err
	}
	defer resp.Body.Close()

	// Read response body
	var respBody []byte
	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return result, err
	}

	// Check status code
	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		return result, err
	}

	err = json.Unmarshal(respBody, &result)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse chat response: %s", string(respBody))
		return result, err
	}

	return result, err
}
