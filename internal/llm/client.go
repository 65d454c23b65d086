// Package llm talks to a local Ollama instance. The pipeline uses it for
// the non-deterministic parsers; everything here degrades gracefully since
// the rule parser alone can carry a request.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"intentgate/internal/config"
)

var (
	// ErrUnavailable indicates the Ollama server is unreachable.
	ErrUnavailable = errors.New("llm server unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput indicates the model response could not be parsed
	// into the expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")
)

// GenerateRequest holds the parameters for one generation call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

// GenerateResponse holds the raw model output.
type GenerateResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client provides access to a language model for text generation.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Available(ctx context.Context) bool
}

type ollamaClient struct {
	cfg  config.LLM
	http *http.Client
	log  *slog.Logger
}

// NewOllamaClient creates a Client against a local Ollama instance. A nil
// logger discards call logs.
func NewOllamaClient(cfg config.LLM, log *slog.Logger) Client {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ollamaClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		log: log,
	}
}

// ollamaRequest is the JSON body for POST /api/generate, non-streaming.
type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

func (c *ollamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	body := ollamaRequest{
		Model:   c.cfg.Model,
		System:  req.SystemPrompt,
		Prompt:  req.UserPrompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: req.Temperature},
	}

	resp, err := c.doRequest(ctx, body)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.log.Warn("llm call failed", "model", c.cfg.Model, "latency_ms", latency, "error", err)
		if ctx.Err() != nil {
			return nil, ErrTimeout
		}
		if isConnectionError(err) {
			return nil, ErrUnavailable
		}
		return nil, err
	}

	c.log.Debug("llm call complete", "model", resp.Model, "latency_ms", latency)
	return &GenerateResponse{
		Text:      resp.Response,
		Model:     resp.Model,
		LatencyMs: latency,
	}, nil
}

func (c *ollamaClient) doRequest(ctx context.Context, body ollamaRequest) (*ollamaResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.cfg.Endpoint + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

func (c *ollamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
