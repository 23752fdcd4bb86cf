package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://aihubmix.com/v1"
	streamPrefix   = "data: "
	streamDone     = "[DONE]"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Headers    map[string]string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client is the single point of contact with the multi-provider AI
// gateway. One API key covers all model backends behind it.
type Client struct {
	cfg    Config
	stream *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	// Streaming calls must not be bounded by the sync client timeout;
	// the caller's context is the only deadline.
	return &Client{
		cfg:    cfg,
		stream: &http.Client{Transport: cfg.HTTPClient.Transport},
	}
}

// Configured reports whether an API key is available. Chat calls fail
// with a ConfigurationError when it is not.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// Chat issues a synchronous chat completion request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	req.Stream = false
	resp, err := c.do(ctx, c.cfg.HTTPClient, req)
	if err != nil {
		return ChatResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("read response body: %w", err)
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return ChatResponse{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return ChatResponse{}, &UpstreamError{Message: "empty choices in chat completion response"}
	}
	return out, nil
}

// StreamOptions configures a streaming call. OnChunk, when set, is
// invoked for every chunk in arrival order before Recv returns it.
type StreamOptions struct {
	OnChunk func(StreamChunk)
}

// ChatStream opens a streaming chat completion. The returned stream is
// lazy, finite and non-restartable; Close releases the upstream
// connection and is safe to call early.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, opts *StreamOptions) (*ChunkStream, error) {
	req.Stream = true
	resp, err := c.do(ctx, c.stream, req)
	if err != nil {
		return nil, err
	}

	s := &ChunkStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}
	s.scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if opts != nil {
		s.onChunk = opts.OnChunk
	}
	return s, nil
}

// HealthCheck probes the upstream models endpoint. It returns false
// rather than an error on any failure.
func (c *Client) HealthCheck(ctx context.Context) bool {
	endpoint, err := c.buildEndpointURL("/models")
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (c *Client) do(ctx context.Context, hc *http.Client, req ChatRequest) (*http.Response, error) {
	if !c.Configured() {
		return nil, &ConfigurationError{Message: "API key not configured"}
	}

	endpoint, err := c.buildEndpointURL("/chat/completions")
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat completion payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Message: fmt.Sprintf("request failed: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: upstreamMessage(resp.StatusCode, body)}
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
}

func (c *Client) buildEndpointURL(path string) (string, error) {
	base := strings.TrimSpace(c.cfg.BaseURL)
	if base == "" {
		return "", fmt.Errorf("base url is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}

func upstreamMessage(status int, body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return parsed.Error.Message
	}
	return fmt.Sprintf("API request failed with status %d", status)
}

// ChunkStream iterates the SSE frames of one streaming completion.
type ChunkStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	onChunk func(StreamChunk)
	done    bool
}

// Recv returns the next chunk in upstream delivery order. It returns
// io.EOF after the terminal [DONE] frame or when the upstream closes.
func (s *ChunkStream) Recv() (StreamChunk, error) {
	if s.done {
		return StreamChunk{}, io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if !strings.HasPrefix(line, streamPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, streamPrefix)
		if data == streamDone {
			s.done = true
			return StreamChunk{}, io.EOF
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed frames, matching the upstream client.
			continue
		}
		if s.onChunk != nil {
			s.onChunk(chunk)
		}
		return chunk, nil
	}
	s.done = true
	if err := s.scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return StreamChunk{}, err
		}
		return StreamChunk{}, &UpstreamError{Message: fmt.Sprintf("read stream: %v", err)}
	}
	return StreamChunk{}, io.EOF
}

// Close releases the upstream connection. Stopping early must not leak
// the open socket.
func (s *ChunkStream) Close() error {
	s.done = true
	return s.body.Close()
}
