// Package ollama is a small HTTP client for the Ollama REST API covering the
// calls the relay needs: blocking chat, streaming chat and model listing.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const defaultConnectTimeout = 10 * time.Second

// Client talks to one Ollama server. It is safe for concurrent use and meant
// to live for the whole process.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// New constructs a client for baseURL. timeout bounds blocking calls end to
// end and, for streams, the gap between two chunks. Zero disables it.
func New(baseURL string, timeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: deadlines come from the request context so streams are
	// not cut off mid-generation.
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr, Timeout: 0},
	}
}

// BaseURL returns the server address the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// List calls GET /api/tags.
func (c *Client) List(ctx context.Context) (ListResponse, error) {
	const op = "list"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, op, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return ListResponse{}, err
	}
	defer resp.Body.Close()

	var wire struct {
		Models []struct {
			Name       *string `json:"name"`
			Model      string  `json:"model"`
			ModifiedAt string  `json:"modified_at"`
			Size       int64   `json:"size"`
			Digest     string  `json:"digest"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return ListResponse{}, c.decodeErr(ctx, op, err)
	}
	out := ListResponse{Models: make([]ModelInfo, 0, len(wire.Models))}
	for i, m := range wire.Models {
		if m.Name == nil {
			return ListResponse{}, &Error{Kind: KindMalformed, Op: op, Err: fmt.Errorf("models[%d] has no name", i)}
		}
		out.Models = append(out.Models, ModelInfo{Name: *m.Name, Model: m.Model, ModifiedAt: m.ModifiedAt, Size: m.Size, Digest: m.Digest})
	}
	return out, nil
}

// Chat calls POST /api/chat with stream forced off and returns the single reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	const op = "chat"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req.Stream = false
	resp, err := c.do(ctx, op, http.MethodPost, "/api/chat", req)
	if err != nil {
		return ChatResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, c.readErr(ctx, op, err)
	}
	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return ChatResponse{}, &Error{Kind: KindMalformed, Op: op, Err: err}
	}
	if out.Error != "" {
		return ChatResponse{}, &Error{Kind: KindUnavailable, Op: op, Err: errors.New(out.Error)}
	}
	// Content must be present, even if empty; a reply without it is not a chat reply.
	var shape struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	}
	_ = json.Unmarshal(body, &shape)
	switch {
	case shape.Message == nil:
		return ChatResponse{}, &Error{Kind: KindMalformed, Op: op, Err: errors.New("response has no message")}
	case shape.Message.Content == nil:
		return ChatResponse{}, &Error{Kind: KindMalformed, Op: op, Err: errors.New("message has no content")}
	}
	return out, nil
}

// ChatStream calls POST /api/chat with stream forced on and invokes fn for
// every NDJSON chunk in the order received. It returns nil when the backend
// closes the stream, the first error from fn, or an *Error when the
// connection drops, a chunk cannot be decoded, or the backend reports an
// error mid-stream.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, fn func(ChatResponse) error) error {
	const op = "chat stream"
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Idle watchdog: reset on every chunk.
	var idled atomic.Bool
	var idle *time.Timer
	if c.timeout > 0 {
		idle = time.AfterFunc(c.timeout, func() {
			idled.Store(true)
			cancel()
		})
		defer idle.Stop()
	}

	req.Stream = true
	resp, err := c.do(ctx, op, http.MethodPost, "/api/chat", req)
	if err != nil {
		if idled.Load() {
			return &Error{Kind: KindTimeout, Op: op, Err: fmt.Errorf("no response within %s", c.timeout)}
		}
		return err
	}
	defer resp.Body.Close()

	// The watchdog only runs while waiting on the backend; time spent in fn
	// (a slow downstream reader) does not count against it.
	r := bufio.NewReader(resp.Body)
	for {
		if idle != nil {
			idle.Reset(c.timeout)
		}
		line, err := r.ReadBytes('\n')
		if idle != nil {
			idle.Stop()
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var chunk ChatResponse
			if jerr := json.Unmarshal(line, &chunk); jerr != nil {
				return &Error{Kind: KindMalformed, Op: op, Err: fmt.Errorf("decode chunk: %w", jerr)}
			}
			if chunk.Error != "" {
				return &Error{Kind: KindUnavailable, Op: op, Err: errors.New(chunk.Error)}
			}
			if cbErr := fn(chunk); cbErr != nil {
				return cbErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if idled.Load() {
				return &Error{Kind: KindTimeout, Op: op, Err: fmt.Errorf("no chunk within %s", c.timeout)}
			}
			return c.readErr(ctx, op, err)
		}
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// do sends one request and returns the response only for 2xx statuses.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindUnavailable, Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.readErr(ctx, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: KindUnavailable, Op: op, Status: resp.StatusCode, Err: errors.New(errorText(b, resp.Status))}
	}
	return resp, nil
}

// readErr classifies a transport failure.
func (c *Client) readErr(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Err: fmt.Errorf("no response within %s", c.timeout)}
	}
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}

// decodeErr classifies a failure to decode a 2xx body: transport problems
// stay unavailable, anything else means the payload had the wrong shape.
func (c *Client) decodeErr(ctx context.Context, op string, err error) error {
	var ne net.Error
	if ctx.Err() != nil || errors.As(err, &ne) {
		return c.readErr(ctx, op, err)
	}
	return &Error{Kind: KindMalformed, Op: op, Err: err}
}

// errorText extracts {"error": "..."} from an Ollama error body, falling back
// to the raw body or the HTTP status line.
func errorText(body []byte, status string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return status
}
