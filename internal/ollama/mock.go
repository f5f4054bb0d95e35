package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"llmapi/pkg/types"
)

// Mock answers chat and list calls in-process without a running Ollama.
// Replies echo the last user message; streams split the same reply into
// word-sized chunks so their concatenation equals the blocking reply.
// Used for development and testing.
type Mock struct {
	Models []string
	// Delay is applied before every reply and between stream chunks.
	Delay time.Duration
}

// NewMock returns a Mock that reports a single model.
func NewMock(model string) *Mock {
	return &Mock{Models: []string{model}}
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		if err := ctx.Err(); err != nil {
			return &Error{Kind: KindUnavailable, Op: "mock", Err: err}
		}
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return &Error{Kind: KindUnavailable, Op: "mock", Err: ctx.Err()}
	}
}

// List returns the configured model names.
func (m *Mock) List(ctx context.Context) (ListResponse, error) {
	if err := m.wait(ctx); err != nil {
		return ListResponse{}, err
	}
	out := ListResponse{Models: make([]ModelInfo, 0, len(m.Models))}
	for _, name := range m.Models {
		out.Models = append(out.Models, ModelInfo{Name: name, Model: name})
	}
	return out, nil
}

// Chat returns the echo reply as one message.
func (m *Mock) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := m.wait(ctx); err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Model:      req.Model,
		Message:    &types.Message{Role: types.RoleAssistant, Content: mockReply(req)},
		Done:       true,
		DoneReason: "stop",
	}, nil
}

// ChatStream emits the echo reply in chunks followed by an empty done chunk.
func (m *Mock) ChatStream(ctx context.Context, req ChatRequest, fn func(ChatResponse) error) error {
	for _, part := range splitWords(mockReply(req)) {
		if err := m.wait(ctx); err != nil {
			return err
		}
		chunk := ChatResponse{Model: req.Model, Message: &types.Message{Role: types.RoleAssistant, Content: part}}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return fn(ChatResponse{Model: req.Model, Message: &types.Message{Role: types.RoleAssistant}, Done: true, DoneReason: "stop"})
}

func mockReply(req ChatRequest) string {
	var prompt string
	for _, msg := range req.Messages {
		if msg.Role == types.RoleUser {
			prompt = msg.Content
		}
	}
	return fmt.Sprintf("[%s] %s", req.Model, prompt)
}

// splitWords cuts s after every space, keeping the spaces.
func splitWords(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}
