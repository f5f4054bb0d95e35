// Package relay turns public generation requests into calls against the
// inference backend and reshapes the replies. Every call is fire-once: there
// are no retries and nothing is cached.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"llmapi/internal/ollama"
	"llmapi/pkg/types"
)

// DefaultTemperature is used when a request does not set one.
const DefaultTemperature = 0.7

// Backend is the subset of the Ollama API the relay depends on.
// *ollama.Client and *ollama.Mock satisfy it.
type Backend interface {
	List(ctx context.Context) (ollama.ListResponse, error)
	Chat(ctx context.Context, req ollama.ChatRequest) (ollama.ChatResponse, error)
	ChatStream(ctx context.Context, req ollama.ChatRequest, fn func(ollama.ChatResponse) error) error
}

// Params describes one generation.
type Params struct {
	Prompt      string
	System      string
	Temperature float64
	// MaxTokens limits blocking generations. Nil or 0 means unlimited.
	// Streaming generations ignore it.
	MaxTokens *int
}

// Fragment is one piece of streamed output. A Fragment with Err set is the
// last value on its channel.
type Fragment struct {
	Text string
	Err  error
}

// Service is the generation relay. It is safe for concurrent use.
type Service struct {
	backend Backend
	model   string
	log     zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for backend call tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "relay").Logger() }
}

// New returns a relay that sends every request to model on backend.
func New(backend Backend, model string, opts ...Option) *Service {
	s := &Service{backend: backend, model: model, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Model returns the model every generation uses.
func (s *Service) Model() string { return s.model }

// BuildMessages returns the chat history for a prompt: an optional leading
// system message followed by exactly one user message. An empty system
// string is treated as absent.
func BuildMessages(prompt, system string) []types.Message {
	msgs := make([]types.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, types.Message{Role: types.RoleSystem, Content: system})
	}
	return append(msgs, types.Message{Role: types.RoleUser, Content: prompt})
}

// HealthCheck reports whether the backend answers a model listing. It never
// returns an error; every failure reads as unhealthy.
func (s *Service) HealthCheck(ctx context.Context) bool {
	if _, err := s.ListModels(ctx); err != nil {
		s.log.Debug().Err(err).Msg("health probe failed")
		return false
	}
	return true
}

// ListModels returns model names in backend order, duplicates included.
// Backend failures are returned unchanged in kind (see ollama.IsUnavailable
// and ollama.IsMalformed).
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	start := time.Now()
	res, err := s.backend.List(ctx)
	backendDuration.WithLabelValues("list", outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return res.Names(), nil
}

// Generate runs one blocking chat call and returns the reply text. Any
// failure is a *GenerationError.
func (s *Service) Generate(ctx context.Context, p Params) (string, error) {
	predict := ollama.NumPredictUnlimited
	if p.MaxTokens != nil && *p.MaxTokens != 0 {
		predict = *p.MaxTokens
	}
	temp := p.Temperature
	req := ollama.ChatRequest{
		Model:    s.model,
		Messages: BuildMessages(p.Prompt, p.System),
		Options:  &ollama.Options{Temperature: &temp, NumPredict: &predict},
	}

	start := time.Now()
	res, err := s.backend.Chat(ctx, req)
	backendDuration.WithLabelValues("chat", outcome(err)).Observe(time.Since(start).Seconds())
	generationsTotal.WithLabelValues("blocking", outcome(err)).Inc()
	if err != nil {
		s.log.Warn().Err(err).Str("model", s.model).Msg("generation failed")
		return "", &GenerationError{Err: err}
	}
	s.log.Debug().Str("model", s.model).Int("eval_count", res.EvalCount).Dur("took", time.Since(start)).Msg("generation done")
	return res.Content(), nil
}

// GenerateStream starts a streaming chat call and returns its fragments in
// the order the backend produced them. Chunks without content are skipped.
// The channel is unbuffered so nothing is read ahead of the consumer, and it
// is closed when the backend ends the stream. If the stream breaks, a final
// Fragment carrying a *GenerationError is sent; fragments already delivered
// stand. Cancelling ctx abandons the backend call.
//
// No token limit is sent in streaming mode.
func (s *Service) GenerateStream(ctx context.Context, p Params) <-chan Fragment {
	temp := p.Temperature
	req := ollama.ChatRequest{
		Model:    s.model,
		Messages: BuildMessages(p.Prompt, p.System),
		Options:  &ollama.Options{Temperature: &temp},
	}

	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		start := time.Now()
		n := 0
		err := s.backend.ChatStream(ctx, req, func(r ollama.ChatResponse) error {
			text := r.Content()
			if text == "" {
				return nil
			}
			select {
			case ch <- Fragment{Text: text}:
				n++
				fragmentsTotal.Inc()
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		backendDuration.WithLabelValues("chat_stream", outcome(err)).Observe(time.Since(start).Seconds())
		generationsTotal.WithLabelValues("stream", outcome(err)).Inc()
		if err == nil {
			s.log.Debug().Str("model", s.model).Int("fragments", n).Dur("took", time.Since(start)).Msg("stream done")
			return
		}
		s.log.Warn().Err(err).Str("model", s.model).Int("fragments", n).Msg("stream failed")
		select {
		case ch <- Fragment{Err: &GenerationError{Err: err}}:
		case <-ctx.Done():
		}
	}()
	return ch
}
