package ollama

import "llmapi/pkg/types"

// NumPredictUnlimited asks the backend to generate until the model stops.
const NumPredictUnlimited = -1

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *Options        `json:"options,omitempty"`
}

// Options carries sampling parameters. Nil fields are omitted so the backend
// applies its own defaults.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// ChatResponse is a blocking chat reply or one NDJSON chunk of a stream.
type ChatResponse struct {
	Model      string         `json:"model"`
	CreatedAt  string         `json:"created_at,omitempty"`
	Message    *types.Message `json:"message,omitempty"`
	Done       bool           `json:"done"`
	DoneReason string         `json:"done_reason,omitempty"`
	Error      string         `json:"error,omitempty"`

	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
}

// Content returns the message text, or "" when the chunk carries none.
func (r ChatResponse) Content() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Content
}

// ModelInfo describes one entry of GET /api/tags.
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// ListResponse is the body of GET /api/tags.
type ListResponse struct {
	Models []ModelInfo `json:"models"`
}

// Names returns model names in the order the backend listed them.
func (l ListResponse) Names() []string {
	out := make([]string, 0, len(l.Models))
	for _, m := range l.Models {
		out = append(out, m.Name)
	}
	return out
}
