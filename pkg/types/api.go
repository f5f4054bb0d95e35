package types

// GenerateRequest is the payload accepted by POST /generate.
type GenerateRequest struct {
	// Required prompt text. An empty string is forwarded as-is.
	// example: Write a haiku about the ocean.
	Prompt *string `json:"prompt" example:"Write a haiku about the ocean."`
	// Optional system instruction placed before the prompt.
	// example: You are a terse poet.
	System string `json:"system,omitempty" example:"You are a terse poet."`
	// Sampling temperature. Defaults to 0.7 when omitted; no bounds are enforced here.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Maximum number of tokens to generate. Omitted or 0 means unlimited.
	// Ignored when stream is true.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" example:"128"`
	// If true, the response is a text/event-stream of raw text fragments.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
}

// GenerateResponse is returned by a blocking POST /generate.
type GenerateResponse struct {
	// Full completion text.
	// example: Waves fold into foam
	Text string `json:"text" example:"Waves fold into foam"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	// example: LLM API with Ollama
	Message string `json:"message" example:"LLM API with Ollama"`
	// Deployment label from configuration.
	// example: dev
	Environment string `json:"environment" example:"dev"`
	// Model every generation request is served by.
	// example: llama3:latest
	Model string `json:"model" example:"llama3:latest"`
}

// HealthResponse is returned by GET /health when the backend answers.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: connected
	Ollama string `json:"ollama" example:"connected"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// Model names in the order the backend reported them.
	Models []string `json:"models"`
	// Configured model used for generation.
	// example: llama3:latest
	Current string `json:"current" example:"llama3:latest"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Human-readable failure description.
	// example: Generation failed: connection refused
	Detail string `json:"detail" example:"Generation failed: connection refused"`
}
