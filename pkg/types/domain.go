package types

// Role identifies the author of a chat message sent to the backend.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the ordered chat history sent to the backend.
type Message struct {
	// example: user
	Role Role `json:"role" example:"user"`
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}
