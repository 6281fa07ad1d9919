package models

import "encoding/json"

// Role of a chat message sent to the generation backend.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// ChatMessage is one turn of a generation request.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is a schema-constrained generation call. The backend must
// answer with JSON conforming to Schema.
type GenerationRequest struct {
	Name        string          `json:"name"`
	Messages    []ChatMessage   `json:"messages"`
	Schema      json.RawMessage `json:"schema"`
	Temperature *float64        `json:"temperature,omitempty"`
}

// System returns the concatenated system turns.
func (r GenerationRequest) System() string {
	var out string
	for _, m := range r.Messages {
		if m.Role != RoleSystem {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}
