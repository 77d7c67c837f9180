package domain

import "context"

// Completer produces a reply for a single user turn. Implementations must
// never propagate internal faults: on failure they log the cause and return
// a generic fallback reply, so the relay always answers the user's turn.
type Completer interface {
	Generate(ctx context.Context, prompt string, userID string) string
	Healthy(ctx context.Context) error
}

type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
