// Package llm provides chat-completion clients for the model backends the
// server can talk to. All backends consume the same ordered, role-tagged
// message list and return a single trimmed text completion.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces a reply for an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
