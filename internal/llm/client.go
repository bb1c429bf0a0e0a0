// Package llm provides a streaming chat-completion client for the assistant.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrMissingAPIKey indicates no OPENAI_API_KEY was found in the
	// environment, .env or config.
	ErrMissingAPIKey = errors.New("llm: missing API key (set OPENAI_API_KEY)")
	// ErrRateLimited indicates the provider kept rejecting requests with 429.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrEmptyResponse indicates the provider returned no choices.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Role is the author of a chat message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System, User and Assistant build messages.
func System(text string) Message    { return Message{Role: RoleSystem, Content: text} }
func User(text string) Message      { return Message{Role: RoleUser, Content: text} }
func Assistant(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// Client is a chat-completion backend.
type Client interface {
	// Complete returns the whole reply at once.
	Complete(ctx context.Context, msgs []Message) (string, error)
	// Stream returns the reply incrementally. The stream must be drained
	// or cancelled.
	Stream(ctx context.Context, msgs []Message) (*Stream, error)
}
