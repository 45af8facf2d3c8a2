package model

import "github.com/stupiduntilnot/omnichat/internal/chat"

// CompletionResponse is the common response model for model providers.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is the hosted language-model abstraction used by the orchestrator.
type Provider interface {
	ChatCompletion(messages []chat.Message) (CompletionResponse, error)
}
