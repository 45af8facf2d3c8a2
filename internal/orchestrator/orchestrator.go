// Package orchestrator drives one conversation exchange: read the history
// window, call the model provider, persist the completed turn pair.
package orchestrator

import (
	"fmt"

	"github.com/stupiduntilnot/omnichat/internal/chat"
	"github.com/stupiduntilnot/omnichat/internal/history"
	"github.com/stupiduntilnot/omnichat/internal/model"
)

// GenerationError marks provider failures (call error, timeout, unusable
// reply). When it is returned, nothing was written to history.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Orchestrator is a per-call request/response pipeline with no state of its
// own beyond the collaborators it delegates to.
type Orchestrator struct {
	store        *history.Store
	provider     model.Provider
	session      string
	systemPrompt string
	memoryLimit  int
}

// New creates an orchestrator for one session. memoryLimit is the number of
// recent turns replayed as context; 0 disables memory.
func New(store *history.Store, provider model.Provider, session, systemPrompt string, memoryLimit int) *Orchestrator {
	return &Orchestrator{
		store:        store,
		provider:     provider,
		session:      session,
		systemPrompt: systemPrompt,
		memoryLimit:  memoryLimit,
	}
}

// HandleMessage runs one exchange and returns the assistant reply. A single
// provider attempt is made; on provider failure no turn is persisted, so
// every stored turn pair corresponds to a completed exchange. On success the
// user turn is appended before the assistant turn.
func (o *Orchestrator) HandleMessage(userText string) (string, error) {
	window, err := o.store.Recent(o.session, o.memoryLimit)
	if err != nil {
		return "", err
	}

	messages := chat.Assemble(o.systemPrompt, window, userText)

	resp, err := o.provider.ChatCompletion(messages)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	reply, err := chat.DecodeReply(resp.Content)
	if err != nil {
		return "", &GenerationError{Err: err}
	}

	if _, err := o.store.Append(o.session, chat.RoleUser, userText); err != nil {
		return "", err
	}
	if _, err := o.store.Append(o.session, chat.RoleAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}
