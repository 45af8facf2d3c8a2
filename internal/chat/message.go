package chat

// Role values for conversation turns. The store only ever holds user and
// assistant turns; system is used transiently when assembling a request.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string
	Content string
}
