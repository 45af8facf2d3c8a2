package chat

// Assemble builds the request message list for one exchange: system
// instruction (if any), the history window in chronological order, then the
// new user message.
func Assemble(system string, window []Message, userText string) []Message {
	messages := make([]Message, 0, len(window)+2)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, window...)
	messages = append(messages, Message{Role: RoleUser, Content: userText})
	return messages
}
