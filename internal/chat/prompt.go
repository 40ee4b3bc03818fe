package chat

import (
	"strings"

	"vllmpoc/pkg/types"
)

// BuildPrompt flattens a conversation into the plain-text prompt fed to the
// engine. User and assistant turns become "User: ..." and "Assistant: ..."
// lines; system messages are dropped. The prompt ends with an "Assistant:"
// cue so the model continues as the assistant.
func BuildPrompt(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			b.WriteString("User: ")
		case types.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	b.WriteString("Assistant:")
	return b.String()
}

// CountTokens approximates a token count as the number of whitespace-separated words.
func CountTokens(s string) int { return len(strings.Fields(s)) }
