package chat

import (
	goopenai "github.com/sashabaranov/go-openai"
)

type Role string

const (
	RoleUser      Role = goopenai.ChatMessageRoleUser
	RoleAssistant Role = goopenai.ChatMessageRoleAssistant
	RoleSystem    Role = goopenai.ChatMessageRoleSystem
)

func (r Role) Valid() bool {
	if r != RoleUser && r != RoleAssistant && r != RoleSystem {
		return false
	}

	return true
}

// Message is one turn of a conversation. Image is a reference kept by the
// client for rendering and is never forwarded to the provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

type Request struct {
	Messages []Message `json:"messages"`
	System   string    `json:"system,omitempty"`
	Model    string    `json:"model,omitempty"`
	Preset   string    `json:"preset,omitempty"`
	Stream   bool      `json:"stream,omitempty"`
}

// ErrorResponse is the JSON body of every non-200 relay response.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// ToProviderMessages prepends system as a system message when it is not
// empty. The returned slice never aliases messages.
func ToProviderMessages(system string, messages []Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages)+1)
	if len(system) != 0 {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    string(RoleSystem),
			Content: system,
		})
	}

	for _, m := range messages {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	return out
}
