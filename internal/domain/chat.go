package domain

// ChatMessage is the provider-agnostic chat message shape passed to the
// reply generator.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	SenderChatbot     = "chatbot"
	SenderParticipant = "participant"
)
