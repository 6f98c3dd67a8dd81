package usecase

// fallbackReplies stand in for the generator when it fails.
var fallbackReplies = []string{
	"Could you tell me a bit more about that?",
	"What do you think led you there?",
	"How did that shape the way you see climate change today?",
	"Can you think of a specific moment when you noticed that shift?",
	"Who or what else comes to mind when you think about this?",
}

const closingFallback = "Thank you so much for sharing your experiences with me. That's the end of our conversation, and your responses have been saved."

// fallbackReply picks round-robin by turn and never repeats the previous
// assistant line.
func fallbackReply(turn int, lastAssistant string) string {
	idx := turn % len(fallbackReplies)
	if fallbackReplies[idx] == lastAssistant {
		idx = (idx + 1) % len(fallbackReplies)
	}
	return fallbackReplies[idx]
}
