package usecase

import (
	"fmt"
	"strings"

	"belief-interview/internal/domain"
)

// rotatingOpeners are required openings once the assistant has repeated
// itself.
var rotatingOpeners = []string{
	"You mentioned",
	"From what you describe",
	"I understand that",
	"That experience with",
}

type promptContext struct {
	state        domain.ConversationState
	viewsChanged string
}

// buildTurnPrompt assembles the system prompt for a productive stage. It
// reads state and never mutates it.
func buildTurnPrompt(ctx promptContext) string {
	return strings.Join([]string{
		"Role:",
		roleDirective(ctx.viewsChanged),
		"",
		"Stage:",
		stageDirective(ctx.state.Stage),
		"",
		"Narrative State:",
		narrativeState(ctx.state),
		"",
		"Response Rules:",
		responseRules(ctx.state),
	}, "\n")
}

// buildClosingPrompt is used once, on the turn that terminates the interview.
func buildClosingPrompt(ctx promptContext) string {
	return strings.Join([]string{
		"Role:",
		roleDirective(ctx.viewsChanged),
		"",
		"Task:",
		"The interview is over. Write a brief closing message of one or two sentences.",
		"Thank the participant for sharing their experiences and tell them the conversation has ended.",
		"Do not ask any further questions.",
		"",
		"Narrative State:",
		narrativeState(ctx.state),
	}, "\n")
}

func roleDirective(viewsChanged string) string {
	focus := "why the participant's views on climate change changed"
	if viewsChanged == "No" {
		focus = "why the participant's views on climate change have stayed the same"
	}
	return "You are a warm, curious research interviewer exploring " + focus + ". " +
		"Listen closely, reflect what you hear, and ask one question at a time. " +
		"Do not argue, persuade, or give your own opinion on climate change."
}

func stageDirective(stage domain.Stage) string {
	switch stage {
	case domain.StageElaboration:
		return "Pick the single most meaningful thread the participant has raised and probe it in depth. " +
			"Ask for concrete moments, people, and feelings connected to that thread."
	case domain.StageRecap:
		return "Summarize in two or three sentences what you have heard about how the participant's views formed. " +
			"Then invite them to correct anything you got wrong or add anything missing."
	default:
		return "Ask open questions about what influenced the participant's views: people, events, media, or personal experiences. " +
			"Keep questions short and non-leading."
	}
}

func narrativeState(s domain.ConversationState) string {
	var lines []string
	directional := false
	for _, inf := range s.NarrativeInfluences {
		switch inf.Direction {
		case domain.DirectionAwayFrom:
			directional = true
			lines = append(lines, fmt.Sprintf("- Participant distanced themselves from their %s regarding %q", inf.Person, inf.Snippet))
		case domain.DirectionToward:
			directional = true
			lines = append(lines, fmt.Sprintf("- Participant moved toward the views of their %s regarding %q", inf.Person, inf.Snippet))
		}
	}
	if len(s.ExploredTopics) > 0 {
		lines = append(lines, "- Topics already explored: "+strings.Join(s.ExploredTopics, ", "))
	}
	if len(lines) == 0 {
		return "- Nothing recorded yet."
	}
	if directional {
		lines = append(lines,
			"Keep cause and effect straight: when someone the participant mentions moved toward an extreme position, "+
				"the participant may have moved away from it. Never attribute the other person's views to the participant.")
	}
	return strings.Join(lines, "\n")
}

func responseRules(s domain.ConversationState) string {
	rules := []string{
		"1) Reply in at most three sentences.",
		"2) Ask no more than one question.",
		"3) Do not repeat a question the participant has already answered.",
	}
	if p := s.ResponsePatterns.LastOpeningPhrase; p != "" {
		rules = append(rules, fmt.Sprintf("%d) Do not begin your reply with %q.", len(rules)+1, p))
	}
	if s.ResponsePatterns.ConsecutiveSimilarResponses >= 1 {
		opener := requiredOpener(s.TurnCount, s.ResponsePatterns.LastOpeningPhrase)
		rules = append(rules, fmt.Sprintf("%d) Begin your reply with %q.", len(rules)+1, opener))
	}
	return strings.Join(rules, "\n")
}

// requiredOpener rotates by turn, skipping any opener that would repeat the
// forbidden opening phrase.
func requiredOpener(turn int, lastOpening string) string {
	for i := 0; i < len(rotatingOpeners); i++ {
		opener := rotatingOpeners[(turn+i)%len(rotatingOpeners)]
		if openingPhrase(opener) != lastOpening {
			return opener
		}
	}
	return rotatingOpeners[turn%len(rotatingOpeners)]
}

// buildHistory converts stored messages to generator history in order.
func buildHistory(msgs []domain.Message) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := domain.RoleAssistant
		if m.Role == domain.RoleUser {
			role = domain.RoleUser
		}
		out = append(out, domain.ChatMessage{Role: role, Content: text})
	}
	return out
}

func openingMessage(viewsChanged string) string {
	if viewsChanged == "No" {
		return "Thank you for completing the survey. You mentioned that your views on climate change haven't really changed. " +
			"I'd love to understand what has kept them steady. What comes to mind first when you think about where your views come from?"
	}
	return "Thank you for completing the survey. You mentioned that your views on climate change have changed over time. " +
		"I'd love to hear about that. What do you think first started the shift?"
}
