package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"belief-interview/internal/domain"
)

func TestOpeningPhrase(t *testing.T) {
	require.Equal(t, "it sounds like", openingPhrase("It sounds like a lot happened."))
	require.Equal(t, "that's really interesting", openingPhrase("That's, really... interesting! Tell me more"))
	require.Equal(t, "wow", openingPhrase("Wow."))
	require.Equal(t, "", openingPhrase("  ...  "))
}

func TestApplyRepetitionPolicy_FirstReplyUnchanged(t *testing.T) {
	reply, p := applyRepetitionPolicy("It sounds like that mattered.", domain.ResponsePatterns{}, 1)
	require.Equal(t, "It sounds like that mattered.", reply)
	require.Equal(t, domain.ResponsePatterns{LastOpeningPhrase: "it sounds like"}, p)
}

func TestApplyRepetitionPolicy_RewritesRepeatedOpening(t *testing.T) {
	prev := domain.ResponsePatterns{LastOpeningPhrase: "it sounds like"}
	reply, p := applyRepetitionPolicy("It sounds like your uncle mattered.", prev, 1)
	require.Equal(t, "If I'm hearing you right, it sounds like your uncle mattered.", reply)
	require.Equal(t, "if i'm hearing", p.LastOpeningPhrase)
	require.Equal(t, 1, p.ConsecutiveSimilarResponses)
}

func TestApplyRepetitionPolicy_DifferentOpeningResets(t *testing.T) {
	prev := domain.ResponsePatterns{LastOpeningPhrase: "it sounds like", ConsecutiveSimilarResponses: 1}
	reply, p := applyRepetitionPolicy("You mentioned the floods.", prev, 3)
	require.Equal(t, "You mentioned the floods.", reply)
	require.Equal(t, domain.ResponsePatterns{LastOpeningPhrase: "you mentioned the"}, p)
}

func TestApplyRepetitionPolicy_SkipsLeadInMatchingLastOpening(t *testing.T) {
	prev := domain.ResponsePatterns{LastOpeningPhrase: "from what you"}
	reply, _ := applyRepetitionPolicy("From what you said, it changed.", prev, 0)
	require.Equal(t, "If I'm hearing you right, from what you said, it changed.", reply)
}

func TestLowerFirst(t *testing.T) {
	require.Equal(t, "it sounds like", lowerFirst("It sounds like"))
	require.Equal(t, "I think so", lowerFirst("I think so"))
	require.Equal(t, "I'm not sure", lowerFirst("I'm not sure"))
	require.Equal(t, "I", lowerFirst("I"))
	require.Equal(t, "if so", lowerFirst("If so"))
	require.Equal(t, "already lower", lowerFirst("already lower"))
	require.Equal(t, "", lowerFirst(""))
}

func TestFallbackReply_RoundRobinWithoutRepeats(t *testing.T) {
	prev := ""
	for turn := 1; turn <= 12; turn++ {
		got := fallbackReply(turn, prev)
		require.NotEqual(t, prev, got, "turn %d", turn)
		prev = got
	}
	require.Equal(t, fallbackReplies[2], fallbackReply(1, fallbackReplies[1]))
}
