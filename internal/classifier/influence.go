package classifier

import (
	"strings"

	"belief-interview/internal/domain"
)

// relationNouns are the people an utterance can cite as an influence, in the
// order records are emitted.
var relationNouns = []string{
	"uncle", "aunt", "father", "mother", "dad", "mom", "brother", "sister",
	"grandfather", "grandmother", "grandpa", "grandma", "cousin", "husband",
	"wife", "partner", "boyfriend", "girlfriend", "son", "daughter", "friend",
	"teacher", "professor", "colleague", "coworker", "boss", "neighbor",
	"neighbour", "pastor", "roommate",
}

var awayCues = []string{
	"got sick of", "sick of", "tired of", "fed up with", "rejected",
	"disagreed", "disagree with", "opposite",
}

var towardCues = []string{
	"convinced me", "agreed with", "agree with", "showed me", "taught me",
	"inspired me", "opened my eyes", "persuaded me", "look up to", "admire",
}

var extremeDescriptors = []string{
	"conspiracy", "conspiracies", "conspiratorial", "extreme", "extremist",
	"crazy", "paranoid", "radical", "hoax", "rabbit hole",
}

var distancingVerbs = []string{
	"stopped listening", "distanced", "pulled away", "walked away",
	"moved away", "drifted", "stopped talking", "stopped believing",
	"stopped trusting", "avoid", "changing",
}

// extractInfluences finds cited people and the direction they moved the
// participant. Each person is judged on the sentence that names them plus the
// sentence that follows it.
func extractInfluences(text string) []domain.Influence {
	out := []domain.Influence{}
	sentences := splitSentences(Normalize(text))
	snippet := firstRunes(strings.TrimSpace(text), snippetLen)

	for _, noun := range relationNouns {
		idx := -1
		for i, s := range sentences {
			if mentions(s, noun) {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		scope := sentences[idx]
		if idx+1 < len(sentences) {
			scope += " " + sentences[idx+1]
		}
		out = append(out, domain.Influence{
			Person:    noun,
			Direction: direction(stripPunct(scope)),
			Snippet:   snippet,
		})
	}
	return out
}

func direction(scope string) domain.Direction {
	padded := " " + scope + " "
	away := containsAny(padded, awayCues) ||
		(containsAny(padded, extremeDescriptors) && containsAny(padded, distancingVerbs))
	toward := containsAny(padded, towardCues)
	switch {
	case away && !toward:
		return domain.DirectionAwayFrom
	case toward && !away:
		return domain.DirectionToward
	default:
		return domain.DirectionUnclear
	}
}

func mentions(sentence, noun string) bool {
	for _, w := range strings.Fields(stripPunct(sentence)) {
		w = strings.TrimSuffix(w, "'s")
		if w == noun || w == noun+"s" {
			return true
		}
	}
	return false
}

func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func splitSentences(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
