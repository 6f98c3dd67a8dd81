package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"belief-interview/internal/domain"
)

const openingWords = 3

// leadIns are prepended when a reply starts with the forbidden opening.
var leadIns = []string{
	"From what you describe, ",
	"If I'm hearing you right, ",
	"Thinking about what you shared, ",
	"Building on that, ",
}

// openingPhrase is the first few words of text, lowercased with punctuation
// removed.
func openingPhrase(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	var words []string
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		if w == "" {
			continue
		}
		words = append(words, w)
		if len(words) == openingWords {
			break
		}
	}
	return strings.Join(words, " ")
}

// applyRepetitionPolicy rewrites a reply that begins with the last opening
// phrase and returns the updated response patterns. The returned reply never
// begins with the previous opening.
func applyRepetitionPolicy(reply string, p domain.ResponsePatterns, turn int) (string, domain.ResponsePatterns) {
	opening := openingPhrase(reply)
	if p.LastOpeningPhrase == "" || opening != p.LastOpeningPhrase {
		return reply, domain.ResponsePatterns{LastOpeningPhrase: opening}
	}

	for i := 0; i < len(leadIns); i++ {
		lead := leadIns[(turn+i)%len(leadIns)]
		if openingPhrase(lead) == p.LastOpeningPhrase {
			continue
		}
		rewritten := lead + lowerFirst(reply)
		return rewritten, domain.ResponsePatterns{
			LastOpeningPhrase:           openingPhrase(rewritten),
			ConsecutiveSimilarResponses: p.ConsecutiveSimilarResponses + 1,
		}
	}
	return reply, domain.ResponsePatterns{LastOpeningPhrase: opening, ConsecutiveSimilarResponses: p.ConsecutiveSimilarResponses + 1}
}

// lowerFirst lowercases the first letter unless the first word is the
// pronoun "I" or one of its contractions.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsUpper(r) {
		return s
	}
	if r == 'I' {
		next, _ := utf8.DecodeRuneInString(s[size:])
		if size == len(s) || next == '\'' || next == '’' || !unicode.IsLetter(next) {
			return s
		}
	}
	return string(unicode.ToLower(r)) + s[size:]
}
