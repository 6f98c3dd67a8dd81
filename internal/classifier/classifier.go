// Package classifier tags participant utterances for interview pacing.
//
// Classify is deterministic and side-effect free. Every ambiguity resolves to
// the less aggressive tag: substantive over minimal, unclear over a guessed
// influence direction.
package classifier

import (
	"sort"
	"strings"
	"unicode"

	"belief-interview/internal/domain"
)

const snippetLen = 100

// exhaustionPhrases match anywhere in the utterance on word boundaries.
var exhaustionPhrases = []string{
	"that's all i've got",
	"nothing else to say",
	"can't think of anything",
	"i've said everything",
	"that's about it",
	"that's all",
	"nothing more",
	"wrap up",
	"end this",
}

// exhaustionWords must be the whole utterance.
var exhaustionWords = map[string]struct{}{
	"finish":   {},
	"done":     {},
	"finished": {},
}

// minimalPhrases must be the whole utterance, and only count for utterances
// of at most two words.
var minimalPhrases = map[string]struct{}{
	"that's all":              {},
	"nothing else":            {},
	"no more":                 {},
	"can't think of anything": {},
	"i've said everything":    {},
	"that's it":               {},
	"finished":                {},
	"done":                    {},
	"don't know":              {},
	"dunno":                   {},
}

// Classify returns the tags for a single participant utterance.
func Classify(text string) domain.Tags {
	norm := Normalize(text)
	bare := stripPunct(norm)
	padded := " " + bare + " "
	words := WordCount(norm)

	exhaustion := false
	if _, ok := exhaustionWords[bare]; ok {
		exhaustion = true
	}
	for _, p := range exhaustionPhrases {
		if strings.Contains(padded, " "+p+" ") {
			exhaustion = true
			break
		}
	}

	minimal := words == 1
	if !minimal && words > 0 && words <= 2 {
		_, minimal = minimalPhrases[bare]
	}

	return domain.Tags{
		Minimal:     minimal,
		Exhaustion:  exhaustion,
		Substantive: words > 0 && !minimal && !exhaustion,
		Influences:  extractInfluences(text),
		Topics:      extractTopics(bare),
	}
}

// Normalize trims, lowercases, folds typographic apostrophes and collapses
// whitespace.
func Normalize(text string) string {
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// WordCount is the number of whitespace-separated tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// stripPunct replaces everything except letters, digits and apostrophes with
// spaces and collapses the result.
func stripPunct(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

var topicKeywords = map[string][]string{
	"family":              {"family", "parents", "uncle", "aunt", "mother", "father", "mom", "dad", "brother", "sister", "cousin", "grandparents", "grandma", "grandpa"},
	"friends":             {"friend", "friends", "classmates", "roommate", "peers"},
	"media":               {"news", "documentary", "youtube", "tiktok", "podcast", "article", "social media", "instagram", "facebook", "twitter", "reddit", "tv", "film"},
	"science":             {"science", "scientist", "scientists", "research", "study", "studies", "data", "evidence", "ipcc", "climate model"},
	"weather":             {"heatwave", "heat wave", "flood", "floods", "wildfire", "wildfires", "hurricane", "drought", "storm", "storms", "weather", "summer", "winter"},
	"politics":            {"politics", "political", "government", "election", "politician", "politicians", "policy", "republican", "democrat", "left wing", "right wing"},
	"economy":             {"economy", "economic", "jobs", "cost", "prices", "money", "tax", "taxes", "energy bills"},
	"education":           {"school", "class", "teacher", "professor", "university", "college", "course", "lecture"},
	"personal_experience": {"i saw", "i noticed", "i experienced", "happened to me", "my town", "my home", "where i live", "i lived"},
}

func extractTopics(bare string) []string {
	padded := " " + strings.ReplaceAll(bare, "'s", "") + " "
	var topics []string
	for topic, kws := range topicKeywords {
		for _, kw := range kws {
			if strings.Contains(padded, " "+kw+" ") {
				topics = append(topics, topic)
				break
			}
		}
	}
	sort.Strings(topics)
	return topics
}
