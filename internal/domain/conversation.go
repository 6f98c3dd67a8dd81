package domain

import (
	"sort"
	"time"
)

// Stage is the interview phase a conversation is in. Stages only move
// forward: exploration, elaboration, recap, terminated.
type Stage string

const (
	StageExploration Stage = "exploration"
	StageElaboration Stage = "elaboration"
	StageRecap       Stage = "recap"
	StageTerminated  Stage = "terminated"
)

var stageOrder = map[Stage]int{
	StageExploration: 0,
	StageElaboration: 1,
	StageRecap:       2,
	StageTerminated:  3,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Before reports whether s comes strictly earlier than other.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// Direction is how a cited influence moved the participant.
type Direction string

const (
	DirectionToward   Direction = "toward"
	DirectionAwayFrom Direction = "away_from"
	DirectionUnclear  Direction = "unclear"
)

// Influence is a person the participant cites as shaping their belief.
type Influence struct {
	Person    string    `json:"person"`
	Direction Direction `json:"direction"`
	Snippet   string    `json:"snippet"`
}

// Tags is the classifier output for one participant utterance.
type Tags struct {
	Minimal     bool        `json:"minimal"`
	Exhaustion  bool        `json:"exhaustion"`
	Substantive bool        `json:"substantive"`
	Influences  []Influence `json:"influences"`
	Topics      []string    `json:"topics,omitempty"`
}

// Metadata is attached to every stored message. Classifier fields are zero
// for assistant messages.
type Metadata struct {
	Tags
	Stage    Stage `json:"stage"`
	Fallback bool  `json:"fallback,omitempty"`
}

// Message is a single transcript entry. The same shape is stored on the
// conversation and on the participant.
type Message struct {
	Role           string    `json:"role"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	Turn           int       `json:"turn"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	Metadata       Metadata  `json:"metadata"`
}

// ResponsePatterns tracks assistant openings for repetition avoidance.
type ResponsePatterns struct {
	LastOpeningPhrase           string `json:"lastOpeningPhrase,omitempty"`
	ConsecutiveSimilarResponses int    `json:"consecutiveSimilarResponses"`
}

// ConversationState is the director's per-conversation record. It is
// persisted inside the conversation document.
type ConversationState struct {
	Stage                    Stage            `json:"stage"`
	TurnCount                int              `json:"turnCount"`
	TopicTurnCount           int              `json:"topicTurnCount"`
	SubstantiveResponseCount int              `json:"substantiveResponseCount"`
	MinimalResponseCount     int              `json:"minimalResponseCount"`
	ExhaustionSignals        int              `json:"exhaustionSignals"`
	ExploredTopics           []string         `json:"exploredTopics"`
	NarrativeInfluences      []Influence      `json:"narrativeInfluences"`
	ResponsePatterns         ResponsePatterns `json:"responsePatterns"`
}

// NewConversationState returns the initial state of a conversation.
func NewConversationState() ConversationState {
	return ConversationState{
		Stage:               StageExploration,
		ExploredTopics:      []string{},
		NarrativeInfluences: []Influence{},
	}
}

// AddTopics merges topics into ExploredTopics, keeping the set sorted.
func (s *ConversationState) AddTopics(topics ...string) {
	seen := make(map[string]struct{}, len(s.ExploredTopics))
	for _, t := range s.ExploredTopics {
		seen[t] = struct{}{}
	}
	for _, t := range topics {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		s.ExploredTopics = append(s.ExploredTopics, t)
	}
	sort.Strings(s.ExploredTopics)
}

// AddInfluences appends influences not already recorded for the same
// person and direction.
func (s *ConversationState) AddInfluences(in ...Influence) {
	for _, inf := range in {
		dup := false
		for _, existing := range s.NarrativeInfluences {
			if existing.Person == inf.Person && existing.Direction == inf.Direction {
				dup = true
				break
			}
		}
		if !dup {
			s.NarrativeInfluences = append(s.NarrativeInfluences, inf)
		}
	}
}

// Conversation is the persisted conversation document.
type Conversation struct {
	ID            string            `json:"id"`
	ParticipantID string            `json:"participantId"`
	StartedAt     time.Time         `json:"startedAt"`
	EndedAt       *time.Time        `json:"endedAt,omitempty"`
	State         ConversationState `json:"state"`
	Messages      []Message         `json:"messages"`
}

// Terminated reports whether the conversation no longer accepts replies.
func (c Conversation) Terminated() bool {
	return c.State.Stage == StageTerminated
}

// TranscriptMessages returns the messages that mirror onto the participant:
// everything except the opening assistant line.
func (c Conversation) TranscriptMessages() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.Turn == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}
