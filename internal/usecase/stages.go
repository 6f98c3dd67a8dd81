package usecase

import "belief-interview/internal/domain"

// Thresholds are the calibration constants that move a conversation between
// stages. Zero fields fall back to the defaults.
type Thresholds struct {
	// exploration -> elaboration
	ExploreMinSubstantive int
	ExploreMinTurns       int
	ExploreMinMinimal     int
	ExploreMinimalTurns   int

	// elaboration -> recap
	ElaborateMaxExhaustion  int
	ElaborateMaxMinimal     int
	ElaborateMaxTurns       int
	ElaborateMinSubstantive int

	// recap -> terminated
	RecapMaxExhaustion   int
	RecapMaxMinimal      int
	RecapTopicTurns      int
	RecapTopicExhaustion int
}

// DefaultThresholds returns the study's default calibration. They are high
// on purpose: bare "no" answers must not collapse the interview.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExploreMinSubstantive: 5,
		ExploreMinTurns:       12,
		ExploreMinMinimal:     8,
		ExploreMinimalTurns:   15,

		ElaborateMaxExhaustion:  8,
		ElaborateMaxMinimal:     12,
		ElaborateMaxTurns:       25,
		ElaborateMinSubstantive: 5,

		RecapMaxExhaustion:   10,
		RecapMaxMinimal:      15,
		RecapTopicTurns:      12,
		RecapTopicExhaustion: 3,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.ExploreMinSubstantive, d.ExploreMinSubstantive)
	fill(&t.ExploreMinTurns, d.ExploreMinTurns)
	fill(&t.ExploreMinMinimal, d.ExploreMinMinimal)
	fill(&t.ExploreMinimalTurns, d.ExploreMinimalTurns)
	fill(&t.ElaborateMaxExhaustion, d.ElaborateMaxExhaustion)
	fill(&t.ElaborateMaxMinimal, d.ElaborateMaxMinimal)
	fill(&t.ElaborateMaxTurns, d.ElaborateMaxTurns)
	fill(&t.ElaborateMinSubstantive, d.ElaborateMinSubstantive)
	fill(&t.RecapMaxExhaustion, d.RecapMaxExhaustion)
	fill(&t.RecapMaxMinimal, d.RecapMaxMinimal)
	fill(&t.RecapTopicTurns, d.RecapTopicTurns)
	fill(&t.RecapTopicExhaustion, d.RecapTopicExhaustion)
	return t
}

// NextStage evaluates the transition table for the current counters. It
// returns the following stage and true when exactly one step forward is due.
func NextStage(s domain.ConversationState, t Thresholds) (domain.Stage, bool) {
	switch s.Stage {
	case domain.StageExploration:
		if (s.SubstantiveResponseCount >= t.ExploreMinSubstantive && s.TurnCount >= t.ExploreMinTurns) ||
			(s.MinimalResponseCount >= t.ExploreMinMinimal && s.TurnCount >= t.ExploreMinimalTurns) {
			return domain.StageElaboration, true
		}
	case domain.StageElaboration:
		if s.ExhaustionSignals >= t.ElaborateMaxExhaustion ||
			s.MinimalResponseCount >= t.ElaborateMaxMinimal ||
			(s.TurnCount >= t.ElaborateMaxTurns && s.SubstantiveResponseCount >= t.ElaborateMinSubstantive) {
			return domain.StageRecap, true
		}
	case domain.StageRecap:
		if s.ExhaustionSignals >= t.RecapMaxExhaustion ||
			s.MinimalResponseCount >= t.RecapMaxMinimal ||
			(s.TopicTurnCount >= t.RecapTopicTurns && s.ExhaustionSignals >= t.RecapTopicExhaustion) {
			return domain.StageTerminated, true
		}
	}
	return s.Stage, false
}

// applyTags folds one classified utterance into the counters.
func applyTags(s *domain.ConversationState, tags domain.Tags) {
	s.TurnCount++
	s.TopicTurnCount++
	switch {
	case tags.Substantive:
		s.SubstantiveResponseCount++
	case tags.Minimal:
		s.MinimalResponseCount++
	}
	if tags.Exhaustion {
		s.ExhaustionSignals++
	}
	s.AddInfluences(tags.Influences...)
	s.AddTopics(tags.Topics...)
}

// advance applies at most one stage transition and reports whether one
// happened.
func advance(s *domain.ConversationState, t Thresholds) bool {
	next, ok := NextStage(*s, t)
	if !ok {
		return false
	}
	s.Stage = next
	s.TopicTurnCount = 0
	return true
}
