package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"belief-interview/internal/domain"
)

// ParticipantWriter persists newly enrolled participants.
type ParticipantWriter interface {
	CreateParticipant(ctx context.Context, p domain.Participant) error
}

// SurveyService enrolls participants from pre-survey submissions.
type SurveyService struct {
	store ParticipantWriter
	now   func() time.Time
}

func NewSurveyService(store ParticipantWriter) (*SurveyService, error) {
	if store == nil {
		return nil, errors.New("usecase: participant store must not be nil")
	}
	return &SurveyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Submit validates the survey and creates a participant. Only views_changed
// is validated; other fields are stored as given.
func (s *SurveyService) Submit(ctx context.Context, fields map[string]any) (string, error) {
	raw, ok := fields[domain.ViewsChangedField]
	if !ok {
		return "", invalidInput("missing_views_changed", domain.ViewsChangedField+" is required")
	}
	views, _ := raw.(string)
	views = strings.TrimSpace(views)
	if views != "Yes" && views != "No" {
		return "", invalidInput("invalid_views_changed", fmt.Sprintf("%s must be \"Yes\" or \"No\"", domain.ViewsChangedField))
	}

	survey := make(map[string]any, len(fields))
	for k, v := range fields {
		survey[k] = v
	}
	survey[domain.ViewsChangedField] = views

	p := domain.Participant{
		ID:        newUUID(),
		CreatedAt: s.now(),
		Survey:    survey,
	}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return "", newError(ErrorInternal, "participant_write_error", err)
	}
	return p.ID, nil
}
