package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"belief-interview/internal/domain"
)

type mockParticipants struct {
	created []domain.Participant
	err     error
}

func (m *mockParticipants) CreateParticipant(_ context.Context, p domain.Participant) error {
	m.created = append(m.created, p)
	return m.err
}

func TestNewSurveyService_ValidatesDependency(t *testing.T) {
	_, err := NewSurveyService(nil)
	require.Error(t, err)
}

func TestSubmit_HappyPath(t *testing.T) {
	orig := newUUID
	newUUID = func() string { return "participant-1" }
	t.Cleanup(func() { newUUID = orig })

	store := &mockParticipants{}
	svc, err := NewSurveyService(store)
	require.NoError(t, err)

	id, err := svc.Submit(context.Background(), map[string]any{"views_changed": " Yes ", "concern": 4.0})
	require.NoError(t, err)
	require.Equal(t, "participant-1", id)
	require.Len(t, store.created, 1)
	require.Equal(t, "Yes", store.created[0].ViewsChanged())
	require.Equal(t, 4.0, store.created[0].Survey["concern"])
	require.False(t, store.created[0].CreatedAt.IsZero())
}

func TestSubmit_ValidatesViewsChanged(t *testing.T) {
	svc, err := NewSurveyService(&mockParticipants{})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), map[string]any{})
	expectUsecaseError(t, err, ErrorInvalidInput, "missing_views_changed")

	for _, v := range []any{"yes", "Maybe", "", true, 1} {
		_, err = svc.Submit(context.Background(), map[string]any{"views_changed": v})
		expectUsecaseError(t, err, ErrorInvalidInput, "invalid_views_changed")
	}

	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Contains(t, usecaseErr.Message, "views_changed")
}

func TestSubmit_StoreError(t *testing.T) {
	svc, err := NewSurveyService(&mockParticipants{err: errors.New("disk full")})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), map[string]any{"views_changed": "No"})
	expectUsecaseError(t, err, ErrorInternal, "participant_write_error")
}
