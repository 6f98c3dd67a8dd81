package openai

import (
	"context"
	"fmt"

	"belief-interview/internal/domain"
)

// Offline stands in for Client when no API key is configured. Every call
// fails with domain.ErrGeneratorUnavailable.
type Offline struct{}

func (Offline) Generate(ctx context.Context, _ string, _ []domain.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("openai: offline: %w: %w", domain.ErrGeneratorUnavailable, err)
	}
	return "", fmt.Errorf("openai: offline: %w", domain.ErrGeneratorUnavailable)
}
