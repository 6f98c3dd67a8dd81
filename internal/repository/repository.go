// Package repository persists participant and conversation documents.
//
// Two backends share one contract: FileStore keeps one JSON file per
// document under a data root, DynamoStore keeps the same JSON documents as
// DynamoDB items. Missing documents are reported as domain.ErrNotFound.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"belief-interview/internal/domain"
)

func validateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("repository: %s id must not be empty: %w", kind, domain.ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("repository: %s id %q: %w", kind, id, domain.ErrInvalidID)
	}
	return nil
}

var errExists = errors.New("repository: document already exists")
