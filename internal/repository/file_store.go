package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"belief-interview/internal/domain"
)

const (
	participantsDir  = "participants"
	conversationsDir = "conversations"
)

// FileStore keeps participants/<id>.json and conversations/<id>.json under a
// data root. Every write goes to a temporary sibling and is renamed into
// place, so readers never observe a partial document.
type FileStore struct {
	root string
}

// NewFileStore creates the data directories under root if needed.
func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("repository: data root must not be empty")
	}
	for _, dir := range []string{participantsDir, conversationsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("repository: create %s dir: %w", dir, err)
		}
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) participantPath(id string) string {
	return filepath.Join(s.root, participantsDir, id+".json")
}

func (s *FileStore) conversationPath(id string) string {
	return filepath.Join(s.root, conversationsDir, id+".json")
}

// CreateParticipant writes a new participant document. It fails if one with
// the same id already exists.
func (s *FileStore) CreateParticipant(ctx context.Context, p domain.Participant) error {
	if err := validateID("participant", p.ID); err != nil {
		return err
	}
	if err := s.create(ctx, s.participantPath(p.ID), p); err != nil {
		return fmt.Errorf("repository: CreateParticipant: %w", err)
	}
	return nil
}

// GetParticipant reads a participant document.
func (s *FileStore) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	if err := validateID("participant", id); err != nil {
		return domain.Participant{}, err
	}
	var p domain.Participant
	if err := s.read(ctx, s.participantPath(id), &p); err != nil {
		return domain.Participant{}, fmt.Errorf("repository: GetParticipant %s: %w", id, err)
	}
	return p, nil
}

// CreateConversation writes a new conversation document.
func (s *FileStore) CreateConversation(ctx context.Context, c domain.Conversation) error {
	if err := validateID("conversation", c.ID); err != nil {
		return err
	}
	if err := s.create(ctx, s.conversationPath(c.ID), c); err != nil {
		return fmt.Errorf("repository: CreateConversation: %w", err)
	}
	return nil
}

// GetConversation reads a conversation document.
func (s *FileStore) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	if err := validateID("conversation", id); err != nil {
		return domain.Conversation{}, err
	}
	var c domain.Conversation
	if err := s.read(ctx, s.conversationPath(id), &c); err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: GetConversation %s: %w", id, err)
	}
	return c, nil
}

// SaveConversation replaces a conversation document.
func (s *FileStore) SaveConversation(ctx context.Context, c domain.Conversation) error {
	if err := validateID("conversation", c.ID); err != nil {
		return err
	}
	if err := s.write(ctx, s.conversationPath(c.ID), c); err != nil {
		return fmt.Errorf("repository: SaveConversation: %w", err)
	}
	return nil
}

// SaveTurn writes the participant document, then the conversation document.
// Each file is replaced atomically; the pair is not.
func (s *FileStore) SaveTurn(ctx context.Context, p domain.Participant, c domain.Conversation) error {
	if err := validateID("participant", p.ID); err != nil {
		return err
	}
	if err := validateID("conversation", c.ID); err != nil {
		return err
	}
	if err := s.write(ctx, s.participantPath(p.ID), p); err != nil {
		return fmt.Errorf("repository: SaveTurn participant: %w", err)
	}
	if err := s.write(ctx, s.conversationPath(c.ID), c); err != nil {
		return fmt.Errorf("repository: SaveTurn conversation: %w", err)
	}
	return nil
}

func (s *FileStore) create(ctx context.Context, path string, v any) error {
	if _, err := os.Stat(path); err == nil {
		return errExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return s.write(ctx, path, v)
}

func (s *FileStore) read(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *FileStore) write(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
