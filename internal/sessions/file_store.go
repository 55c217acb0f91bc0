// Package sessions implements the write-through persistence layer (spec
// 4.6): one JSON file per session under a base directory, loaded whole on
// Init and rewritten whole on each successful Run.
//
// Grounded on the teacher's internal/sessions package for the
// mutex-guarded, map-backed store shape (see MemoryStore in memory.go),
// adapted to the simpler Load/Save-by-message-slice contract
// agent.SessionStore declares rather than the teacher's full session-CRUD
// Store interface.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// FileStore persists each session's message history as one JSON file
// under Dir, named by a sanitized session ID. Safe for concurrent use.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads the session's persisted messages, returning an empty slice
// (not an error) if no file exists yet for this session.
func (s *FileStore) Load(_ context.Context, sessionID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return messages, nil
}

// Save atomically rewrites the session's persisted messages.
func (s *FileStore) Save(_ context.Context, sessionID string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	final := s.path(sessionID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write session temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("commit session file: %w", err)
	}
	return nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sanitizeSessionID(sessionID)+".json")
}

func sanitizeSessionID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
