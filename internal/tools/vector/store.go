// Package vector implements the RAG-gated indexing/retrieval tools (spec
// 4.5): a session's turns are upserted into a vector store keyed by
// session ID, and later turns can search it for relevant context. Both
// tools are no-ops when the caller's ToolContext has DisableRag set.
//
// Grounded on the teacher's internal/tools/vectormemory package
// (Indexer/Searcher collaborator interfaces, WriteTool/SearchTool naming)
// but decoupled from the teacher's internal/memory manager: this package
// defines its own minimal Store interface and in-memory implementation
// rather than depending on that subsystem.
package vector

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Record is one upserted entry.
type Record struct {
	ID        string
	SessionID string
	Text      string
}

// Match is one search hit, ranked by Score (higher is more relevant).
type Match struct {
	Record
	Score float64
}

// Store is the collaborator both tools dispatch to. MemoryStore is the
// default in-process implementation; other backends can satisfy the same
// interface without either tool changing.
type Store interface {
	Upsert(ctx context.Context, record Record) error
	Search(ctx context.Context, sessionID, query string, limit int) ([]Match, error)
}

// MemoryStore is a process-local Store scoped per session, ranking
// matches by keyword overlap rather than embedding similarity, which
// keeps it dependency-free for tests and default wiring.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record)}
}

func (s *MemoryStore) Upsert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.records[record.SessionID]
	for i, r := range bucket {
		if r.ID == record.ID {
			bucket[i] = record
			return nil
		}
	}
	s.records[record.SessionID] = append(bucket, record)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, sessionID, query string, limit int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	matches := make([]Match, 0, len(s.records[sessionID]))
	for _, r := range s.records[sessionID] {
		score := keywordScore(strings.ToLower(r.Text), terms)
		if score > 0 {
			matches = append(matches, Match{Record: r, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func keywordScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	var hits float64
	for _, t := range terms {
		if strings.Contains(text, t) {
			hits++
		}
	}
	return hits / float64(len(terms))
}
