// Package history keeps the most recent search batches of each live session
package history

import (
	"sync"

	"tubelytics/internal/services/tubelytics/domain"
)

// DefaultSize is the number of batches kept per session
const DefaultSize = 10

// Store is an in-memory domain.HistoryStore. Nothing survives a restart
type Store struct {
	size int

	mu       sync.RWMutex
	sessions map[string][]domain.SearchBatch
}

var _ domain.HistoryStore = (*Store)(nil)

// New returns a store keeping size batches per session
func New(size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{size: size, sessions: map[string][]domain.SearchBatch{}}
}

// Create registers a session with an empty history. Existing entries are kept
func (s *Store) Create(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = []domain.SearchBatch{}
	}
}

// Record prepends batch, evicting the oldest beyond the size. Unknown
// sessions are ignored
func (s *Store) Record(sessionID string, batch domain.SearchBatch) {
	batch.Results = append([]domain.VideoRecord(nil), batch.Results...)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	next := make([]domain.SearchBatch, 0, min(len(cur)+1, s.size))
	next = append(next, batch)
	next = append(next, cur[:min(len(cur), s.size-1)]...)
	s.sessions[sessionID] = next
}

// Get returns a copy of the history, newest first
func (s *Store) Get(sessionID string) ([]domain.SearchBatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return append([]domain.SearchBatch{}, cur...), true
}

// Drop forgets a session
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len is the number of tracked sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
