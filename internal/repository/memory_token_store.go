package repository

import (
	"context"
	"sort"
	"sync"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// MemoryTokenStore is the in-process TokenStore strategy. It mirrors the
// Redis semantics — per-concert rank-ordered waiting set, unordered active
// set, token in at most one of the two — behind a single mutex, which makes
// every operation atomic the same way the pipelined Redis commands are.
// Suitable for single-instance deployments and used throughout the service
// tests.
type MemoryTokenStore struct {
	mu      sync.Mutex
	tokens  map[string]*model.QueueToken // by token string
	waiting map[uint64][]waitingEntry    // per concert, kept sorted
	active  map[uint64]map[string]struct{}
	seq     int64 // insertion order, tie-break for equal scores
}

type waitingEntry struct {
	token string
	score int64
	seq   int64
}

// NewMemoryTokenStore returns an empty MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens:  make(map[string]*model.QueueToken),
		waiting: make(map[uint64][]waitingEntry),
		active:  make(map[uint64]map[string]struct{}),
	}
}

// Save stores a copy of the token and reroutes its set membership.
func (s *MemoryTokenStore) Save(_ context.Context, t *model.QueueToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.tokens[t.Token] = &cp

	s.removeWaiting(t.ConcertID, t.Token)
	delete(s.activeSet(t.ConcertID), t.Token)

	switch t.Status {
	case model.TokenWaiting:
		s.seq++
		entries := append(s.waiting[t.ConcertID], waitingEntry{token: t.Token, score: t.Score, seq: s.seq})
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].score != entries[j].score {
				return entries[i].score < entries[j].score
			}
			return entries[i].seq < entries[j].seq
		})
		s.waiting[t.ConcertID] = entries
	case model.TokenActive:
		s.activeSet(t.ConcertID)[t.Token] = struct{}{}
	}
	return nil
}

// FindByToken returns a copy of the stored token.
func (s *MemoryTokenStore) FindByToken(_ context.Context, token string) (*model.QueueToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, apperr.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

// Rank returns the token's 0-indexed waiting position.
func (s *MemoryTokenStore) Rank(_ context.Context, token string, concertID uint64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.waiting[concertID] {
		if e.token == token {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

// CountActive returns the active set size for the concert.
func (s *MemoryTokenStore) CountActive(_ context.Context, concertID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.active[concertID])), nil
}

// CountWaiting returns the waiting set size for the concert.
func (s *MemoryTokenStore) CountWaiting(_ context.Context, concertID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.waiting[concertID])), nil
}

// TopWaiting returns copies of the limit lowest-ranked waiting tokens.
func (s *MemoryTokenStore) TopWaiting(_ context.Context, concertID uint64, limit int) ([]*model.QueueToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.waiting[concertID]
	if limit > len(entries) {
		limit = len(entries)
	}
	out := make([]*model.QueueToken, 0, limit)
	for _, e := range entries[:limit] {
		if t, ok := s.tokens[e.token]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ConcertIDsWithWaiting lists concerts with a non-empty waiting set.
func (s *MemoryTokenStore) ConcertIDsWithWaiting(_ context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uint64
	for id, entries := range s.waiting {
		if len(entries) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryTokenStore) activeSet(concertID uint64) map[string]struct{} {
	set, ok := s.active[concertID]
	if !ok {
		set = make(map[string]struct{})
		s.active[concertID] = set
	}
	return set
}

func (s *MemoryTokenStore) removeWaiting(concertID uint64, token string) {
	entries := s.waiting[concertID]
	for i, e := range entries {
		if e.token == token {
			s.waiting[concertID] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}
