package keystore

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/joshjon/cryptkit/id"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[id.KeyID]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[id.KeyID]Record)}
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return conflict(rec.ID)
	}
	rec.Material = bytes.Clone(rec.Material)
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, keyID id.KeyID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[keyID]
	if !ok {
		return Record{}, notFound(keyID)
	}
	rec.Material = bytes.Clone(rec.Material)
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Algorithm != "" && rec.Algorithm != filter.Algorithm {
			continue
		}
		if filter.After != nil && rec.ID.String() <= filter.After.String() {
			continue
		}
		rec.Material = bytes.Clone(rec.Material)
		out = append(out, rec)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Record) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if filter.Limit > 0 && len(out) > int(filter.Limit) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, keyID id.KeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[keyID]; !ok {
		return notFound(keyID)
	}
	delete(s.records, keyID)
	return nil
}
