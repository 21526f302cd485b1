package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// DefaultMemoryRecords bounds a MemoryStore created with size <= 0.
const DefaultMemoryRecords = 256

// MemoryStore keeps the most recently used records in memory.
// The LRU is safe for concurrent use.
type MemoryStore struct {
	records *lru.Cache[string, *Record]
}

// NewMemoryStore creates a store holding at most size records.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryRecords
	}
	records, err := lru.New[string, *Record](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{records: records}, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	if err := errors.ValidateFigureID(id); err != nil {
		return nil, err
	}
	rec, ok := s.records.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	if rec.IsExpired() {
		s.records.Remove(id)
		return nil, notFound(id)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	cp := *rec
	s.records.Add(rec.ID, &cp)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.records.Remove(id)
	return nil
}

func (s *MemoryStore) Cleanup(_ context.Context) error {
	for _, id := range s.records.Keys() {
		if rec, ok := s.records.Peek(id); ok && rec.IsExpired() {
			s.records.Remove(id)
		}
	}
	return nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int { return s.records.Len() }

func (s *MemoryStore) Close() error {
	s.records.Purge()
	return nil
}

var _ Store = (*MemoryStore)(nil)
