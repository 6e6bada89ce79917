package trial

import (
	"context"
	"errors"
	"sync"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// ErrTampered is returned by a store whose persisted record failed its
// integrity check.
var ErrTampered = errors.New("trial record failed integrity check")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("trial store closed")

// Store persists the single trial record of an installation. Load returns
// (nil, nil) when no record exists yet.
type Store interface {
	Load(ctx context.Context) (*domain.TrialRecord, error)
	Save(ctx context.Context, rec domain.TrialRecord) error
	Close() error
}

// MemoryStore keeps the record in memory. Used by tests and by hosts that
// only want a per-process evaluation.
type MemoryStore struct {
	mu     sync.Mutex
	rec    *domain.TrialRecord
	closed bool
	saves  int
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*domain.TrialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.rec == nil {
		return nil, nil
	}
	rec := *s.rec
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec domain.TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.rec = &rec
	s.saves++
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Saves reports how many times Save succeeded
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
