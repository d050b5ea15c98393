package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"pump-trader/internal/domain"
)

// ErrPositionExists is returned when inserting a second position for the same mint.
var ErrPositionExists = errors.New("position already exists")

// PositionStore holds open positions keyed by mint.
// Not safe for concurrent use; the engine serializes access.
type PositionStore struct {
	positions map[string]*domain.Position
}

// NewPositionStore creates an empty store.
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[string]*domain.Position)}
}

// Insert adds p, rejecting a duplicate mint.
func (s *PositionStore) Insert(p *domain.Position) error {
	if p == nil || p.Token.Mint == "" {
		return fmt.Errorf("insert: position without mint")
	}
	if _, ok := s.positions[p.Token.Mint]; ok {
		return fmt.Errorf("%w: %s", ErrPositionExists, p.Token.Mint)
	}
	s.positions[p.Token.Mint] = p
	return nil
}

// Get returns the position for mint.
func (s *PositionStore) Get(mint string) (*domain.Position, bool) {
	p, ok := s.positions[mint]
	return p, ok
}

// Has reports whether a position exists for mint.
func (s *PositionStore) Has(mint string) bool {
	_, ok := s.positions[mint]
	return ok
}

// Remove deletes and returns the position for mint.
func (s *PositionStore) Remove(mint string) (*domain.Position, bool) {
	p, ok := s.positions[mint]
	if ok {
		delete(s.positions, mint)
	}
	return p, ok
}

// Len returns the number of open positions.
func (s *PositionStore) Len() int {
	return len(s.positions)
}

// List returns open positions ordered by entry time, then mint.
func (s *PositionStore) List() []*domain.Position {
	out := make([]*domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].Token.Mint < out[j].Token.Mint
	})
	return out
}

// Snapshot returns value copies of all open positions, safe to hand out of the lock.
func (s *PositionStore) Snapshot() []domain.Position {
	list := s.List()
	out := make([]domain.Position, len(list))
	for i, p := range list {
		out[i] = *p
	}
	return out
}

// LockedSOL returns the entry SOL committed to open positions.
func (s *PositionStore) LockedSOL() float64 {
	var total float64
	for _, p := range s.positions {
		total += p.EntrySOL
	}
	return total
}
