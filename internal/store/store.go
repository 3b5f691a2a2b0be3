package store

import (
	"sync"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/domain"
)

// Collection names one of the three order collections.
type Collection string

// List of collections
const (
	Available Collection = "available"
	Mine      Collection = "mine"
	History   Collection = "history"
)

// Snapshot is an immutable copy of the three collections.
type Snapshot struct {
	Available map[string]domain.Order
	Mine      map[string]domain.Order
	History   map[string]domain.Order
}

// Store is the canonical in-memory view of the driver's orders. An order
// id lives in at most one of available/mine at any time; terminal orders
// land in history. The pending ledger marks ids with an in-flight
// optimistic mutation so a slow refresh snapshot cannot resurrect them
// in available.
type Store struct {
	mu        sync.Mutex
	available map[string]domain.Order
	mine      map[string]domain.Order
	history   map[string]domain.Order
	pending   map[string]struct{}
}

// New returns an empty store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.available = make(map[string]domain.Order)
	s.mine = make(map[string]domain.Order)
	s.history = make(map[string]domain.Order)
	s.pending = make(map[string]struct{})
}

func (s *Store) collection(c Collection) map[string]domain.Order {
	switch c {
	case Available:
		return s.available
	case Mine:
		return s.mine
	case History:
		return s.history
	default:
		return nil
	}
}

// Snapshot returns deep copies of the three collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Available: copyOrders(s.available),
		Mine:      copyOrders(s.mine),
		History:   copyOrders(s.history),
	}
}

func copyOrders(src map[string]domain.Order) map[string]domain.Order {
	out := make(map[string]domain.Order, len(src))
	for id, o := range src {
		out[id] = o
	}
	return out
}

// Upsert inserts or replaces the order in the collection. Inserting into
// available or mine evicts the id from the other to keep them disjoint.
// An available upsert of a pending id is dropped.
func (s *Store) Upsert(c Collection, o domain.Order) error {
	if o.ID == "" {
		return apperr.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(c)
	if col == nil {
		return apperr.ErrInvalid
	}
	if c == Available {
		if _, ok := s.pending[o.ID]; ok {
			return nil
		}
		delete(s.mine, o.ID)
	}
	if c == Mine {
		delete(s.available, o.ID)
	}
	col[o.ID] = o
	return nil
}

// Remove deletes the id from the collection without replacement.
func (s *Store) Remove(c Collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col := s.collection(c); col != nil {
		delete(col, id)
	}
}

// MoveTo moves the order from one collection to another. Returns false
// when the id is not present in the source collection.
func (s *Store) MoveTo(id string, from, to Collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.collection(from)
	dst := s.collection(to)
	if src == nil || dst == nil {
		return false
	}
	o, ok := src[id]
	if !ok {
		return false
	}
	delete(src, id)
	dst[id] = o
	return true
}

// Get looks the id up across all collections.
func (s *Store) Get(id string) (domain.Order, Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.available[id]; ok {
		return o, Available, true
	}
	if o, ok := s.mine[id]; ok {
		return o, Mine, true
	}
	if o, ok := s.history[id]; ok {
		return o, History, true
	}
	return domain.Order{}, "", false
}

// Replace swaps the entry for the order id wherever it currently lives.
// Returns false when the id is not tracked at all.
func (s *Store) Replace(o domain.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, col := range []map[string]domain.Order{s.available, s.mine, s.history} {
		if _, ok := col[o.ID]; ok {
			col[o.ID] = o
			return true
		}
	}
	return false
}

// MarkPending records an in-flight optimistic mutation for the id.
func (s *Store) MarkPending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = struct{}{}
}

// ResolvePending clears the pending mark, success or failure alike.
func (s *Store) ResolvePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// ReplaceAvailable rebuilds available from a refresh snapshot, skipping
// ids with an unresolved pending mutation and ids already in mine.
func (s *Store) ReplaceAvailable(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		if _, ok := s.pending[o.ID]; ok {
			continue
		}
		if _, ok := s.mine[o.ID]; ok {
			continue
		}
		next[o.ID] = o
	}
	s.available = next
}

// ReplaceMine rebuilds mine from a refresh snapshot and evicts the ids
// from available to keep the collections disjoint.
func (s *Store) ReplaceMine(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		delete(s.available, o.ID)
		next[o.ID] = o
	}
	s.mine = next
}

// ReplaceHistory rebuilds history from a refresh snapshot.
func (s *Store) ReplaceHistory(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		next[o.ID] = o
	}
	s.history = next
}

// Clear empties everything, pending marks included.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}
