package notify

import (
	"sync"

	"courier-driver-agent/internal/domain"
)

// Callback receives the representative order of a new-order alert.
type Callback func(domain.Order)

// Slot is a single-subscriber notification cell. The UI layer registers
// one callback; emitting with no callback registered is a no-op. The
// slot is injected where needed instead of living as a mutable global.
type Slot struct {
	mu sync.Mutex
	cb Callback
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Set replaces the registered callback. A nil callback clears the slot.
func (s *Slot) Set(cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

// Clear removes the registered callback.
func (s *Slot) Clear() {
	s.Set(nil)
}

// Emit invokes the registered callback with the order, if any. The
// callback runs outside the lock so it may re-enter the slot.
func (s *Slot) Emit(o domain.Order) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb != nil {
		cb(o)
	}
}
