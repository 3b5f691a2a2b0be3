package driver

import (
	"sync"

	"courier-driver-agent/internal/domain"
)

// Status is the mutable holder of the driver's duty flags. The realtime
// coordinator reads it to gate incoming orders; the UI layer flips it.
type Status struct {
	mu    sync.Mutex
	state domain.DriverState
}

// NewStatus returns a holder with all flags down.
func NewStatus() *Status {
	return &Status{}
}

// State returns the current flags.
func (s *Status) State() domain.DriverState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetOnline flips the connectivity flag.
func (s *Status) SetOnline(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Online = v
}

// SetAvailable flips the accepting-orders flag.
func (s *Status) SetAvailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Available = v
}

// SetOnDuty flips the shift flag.
func (s *Status) SetOnDuty(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OnDuty = v
}
