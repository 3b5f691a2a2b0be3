package dedup

import (
	"sync"

	"courier-driver-agent/internal/domain"
)

// Decision is the outcome of observing one order.
type Decision struct {
	Notify         bool
	Representative domain.Order
}

// Tracker keeps the "seen" sets for single orders and batches and
// decides whether an incoming order should raise a user-facing alert.
// A batch raises at most one alert until Clear.
type Tracker struct {
	mu          sync.Mutex
	seenOrders  map[string]struct{}
	seenBatches map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		seenOrders:  make(map[string]struct{}),
		seenBatches: make(map[string]struct{}),
	}
}

// Observe records a single pushed order and returns the notify decision.
// The order id is always marked seen, batched or not, so a duplicate of
// a batch member surfaced later without its batch ref does not re-notify.
func (t *Tracker) Observe(o domain.Order) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observeLocked(o)
}

func (t *Tracker) observeLocked(o domain.Order) Decision {
	_, orderSeen := t.seenOrders[o.ID]
	t.seenOrders[o.ID] = struct{}{}

	if !o.Batched() {
		if orderSeen {
			return Decision{}
		}
		return Decision{Notify: true, Representative: o}
	}

	if _, ok := t.seenBatches[o.Batch.ID]; ok {
		return Decision{}
	}
	t.seenBatches[o.Batch.ID] = struct{}{}
	return Decision{Notify: true, Representative: o}
}

// ObserveAll records a whole refresh pass and returns the orders to
// notify about. Within the pass the representative of an unseen batch is
// the member with the lexicographically smallest order id, which keeps
// the choice deterministic when batch members arrive split across
// fetches.
func (t *Tracker) ObserveAll(orders []domain.Order) []domain.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	// elect representatives first so arrival order inside the pass
	// cannot influence the outcome
	repr := make(map[string]domain.Order)
	for _, o := range orders {
		if !o.Batched() {
			continue
		}
		cur, ok := repr[o.Batch.ID]
		if !ok || o.ID < cur.ID {
			repr[o.Batch.ID] = o
		}
	}

	var out []domain.Order
	for _, o := range orders {
		if o.Batched() && repr[o.Batch.ID].ID != o.ID {
			// non-representative members only get marked seen
			t.seenOrders[o.ID] = struct{}{}
			continue
		}
		if d := t.observeLocked(o); d.Notify {
			out = append(out, d.Representative)
		}
	}
	return out
}

// SeenOrder reports whether the order id was observed before.
func (t *Tracker) SeenOrder(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seenOrders[id]
	return ok
}

// SeenBatch reports whether the batch id was observed before.
func (t *Tracker) SeenBatch(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seenBatches[id]
	return ok
}

// Clear empties both seen sets; called only on clearing orders (logout).
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seenOrders = make(map[string]struct{})
	t.seenBatches = make(map[string]struct{})
}
