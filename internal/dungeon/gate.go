package dungeon

import "context"

// SlotGate is the admission gate bounding concurrent active instances.
// It is a counting semaphore over a buffered channel of tokens: sending
// claims a permit, receiving returns one, and the channel capacity is
// the permit count, so the runtime enforces the bound.
//
// Callers must pair every Acquire with exactly one later Release. An
// unpaired Release is a broken synchronization contract and panics.
type SlotGate struct {
	sem chan struct{}
}

// NewSlotGate returns a gate with n permits.
func NewSlotGate(n int) *SlotGate {
	if n < 0 {
		panic("slotgate: negative capacity")
	}
	return &SlotGate{sem: make(chan struct{}, n)}
}

// Acquire blocks until a permit is free or ctx is done.
func (g *SlotGate) Acquire(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire claims a permit without blocking.
func (g *SlotGate) TryAcquire() bool {
	select {
	case g.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a permit, waking one blocked waiter if any. A release
// with no matching acquire panics: pairing is broken somewhere and
// continuing would corrupt the occupancy bound.
func (g *SlotGate) Release() {
	select {
	case <-g.sem:
	default:
		panic("slotgate: release without matching acquire")
	}
}

// Capacity returns the configured permit count.
func (g *SlotGate) Capacity() int { return cap(g.sem) }

// InUse returns the number of currently held permits.
func (g *SlotGate) InUse() int { return len(g.sem) }
