package dungeon

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SlotStatus is the lifecycle state of one instance slot.
type SlotStatus int

const (
	SlotEmpty SlotStatus = iota
	SlotActive
)

func (s SlotStatus) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotActive:
		return "active"
	default:
		return fmt.Sprintf("SlotStatus(%d)", int(s))
	}
}

// MarshalJSON renders the status by name for the API.
func (s SlotStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// SlotStat is a point-in-time copy of one slot record.
type SlotStat struct {
	ID            int           `json:"id"`
	Status        SlotStatus    `json:"status"`
	PartiesServed int           `json:"parties_served"`
	TimeServed    time.Duration `json:"time_served"`
}

// StatusLine renders one pipe-separated cell per slot, the running-log
// form of the slot table.
func StatusLine(slots []SlotStat) string {
	var b strings.Builder
	b.WriteByte('|')
	for _, s := range slots {
		fmt.Fprintf(&b, " %8s |", s.Status)
	}
	return b.String()
}

type slotRecord struct {
	status        SlotStatus
	partiesServed int
	timeServed    time.Duration
}

// Registry owns the fixed table of instance slots. All mutation happens
// under one mutex so claims, releases and snapshots each observe a
// consistent table; a status flip is never visible without its stat
// update.
type Registry struct {
	mu    sync.Mutex
	slots []slotRecord
}

// NewRegistry creates n empty slots. Slots are created once and never
// destroyed during a run.
func NewRegistry(n int) *Registry {
	if n < 0 {
		panic("registry: negative size")
	}
	return &Registry{slots: make([]slotRecord, n)}
}

// Claim marks the lowest-id empty slot active and returns its id.
// ok is false when every slot is active. Under correct gating that
// cannot happen while a permit is held; the caller decides how loudly
// to treat it.
func (r *Registry) Claim() (id int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].status == SlotEmpty {
			r.slots[i].status = SlotActive
			return i, true
		}
	}
	return -1, false
}

// Release marks the slot empty and folds the finished run into its
// stats in the same critical section. Releasing a slot that is not
// active is a broken pairing contract and panics.
func (r *Registry) Release(id int, ran time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 0 || id >= len(r.slots) {
		panic(fmt.Sprintf("registry: release for out-of-range slot %d", id))
	}
	if r.slots[id].status != SlotActive {
		panic(fmt.Sprintf("registry: release for idle slot %d", id))
	}

	r.slots[id].status = SlotEmpty
	r.slots[id].partiesServed++
	r.slots[id].timeServed += ran
}

// Snapshot returns a consistent copy of every slot record.
func (r *Registry) Snapshot() []SlotStat {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SlotStat, len(r.slots))
	for i, s := range r.slots {
		out[i] = SlotStat{
			ID:            i,
			Status:        s.status,
			PartiesServed: s.partiesServed,
			TimeServed:    s.timeServed,
		}
	}
	return out
}

// Occupied returns the number of active slots.
func (r *Registry) Occupied() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.slots {
		if r.slots[i].status == SlotActive {
			n++
		}
	}
	return n
}

// Size returns the configured slot count.
func (r *Registry) Size() int { return len(r.slots) }
