package dungeon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventKind classifies a simulation event.
type EventKind string

const (
	EventArrival      EventKind = "arrival"
	EventPartyEnter   EventKind = "party_enter"
	EventPartyExit    EventKind = "party_exit"
	EventIntakeClosed EventKind = "intake_closed"
)

// Event is a single timeline entry. Party is 0 when the event is not
// tied to a party; Slot is -1 when no slot is involved (slot ids start
// at 0).
type Event struct {
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Kind  EventKind `json:"kind"`
	Party int64     `json:"party,omitempty"`
	Slot  int       `json:"slot"`
	Msg   string    `json:"msg"`
}

// EventSink receives every recorded event. Sinks are best effort and
// must not block the simulation; failures are theirs to report.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

// eventRing is a fixed-size ring of recent events. Appends overwrite
// the oldest entry once the ring is full.
type eventRing struct {
	mu   sync.Mutex
	buf  []Event
	next int
	full bool
}

func newEventRing(size int) *eventRing {
	if size <= 0 {
		panic("events: ring size must be positive")
	}
	return &eventRing{buf: make([]Event, size)}
}

func (r *eventRing) append(ev Event) {
	r.mu.Lock()
	r.buf[r.next] = ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// recent returns up to n events, newest first.
func (r *eventRing) recent(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.next
	if r.full {
		stored = len(r.buf)
	}
	if n > stored {
		n = stored
	}
	if n <= 0 {
		return nil
	}

	out := make([]Event, 0, n)
	idx := r.next
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = len(r.buf) - 1
		}
		out = append(out, r.buf[idx])
	}
	return out
}

const eventRingSize = 500

// Recorder assigns sequence numbers to events, keeps the most recent
// ones in memory and fans each one out to the registered sinks.
type Recorder struct {
	log   *zap.Logger
	seq   atomic.Uint64
	ring  *eventRing
	sinks []EventSink
}

func NewRecorder(log *zap.Logger, sinks ...EventSink) *Recorder {
	return &Recorder{
		log:   log,
		ring:  newEventRing(eventRingSize),
		sinks: sinks,
	}
}

// Record stamps and stores an event, logs it and publishes it to the
// sinks. Pass party 0 and slot -1 when they do not apply.
func (r *Recorder) Record(ctx context.Context, kind EventKind, party int64, slot int, msg string) {
	ev := Event{
		Seq:   r.seq.Add(1),
		Time:  time.Now(),
		Kind:  kind,
		Party: party,
		Slot:  slot,
		Msg:   msg,
	}
	r.ring.append(ev)

	fields := make([]zap.Field, 0, 2)
	if ev.Party > 0 {
		fields = append(fields, zap.Int64("party", ev.Party))
	}
	if ev.Slot >= 0 {
		fields = append(fields, zap.Int("slot", ev.Slot))
	}
	r.log.Info(msg, fields...)

	for _, s := range r.sinks {
		s.Publish(ctx, ev)
	}
}

// Recent returns up to n events, newest first.
func (r *Recorder) Recent(n int) []Event {
	return r.ring.recent(n)
}
