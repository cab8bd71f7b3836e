package dungeon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDispatcher(t *testing.T, capacity int, pool *PlayerPool, sinks ...EventSink) (*Dispatcher, *SlotGate, *Registry) {
	t.Helper()
	gate := NewSlotGate(capacity)
	reg := NewRegistry(capacity)
	rec := NewRecorder(zap.NewNop(), sinks...)
	d := NewDispatcher(zap.NewNop(), DispatcherConfig{
		PollInterval: 5 * time.Millisecond,
		MinStay:      10 * time.Millisecond,
		MaxStay:      30 * time.Millisecond,
	}, gate, reg, pool, rec, testRand(17))
	return d, gate, reg
}

func TestDispatcherDrainsPoolBeforeHonoringClosedIntake(t *testing.T) {
	pool := NewPlayerPool(2, 2, 6)
	pool.CloseIntake()

	d, gate, reg := testDispatcher(t, 3, pool)
	require.NoError(t, d.Run(context.Background()))

	require.EqualValues(t, 2, d.Dispatched())
	require.Zero(t, d.InFlight())
	require.Zero(t, gate.InUse())
	require.Zero(t, reg.Occupied())

	tanks, healers, dps := pool.Counts()
	require.Zero(t, tanks)
	require.Zero(t, healers)
	require.Zero(t, dps)
}

func TestDispatcherAbandonsIncompleteLeftovers(t *testing.T) {
	pool := NewPlayerPool(0, 2, 5)
	pool.CloseIntake()

	d, _, reg := testDispatcher(t, 3, pool)

	start := time.Now()
	require.NoError(t, d.Run(context.Background()))
	require.Less(t, time.Since(start), time.Second)

	require.Zero(t, d.Dispatched())
	for _, s := range reg.Snapshot() {
		require.Zero(t, s.PartiesServed)
		require.Zero(t, s.TimeServed)
	}

	// Leftovers stay pooled, not silently dropped.
	_, healers, dps := pool.Counts()
	require.Equal(t, 2, healers)
	require.Equal(t, 5, dps)
}

// One arrival dropping exactly two parties' worth of players into an
// empty pool: the dispatcher picks them up on a later pass, runs both
// and drains the pool back to zero.
func TestDispatcherAdmitsPartiesFromLateArrival(t *testing.T) {
	pool := NewPlayerPool(0, 0, 0)

	d, gate, reg := testDispatcher(t, 2, pool)

	go func() {
		time.Sleep(20 * time.Millisecond)
		pool.Add(2, 2, 6)
		pool.CloseIntake()
	}()

	require.NoError(t, d.Run(context.Background()))

	require.EqualValues(t, 2, d.Dispatched())
	require.Zero(t, gate.InUse())
	require.Zero(t, reg.Occupied())

	tanks, healers, dps := pool.Counts()
	require.Zero(t, tanks)
	require.Zero(t, healers)
	require.Zero(t, dps)

	total := 0
	for _, s := range reg.Snapshot() {
		total += s.PartiesServed
	}
	require.Equal(t, 2, total)
}

func TestDispatcherAssignsSequentialPartyIDs(t *testing.T) {
	pool := NewPlayerPool(3, 3, 9)
	pool.CloseIntake()

	sink := newCaptureSink()
	d, _, _ := testDispatcher(t, 3, pool, sink)
	require.NoError(t, d.Run(context.Background()))

	ids := make(map[int64]bool)
	for _, ev := range sink.seen {
		if ev.Kind == EventPartyEnter {
			ids[ev.Party] = true
		}
	}
	require.Len(t, ids, 3)
	for want := int64(1); want <= 3; want++ {
		require.True(t, ids[want], "party id %d never entered", want)
	}
}

// Two parties and two instances must overlap: the second party claims
// slot 1 while the first still occupies slot 0. A serialized run would
// reuse slot 0 for both.
func TestDispatcherRunsPartiesConcurrently(t *testing.T) {
	pool := NewPlayerPool(2, 2, 6)
	pool.CloseIntake()

	gate := NewSlotGate(2)
	reg := NewRegistry(2)
	rec := NewRecorder(zap.NewNop())
	d := NewDispatcher(zap.NewNop(), DispatcherConfig{
		PollInterval: 5 * time.Millisecond,
		MinStay:      250 * time.Millisecond,
		MaxStay:      250 * time.Millisecond,
	}, gate, reg, pool, rec, testRand(23))

	require.NoError(t, d.Run(context.Background()))

	snap := reg.Snapshot()
	require.Equal(t, 1, snap[0].PartiesServed, "slot 0 should serve exactly one party")
	require.Equal(t, 1, snap[1].PartiesServed, "slot 1 should serve exactly one party")
}

func TestDispatcherSurfacesSlotBookkeepingViolation(t *testing.T) {
	pool := NewPlayerPool(2, 2, 6)
	pool.CloseIntake()

	// A gate wider than the registry breaks the permit/slot pairing:
	// the second permit holder finds no slot to claim.
	gate := NewSlotGate(2)
	reg := NewRegistry(1)
	rec := NewRecorder(zap.NewNop())
	d := NewDispatcher(zap.NewNop(), DispatcherConfig{
		PollInterval: 5 * time.Millisecond,
		MinStay:      300 * time.Millisecond,
		MaxStay:      300 * time.Millisecond,
	}, gate, reg, pool, rec, testRand(29))

	err := d.Run(context.Background())
	require.ErrorIs(t, err, ErrNoFreeSlot)

	// The violating worker returned its permit and never touched the
	// books.
	require.Zero(t, gate.InUse())
	require.Zero(t, reg.Occupied())

	total := 0
	for _, s := range reg.Snapshot() {
		total += s.PartiesServed
	}
	require.Equal(t, 1, total)
}

func TestDispatcherNeverExceedsCapacity(t *testing.T) {
	const (
		capacity = 3
		parties  = 12
	)

	pool := NewPlayerPool(parties, parties, parties*3)
	pool.CloseIntake()

	gate := NewSlotGate(capacity)
	reg := NewRegistry(capacity)
	rec := NewRecorder(zap.NewNop())
	d := NewDispatcher(zap.NewNop(), DispatcherConfig{
		PollInterval: 5 * time.Millisecond,
		MinStay:      20 * time.Millisecond,
		MaxStay:      60 * time.Millisecond,
	}, gate, reg, pool, rec, testRand(31))

	var (
		stop     = make(chan struct{})
		sampled  atomic.Int64
		breached atomic.Int64
	)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if gate.InUse() > capacity || reg.Occupied() > capacity {
				breached.Add(1)
			}
			sampled.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()

	require.NoError(t, d.Run(context.Background()))
	close(stop)

	require.Zero(t, breached.Load())
	require.Positive(t, sampled.Load())
	require.EqualValues(t, parties, d.Dispatched())

	total := 0
	for _, s := range reg.Snapshot() {
		total += s.PartiesServed
	}
	require.Equal(t, parties, total)
}

func TestDispatcherCancellationLeavesBooksConsistent(t *testing.T) {
	pool := NewPlayerPool(30, 30, 90)
	pool.CloseIntake()

	gate := NewSlotGate(1)
	reg := NewRegistry(1)
	rec := NewRecorder(zap.NewNop())
	d := NewDispatcher(zap.NewNop(), DispatcherConfig{
		PollInterval: 5 * time.Millisecond,
		MinStay:      50 * time.Millisecond,
		MaxStay:      50 * time.Millisecond,
	}, gate, reg, pool, rec, testRand(37))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(120 * time.Millisecond)
	cancel()

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop after cancellation")
	}
	require.ErrorIs(t, err, context.Canceled)

	// Parties already inside finish and are counted; waiters bail out
	// without touching the books.
	require.Zero(t, d.InFlight())
	require.Zero(t, gate.InUse())
	require.Zero(t, reg.Occupied())

	total := 0
	for _, s := range reg.Snapshot() {
		total += s.PartiesServed
	}
	require.Positive(t, total)
	require.Less(t, int64(total), d.Dispatched())
}
