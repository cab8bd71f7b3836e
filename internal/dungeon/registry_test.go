package dungeon

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryClaimsLowestFreeSlot(t *testing.T) {
	reg := NewRegistry(3)

	id, ok := reg.Claim()
	require.True(t, ok)
	require.Equal(t, 0, id)

	id, ok = reg.Claim()
	require.True(t, ok)
	require.Equal(t, 1, id)

	// Freeing slot 0 makes it the lowest free id again.
	reg.Release(0, time.Second)

	id, ok = reg.Claim()
	require.True(t, ok)
	require.Equal(t, 0, id)
}

func TestRegistryClaimExhaustion(t *testing.T) {
	reg := NewRegistry(2)

	_, ok := reg.Claim()
	require.True(t, ok)
	_, ok = reg.Claim()
	require.True(t, ok)

	id, ok := reg.Claim()
	require.False(t, ok)
	require.Equal(t, -1, id)
}

func TestRegistryReleaseUpdatesStatsAtomically(t *testing.T) {
	reg := NewRegistry(2)

	id, ok := reg.Claim()
	require.True(t, ok)
	reg.Release(id, 3*time.Second)

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, SlotEmpty, snap[0].Status)
	require.Equal(t, 1, snap[0].PartiesServed)
	require.Equal(t, 3*time.Second, snap[0].TimeServed)
	require.Zero(t, snap[1].PartiesServed)

	// Stats accumulate across claims.
	id, _ = reg.Claim()
	reg.Release(id, 2*time.Second)
	snap = reg.Snapshot()
	require.Equal(t, 2, snap[0].PartiesServed)
	require.Equal(t, 5*time.Second, snap[0].TimeServed)
}

func TestRegistryReleaseContract(t *testing.T) {
	reg := NewRegistry(2)

	require.Panics(t, func() { reg.Release(0, time.Second) })
	require.Panics(t, func() { reg.Release(-1, time.Second) })
	require.Panics(t, func() { reg.Release(2, time.Second) })
}

func TestRegistryOccupiedStaysInBounds(t *testing.T) {
	const (
		size    = 3
		workers = 16
		rounds  = 40
	)

	var (
		reg        = NewRegistry(size)
		gate       = NewSlotGate(size)
		violations atomic.Int64
		releases   atomic.Int64
		wg         sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if !gate.TryAcquire() {
					continue
				}
				id, ok := reg.Claim()
				if !ok {
					violations.Add(1)
					gate.Release()
					continue
				}
				if n := reg.Occupied(); n < 1 || n > size {
					violations.Add(1)
				}
				reg.Release(id, time.Millisecond)
				releases.Add(1)
				gate.Release()
			}
		}()
	}
	wg.Wait()

	require.Zero(t, violations.Load())
	require.Zero(t, reg.Occupied())

	total := 0
	for _, s := range reg.Snapshot() {
		total += s.PartiesServed
	}
	require.EqualValues(t, releases.Load(), total)
}
