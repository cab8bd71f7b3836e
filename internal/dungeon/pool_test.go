package dungeon

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlayerPoolCompose(t *testing.T) {
	pool := NewPlayerPool(1, 1, 3)

	require.True(t, pool.TryCompose())
	require.False(t, pool.TryCompose())

	tanks, healers, dps := pool.Counts()
	require.Zero(t, tanks)
	require.Zero(t, healers)
	require.Zero(t, dps)
	require.EqualValues(t, 1, pool.Composed())
}

func TestPlayerPoolComposeNeedsEveryRole(t *testing.T) {
	var pools = map[string]*PlayerPool{
		"no tank":       NewPlayerPool(0, 1, 3),
		"no healer":     NewPlayerPool(1, 0, 3),
		"too few dps":   NewPlayerPool(1, 1, 2),
		"dps only":      NewPlayerPool(0, 0, 30),
		"healers spare": NewPlayerPool(0, 5, 5),
	}
	for name, pool := range pools {
		t.Run(name, func(t *testing.T) {
			require.False(t, pool.TryCompose())
			require.Zero(t, pool.Composed())
		})
	}
}

func TestPlayerPoolAddAccumulates(t *testing.T) {
	pool := NewPlayerPool(0, 0, 0)
	pool.Add(1, 0, 2)
	pool.Add(0, 1, 1)

	tanks, healers, dps := pool.Counts()
	require.Equal(t, 1, tanks)
	require.Equal(t, 1, healers)
	require.Equal(t, 3, dps)
	require.True(t, pool.TryCompose())
}

func TestPlayerPoolRejectsNegativeCounts(t *testing.T) {
	require.Panics(t, func() { NewPlayerPool(-1, 0, 0) })
	require.Panics(t, func() { NewPlayerPool(0, 0, 0).Add(0, -1, 0) })
}

func TestPlayerPoolIntakeFlagIsMonotonic(t *testing.T) {
	pool := NewPlayerPool(0, 0, 0)
	require.False(t, pool.IntakeClosed())

	pool.CloseIntake()
	require.True(t, pool.IntakeClosed())

	// Closing again is harmless and the flag never resets.
	pool.CloseIntake()
	require.True(t, pool.IntakeClosed())
}

// Inventory for exactly one party, many simultaneous composers:
// exactly one caller may win, no matter how the scheduler interleaves
// them.
func TestPlayerPoolSingleWinnerWhenInventoryForOne(t *testing.T) {
	const callers = 32

	pool := NewPlayerPool(PartyTanks, PartyHealers, PartyDPS)

	var (
		start = make(chan struct{})
		wins  atomic.Int64
		wg    sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if pool.TryCompose() {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())

	tanks, healers, dps := pool.Counts()
	require.Zero(t, tanks)
	require.Zero(t, healers)
	require.Zero(t, dps)
}

// Seeds the pool with players for exactly k parties and races many
// composers against it. Exactly k must win; the rest must see an
// empty pool rather than a half-deducted one.
func TestPlayerPoolComposeIsAtomic(t *testing.T) {
	const (
		parties = 8
		callers = 64
	)

	pool := NewPlayerPool(parties*PartyTanks, parties*PartyHealers, parties*PartyDPS)

	var (
		formed atomic.Int64
		wg     sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pool.TryCompose() {
				formed.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, parties, formed.Load())
	require.EqualValues(t, parties, pool.Composed())

	tanks, healers, dps := pool.Counts()
	require.Zero(t, tanks)
	require.Zero(t, healers)
	require.Zero(t, dps)
}
