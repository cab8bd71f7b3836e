package dungeon

import "sync"

// Party composition. A party enters the dungeon with exactly one tank,
// one healer and three damage dealers.
const (
	PartyTanks   = 1
	PartyHealers = 1
	PartyDPS     = 3
)

// PlayerPool holds players waiting to be grouped, by role. A single
// mutex guards the role counters, the composed-party counter and the
// intake flag so that composition decisions are made against a
// consistent view.
type PlayerPool struct {
	mu         sync.Mutex
	tanks      int
	healers    int
	dps        int
	composed   int64
	intakeDone bool
}

// NewPlayerPool returns a pool seeded with the given players.
// Negative counts are a programming error.
func NewPlayerPool(tanks, healers, dps int) *PlayerPool {
	if tanks < 0 || healers < 0 || dps < 0 {
		panic("pool: negative seed")
	}
	return &PlayerPool{tanks: tanks, healers: healers, dps: dps}
}

// Add places newly arrived players into the pool.
// Negative counts are a programming error.
func (p *PlayerPool) Add(tanks, healers, dps int) {
	if tanks < 0 || healers < 0 || dps < 0 {
		panic("pool: negative add")
	}
	p.mu.Lock()
	p.tanks += tanks
	p.healers += healers
	p.dps += dps
	p.mu.Unlock()
}

// TryCompose atomically checks for a full party and, if one can be
// formed, deducts its members from the pool. The check and the
// deduction happen under one critical section, so concurrent callers
// never deduct from the same players.
func (p *PlayerPool) TryCompose() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tanks < PartyTanks || p.healers < PartyHealers || p.dps < PartyDPS {
		return false
	}
	p.tanks -= PartyTanks
	p.healers -= PartyHealers
	p.dps -= PartyDPS
	p.composed++
	return true
}

// CloseIntake marks the pool as receiving no further arrivals.
// The flag is monotonic: once set it never resets.
func (p *PlayerPool) CloseIntake() {
	p.mu.Lock()
	p.intakeDone = true
	p.mu.Unlock()
}

// IntakeClosed reports whether arrivals have finished.
func (p *PlayerPool) IntakeClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intakeDone
}

// Counts returns the players currently waiting, by role.
func (p *PlayerPool) Counts() (tanks, healers, dps int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tanks, p.healers, p.dps
}

// Composed returns the number of parties formed so far.
func (p *PlayerPool) Composed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.composed
}
