package dungeon

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DispatcherConfig bounds dungeon stays and sets the poll cadence.
type DispatcherConfig struct {
	PollInterval time.Duration
	MinStay      time.Duration
	MaxStay      time.Duration
}

func (c *DispatcherConfig) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.MaxStay < c.MinStay {
		c.MaxStay = c.MinStay
	}
}

// Dispatcher polls the pool, forms as many parties as the pool can
// give on each pass and hands every one to its own worker goroutine.
// It stops once intake is closed and a full pass forms nothing, then
// waits for the workers still inside.
type Dispatcher struct {
	log  *zap.Logger
	cfg  DispatcherConfig
	gate *SlotGate
	reg  *Registry
	pool *PlayerPool
	rec  *Recorder
	rng  *rand.Rand

	lastID atomic.Int64
	live   atomic.Int64
}

// NewDispatcher wires a dispatcher. rng is used only from the Run
// goroutine, so an unsynchronized source is fine.
func NewDispatcher(log *zap.Logger, cfg DispatcherConfig, gate *SlotGate, reg *Registry, pool *PlayerPool, rec *Recorder, rng *rand.Rand) *Dispatcher {
	cfg.setDefaults()
	return &Dispatcher{
		log:  log,
		cfg:  cfg,
		gate: gate,
		reg:  reg,
		pool: pool,
		rec:  rec,
		rng:  rng,
	}
}

// Run drives the dispatch loop until intake is closed and the pool can
// no longer form a party, then joins the remaining workers. A worker
// error cancels the waiting workers and is returned as-is.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, wctx := errgroup.WithContext(ctx)

	tick := time.NewTicker(d.cfg.PollInterval)
	defer tick.Stop()

loop:
	for {
		formed := false
		for d.pool.TryCompose() {
			formed = true
			d.spawn(wctx, g)
		}

		// Checked only after a full drain pass: leftovers that cannot
		// form a party are abandoned once intake has finished.
		if d.pool.IntakeClosed() && !formed {
			break
		}

		select {
		case <-tick.C:
		case <-wctx.Done():
			break loop
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (d *Dispatcher) spawn(ctx context.Context, g *errgroup.Group) {
	id := d.lastID.Add(1)
	stay := randDuration(d.rng, d.cfg.MinStay, d.cfg.MaxStay)
	w := newWorker(d.log.With(zap.Int64("party", id)), id, d.gate, d.reg, d.rec, stay)

	d.live.Add(1)
	g.Go(func() error {
		defer d.live.Add(-1)
		return w.run(ctx)
	})
}

// Dispatched returns how many parties have been handed to workers.
func (d *Dispatcher) Dispatched() int64 { return d.lastID.Load() }

// InFlight returns how many workers have not finished yet.
func (d *Dispatcher) InFlight() int64 { return d.live.Load() }
