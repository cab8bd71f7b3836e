package dungeon

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/lfg-sim/pkg/fmtt"
)

// ErrBooksMismatch reports that the number of parties formed and the
// number of parties served by the instances disagree after a clean
// run.
var ErrBooksMismatch = errors.New("parties formed and parties served disagree")

// SimConfig is everything a single simulation run needs. Seed fixes
// both random streams, so equal configs replay equal runs.
type SimConfig struct {
	RunID    string
	Seed     uint64
	Capacity int

	Tanks   int
	Healers int
	DPS     int

	MinStay      time.Duration
	MaxStay      time.Duration
	PollInterval time.Duration

	Feed FeedConfig
}

// Summary is the cumulative outcome of a run. It can be taken mid-run,
// in which case it reflects the books at that instant.
type Summary struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	Elapsed      time.Duration `json:"elapsed"`
	Capacity     int           `json:"capacity"`
	Composed     int64         `json:"parties_composed"`
	TotalServed  int           `json:"parties_served"`
	TotalTime    time.Duration `json:"time_served"`
	Slots        []SlotStat    `json:"slots"`
	LeftTanks    int           `json:"leftover_tanks"`
	LeftHealers  int           `json:"leftover_healers"`
	LeftDPS      int           `json:"leftover_dps"`
	IntakeClosed bool          `json:"intake_closed"`
}

// Status is a point-in-time view of the run for the live API.
type Status struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	Uptime       string    `json:"uptime"`
	Capacity     int       `json:"capacity"`
	SlotsInUse   int       `json:"slots_in_use"`
	Tanks        int       `json:"tanks"`
	Healers      int       `json:"healers"`
	DPS          int       `json:"dps"`
	IntakeClosed bool      `json:"intake_closed"`
	Composed     int64     `json:"parties_composed"`
	Dispatched   int64     `json:"parties_dispatched"`
	InFlight     int64     `json:"parties_in_flight"`
}

// Sim owns one simulation run: the gate, the registry, the pool, the
// feed and the dispatcher, plus the event recorder they all share.
type Sim struct {
	log     *zap.Logger
	cfg     SimConfig
	started time.Time

	gate *SlotGate
	reg  *Registry
	pool *PlayerPool
	rec  *Recorder
	feed *Feed
	disp *Dispatcher
}

// NewSim wires a run from cfg. The feed and the dispatcher get
// independent deterministic random streams derived from cfg.Seed.
func NewSim(log *zap.Logger, cfg SimConfig, sinks ...EventSink) *Sim {
	gate := NewSlotGate(cfg.Capacity)
	reg := NewRegistry(cfg.Capacity)
	pool := NewPlayerPool(cfg.Tanks, cfg.Healers, cfg.DPS)
	rec := NewRecorder(log.Named("events"), sinks...)

	feed := NewFeed(log.Named("feed"), cfg.Feed, pool, rec,
		rand.New(rand.NewPCG(cfg.Seed, 1)))
	disp := NewDispatcher(log.Named("dispatch"), DispatcherConfig{
		PollInterval: cfg.PollInterval,
		MinStay:      cfg.MinStay,
		MaxStay:      cfg.MaxStay,
	}, gate, reg, pool, rec, rand.New(rand.NewPCG(cfg.Seed, 2)))

	return &Sim{
		log:     log,
		cfg:     cfg,
		started: time.Now(),
		gate:    gate,
		reg:     reg,
		pool:    pool,
		rec:     rec,
		feed:    feed,
		disp:    disp,
	}
}

// Run executes the simulation to completion: arrival feed and
// dispatcher side by side, then a final audit of the books. The
// summary is returned even when the run ends with an error, so a
// partial run can still be reported.
func (s *Sim) Run(ctx context.Context) (*Summary, error) {
	s.started = time.Now()
	s.log.Info("simulation starting",
		zap.String("run_id", s.cfg.RunID),
		zap.Uint64("seed", s.cfg.Seed),
		zap.Int("capacity", s.cfg.Capacity),
		zap.Int("tanks", s.cfg.Tanks),
		zap.Int("healers", s.cfg.Healers),
		zap.Int("dps", s.cfg.DPS))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A cancelled feed is part of an orderly shutdown; the
		// dispatcher reports the cancellation.
		if err := s.feed.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.disp.Run(gctx)
	})
	err := g.Wait()

	sum := s.Summarize()
	if err != nil {
		return sum, err
	}
	if err := s.checkBooks(sum); err != nil {
		return sum, err
	}

	s.log.Info("simulation finished",
		zap.Duration("elapsed", sum.Elapsed),
		zap.Int64("parties", sum.Composed),
		zap.Duration("dungeon_time", sum.TotalTime))
	return sum, nil
}

// Summarize snapshots the books. Safe to call at any time.
func (s *Sim) Summarize() *Summary {
	slots := s.reg.Snapshot()
	served := 0
	var total time.Duration
	for _, sl := range slots {
		served += sl.PartiesServed
		total += sl.TimeServed
	}
	tanks, healers, dps := s.pool.Counts()

	return &Summary{
		RunID:        s.cfg.RunID,
		StartedAt:    s.started,
		Elapsed:      time.Since(s.started),
		Capacity:     s.cfg.Capacity,
		Composed:     s.pool.Composed(),
		TotalServed:  served,
		TotalTime:    total,
		Slots:        slots,
		LeftTanks:    tanks,
		LeftHealers:  healers,
		LeftDPS:      dps,
		IntakeClosed: s.pool.IntakeClosed(),
	}
}

// checkBooks audits a finished run: every composed party must have
// been served by exactly one instance.
func (s *Sim) checkBooks(sum *Summary) error {
	if sum.Composed == int64(sum.TotalServed) {
		return nil
	}
	s.log.Error("books mismatch after run",
		zap.Int64("composed", sum.Composed),
		zap.Int("served", sum.TotalServed),
		zap.String("slots", fmtt.SdumpCompact(sum.Slots)))
	return fmt.Errorf("%w: composed %d, served %d", ErrBooksMismatch, sum.Composed, sum.TotalServed)
}

// Status reports the live state of the run.
func (s *Sim) Status() Status {
	tanks, healers, dps := s.pool.Counts()
	return Status{
		RunID:        s.cfg.RunID,
		StartedAt:    s.started,
		Uptime:       time.Since(s.started).Round(time.Millisecond).String(),
		Capacity:     s.cfg.Capacity,
		SlotsInUse:   s.reg.Occupied(),
		Tanks:        tanks,
		Healers:      healers,
		DPS:          dps,
		IntakeClosed: s.pool.IntakeClosed(),
		Composed:     s.pool.Composed(),
		Dispatched:   s.disp.Dispatched(),
		InFlight:     s.disp.InFlight(),
	}
}

// RunID returns the identifier assigned to this run.
func (s *Sim) RunID() string { return s.cfg.RunID }

// Slots snapshots per-instance statistics.
func (s *Sim) Slots() []SlotStat { return s.reg.Snapshot() }

// SlotsInUse returns how many instances are currently occupied.
func (s *Sim) SlotsInUse() int { return s.reg.Occupied() }

// PoolCounts returns the players waiting in the pool, by role.
func (s *Sim) PoolCounts() (tanks, healers, dps int) { return s.pool.Counts() }

// Events returns up to n recent events, newest first.
func (s *Sim) Events(n int) []Event { return s.rec.Recent(n) }
