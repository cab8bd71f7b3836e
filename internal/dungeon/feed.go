package dungeon

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// FeedConfig shapes the arrival feed. Sleep bounds are inclusive;
// Max* are per-cycle ceilings (each cycle adds 0..Max of a role).
type FeedConfig struct {
	Cycles     int
	SleepMin   time.Duration
	SleepMax   time.Duration
	MaxTanks   int
	MaxHealers int
	MaxDPS     int
}

// Feed simulates players trickling into the queue. It runs a fixed
// number of cycles, sleeping a random interval before each, and is the
// only component that closes the pool's intake. The close happens
// exactly once, whether the feed finishes its cycles or is cancelled.
type Feed struct {
	log  *zap.Logger
	cfg  FeedConfig
	pool *PlayerPool
	rec  *Recorder
	rng  *rand.Rand
}

func NewFeed(log *zap.Logger, cfg FeedConfig, pool *PlayerPool, rec *Recorder, rng *rand.Rand) *Feed {
	return &Feed{log: log, cfg: cfg, pool: pool, rec: rec, rng: rng}
}

// Run produces the configured arrival cycles. It returns ctx.Err() if
// cancelled mid-run, nil otherwise. Intake is closed on every path.
func (f *Feed) Run(ctx context.Context) error {
	defer func() {
		f.pool.CloseIntake()
		f.rec.Record(ctx, EventIntakeClosed, 0, -1, "player intake finished")
	}()

	f.log.Debug("intake open",
		zap.Int("cycles", f.cfg.Cycles),
		zap.Duration("sleep_min", f.cfg.SleepMin),
		zap.Duration("sleep_max", f.cfg.SleepMax))

	for cycle := 1; cycle <= f.cfg.Cycles; cycle++ {
		if err := sleepCtx(ctx, randDuration(f.rng, f.cfg.SleepMin, f.cfg.SleepMax)); err != nil {
			return err
		}

		tanks := randCount(f.rng, f.cfg.MaxTanks)
		healers := randCount(f.rng, f.cfg.MaxHealers)
		dps := randCount(f.rng, f.cfg.MaxDPS)
		f.pool.Add(tanks, healers, dps)

		f.rec.Record(ctx, EventArrival, 0, -1,
			fmt.Sprintf("cycle %d/%d: %d tanks, %d healers and %d dps joined the queue",
				cycle, f.cfg.Cycles, tanks, healers, dps))
	}
	return nil
}

// randDuration picks a duration in [min, max]. Degenerate bounds
// collapse to min.
func randDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int64N(int64(max-min)+1))
}

// randCount picks an int in [0, max].
func randCount(rng *rand.Rand, max int) int {
	if max <= 0 {
		return 0
	}
	return rng.IntN(max + 1)
}

// sleepCtx sleeps for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
