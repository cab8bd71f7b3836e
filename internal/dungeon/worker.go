package dungeon

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/lfg-sim/pkg/fmtt"
)

// ErrNoFreeSlot reports a bookkeeping violation: a worker holding a
// gate permit found no free slot in the registry. The permit is the
// proof a slot exists, so this can only happen when the gate and the
// registry were built with different capacities or a slot was released
// twice.
var ErrNoFreeSlot = errors.New("no free slot despite held permit")

type partyPhase int32

const (
	phaseCreated partyPhase = iota
	phaseWaiting
	phaseOccupying
	phaseFinished
)

func (p partyPhase) String() string {
	switch p {
	case phaseCreated:
		return "created"
	case phaseWaiting:
		return "waiting_for_slot"
	case phaseOccupying:
		return "occupying"
	case phaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// worker drives a single party through the dungeon: wait for a gate
// permit, claim an instance slot, stay a while, then release both in
// reverse order.
type worker struct {
	log   *zap.Logger
	id    int64
	gate  *SlotGate
	reg   *Registry
	rec   *Recorder
	stay  time.Duration
	phase atomic.Int32
}

func newWorker(log *zap.Logger, id int64, gate *SlotGate, reg *Registry, rec *Recorder, stay time.Duration) *worker {
	return &worker{log: log, id: id, gate: gate, reg: reg, rec: rec, stay: stay}
}

func (w *worker) setPhase(p partyPhase) {
	w.phase.Store(int32(p))
	w.log.Debug("party phase", zap.Stringer("phase", p))
}

func (w *worker) currentPhase() partyPhase {
	return partyPhase(w.phase.Load())
}

func (w *worker) run(ctx context.Context) error {
	w.setPhase(phaseWaiting)
	if err := w.gate.Acquire(ctx); err != nil {
		w.setPhase(phaseFinished)
		return err
	}
	defer w.gate.Release()

	slot, ok := w.reg.Claim()
	if !ok {
		w.setPhase(phaseFinished)
		w.log.Error("no free slot despite held permit",
			zap.Int("gate_in_use", w.gate.InUse()),
			zap.Int("gate_capacity", w.gate.Capacity()),
			zap.String("slots", fmtt.SdumpCompact(w.reg.Snapshot())))
		return fmt.Errorf("party %d: %w", w.id, ErrNoFreeSlot)
	}

	w.setPhase(phaseOccupying)
	w.rec.Record(ctx, EventPartyEnter, w.id, slot,
		fmt.Sprintf("party %d entered instance %d (running for %s)", w.id, slot, w.stay))
	w.log.Info("instance status", zap.String("slots", StatusLine(w.reg.Snapshot())))

	// The stay is deliberately not cancellable. Once a party is inside,
	// its slot statistics must be counted exactly once, and stays are
	// bounded by the clamped run duration, so shutdown stays prompt.
	time.Sleep(w.stay)

	w.reg.Release(slot, w.stay)
	w.setPhase(phaseFinished)
	w.rec.Record(ctx, EventPartyExit, w.id, slot,
		fmt.Sprintf("party %d finished instance %d after %s", w.id, slot, w.stay))
	w.log.Info("instance status", zap.String("slots", StatusLine(w.reg.Snapshot())))
	return nil
}
