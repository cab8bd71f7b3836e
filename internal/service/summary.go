// Package service holds the read-side services behind the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.uber.org/zap"

	"github.com/edirooss/lfg-sim/internal/dungeon"
)

type SummaryOptions struct {
	// TTL controls how long a snapshot is served before the books are
	// read again. 150-400ms works well for 1s polling; default 250ms.
	TTL time.Duration
}

func (o *SummaryOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 250 * time.Millisecond
	}
}

// SummaryResult lets the handler set cache headers.
type SummaryResult struct {
	Data        *dungeon.Summary
	CacheHit    bool
	GeneratedAt time.Time
}

// SummaryService serves point-in-time summaries of the run. Taking a
// summary locks the registry and the pool, so scrape storms are
// absorbed here: snapshots are cached for a short TTL and concurrent
// refreshes are coalesced.
type SummaryService struct {
	log *zap.Logger
	sim *dungeon.Sim

	mu      sync.RWMutex
	cache   *dungeon.Summary
	expires time.Time
	genAt   time.Time

	opts SummaryOptions
	now  func() time.Time

	sg singleflight.Group
}

// NewSummaryService wires the service. Reuse a single instance per
// process; handlers call Get.
func NewSummaryService(log *zap.Logger, sim *dungeon.Sim, opts SummaryOptions) *SummaryService {
	opts.setDefaults()
	return &SummaryService{
		log:  log.Named("summary_service"),
		sim:  sim,
		opts: opts,
		now:  time.Now,
	}
}

// Get returns the cached snapshot or refreshes it when expired.
// Multiple concurrent refreshes are coalesced into one.
func (s *SummaryService) Get(ctx context.Context) SummaryResult {
	// Fast path: fresh cache
	s.mu.RLock()
	if s.cache != nil && s.now().Before(s.expires) {
		res := SummaryResult{Data: s.cache, CacheHit: true, GeneratedAt: s.genAt}
		s.mu.RUnlock()
		return res
	}
	s.mu.RUnlock()

	// Slow path: singleflight refresh
	v, _, _ := s.sg.Do("summary-refresh", func() (any, error) {
		// Double-check freshness after winning the flight
		s.mu.RLock()
		if s.cache != nil && s.now().Before(s.expires) {
			res := SummaryResult{Data: s.cache, CacheHit: true, GeneratedAt: s.genAt}
			s.mu.RUnlock()
			return res, nil
		}
		s.mu.RUnlock()

		start := s.now()
		data := s.sim.Summarize()

		s.mu.Lock()
		s.cache = data
		s.expires = s.now().Add(s.opts.TTL)
		s.genAt = start
		s.mu.Unlock()

		return SummaryResult{Data: data, CacheHit: false, GeneratedAt: start}, nil
	})
	return v.(SummaryResult)
}

// Invalidate drops the cached snapshot so the next Get reads the
// books again.
func (s *SummaryService) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.expires = time.Time{}
	s.genAt = time.Time{}
	s.mu.Unlock()
}
