package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edirooss/lfg-sim/internal/dungeon"
	"github.com/edirooss/lfg-sim/internal/service"
)

// maxEventLines caps how much of the ring one request may drain.
const maxEventLines = 500

// SimHandler provides the read-only HTTP views of a running simulation.
//
// Supported operations:
//   - GET /api/status   → live run status (pool, gate, intake flag)
//   - GET /api/summary  → per-instance aggregates (cached snapshot)
//   - GET /api/events   → recent events, newest first
//
// Notes:
//   - Everything here observes the run; nothing mutates it.
type SimHandler struct {
	log        *zap.Logger
	sim        *dungeon.Sim
	summarySvc *service.SummaryService
}

// NewSimHandler constructs a SimHandler instance.
func NewSimHandler(log *zap.Logger, sim *dungeon.Sim) *SimHandler {
	// Summaries lock the books; cache them briefly so dashboard polling
	// does not serialize against the dispatcher.
	summarySvc := service.NewSummaryService(log, sim, service.SummaryOptions{
		TTL: 250 * time.Millisecond,
	})

	return &SimHandler{
		log:        log.Named("sim"),
		sim:        sim,
		summarySvc: summarySvc,
	}
}

// Status handles GET /api/status.
//
// Status Codes:
//   - 200 OK → JSON status object
func (h *SimHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.sim.Status())
}

// Summary handles GET /api/summary.
//
// Behavior:
//   - Serves the cached snapshot; `?force=1` drops the cache first.
//   - Adds `X-Cache` and `X-Summary-Generated-At` headers.
//
// Status Codes:
//   - 200 OK → JSON summary object
func (h *SimHandler) Summary(c *gin.Context) {
	if c.Query("force") == "1" {
		h.summarySvc.Invalidate()
	}

	res := h.summarySvc.Get(c.Request.Context())

	c.Header("X-Cache", map[bool]string{true: "HIT", false: "MISS"}[res.CacheHit])
	c.Header("X-Summary-Generated-At", strconv.FormatInt(res.GeneratedAt.UnixMilli(), 10))

	c.JSON(http.StatusOK, res.Data)
}

// Events handles GET /api/events.
//
// Behavior:
//   - `?lines=N` bounds the tail length (default 50, capped at 500).
//   - Adds `X-Total-Count` header.
//
// Status Codes:
//   - 200 OK → JSON array of events, newest first
//   - 400 Bad Request → lines is not a positive integer
func (h *SimHandler) Events(c *gin.Context) {
	lines := 50
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "lines must be a positive integer"})
			return
		}
		lines = n
	}
	if lines > maxEventLines {
		lines = maxEventLines
	}

	evs := h.sim.Events(lines)
	if evs == nil {
		evs = []dungeon.Event{}
	}

	c.Header("X-Total-Count", strconv.Itoa(len(evs)))
	c.JSON(http.StatusOK, evs)
}
