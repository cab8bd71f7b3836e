package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/lfg-sim/internal/dungeon"
)

// Key layout, one namespace per run:
//
//	<prefix>:run:<id>:counts  HASH  event kind -> count
//	<prefix>:run:<id>:events  LIST  JSON events, newest first, capped
const (
	countsKeySuffix = "counts"
	eventsKeySuffix = "events"
)

const (
	publishTimeout = 500 * time.Millisecond
	eventListCap   = 500
)

// SinkOptions tunes the event sink.
type SinkOptions struct {
	KeyPrefix string
	TTL       time.Duration
}

func (o *SinkOptions) setDefaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "lfg"
	}
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
}

// Sink persists run events to Redis, best effort: a dead Redis costs
// one warning per write, never the run. The simulator only writes
// here; nothing reads these keys back.
type Sink struct {
	client *Client
	log    *zap.Logger
	ttl    time.Duration

	countsKey string
	eventsKey string
}

// NewSink namespaces all keys under the run id.
func NewSink(client *Client, runID string, opts SinkOptions, log *zap.Logger) *Sink {
	opts.setDefaults()
	return &Sink{
		client:    client,
		log:       log.Named("sink"),
		ttl:       opts.TTL,
		countsKey: fmt.Sprintf("%s:run:%s:%s", opts.KeyPrefix, runID, countsKeySuffix),
		eventsKey: fmt.Sprintf("%s:run:%s:%s", opts.KeyPrefix, runID, eventsKeySuffix),
	}
}

// Publish implements dungeon.EventSink. The write gets a fresh
// deadline even when ctx is already cancelled, so shutdown does not
// lose the tail of the run.
func (s *Sink) Publish(ctx context.Context, ev dungeon.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Warn("marshal event", zap.Error(err), zap.Uint64("seq", ev.Seq))
		return
	}

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, s.countsKey, string(ev.Kind), 1)
	pipe.LPush(ctx, s.eventsKey, payload)
	pipe.LTrim(ctx, s.eventsKey, 0, eventListCap-1)
	pipe.Expire(ctx, s.countsKey, s.ttl)
	pipe.Expire(ctx, s.eventsKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("publish event",
			zap.Error(err),
			zap.Uint64("seq", ev.Seq),
			zap.String("kind", string(ev.Kind)))
	}
}
