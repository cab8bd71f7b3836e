package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edirooss/lfg-sim/internal/redis"
)

// lfg-purge removes the keys the simulator's Redis event sink leaves
// behind. The sink sets a TTL on everything it writes, so this is for
// clearing a shared Redis immediately instead of waiting for expiry.
func main() {
	// CLI flags
	addr := flag.String("addr", "localhost:6379", "redis address")
	db := flag.Int("db", 0, "redis database")
	prefix := flag.String("prefix", "lfg", "key prefix the event sink wrote under")
	run := flag.String("run", "", "purge a single run id (default: every run)")
	flag.Parse()

	if *prefix == "" {
		fmt.Println("Usage: ./lfg-purge -addr=<host:port> [-db=<n>] [-prefix=lfg] [-run=<run_id>]")
		os.Exit(1)
	}

	log := buildLogger()
	defer log.Sync()
	log = log.Named("purge")

	ctx := context.Background()
	rdb := redis.NewClient(ctx, *addr, *db, log)
	defer rdb.Close()

	pattern := fmt.Sprintf("%s:run:*", *prefix)
	if *run != "" {
		pattern = fmt.Sprintf("%s:run:%s:*", *prefix, *run)
	}

	start := time.Now()
	deleted, err := purge(ctx, rdb, pattern, log)
	if err != nil {
		log.Fatal("purge failed",
			zap.String("pattern", pattern),
			zap.Int("deleted", deleted),
			zap.Error(err),
		)
	}

	log.Info("purge finished",
		zap.String("pattern", pattern),
		zap.Int("deleted", deleted),
		zap.Duration("took", time.Since(start)),
	)
}

// purge walks the keys matching pattern with SCAN and deletes them in
// batches, so a large backlog never stalls the server the way a single
// KEYS+DEL would.
func purge(ctx context.Context, rdb *redis.Client, pattern string, log *zap.Logger) (int, error) {
	const batchSize = 100

	deleted := 0
	batch := make([]string, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := rdb.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		deleted += len(batch)
		log.Info("keys deleted", zap.Int("batch", len(batch)), zap.Int("total", deleted))
		batch = batch[:0]
		return nil
	}

	iter := rdb.Scan(ctx, 0, pattern, batchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}
