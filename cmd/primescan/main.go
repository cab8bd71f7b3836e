package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edirooss/lfg-sim/internal/config"
	"github.com/edirooss/lfg-sim/internal/primes"
)

const documents = "concurrent prime scanner"

func main() {
	parser := argparse.NewParser("primescan", documents)
	cfgPath := parser.String("c", "config", &argparse.Options{Default: "primescan.ini", Help: "Path to the key=value config file (THREAD_COUNT, MAX_NUMBER)"})
	strategy := parser.Selector("s", "strategy", primes.Strategies(), &argparse.Options{Default: "range", Help: "How to split the work between workers"})
	workers := parser.Int("w", "workers", &argparse.Options{Default: 0, Help: "Override THREAD_COUNT from the config"})
	max := parser.Int("m", "max", &argparse.Options{Default: 0, Help: "Override MAX_NUMBER from the config"})
	version := parser.Flag("v", "version", &argparse.Options{Help: "Print version and exit"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		return
	}
	if *version {
		fmt.Printf("primescan %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		return
	}

	cfg, err := primes.LoadConfig(*cfgPath)
	if err != nil {
		// The file is optional when both values come from flags.
		if *workers <= 0 || *max <= 0 {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = &primes.FileConfig{}
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *max > 0 {
		cfg.Max = int64(*max)
	}

	log := buildLogger()
	defer log.Sync()

	log.Info("prime scan starting",
		zap.String("strategy", *strategy),
		zap.Int("workers", cfg.Workers),
		zap.Int64("max", cfg.Max))

	res, err := primes.Run(primes.Strategy(*strategy), primes.Options{
		Max:     cfg.Max,
		Workers: cfg.Workers,
		Log:     log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "primescan: %v\n", err)
		os.Exit(1)
	}

	if res.Strategy == primes.StrategyBatch {
		printBatches(res)
	}

	log.Info("scan complete",
		zap.Int("total_primes", res.Total),
		zap.Ints("per_worker", res.PerWorker),
		zap.Duration("elapsed", res.Elapsed))
	log.Info("performance",
		zap.Int64("numbers", res.Max),
		zap.Duration("elapsed", res.Elapsed))
}

// printBatches writes the consolidated per-worker prime lists, the
// batch strategy's deferred output.
func printBatches(res *primes.Result) {
	for i, batch := range res.Batches {
		fmt.Printf("--- worker %d (%d primes) ---\n", i, len(batch))
		for _, p := range batch {
			fmt.Printf("%d ", p)
		}
		fmt.Println()
	}
}

// buildLogger keeps the development timestamp; watching primes land in
// real time is the whole point of the range and queue strategies.
func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	return zap.Must(logConfig.Build())
}
