package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edirooss/lfg-sim/internal/config"
	"github.com/edirooss/lfg-sim/internal/dungeon"
	"github.com/edirooss/lfg-sim/internal/http/handler"
	mw "github.com/edirooss/lfg-sim/internal/http/middleware"
	"github.com/edirooss/lfg-sim/internal/metrics"
	"github.com/edirooss/lfg-sim/internal/redis"
	"github.com/edirooss/lfg-sim/internal/report"
	"github.com/edirooss/lfg-sim/pkg/fmtt"
)

var (
	configPath = flag.String("config", config.DefaultPath, "path to the YAML config file")
	seed       = flag.Uint64("seed", 0, "random seed; 0 derives one from the clock")
)

func init() {
	// Handle version display
	handleVersion()
}

func main() {
	// Read env
	isDev := os.Getenv("ENV") == "dev"

	// Load config. Configuration errors stop the program before any
	// goroutine is spawned.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Create Zap logger
	log := buildLogger(isDev)
	defer log.Sync()
	log = log.Named("lfg")

	cfg.Normalize(log.Named("config"))

	runID := uuid.NewString()
	runSeed := *seed
	if runSeed == 0 {
		runSeed = uint64(time.Now().UnixNano())
	}

	// SIGINT/SIGTERM cancels the run; the partial summary still prints.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event sinks: Prometheus always, Redis when configured.
	collectors := metrics.New()
	sinks := []dungeon.EventSink{collectors}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.DB, log)
		defer rdb.Close()
		sinks = append(sinks, redis.NewSink(rdb, runID, redis.SinkOptions{
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		}, log))
	}

	sim := dungeon.NewSim(log, dungeon.SimConfig{
		RunID:        runID,
		Seed:         runSeed,
		Capacity:     cfg.Capacity,
		Tanks:        cfg.Players.Tanks,
		Healers:      cfg.Players.Healers,
		DPS:          cfg.Players.DPS,
		MinStay:      time.Duration(cfg.Run.MinSeconds) * time.Second,
		MaxStay:      time.Duration(cfg.Run.MaxSeconds) * time.Second,
		PollInterval: time.Duration(cfg.Run.PollIntervalMS) * time.Millisecond,
		Feed: dungeon.FeedConfig{
			Cycles:     cfg.Arrivals.Cycles,
			SleepMin:   time.Duration(cfg.Arrivals.SleepMinSeconds) * time.Second,
			SleepMax:   time.Duration(cfg.Arrivals.SleepMaxSeconds) * time.Second,
			MaxTanks:   cfg.Arrivals.MaxTanks,
			MaxHealers: cfg.Arrivals.MaxHealers,
			MaxDPS:     cfg.Arrivals.MaxDPS,
		},
	}, sinks...)
	collectors.ObserveSim(sim)

	// The observability API lives exactly as long as the run.
	srvctx, stopSrv := context.WithCancel(ctx)
	defer stopSrv()
	var httpDone chan struct{}
	if cfg.HTTP.Enabled {
		httpDone = serveHTTP(srvctx, log, cfg.HTTP, isDev, sim, collectors)
	}

	sum, runErr := sim.Run(ctx)

	stopSrv()
	if httpDone != nil {
		<-httpDone
	}

	report.Render(os.Stdout, sum)
	report.Recap(log, sum)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("run interrupted", zap.Error(runErr))
		} else {
			log.Error("run failed", zap.Error(runErr))
			fmtt.PrintErrChain(runErr)
		}
		log.Sync()
		os.Exit(1)
	}
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("lfg-sim %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// serveHTTP runs the read-only observability API until ctx is
// cancelled. The returned channel closes once the listener has fully
// shut down.
func serveHTTP(ctx context.Context, log *zap.Logger, cfg config.HTTPConfig, isDev bool, sim *dungeon.Sim, collectors *metrics.SimCollectors) chan struct{} {
	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer() // Configure Gin's logger to use Zap
	r := gin.New()

	// Apply Gin middlewares
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID()) // Attach request ID for tracing; early in the chain so it's available everywhere

		if isDev { // Enable CORS for a local dashboard polling the API
			r.Use(cors.New(cors.Config{
				AllowOrigins:  []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:3000"},
				AllowMethods:  []string{"GET", "OPTIONS"},
				AllowHeaders:  []string{"X-Request-ID", "Content-Type"},
				ExposeHeaders: []string{"X-Request-ID", "X-Total-Count", "X-Cache", "X-Summary-Generated-At"},
				MaxAge:        12 * time.Hour,
			}))
		} else {
			r.SetTrustedProxies(nil) // direct peers only; nothing proxies this API
		}

		r.Use(accessLog(log.Named("http")))
		r.Use(mw.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateBurst))
		r.Use(mw.LimitConcurrentRequests(cfg.MaxConcurrent))

		r.Use(func(c *gin.Context) {
			// The API is read-only; nobody has a reason to send a body.
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
			c.Next()
		})
	}

	// Register route handlers
	{
		r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

		simhndlr := handler.NewSimHandler(log, sim)
		r.GET("/api/status", simhndlr.Status)
		r.GET("/api/summary", simhndlr.Summary)
		r.GET("/api/events", simhndlr.Events)

		r.GET("/metrics", gin.WrapH(collectors.Handler()))
	}

	httpsrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      15 * time.Second, // avoid forever-hangs on writes
		IdleTimeout:       60 * time.Second, // keep-alive cap
		MaxHeaderBytes:    1 << 20,          // 1MB cap
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpsrv.Shutdown(shutdownCtx)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
		if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			return
		}
		log.Info("http server closed")
	}()
	return done
}

// accessLog is a Gin middleware that records HTTP request/response details with Zap after handling.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// collect all errors from Gin context
		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		// errors.Join returns nil if errs is empty
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", mw.GetRequestID(c)),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// helpers

func buildLogger(isDev bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	if isDev {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	return zap.Must(logConfig.Build())
}
