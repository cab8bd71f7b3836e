package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/edirooss/lfg-sim/pkg/hostutil"
)

// ErrInvalid marks configuration the daemon must refuse to run with.
// Load/Validate errors wrapping it stop the program before any
// goroutine is spawned.
var ErrInvalid = errors.New("invalid configuration")

// DefaultPath is where the daemon looks when -config is not given.
const DefaultPath = "lfg-sim.yaml"

// maxRunSeconds caps simulated dungeon durations. Longer runs are
// clamped with a warning, not rejected.
const maxRunSeconds = 15

// Config is the full daemon configuration, one section per subsystem.
type Config struct {
	Capacity int            `yaml:"capacity"` // max concurrent instances
	Players  PlayersConfig  `yaml:"players"`
	Run      RunConfig      `yaml:"run"`
	Arrivals ArrivalsConfig `yaml:"arrivals"`
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
}

// PlayersConfig seeds the player pool before any arrivals.
type PlayersConfig struct {
	Tanks   int `yaml:"tanks"`
	Healers int `yaml:"healers"`
	DPS     int `yaml:"dps"`
}

// RunConfig bounds simulated dungeon durations and the dispatcher's
// poll cadence.
type RunConfig struct {
	MinSeconds     int `yaml:"min_seconds"`
	MaxSeconds     int `yaml:"max_seconds"`
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

// ArrivalsConfig shapes the background arrival feed: how many cycles it
// runs, how long it sleeps between cycles and the per-cycle addition
// ceiling for each role.
type ArrivalsConfig struct {
	Cycles          int `yaml:"cycles"`
	SleepMinSeconds int `yaml:"sleep_min_seconds"`
	SleepMaxSeconds int `yaml:"sleep_max_seconds"`
	MaxTanks        int `yaml:"max_tanks"`
	MaxHealers      int `yaml:"max_healers"`
	MaxDPS          int `yaml:"max_dps"`
}

// HTTPConfig controls the live status API.
type HTTPConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Addr          string  `yaml:"addr"`
	RateLimitRPS  float64 `yaml:"rate_limit_rps"`
	RateBurst     int     `yaml:"rate_burst"`
	MaxConcurrent int     `yaml:"max_concurrent"`
}

// RedisConfig controls the optional best-effort event sink. Disabled by
// default; the simulator never reads anything back.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// Default returns the configuration used when no file is present:
// a small demo queue with the classic arrival pattern.
func Default() *Config {
	return &Config{
		Capacity: 3,
		Players:  PlayersConfig{Tanks: 3, Healers: 3, DPS: 9},
		Run:      RunConfig{MinSeconds: 1, MaxSeconds: 5, PollIntervalMS: 100},
		Arrivals: ArrivalsConfig{
			Cycles:          10,
			SleepMinSeconds: 1,
			SleepMaxSeconds: 3,
			MaxTanks:        2,
			MaxHealers:      2,
			MaxDPS:          6,
		},
		HTTP: HTTPConfig{
			Enabled:       true,
			Addr:          "127.0.0.1:8750",
			RateLimitRPS:  20,
			RateBurst:     40,
			MaxConcurrent: 32,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			KeyPrefix:  "lfg",
			TTLSeconds: 3600,
		},
	}
}

// Load reads the YAML config at path on top of the defaults. A missing
// file at the default path is fine (defaults apply); an explicitly
// requested file must exist. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports fatal configuration errors.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be >= 1, got %d", ErrInvalid, c.Capacity)
	}
	if c.Players.Tanks < 0 || c.Players.Healers < 0 || c.Players.DPS < 0 {
		return fmt.Errorf("%w: player counts must be non-negative, got %dT %dH %dD",
			ErrInvalid, c.Players.Tanks, c.Players.Healers, c.Players.DPS)
	}
	if c.HTTP.Enabled {
		if err := hostutil.ValidateListenAddr(c.HTTP.Addr); err != nil {
			return fmt.Errorf("%w: http: %v", ErrInvalid, err)
		}
	}
	if c.Redis.Enabled {
		if err := hostutil.ValidateDialAddr(c.Redis.Addr); err != nil {
			return fmt.Errorf("%w: redis: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Normalize repairs recoverable configuration mistakes in place and
// warns about each repair. The run continues with the repaired values.
func (c *Config) Normalize(log *zap.Logger) {
	if c.Run.MinSeconds < 0 {
		log.Warn("run.min_seconds negative; using 0", zap.Int("got", c.Run.MinSeconds))
		c.Run.MinSeconds = 0
	}
	if c.Run.MaxSeconds < 0 {
		log.Warn("run.max_seconds negative; using 0", zap.Int("got", c.Run.MaxSeconds))
		c.Run.MaxSeconds = 0
	}
	if c.Run.MinSeconds > c.Run.MaxSeconds {
		log.Warn("run.min_seconds > run.max_seconds; swapping",
			zap.Int("min", c.Run.MinSeconds), zap.Int("max", c.Run.MaxSeconds))
		c.Run.MinSeconds, c.Run.MaxSeconds = c.Run.MaxSeconds, c.Run.MinSeconds
	}
	if c.Run.MaxSeconds > maxRunSeconds {
		log.Warn("run.max_seconds above cap; clamping",
			zap.Int("got", c.Run.MaxSeconds), zap.Int("cap", maxRunSeconds))
		c.Run.MaxSeconds = maxRunSeconds
	}
	if c.Run.MinSeconds > maxRunSeconds {
		log.Warn("run.min_seconds above cap; clamping",
			zap.Int("got", c.Run.MinSeconds), zap.Int("cap", maxRunSeconds))
		c.Run.MinSeconds = maxRunSeconds
	}
	if c.Run.PollIntervalMS <= 0 {
		log.Warn("run.poll_interval_ms not positive; using 100", zap.Int("got", c.Run.PollIntervalMS))
		c.Run.PollIntervalMS = 100
	}

	if c.Arrivals.Cycles < 0 {
		log.Warn("arrivals.cycles negative; using 0", zap.Int("got", c.Arrivals.Cycles))
		c.Arrivals.Cycles = 0
	}
	if c.Arrivals.SleepMinSeconds < 0 {
		log.Warn("arrivals.sleep_min_seconds negative; using 0", zap.Int("got", c.Arrivals.SleepMinSeconds))
		c.Arrivals.SleepMinSeconds = 0
	}
	if c.Arrivals.SleepMaxSeconds < 0 {
		log.Warn("arrivals.sleep_max_seconds negative; using 0", zap.Int("got", c.Arrivals.SleepMaxSeconds))
		c.Arrivals.SleepMaxSeconds = 0
	}
	if c.Arrivals.SleepMinSeconds > c.Arrivals.SleepMaxSeconds {
		log.Warn("arrivals sleep bounds swapped",
			zap.Int("min", c.Arrivals.SleepMinSeconds), zap.Int("max", c.Arrivals.SleepMaxSeconds))
		c.Arrivals.SleepMinSeconds, c.Arrivals.SleepMaxSeconds = c.Arrivals.SleepMaxSeconds, c.Arrivals.SleepMinSeconds
	}
	if c.Arrivals.MaxTanks < 0 {
		log.Warn("arrivals.max_tanks negative; using 0", zap.Int("got", c.Arrivals.MaxTanks))
		c.Arrivals.MaxTanks = 0
	}
	if c.Arrivals.MaxHealers < 0 {
		log.Warn("arrivals.max_healers negative; using 0", zap.Int("got", c.Arrivals.MaxHealers))
		c.Arrivals.MaxHealers = 0
	}
	if c.Arrivals.MaxDPS < 0 {
		log.Warn("arrivals.max_dps negative; using 0", zap.Int("got", c.Arrivals.MaxDPS))
		c.Arrivals.MaxDPS = 0
	}
}
