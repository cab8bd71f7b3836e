package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lfg-sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWhenDefaultPathMissing(t *testing.T) {
	// Run from a scratch dir so the default path cannot exist.
	t.Chdir(t.TempDir())

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
capacity: 5
players:
  tanks: 1
  healers: 2
  dps: 7
run:
  max_seconds: 9
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Capacity)
	require.Equal(t, 1, cfg.Players.Tanks)
	require.Equal(t, 2, cfg.Players.Healers)
	require.Equal(t, 7, cfg.Players.DPS)
	require.Equal(t, 9, cfg.Run.MaxSeconds)

	// Untouched sections keep their defaults.
	require.Equal(t, Default().Arrivals, cfg.Arrivals)
	require.Equal(t, Default().HTTP, cfg.HTTP)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "capactiy: 5\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEmptyFileIsDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	t.Run("capacity must be positive", func(t *testing.T) {
		cfg := Default()
		cfg.Capacity = 0
		require.ErrorIs(t, cfg.Validate(), ErrInvalid)

		cfg.Capacity = -3
		require.ErrorIs(t, cfg.Validate(), ErrInvalid)
	})

	t.Run("player counts must be non-negative", func(t *testing.T) {
		cfg := Default()
		cfg.Players.Healers = -1
		require.ErrorIs(t, cfg.Validate(), ErrInvalid)
	})

	t.Run("http addr must be a listenable host:port", func(t *testing.T) {
		cfg := Default()
		cfg.HTTP.Addr = "127.0.0.1"
		require.ErrorIs(t, cfg.Validate(), ErrInvalid)

		cfg.HTTP.Addr = ":8750"
		require.NoError(t, cfg.Validate())

		// Disabled sections are not validated.
		cfg.HTTP.Addr = "nonsense"
		cfg.HTTP.Enabled = false
		require.NoError(t, cfg.Validate())
	})

	t.Run("redis addr must name a host", func(t *testing.T) {
		cfg := Default()
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = ":6379"
		require.ErrorIs(t, cfg.Validate(), ErrInvalid)

		cfg.Redis.Addr = "localhost:6379"
		require.NoError(t, cfg.Validate())
	})

	t.Run("defaults pass", func(t *testing.T) {
		require.NoError(t, Default().Validate())
	})
}

func TestNormalize(t *testing.T) {
	log := zap.NewNop()

	t.Run("swaps run bounds", func(t *testing.T) {
		cfg := Default()
		cfg.Run.MinSeconds = 8
		cfg.Run.MaxSeconds = 2

		cfg.Normalize(log)
		require.Equal(t, 2, cfg.Run.MinSeconds)
		require.Equal(t, 8, cfg.Run.MaxSeconds)
	})

	t.Run("clamps run bounds to the cap", func(t *testing.T) {
		cfg := Default()
		cfg.Run.MinSeconds = 20
		cfg.Run.MaxSeconds = 40

		cfg.Normalize(log)
		require.Equal(t, maxRunSeconds, cfg.Run.MinSeconds)
		require.Equal(t, maxRunSeconds, cfg.Run.MaxSeconds)
	})

	t.Run("zeroes negative durations", func(t *testing.T) {
		cfg := Default()
		cfg.Run.MinSeconds = -4
		cfg.Run.MaxSeconds = -2

		cfg.Normalize(log)
		require.Equal(t, 0, cfg.Run.MinSeconds)
		require.Equal(t, 0, cfg.Run.MaxSeconds)
	})

	t.Run("repairs arrival bounds", func(t *testing.T) {
		cfg := Default()
		cfg.Arrivals.Cycles = -1
		cfg.Arrivals.SleepMinSeconds = 5
		cfg.Arrivals.SleepMaxSeconds = 1
		cfg.Arrivals.MaxDPS = -6

		cfg.Normalize(log)
		require.Equal(t, 0, cfg.Arrivals.Cycles)
		require.Equal(t, 1, cfg.Arrivals.SleepMinSeconds)
		require.Equal(t, 5, cfg.Arrivals.SleepMaxSeconds)
		require.Equal(t, 0, cfg.Arrivals.MaxDPS)
	})

	t.Run("restores poll interval", func(t *testing.T) {
		cfg := Default()
		cfg.Run.PollIntervalMS = 0

		cfg.Normalize(log)
		require.Equal(t, 100, cfg.Run.PollIntervalMS)
	})
}
