package primes

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileConfig holds the tunables read from the legacy key=value config
// file (THREAD_COUNT, MAX_NUMBER).
type FileConfig struct {
	Workers int
	Max     int64
}

// LoadConfig parses a key=value file. Blank lines and lines starting
// with ';' are skipped; unknown keys are ignored. Both THREAD_COUNT
// and MAX_NUMBER must be present.
func LoadConfig(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		cfg        FileConfig
		gotWorkers bool
		gotMax     bool
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config line %q: %w", line, err)
		}
		switch key {
		case "THREAD_COUNT":
			cfg.Workers, gotWorkers = int(n), true
		case "MAX_NUMBER":
			cfg.Max, gotMax = n, true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !gotWorkers || !gotMax {
		return nil, errors.New("config must set both THREAD_COUNT and MAX_NUMBER")
	}
	return &cfg, nil
}
