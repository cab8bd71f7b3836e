package config

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/edirooss/lfg-sim/internal/config.Version=v0.2.0 ..."
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)
