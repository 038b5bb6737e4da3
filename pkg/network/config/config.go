// Package config parses the sole external configuration surface named
// in spec.md §6: the ports-per-switch topology parameter, a logging
// selector, and the in-network-computing toggle.
package config

import (
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Config is the fully-resolved, validated configuration for a run.
type Config struct {
	Ports             uint
	LogFilter         string
	NetworkComputing  bool
	Debug             bool
}

// Default mirrors spec.md §6's defaults.
func Default() Config {
	return Config{
		Ports:            4,
		LogFilter:        "logrus",
		NetworkComputing: true,
	}
}

// Parse builds a Config from command-line-style arguments using
// kingpin (present in the teacher's go.mod as the CLI layer behind its
// test tooling). Returns ErrInvalidPortCount on a bad -ports value --
// a configuration error, fatal before any tick per spec.md §7.
func Parse(args []string) (Config, error) {
	app := kingpin.New("fattreesim", "Fat-tree in-network-computing simulator")

	cfg := Default()
	app.Flag("ports", "ports-per-switch (k), even, >= 4").Default("4").UintVar(&cfg.Ports)
	app.Flag("log-filter", "logging backend: logrus|prom").Default("logrus").StringVar(&cfg.LogFilter)
	app.Flag("network-computing", "enable in-switch partial reductions").Default("true").BoolVar(&cfg.NetworkComputing)
	app.Flag("debug", "enable debug-level logging").Default("false").BoolVar(&cfg.Debug)

	if _, err := app.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces spec.md §3's requirement that k be even and >= 4.
func (c Config) Validate() error {
	if c.Ports < 4 || c.Ports%2 != 0 {
		return types.ErrInvalidPortCount
	}
	return nil
}
