// Dispatcher configuration, read from a TOML file.
//
//	workers      = 8
//	affinity     = "fd"      # "shared" | "fd"
//	backend      = "uring"   # "threads" | "uring"
//	ring_entries = 128
//	log_level    = "debug"
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/phusion/zangetsu/internal/iomgr"

	"github.com/BurntSushi/toml"
)

const (
	AFFINITY_SHARED = "shared"
	AFFINITY_FD     = "fd"

	BACKEND_THREADS = "threads"
	BACKEND_URING   = "uring"

	DEFAULT_RING_ENTRIES = 0x80
	MAX_RING_ENTRIES     = 0x8000
	MAX_WORKERS          = iomgr.MAX_WORKERS
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Workers     int    `toml:"workers"`
	Affinity    string `toml:"affinity"`
	Backend     string `toml:"backend"`
	RingEntries uint32 `toml:"ring_entries"`
	LogLevel    string `toml:"log_level"`
}

func Default() Config {
	return Config{
		Workers:     min(max(runtime.GOMAXPROCS(0), 1), MAX_WORKERS),
		Affinity:    AFFINITY_SHARED,
		Backend:     BACKEND_THREADS,
		RingEntries: DEFAULT_RING_ENTRIES,
		LogLevel:    "info",
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, finish(cfg, md)
}

func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, finish(cfg, md)
}

func finish(cfg Config, md toml.MetaData) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	if c.Workers < 1 || c.Workers > MAX_WORKERS {
		return fmt.Errorf("%w: workers must be in [1, %d], got %d", ErrInvalid, MAX_WORKERS, c.Workers)
	}
	switch c.Affinity {
	case AFFINITY_SHARED, AFFINITY_FD:
	default:
		return fmt.Errorf("%w: unknown affinity %q", ErrInvalid, c.Affinity)
	}
	switch c.Backend {
	case BACKEND_THREADS, BACKEND_URING:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if c.RingEntries < 1 || c.RingEntries > MAX_RING_ENTRIES {
		return fmt.Errorf("%w: ring_entries must be in [1, %d], got %d", ErrInvalid, MAX_RING_ENTRIES, c.RingEntries)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	return level, nil
}
