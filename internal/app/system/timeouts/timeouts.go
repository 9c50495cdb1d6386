// Package timeouts holds the deadlines applied to governance work.
//
// Tiers:
//   - Ping: health checks against the database
//   - Read: role lookups, proposal and join request reads, health snapshots
//   - Write: votes, proposal creation, membership changes (one group transaction)
//   - Sweep: one pass of the proposal expiry sweep across every group
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults, used until Configure or ConfigureFromEnv overrides them.
const (
	DefaultPing  = 2 * time.Second
	DefaultRead  = 5 * time.Second
	DefaultWrite = 15 * time.Second
	DefaultSweep = 60 * time.Second
)

// Config overrides tiers; zero values keep the current setting.
type Config struct {
	Ping  time.Duration
	Read  time.Duration
	Write time.Duration
	Sweep time.Duration
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func defaults() Config {
	return Config{Ping: DefaultPing, Read: DefaultRead, Write: DefaultWrite, Sweep: DefaultSweep}
}

// Ping is the deadline for a database ping.
func Ping() time.Duration { return Current().Ping }

// Read is the deadline for read-only engine calls.
func Read() time.Duration { return Current().Read }

// Write is the deadline for a mutating engine call.
func Write() time.Duration { return Current().Write }

// Sweep is the deadline for one expiry sweep.
func Sweep() time.Duration { return Current().Sweep }

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Configure applies the non-zero fields of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&cur.Ping, cfg.Ping)
	merge(&cur.Read, cfg.Read)
	merge(&cur.Write, cfg.Write)
	merge(&cur.Sweep, cfg.Sweep)
}

func merge(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

// ConfigureFromEnv reads CIVIC_TIMEOUT_PING, CIVIC_TIMEOUT_READ,
// CIVIC_TIMEOUT_WRITE and CIVIC_TIMEOUT_SWEEP (Go durations such as "5s").
// Unset or invalid values are ignored. It returns how many were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for _, v := range []struct {
		env string
		dst *time.Duration
	}{
		{"CIVIC_TIMEOUT_PING", &cfg.Ping},
		{"CIVIC_TIMEOUT_READ", &cfg.Read},
		{"CIVIC_TIMEOUT_WRITE", &cfg.Write},
		{"CIVIC_TIMEOUT_SWEEP", &cfg.Sweep},
	} {
		raw := os.Getenv(v.env)
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			*v.dst = d
			n++
		}
	}
	Configure(cfg)
	return n
}

// WithTimeout derives a context with the given deadline. The returned cancel
// logs a warning when the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "vote on proposal")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
