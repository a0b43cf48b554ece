package peano

import (
	"log/slog"
	"runtime"
	"time"
)

// Options configures a World and its scheduler.
type Options struct {
	// Logger receives schedule, violation and panic reports.
	// Default: slog.Default().
	Logger *slog.Logger

	// Workers is the size of the worker pool that runs systems of a wave.
	// Default: runtime.GOMAXPROCS(0).
	Workers int

	// TickRate is the interval between ticks driven by Scheduler.Start.
	// Default: 50ms (20 TPS).
	TickRate time.Duration

	// AccessCheck selects how Context accessors validate footprints.
	// Default: AccessUnchecked.
	AccessCheck AccessCheck
}

// defaultOptions returns sensible defaults.
func defaultOptions() Options {
	return Options{
		Logger:      slog.Default(),
		Workers:     max(runtime.GOMAXPROCS(0), 1),
		TickRate:    50 * time.Millisecond,
		AccessCheck: AccessUnchecked,
	}
}

// Option configures a world.
type Option func(*Options)

// WithLogger sets the logger used by the world and its scheduler.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithWorkers sets the worker pool size. Values below one mean one.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = max(n, 1)
	}
}

// WithTickRate sets the interval used by Scheduler.Start.
func WithTickRate(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.TickRate = d
		}
	}
}

// WithAccessCheck enables the debug access validator.
func WithAccessCheck(mode AccessCheck) Option {
	return func(o *Options) {
		o.AccessCheck = mode
	}
}
