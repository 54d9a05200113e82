// Query statistics and slow statement detection for lkey drivers.

package sql

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Stats holds cumulative statement-execution counters. All fields are
// safe for concurrent use.
type Stats struct {
	// Queries is the number of row-returning statements executed.
	Queries atomic.Int64
	// Execs is the number of non-row statements executed.
	Execs atomic.Int64
	// Duration is the total time spent in the driver, in nanoseconds.
	Duration atomic.Int64
	// Slow is the number of statements exceeding the slow threshold.
	Slow atomic.Int64
	// Errors is the number of failed statements.
	Errors atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Queries  int64
	Execs    int64
	Duration time.Duration
	Slow     int64
	Errors   int64
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Queries:  s.Queries.Load(),
		Execs:    s.Execs.Load(),
		Duration: time.Duration(s.Duration.Load()),
		Slow:     s.Slow.Load(),
		Errors:   s.Errors.Load(),
	}
}

// SlowHook is called when a statement exceeds the slow threshold.
type SlowHook func(ctx context.Context, query string, args []any, d time.Duration)

// StatsDriver wraps a Driver with statement statistics collection.
type StatsDriver struct {
	*Driver
	stats     Stats
	threshold time.Duration
	hook      SlowHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow statement threshold. Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold = d }
}

// WithSlowHook sets a callback invoked for every slow statement.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) { s.hook = hook }
}

// WithSlowLog logs slow statements through slog. Convenience wrapper
// around WithSlowHook.
func WithSlowLog() StatsOption {
	return WithSlowHook(func(_ context.Context, query string, args []any, d time.Duration) {
		slog.Warn("slow statement", "duration", d, "query", query, "args", args)
	})
}

// NewStatsDriver wraps the given driver with statistics collection.
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		threshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the underlying counters.
func (d *StatsDriver) Stats() *Stats { return &d.stats }

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, start, err, &d.stats.Queries)
	return err
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, start, err, &d.stats.Execs)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error, counter *atomic.Int64) {
	elapsed := time.Since(start)
	counter.Add(1)
	d.stats.Duration.Add(int64(elapsed))
	if err != nil {
		d.stats.Errors.Add(1)
	}
	if elapsed > d.threshold {
		d.stats.Slow.Add(1)
		if d.hook != nil {
			argv, _ := args.([]any)
			d.hook(ctx, query, argv, elapsed)
		}
	}
}
