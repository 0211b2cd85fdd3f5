package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
)

// Sink is one named destination of the recorder log: the log file, the
// console, the OTel bridge or Graylog.
type Sink struct {
	Name    string
	Handler slog.Handler
}

// Fanout sends each record to every sink enabled for its level. A failing
// sink does not keep the record from the others; its failures are counted
// so a dead Graylog endpoint shows up at shutdown.
type Fanout struct {
	sinks    []Sink
	failures *failureCounts
}

type failureCounts struct {
	mu sync.Mutex
	n  map[string]int
}

// NewFanout drops sinks without a handler.
func NewFanout(sinks ...Sink) *Fanout {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Handler != nil {
			valid = append(valid, s)
		}
	}
	return &Fanout{
		sinks:    valid,
		failures: &failureCounts{n: map[string]int{}},
	}
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.Handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle returns the joined errors of the sinks that failed.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.Handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			f.failures.add(s.Name)
			errs = append(errs, fmt.Errorf("log sink %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// derived fanouts share the failure counts of their parent.
func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	sinks := make([]Sink, len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = Sink{Name: s.Name, Handler: fn(s.Handler)}
	}
	return &Fanout{sinks: sinks, failures: f.failures}
}

// Failures returns the number of failed writes per sink name.
func (f *Fanout) Failures() map[string]int {
	f.failures.mu.Lock()
	defer f.failures.mu.Unlock()
	return maps.Clone(f.failures.n)
}

func (c *failureCounts) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n[name]++
}
