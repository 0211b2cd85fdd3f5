package scanner

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/lviewgo/recorder/internal/scanner"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	decoded  metric.Int64Counter
	degraded metric.Int64Counter
	failed   metric.Int64Counter
	unknown  metric.Int64Counter
	evicted  metric.Int64Counter
	duration metric.Float64Histogram
}

// newInstruments uses the global OTel meter (no-op if not configured).
func newInstruments() (*instruments, error) {
	m := meter()
	in := &instruments{}

	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&in.decoded, "lview.scan.entities.decoded", "Entities decoded"},
		{&in.degraded, "lview.scan.entities.degraded", "Entities kept without unit info after a deep load failure"},
		{&in.failed, "lview.scan.entities.failed", "Objects that could not be decoded"},
		{&in.unknown, "lview.scan.entities.unknown", "Decoded entities whose name is not in the kind table"},
		{&in.evicted, "lview.scan.entities.evicted", "Cached entities dropped after leaving the object list"},
	}
	for _, c := range counters {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	in.duration, err = m.Float64Histogram(
		"lview.scan.frame.duration",
		metric.WithDescription("Time to scan one frame"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame duration histogram: %w", err)
	}
	return in, nil
}
