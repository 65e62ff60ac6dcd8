package droid

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/randalmurphal/acpkit/droid"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)

	runCounter = mustCounter("droid.runs", "Completed droid runs, by outcome")
)

func mustCounter(name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("{run}"))
	if err != nil {
		otel.Handle(err)
		return noop.Int64Counter{}
	}
	return c
}
