package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "brane"

// Metrics holds all brane metric instruments. Without a configured SDK
// provider the instruments are no-ops, so callers record unconditionally.
type Metrics struct {
	RunsStarted   metric.Int64Counter
	RunsCompleted metric.Int64Counter
	RunsFailed    metric.Int64Counter
	ToolCalls     metric.Int64Counter
	RunSteps      metric.Int64Histogram
	RunDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("brane.runs.started",
		metric.WithDescription("Number of agent runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("brane.runs.completed",
		metric.WithDescription("Number of agent runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("brane.runs.failed",
		metric.WithDescription("Number of agent runs failed"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("brane.toolcalls",
		metric.WithDescription("Number of tool calls executed"))
	if err != nil {
		return nil, err
	}

	m.RunSteps, err = meter.Int64Histogram("brane.run.steps",
		metric.WithDescription("Model turns per agent run"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("brane.run.duration_seconds",
		metric.WithDescription("Agent run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
