// Package telemetry defines the logging, metrics, and tracing contracts used
// throughout the workflow engine. Components depend on the interfaces here,
// never on a concrete backend, so the engine can run with noop
// implementations in tests and zap/Prometheus implementations in production.
package telemetry

import "context"

type (
	// Logger emits structured, leveled log lines. All methods accept a
	// context first so implementations can extract trace/run identifiers.
	Logger interface {
		Debug(ctx context.Context, msg string, kv ...any)
		Info(ctx context.Context, msg string, kv ...any)
		Warn(ctx context.Context, msg string, kv ...any)
		Error(ctx context.Context, msg string, kv ...any)
	}

	// Metrics records counters, timers, and gauges for dispatcher loops,
	// node executions, LLM calls, and arbitration outcomes.
	Metrics interface {
		IncCounter(name string, value float64, labels ...string)
		RecordTimer(name string, ms float64, labels ...string)
		RecordGauge(name string, value float64, labels ...string)
	}
)
