package telemetry

import "context"

// NoopLogger discards everything. Used when no Logger is configured.
type NoopLogger struct{}

func NewNoopLogger() NoopLogger { return NoopLogger{} }

func (NoopLogger) Debug(context.Context, string, ...any) {}
func (NoopLogger) Info(context.Context, string, ...any)  {}
func (NoopLogger) Warn(context.Context, string, ...any)  {}
func (NoopLogger) Error(context.Context, string, ...any) {}

// NoopMetrics discards everything. Used when no Metrics backend is configured.
type NoopMetrics struct{}

func NewNoopMetrics() NoopMetrics { return NoopMetrics{} }

func (NoopMetrics) IncCounter(string, float64, ...string)  {}
func (NoopMetrics) RecordTimer(string, float64, ...string) {}
func (NoopMetrics) RecordGauge(string, float64, ...string) {}
