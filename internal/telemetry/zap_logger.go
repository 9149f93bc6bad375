package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface.
// cmd/engineserver's buildLogger constructs it from a zap production or
// development config.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps the given zap logger. Passing nil panics, matching the
// fail-fast posture the teacher takes on missing required dependencies.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		panic("telemetry: nil zap logger")
	}
	return &ZapLogger{sugar: l.Sugar()}
}

func (z *ZapLogger) Debug(_ context.Context, msg string, kv ...any) { z.sugar.Debugw(msg, kv...) }
func (z *ZapLogger) Info(_ context.Context, msg string, kv ...any)  { z.sugar.Infow(msg, kv...) }
func (z *ZapLogger) Warn(_ context.Context, msg string, kv ...any)  { z.sugar.Warnw(msg, kv...) }
func (z *ZapLogger) Error(_ context.Context, msg string, kv ...any) { z.sugar.Errorw(msg, kv...) }
