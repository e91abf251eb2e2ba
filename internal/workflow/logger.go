package workflow

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// zapLogger adapts a zap logger to the Temporal SDK logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewLogger returns a Temporal logger writing through l.
func NewLogger(l *zap.Logger) log.Logger {
	return &zapLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *zapLogger) Debug(msg string, keyvals ...any) { z.s.Debugw(msg, keyvals...) }
func (z *zapLogger) Info(msg string, keyvals ...any)  { z.s.Infow(msg, keyvals...) }
func (z *zapLogger) Warn(msg string, keyvals ...any)  { z.s.Warnw(msg, keyvals...) }
func (z *zapLogger) Error(msg string, keyvals ...any) { z.s.Errorw(msg, keyvals...) }

// With implements log.WithLogger.
func (z *zapLogger) With(keyvals ...any) log.Logger {
	return &zapLogger{s: z.s.With(keyvals...)}
}
