// Package obs provides the logging and metrics glue shared by every
// long-lived component in the node. Components never construct a zap
// logger directly; they accept a Logger and call With to scope it, the
// same geth-style wrapper shape commonly layered over zap.
package obs

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the minimal geth-style logging surface every component depends
// on. Components take a Logger, never a concrete *zap.Logger, so tests can
// swap in NoOp().
type Logger interface {
	With(ctx ...interface{}) Logger
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a production logger writing JSON lines to w.
func New(w io.Writer, level zapcore.Level) Logger {
	enc := zap.NewProductionEncoderConfig()
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level)
	return &zapLogger{s: zap.New(core).Sugar()}
}

// NewRotating builds a logger that rotates its output file, for long-running
// validator nodes where unbounded log growth is unacceptable.
func NewRotating(path string, maxSizeMB, maxBackups, maxAgeDays int) Logger {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return New(lj, zapcore.InfoLevel)
}

// NoOp returns a logger that discards everything, used in tests.
func NoOp() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (z *zapLogger) With(ctx ...interface{}) Logger {
	return &zapLogger{s: z.s.With(ctx...)}
}

func (z *zapLogger) Debug(msg string, ctx ...interface{}) { z.s.Debugw(msg, ctx...) }
func (z *zapLogger) Info(msg string, ctx ...interface{})  { z.s.Infow(msg, ctx...) }
func (z *zapLogger) Warn(msg string, ctx ...interface{})  { z.s.Warnw(msg, ctx...) }
func (z *zapLogger) Error(msg string, ctx ...interface{}) { z.s.Errorw(msg, ctx...) }
