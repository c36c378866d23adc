// Package pipelog provides the structured logging facade used across
// every phase of the reconstruction pipeline. It mirrors the
// zap.Config literal and SugaredLogger wrapping used by
// viamrobotics-rdk/logging and viamrobotics-rdk/utils/logger.go.
package pipelog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the subset of *zap.SugaredLogger the pipeline depends on,
// named so call sites don't couple directly to zap.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	With(args ...interface{}) Logger
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (l zapLogger) With(args ...interface{}) Logger {
	return zapLogger{l.SugaredLogger.With(args...)}
}

// New returns a new Logger named name. When verbose is false only
// Info level and above are emitted; verbose enables Debug.
func New(name string, verbose bool) Logger {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger, err := cfg.Build()
	if err != nil {
		// Config above is a static literal; Build only fails on malformed
		// config, which would be a programming error, not a runtime one.
		panic(err)
	}
	return zapLogger{logger.Sugar().Named(name)}
}

// Nop returns a Logger that discards everything, for tests that don't
// care about diagnostics.
func Nop() Logger {
	return zapLogger{zap.NewNop().Sugar()}
}
