// Package logging provides the leveled, structured logger shared by the
// edge registration decider and the ray simulator. It wraps zap rather
// than reinventing a logging protocol.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zap's level so that callers do not need to import zapcore directly.
type Level int

const (
	// DEBUG is verbose, development-time logging.
	DEBUG Level = iota
	// INFO is the default operating level.
	INFO
	// WARN flags a recoverable, noteworthy condition.
	WARN
	// ERROR flags a failure the caller should look at.
	ERROR
)

// AsZap converts a Level to its zapcore equivalent.
func (l Level) AsZap() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case INFO:
		fallthrough
	default:
		return zapcore.InfoLevel
	}
}

// NewZapConfig returns the console-encoded zap config loggers in this package are built from.
// Disables stacktraces and colors levels, same as the teacher's own logger config.
func NewZapConfig(level Level) zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level.AsZap()),
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
}

// NewLogger returns a logger that writes Info+ logs to stdout, named name.
func NewLogger(name string) Logger {
	zl := zap.Must(NewZapConfig(INFO).Build()).Sugar().Named(name)
	return &impl{sugar: zl, name: name}
}

// NewDebugLogger returns a logger that writes Debug+ logs to stdout, named name.
func NewDebugLogger(name string) Logger {
	zl := zap.Must(NewZapConfig(DEBUG).Build()).Sugar().Named(name)
	return &impl{sugar: zl, name: name}
}
