package logging

import (
	"go.uber.org/zap"
)

// Logger is the subset of a sugared zap logger used by this module's
// components: structured info/warn/error logging plus named sub-loggers
// for a component to tag its own diagnostics stream (e.g. "erd", "raysim").
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Sublogger(subname string) Logger
	Sync() error
}

type impl struct {
	sugar *zap.SugaredLogger
	name  string
}

func (imp *impl) Debugw(msg string, kv ...interface{}) { imp.sugar.Debugw(msg, kv...) }
func (imp *impl) Infow(msg string, kv ...interface{})  { imp.sugar.Infow(msg, kv...) }
func (imp *impl) Warnw(msg string, kv ...interface{})  { imp.sugar.Warnw(msg, kv...) }
func (imp *impl) Errorw(msg string, kv ...interface{}) { imp.sugar.Errorw(msg, kv...) }
func (imp *impl) Info(args ...interface{})             { imp.sugar.Info(args...) }
func (imp *impl) Warn(args ...interface{})             { imp.sugar.Warn(args...) }

// Sync flushes any buffered log entries.
func (imp *impl) Sync() error { return imp.sugar.Sync() }

// Sublogger returns a child logger whose name is dotted onto the parent's,
// e.g. "erd".Sublogger("dataset") -> "erd.dataset".
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{sugar: imp.sugar.Desugar().Named(subname).Sugar(), name: name}
}
