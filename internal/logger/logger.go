// Package logger provides the logging facility used across the indexer and
// API server. It wraps github.com/op/go-logging behind a small interface so
// the rest of the code base depends on a contract, not a concrete library.
package logger

import (
	"os"

	logging "github.com/op/go-logging"
)

// Logger is the logging contract used throughout the repository. Every
// package that needs to log takes one of these rather than reaching for a
// global.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Notice(args ...interface{})
	Noticef(format string, args ...interface{})
	Warning(args ...interface{})
	Warningf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Critical(args ...interface{})
	Criticalf(format string, args ...interface{})

	// Module returns a child logger tagged with the given sub-module name,
	// so log lines can be filtered by component (preprocessor, committer,
	// traversal, store, graphql, ...).
	Module(name string) Logger
}

// appLogger is the default Logger implementation backed by go-logging.
type appLogger struct {
	log    *logging.Logger
	module string
}

var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} [%{module}]%{color:reset} %{message}`,
)

// New creates the root application logger at the given level
// ("DEBUG", "INFO", "NOTICE", "WARNING", "ERROR", "CRITICAL").
func New(module string, level string) Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(formatted)

	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.INFO
	}
	leveled.SetLevel(lvl, module)
	logging.SetBackend(leveled)

	return &appLogger{log: logging.MustGetLogger(module), module: module}
}

func (l *appLogger) Module(name string) Logger {
	return &appLogger{log: logging.MustGetLogger(l.module + "." + name), module: l.module + "." + name}
}

func (l *appLogger) Debug(args ...interface{})                 { l.log.Debug(args...) }
func (l *appLogger) Debugf(format string, args ...interface{})  { l.log.Debugf(format, args...) }
func (l *appLogger) Info(args ...interface{})                  { l.log.Info(args...) }
func (l *appLogger) Infof(format string, args ...interface{})   { l.log.Infof(format, args...) }
func (l *appLogger) Notice(args ...interface{})                { l.log.Notice(args...) }
func (l *appLogger) Noticef(format string, args ...interface{}) { l.log.Noticef(format, args...) }
func (l *appLogger) Warning(args ...interface{})                { l.log.Warning(args...) }
func (l *appLogger) Warningf(format string, args ...interface{}) {
	l.log.Warningf(format, args...)
}
func (l *appLogger) Error(args ...interface{})                { l.log.Error(args...) }
func (l *appLogger) Errorf(format string, args ...interface{}) { l.log.Errorf(format, args...) }
func (l *appLogger) Critical(args ...interface{})              { l.log.Critical(args...) }
func (l *appLogger) Criticalf(format string, args ...interface{}) {
	l.log.Criticalf(format, args...)
}
