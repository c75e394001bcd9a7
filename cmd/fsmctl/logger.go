package main

import (
	"context"
	"io"

	"github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-statemachine"
)

// cliLogger adapts a go-logger instance to the statemachine logging contract.
type cliLogger struct {
	logger glog.Logger
}

func newCLILogger(w io.Writer, level string) statemachine.Logger {
	return cliLogger{logger: glog.NewLogger(
		glog.WithWriter(w),
		glog.WithLevel(level),
	)}
}

func (l cliLogger) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l cliLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l cliLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l cliLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l cliLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l cliLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l cliLogger) WithContext(ctx context.Context) statemachine.Logger {
	if l.logger == nil {
		return statemachine.NewFmtLogger(nil).WithContext(ctx)
	}
	return cliLogger{logger: l.logger.WithContext(ctx)}
}

func (l cliLogger) WithFields(fields map[string]any) statemachine.Logger {
	if l.logger == nil {
		return statemachine.NewFmtLogger(nil).WithFields(fields)
	}
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return cliLogger{logger: fl.WithFields(fields)}
	}
	return l
}
