// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"sync/atomic"

	"github.com/sassoftware/viya-pdf-doc/tracer"
)

// LogLevel represents log severity
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogFunc is a single logger function that handles all levels
type LogFunc func(level LogLevel, msg string, keyvals ...interface{})

func nop(LogLevel, string, ...interface{}) {}

var logFunc atomic.Value

func init() {
	logFunc.Store(LogFunc(nop))
}

// SetLogger sets the global logger function. A nil f restores the no-op logger.
func SetLogger(f LogFunc) {
	if f == nil {
		f = nop
	}
	logFunc.Store(f)
}

func current() LogFunc {
	return logFunc.Load().(LogFunc)
}

// splitTrace strips a trailing bool from keyvals and reports it as the trace flag.
func splitTrace(keyvals []interface{}) ([]interface{}, bool) {
	if len(keyvals) == 0 {
		return keyvals, false
	}
	b, ok := keyvals[len(keyvals)-1].(bool)
	if !ok {
		return keyvals, false
	}
	return keyvals[:len(keyvals)-1], b
}

// Debug logs a message at debug level
// If the last keyvals element is a bool and true, it is treated as trace flag
func Debug(msg string, keyvals ...interface{}) {
	keyvals, trace := splitTrace(keyvals)
	current()(DebugLevel, msg, keyvals...)
	if trace {
		tracer.Log(msg)
	}
}

// Warn logs a recoverable problem, such as a type mismatch tolerated in best-effort mode.
func Warn(msg string, keyvals ...interface{}) {
	keyvals, trace := splitTrace(keyvals)
	current()(WarnLevel, msg, keyvals...)
	if trace {
		tracer.Log("warning: " + msg)
	}
}

// Error logs a message at error level
func Error(msg string, keyvals ...interface{}) {
	current()(ErrorLevel, msg, keyvals...)
}
