// Package odinlog provides the subsystem-tagged loggers used throughout
// this module. It is a thin wrapper around the standard library's log
// package -- nothing here needs a third-party structured logger.
package odinlog

import (
	"log"
	"os"
)

// Subsystem tags.
const (
	NET   = "NET"
	USB   = "USB"
	CMD   = "CMD"
	PIT   = "PIT"
	FLASH = "FLASH"
	SESS  = "SESS"
)

// Logger is a subsystem-prefixed logger. The zero value is not usable;
// construct one with New.
type Logger struct {
	l *log.Logger
}

// New returns a Logger tagged with the given subsystem, writing to stderr.
func New(subsystem string) *Logger {
	return &Logger{l: log.New(os.Stderr, "["+subsystem+"] ", log.LstdFlags|log.Lmicroseconds)}
}

// Debugf logs a debug-level line. There is no level filtering here;
// callers that want quiet output redirect the logger's output instead.
func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.l.Printf(format, args...)
}

// Tracef logs a trace-level line (the most verbose tag, used for raw
// bytes on the wire).
func (lg *Logger) Tracef(format string, args ...interface{}) {
	lg.l.Printf(format, args...)
}

// Infof logs an info-level line.
func (lg *Logger) Infof(format string, args ...interface{}) {
	lg.l.Printf(format, args...)
}
