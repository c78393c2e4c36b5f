package prioexec

import (
	"fmt"
	"io"
	"os"
)

// Logger defines logging methods used by the library. Implementations should be cheap
// and safe for concurrent use; slots log from their own goroutines.
// Default is FmtLogger which writes to stdout/stderr using fmt.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Level is the minimum severity a FmtLogger prints.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// FmtLogger is a minimal logger that prints messages with level prefixes.
// Debug/Info go to Out; Warn/Error go to Err.
type FmtLogger struct {
	Level Level
	Out   io.Writer
	Err   io.Writer
}

// NewFmtLogger creates a FmtLogger printing every level to stdout/stderr.
func NewFmtLogger() *FmtLogger {
	return &FmtLogger{Level: LevelDebug, Out: os.Stdout, Err: os.Stderr}
}

func (l *FmtLogger) Debugf(format string, args ...any) { l.print(LevelDebug, "[DEBUG] ", format, args) }
func (l *FmtLogger) Infof(format string, args ...any)  { l.print(LevelInfo, "[INFO]  ", format, args) }
func (l *FmtLogger) Warnf(format string, args ...any)  { l.print(LevelWarn, "[WARN]  ", format, args) }
func (l *FmtLogger) Errorf(format string, args ...any) { l.print(LevelError, "[ERROR] ", format, args) }

func (l *FmtLogger) print(lvl Level, prefix, format string, args []any) {
	if lvl < l.Level {
		return
	}
	w := l.Out
	if lvl >= LevelWarn {
		w = l.Err
	}
	if w == nil {
		return
	}
	fmt.Fprintf(w, prefix+format+"\n", args...)
}
