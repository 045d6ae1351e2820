// Copyright 2026 The Multi-Level Page Tables Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a minimal leveled logging package.
//
// The package-level functions log to a process-global logger, configured
// via SetTarget and SetLevel. Individual Logger values may be constructed
// around any Emitter.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the log level.
type Level uint32

const (
	// Warning indicates a problem that should be reported.
	Warning Level = iota

	// Info is informational only.
	Info

	// Debug is high-volume diagnostic output.
	Debug
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Warning:
		return "W"
	case Info:
		return "I"
	case Debug:
		return "D"
	default:
		return fmt.Sprintf("L(%d)", uint32(l))
	}
}

// Emitter is the final destination for log lines.
type Emitter interface {
	// Emit emits the given log statement.
	Emit(level Level, timestamp time.Time, format string, v ...any)
}

// Writer writes to an underlying io.Writer, counting and summarizing
// messages dropped due to write errors instead of blocking the caller on
// a broken sink.
type Writer struct {
	// Next is where output is written.
	Next io.Writer

	// mu protects fields below.
	mu sync.Mutex

	// errors counts failed writes pending a summary line.
	errors int
}

// Write writes out the given bytes, dropping the message on error.
func (l *Writer) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.errors > 0 {
		// Report any pending drops first. If this write also fails, the
		// drops stay counted.
		if _, err := fmt.Fprintf(l.Next, "\n*** Dropped %d log messages ***\n", l.errors); err != nil {
			l.errors++
			return 0, err
		}
		l.errors = 0
	}

	n, err := l.Next.Write(data)
	if err != nil {
		l.errors++
	}
	return n, err
}

// Emit implements Emitter.Emit.
func (l *Writer) Emit(level Level, timestamp time.Time, format string, v ...any) {
	fmt.Fprintf(l, "%s %s.%06d %s\n",
		level,
		timestamp.Format("15:04:05"),
		timestamp.Nanosecond()/1000,
		fmt.Sprintf(format, v...))
}

// Logger is a high-level logging interface.
type Logger interface {
	// Debugf logs a debug statement.
	Debugf(format string, v ...any)

	// Infof logs at an info level.
	Infof(format string, v ...any)

	// Warningf logs at a warning level.
	Warningf(format string, v ...any)

	// IsLogging returns true iff this level is being logged.
	IsLogging(level Level) bool
}

// BasicLogger is the standard logger, pairing a maximum level with an
// Emitter.
type BasicLogger struct {
	Level
	Emitter
}

// Debugf implements Logger.Debugf.
func (l *BasicLogger) Debugf(format string, v ...any) {
	if l.IsLogging(Debug) {
		l.Emit(Debug, time.Now(), format, v...)
	}
}

// Infof implements Logger.Infof.
func (l *BasicLogger) Infof(format string, v ...any) {
	if l.IsLogging(Info) {
		l.Emit(Info, time.Now(), format, v...)
	}
}

// Warningf implements Logger.Warningf.
func (l *BasicLogger) Warningf(format string, v ...any) {
	if l.IsLogging(Warning) {
		l.Emit(Warning, time.Now(), format, v...)
	}
}

// IsLogging implements Logger.IsLogging.
func (l *BasicLogger) IsLogging(level Level) bool {
	return level <= l.Level
}

// log is the global logger.
var log atomic.Pointer[BasicLogger]

// Log retrieves the global logger.
func Log() *BasicLogger {
	if l := log.Load(); l != nil {
		return l
	}
	// Lazily set the default. A race here is harmless; both values are
	// equivalent.
	log.CompareAndSwap(nil, &BasicLogger{Level: Info, Emitter: &Writer{Next: os.Stderr}})
	return log.Load()
}

// SetTarget sets the log target for the global logger, preserving the
// current level.
func SetTarget(target Emitter) {
	log.Store(&BasicLogger{Level: Log().Level, Emitter: target})
}

// SetLevel sets the log level for the global logger, preserving the
// current target.
func SetLevel(newLevel Level) {
	log.Store(&BasicLogger{Level: newLevel, Emitter: Log().Emitter})
}

// Debugf logs to the global logger.
func Debugf(format string, v ...any) {
	Log().Debugf(format, v...)
}

// Infof logs to the global logger.
func Infof(format string, v ...any) {
	Log().Infof(format, v...)
}

// Warningf logs to the global logger.
func Warningf(format string, v ...any) {
	Log().Warningf(format, v...)
}
