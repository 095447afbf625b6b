// Alarmd
// Copyright (C) 2013-2026+ the alarmd contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package logging sets up the one debug knob the design calls for: a
// verbosity level and a destination (stderr, syslog-via-journal, or a
// file). Every component in the daemon takes a plain
// `Logf(format string, v ...interface{})` function rather than an
// interface, so this package's only job is producing one.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// Level is the verbosity threshold. Higher levels are chattier.
type Level int

const (
	// LevelError only logs things that need attention.
	LevelError Level = iota
	// LevelInfo adds normal operational messages.
	LevelInfo
	// LevelDebug adds per-event scheduling and dispatch detail.
	LevelDebug
)

// ParseLevel converts a CLI string into a Level, defaulting to LevelInfo
// for anything unrecognised.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "error":
		return LevelError
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Destination picks where log lines end up.
type Destination int

const (
	// DestStderr writes through the stdlib logger to stderr.
	DestStderr Destination = iota
	// DestJournal sends each line to the systemd journal, one entry per
	// call, tagged with the level's journal priority.
	DestJournal
	// DestFile appends to a named file.
	DestFile
)

// ParseDestination converts a CLI string into a Destination, defaulting
// to DestStderr for anything unrecognised.
func ParseDestination(s string) Destination {
	switch strings.ToLower(s) {
	case "journal", "syslog":
		return DestJournal
	case "file":
		return DestFile
	default:
		return DestStderr
	}
}

// Logger is the concrete logging setup. Use New to build one, then pass
// Logger.Logf (or a level-filtered wrapper, via At) to every component
// that accepts a Logf func.
type Logger struct {
	level Level
	dest  Destination
	out   *log.Logger
	file  *os.File
}

// New builds a Logger at the given level, writing to dest. path is only
// consulted when dest is DestFile.
func New(level Level, dest Destination, path string) (*Logger, error) {
	l := &Logger{level: level, dest: dest}

	switch dest {
	case DestFile:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		l.out = log.New(f, "", log.LstdFlags)
	case DestJournal:
		if !journal.Enabled() {
			// fall back rather than silently dropping every line
			l.out = log.New(os.Stderr, "", log.LstdFlags)
			l.dest = DestStderr
		}
	default:
		l.out = log.New(os.Stderr, "", log.LstdFlags)
	}

	return l, nil
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Logf writes a line at LevelInfo. It matches the
// `func(format string, v ...interface{})` shape every component in the
// daemon expects.
func (l *Logger) Logf(format string, v ...interface{}) {
	l.logAt(LevelInfo, format, v...)
}

// At returns a Logf-shaped function bound to level, for a component
// whose messages should be filtered out below that verbosity (e.g. a
// component's routine traffic at LevelDebug).
func (l *Logger) At(level Level) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) { l.logAt(level, format, v...) }
}

func (l *Logger) logAt(level Level, format string, v ...interface{}) {
	if level > l.level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if l.dest == DestJournal {
		_ = journal.Print(journalPriority(level), "%s", msg)
		return
	}
	l.out.Print(msg)
}

func journalPriority(level Level) journal.Priority {
	switch level {
	case LevelError:
		return journal.PriErr
	case LevelDebug:
		return journal.PriDebug
	default:
		return journal.PriInfo
	}
}
