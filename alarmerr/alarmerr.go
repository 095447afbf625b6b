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

// Package alarmerr defines the error taxonomy every other package in this
// daemon returns. Kinds are behaviors, not specific causes: callers branch
// on Kind, not on error string content.
package alarmerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so that callers (the IPC layer in particular)
// know how to surface it without string-matching.
type Kind int

const (
	// KindInvalid means an event failed validation. Surfaced to the IPC
	// caller; nothing is persisted.
	KindInvalid Kind = iota
	// KindNotFound means a cookie is unknown to the queue.
	KindNotFound
	// KindPersistenceFailed means a queue write failed (disk full,
	// rename failed, ...). Logged; in-memory state is kept.
	KindPersistenceFailed
	// KindExternalCorruption means the queue file changed under us.
	KindExternalCorruption
	// KindDispatchFailed means an exec spawn or IPC call errored. Logged;
	// the triggering event advances anyway.
	KindDispatchFailed
	// KindTimeJumped means a wall-clock change was observed.
	KindTimeJumped
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindPersistenceFailed:
		return "persistence_failed"
	case KindExternalCorruption:
		return "external_corruption"
	case KindDispatchFailed:
		return "dispatch_failed"
	case KindTimeJumped:
		return "time_jumped"
	default:
		return "unknown"
	}
}

// kindError pairs a Kind with an underlying cause so errors.Is/As and
// formatted output both work.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.err)
}

func (e *kindError) Unwrap() error { return e.err }

// New builds an error of the given Kind whose message is formatted from
// format and args.
func New(kind Kind, format string, args ...interface{}) error {
	return &kindError{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error with a Kind without losing it.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindDispatchFailed (the
// catch-all "something failed and it isn't the caller's fault") when err
// was never tagged.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindDispatchFailed
}
