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

// Package ipc exposes the queue and lifecycle engine to callers outside
// the process. Server is the narrow, transport-agnostic method table;
// LocalServer implements it directly against the engine for tests and
// for any in-process caller, and DBusServer exports the same methods as
// a session/system bus object so external UIs and CLI tools can reach
// them without linking against alarmd's Go packages.
package ipc

import (
	"bufio"
	"bytes"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/queue"
)

// Status summarises the queue for the pre-boot handoff and for any
// interested monitor; it is also what status_signal broadcasts.
type Status struct {
	Active       int32 // events neither disabled nor past their final firing
	DesktopClass int32 // active, with BOOT set and ACTDEAD unset
	ActdeadClass int32 // active, with ACTDEAD set
	NoBootClass  int32 // active, with BOOT unset and ACTDEAD unset, never woken
}

// Server is the conceptual IPC method table. Every method that can fail
// returns an error tagged with an alarmerr.Kind; callers branch on
// alarmerr.KindOf, not on error text.
type Server interface {
	Add(e *alarm.Event) (alarm.Cookie, error)
	Update(e *alarm.Event) error
	Delete(cookie alarm.Cookie) error
	Get(cookie alarm.Cookie) (*alarm.Event, error)
	Query(f queue.Filter) []alarm.Cookie
	SnoozeGet() int64
	SnoozeSet(seconds int64)
	UIResponse(cookie alarm.Cookie, button int) error
	StatusSnapshot() Status
}

// EncodeEvent renders e in the queue file's tagged-byte-stream wire
// format, the same encoding used to persist it and to carry it across
// the add/update/get methods.
func EncodeEvent(e *alarm.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := queue.EncodeEvent(w, e); err != nil {
		return nil, alarmerr.Wrap(alarmerr.KindInvalid, err)
	}
	if err := w.Flush(); err != nil {
		return nil, alarmerr.Wrap(alarmerr.KindInvalid, err)
	}
	return buf.Bytes(), nil
}

// DecodeEvent parses a single event record out of its wire encoding.
func DecodeEvent(b []byte) (*alarm.Event, error) {
	e, err := queue.DecodeEvent(bufio.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, alarmerr.Wrap(alarmerr.KindInvalid, err)
	}
	return e, nil
}
