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

package alarm

import (
	"github.com/alarmd/alarmd/alarmerr"
)

func errInvalidf(format string, args ...interface{}) error {
	return alarmerr.New(alarmerr.KindInvalid, format, args...)
}

// Validate checks that the event is syntactically and semantically sound
// enough to compute a trigger and to be dispatched. It rejects malformed
// actions at submission time rather than waiting until they would fire
// (Open Question decision #1 in SPEC_FULL.md).
func (e *Event) Validate() error {
	if e.AppID == "" {
		return errInvalidf("application id must not be empty")
	}

	hasAbsolute := e.AlarmTime > 0
	hasBrokenDown := e.HasBrokenDown && e.BrokenDown.Sufficient()
	hasRecurrence := len(e.Recurrences) > 0

	sources := 0
	if hasAbsolute {
		sources++
	}
	if hasBrokenDown {
		sources++
	}
	if hasRecurrence {
		sources++
	}
	if sources == 0 {
		return errInvalidf("event has no absolute alarm_time, sufficient broken-down time, or recurrence: cannot compute a trigger")
	}

	for i, r := range e.Recurrences {
		if err := r.Validate(); err != nil {
			return errInvalidf("recurrence %d: %v", i, err)
		}
	}

	for i, a := range e.Actions {
		if err := a.validate(); err != nil {
			return errInvalidf("action %d: %v", i, err)
		}
	}

	if e.RecurCount < -1 {
		return errInvalidf("recur_count must be >= -1, got %d", e.RecurCount)
	}
	if e.RecurSecs < 0 {
		return errInvalidf("recur_secs must be >= 0, got %d", e.RecurSecs)
	}
	if e.SnoozeSecs < 0 {
		return errInvalidf("snooze_secs must be >= 0, got %d", e.SnoozeSecs)
	}

	return nil
}

// validate checks that an action's kind matches the fields it needs, and
// that it carries at least one WHEN_* bit. An action without any WHEN_*
// bit is a validation error; TYPE_EXEC requires a command; TYPE_DBUS
// requires service+path+interface+member.
func (a Action) validate() error {
	kind := a.Flags.Kind()
	switch kind {
	case TypeNop, TypeSnooze, TypeDisable:
		// no extra fields required
	case TypeExec:
		if a.Exec == "" {
			return errInvalidf("TYPE_EXEC action requires a non-empty exec command")
		}
	case TypeDBus:
		if a.IPC.Service == "" || a.IPC.Object == "" || a.IPC.Interface == "" || a.IPC.Member == "" {
			return errInvalidf("TYPE_DBUS action requires service, object, interface and member")
		}
	default:
		return errInvalidf("action must carry exactly one TYPE_* flag, got %#x", uint32(kind))
	}

	if a.Flags&whenMask == 0 {
		return errInvalidf("action must carry at least one WHEN_* flag")
	}

	return nil
}
