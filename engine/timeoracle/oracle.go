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

// Package timeoracle abstracts the wall clock, the monotonic clock, the
// timezone, and notifications about externally observed changes to
// either. The C original threads calendar conversions through the
// process-global TZ environment variable with manual save/restore
// scoping; Go's time package already does explicit-zone arithmetic
// (time.LoadLocation + time.Date(..., loc)), so conversions themselves
// need no such scope. What remains process-global is "which zone is the
// *system* zone right now" when a caller passes an empty zone name — that
// single piece of state is what this package guards with a mutex, mirroring
// the save/restore discipline the original applies to TZ (see Design Notes
// bullet 2 in SPEC_FULL.md).
package timeoracle

import (
	"github.com/alarmd/alarmd/engine/alarm"
)

// Change describes what an external observer noticed.
type Change struct {
	TimeChanged bool // wall clock stepped relative to the monotonic clock
	ZoneChanged bool // the system timezone rule changed
}

// Oracle is the capability interface every driver implements.
type Oracle interface {
	// Now returns the current wall-clock time as a unix second count.
	Now() int64
	// MonotonicNow returns a monotonic second count, unaffected by wall-
	// clock adjustments. Only differences between two calls are
	// meaningful.
	MonotonicNow() int64
	// Zone returns the current system timezone name.
	Zone() string
	// Mktime converts a broken-down time to an absolute instant, honoring
	// tz (or the system zone, if tz is empty).
	Mktime(bd alarm.BrokenDown, tz string) (int64, error)
	// Localtime converts an absolute instant to a broken-down time in tz
	// (or the system zone, if tz is empty).
	Localtime(sec int64, tz string) (alarm.BrokenDown, error)
	// Subscribe registers ch to receive a Change whenever this oracle
	// observes a step in wall-clock time or a timezone rule change.
	// Cancel unregisters it. ch must not block the sender; callers
	// should give it a buffer.
	Subscribe(ch chan<- Change) (cancel func())
	// Close releases background resources (watches, tickers).
	Close() error
}
