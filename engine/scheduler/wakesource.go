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

package scheduler

// WakeSource is the narrow capability interface a hardware (or no-op)
// wake-alarm backend implements. hwwake.New() picks the concrete
// implementation once, at process start; New() here just stores whatever
// it is handed.
type WakeSource interface {
	// Arm programs a wake-up for utcSec (seconds since epoch, UTC).
	Arm(utcSec int64) error
	// Disarm cancels any armed wake-up.
	Disarm() error
	// CanWakeDevice reports whether this source can actually power the
	// device back on from a fully-off state, as opposed to merely being
	// available while the OS is running.
	CanWakeDevice() bool
	// Priority orders sources when more than one is available; higher
	// wins.
	Priority() int
}
