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

// Package hwwake provides hardware-backed and no-op wake-alarm sources
// for the scheduler. On Linux with an existing /dev/rtc0, New returns an
// RTC-backed source (scheduler.WakeSource.CanWakeDevice() true); anywhere
// else, a Noop that accepts arm/disarm calls without powering the device
// on.
package hwwake

// Source matches the method set of scheduler.WakeSource; kept as its own
// interface here so this package never needs to import scheduler.
type Source interface {
	Arm(utcSec int64) error
	Disarm() error
	CanWakeDevice() bool
	Priority() int
}

// New picks the best available wake source on this host.
func New() Source {
	if rtc := detectRTC(); rtc != nil {
		return rtc
	}
	return Noop{}
}

// Noop is always available and never actually wakes the device.
type Noop struct{}

func (Noop) Arm(int64) error      { return nil }
func (Noop) Disarm() error        { return nil }
func (Noop) CanWakeDevice() bool  { return false }
func (Noop) Priority() int        { return 0 }
