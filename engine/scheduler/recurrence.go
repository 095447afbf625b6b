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

// Package scheduler computes each event's next trigger and decides which
// single event should be armed next, including the hardware wake alarm
// for boot-capable events.
package scheduler

import (
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/timeoracle"
)

// normalize rebuilds bd through a mktime/localtime round trip, which is
// what lets out-of-range fields (minute 61, month 13, ...) carry into
// their neighbors exactly the way repeated calls to the original's
// ticker_build_tm (a thin mktime+localtime wrapper) do.
func normalize(oracle timeoracle.Oracle, bd alarm.BrokenDown, tz string) (int64, alarm.BrokenDown, error) {
	sec, err := oracle.Mktime(bd, tz)
	if err != nil {
		return 0, bd, err
	}
	out, err := oracle.Localtime(sec, tz)
	return sec, out, err
}

func daysInMonth(year, month int) int {
	// month is 0-11; day 0 of the following month is the last day of
	// this one.
	return daysInMonthTable[month](year)
}

var daysInMonthTable = [12]func(int) int{
	func(int) int { return 31 },
	func(y int) int {
		if isLeapYear(y) {
			return 29
		}
		return 28
	},
	func(int) int { return 31 },
	func(int) int { return 30 },
	func(int) int { return 31 },
	func(int) int { return 30 },
	func(int) int { return 31 },
	func(int) int { return 31 },
	func(int) int { return 30 },
	func(int) int { return 31 },
	func(int) int { return 30 },
	func(int) int { return 31 },
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// applySpecial applies the once-per-firing shorthand increment (+14d,
// +1 month, +1 year) to bd, ahead of mask alignment.
func applySpecial(bd alarm.BrokenDown, special alarm.Special) alarm.BrokenDown {
	switch special {
	case alarm.SpecialBiweekly:
		bd.Day += 14
	case alarm.SpecialMonthly:
		bd.Month++
	case alarm.SpecialYearly:
		bd.Year++
	}
	return bd
}

// alignMasks advances bd, field by field in the order second, minute,
// hour, day (mday∩wday), month, to the next instant on or after bd (or
// strictly after it, when alignOnly is false and hit starts false)
// matching every configured mask in r. A zero mask field means "don't
// care" and is skipped entirely. This is a direct translation of
// alarm_recur_handle_masks: each field's search loop rebuilds the
// instant through normalize after every increment, so a carry into a
// coarser field (e.g. minute 60 -> next hour) is handled by the
// underlying calendar arithmetic rather than by this function.
func alignMasks(oracle timeoracle.Oracle, bd alarm.BrokenDown, r alarm.Recurrence, tz string, alignOnly bool) (alarm.BrokenDown, int64, error) {
	hit := alignOnly

	sec, bd, err := normalize(oracle, bd, tz)
	if err != nil {
		return bd, 0, err
	}

	if bd.Second != 0 {
		bd.Second = 0
		bd.Minute++
		hit = true
		if sec, bd, err = normalize(oracle, bd, tz); err != nil {
			return bd, 0, err
		}
	}

	if r.MaskMin != 0 {
		if !hit {
			bd.Minute++
		}
		for {
			if sec, bd, err = normalize(oracle, bd, tz); err != nil {
				return bd, 0, err
			}
			if r.MaskMin&(1<<uint(bd.Minute)) != 0 {
				break
			}
			bd.Minute++
			hit = true
		}
		hit = true
	}

	if r.MaskHour != 0 {
		if !hit {
			bd.Hour++
		}
		for {
			if sec, bd, err = normalize(oracle, bd, tz); err != nil {
				return bd, 0, err
			}
			if r.MaskHour&(1<<uint(bd.Hour)) != 0 {
				break
			}
			bd.Hour++
			hit = true
		}
		hit = true
	}

	if r.MaskWDay != 0 || r.MaskMDay != 0 {
		wday := uint32(r.MaskWDay)
		if wday == 0 {
			wday = uint32(alarm.MaskWDayAll)
		}
		mday := r.MaskMDay & alarm.MaskMDayAll
		eom := r.MaskMDay&alarm.MDayEOM != 0

		if !hit {
			bd.Day++
		}
		for {
			if sec, bd, err = normalize(oracle, bd, tz); err != nil {
				return bd, 0, err
			}
			temp := mday
			if eom {
				mask := uint32(1<<uint(daysInMonth(bd.Year, bd.Month))) - 1
				if mday == 0 || mday > mask {
					temp |= ^mask
				}
			} else if mday == 0 {
				temp = alarm.MaskMDayAll
			}
			if wday&(1<<uint(bd.Weekday)) != 0 && temp&(1<<uint(bd.Day)) != 0 {
				break
			}
			bd.Day++
			hit = true
		}
		hit = true
	}

	if r.MaskMonth != 0 {
		if !hit {
			bd.Month++
		}
		for {
			if sec, bd, err = normalize(oracle, bd, tz); err != nil {
				return bd, 0, err
			}
			if r.MaskMonth&(1<<uint(bd.Month)) != 0 {
				break
			}
			bd.Month++
			hit = true
		}
	}

	return bd, sec, nil
}
