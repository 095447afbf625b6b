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

import (
	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/timeoracle"
)

func hasUsableRecurrence(e *alarm.Event) bool {
	for _, r := range e.Recurrences {
		if !r.Empty() {
			return true
		}
	}
	return false
}

// InitialTrigger computes an event's trigger the first time it is
// scheduled (on add, or after an update that changed its trigger
// source), per spec rules 1-3: an absolute alarm_time wins if there is
// no recurrence configured; otherwise a sufficient broken-down time is
// converted directly; otherwise the earliest instant at or after "now"
// satisfying any one of the event's recurrence masks is chosen. It
// returns the trigger second and the broken-down time that produced it.
func InitialTrigger(oracle timeoracle.Oracle, e *alarm.Event) (int64, alarm.BrokenDown, error) {
	tz := e.Timezone

	if !hasUsableRecurrence(e) && e.AlarmTime > 0 {
		bd, err := oracle.Localtime(e.AlarmTime, tz)
		return e.AlarmTime, bd, err
	}

	if e.HasBrokenDown && e.BrokenDown.Sufficient() {
		sec, err := oracle.Mktime(e.BrokenDown, tz)
		if err != nil {
			return 0, alarm.BrokenDown{}, err
		}
		bd, err := oracle.Localtime(sec, tz)
		return sec, bd, err
	}

	if !hasUsableRecurrence(e) {
		return 0, alarm.BrokenDown{}, alarmerr.New(alarmerr.KindInvalid, "event has no usable trigger source")
	}

	ref, err := oracle.Localtime(oracle.Now(), tz)
	if err != nil {
		return 0, alarm.BrokenDown{}, err
	}

	best := int64(-1)
	var bestBD alarm.BrokenDown
	for _, r := range e.Recurrences {
		if r.Empty() {
			continue
		}
		candBD, candSec, err := alignMasks(oracle, ref, r, tz, true)
		if err != nil {
			return 0, alarm.BrokenDown{}, err
		}
		if best == -1 || candSec < best {
			best, bestBD = candSec, candBD
		}
	}
	if best == -1 {
		return 0, alarm.BrokenDown{}, alarmerr.New(alarmerr.KindInvalid, "no usable recurrence mask")
	}
	return best, bestBD, nil
}

// RescheduleTrigger computes the next trigger after a firing, per spec
// rule 4: apply the special shorthand increment to lastBD, then align
// masks strictly forward from there. recur_secs never stacks on top of a
// mask alignment; it only drives advancement when the event carries no
// usable recurrence mask at all (Open Question decision #2 in
// SPEC_FULL.md), in which case it advances by simple interval arithmetic
// from the last trigger. A one-shot event (no masks, no recur_secs)
// returns trigger 0, meaning "do not requeue".
func RescheduleTrigger(oracle timeoracle.Oracle, e *alarm.Event, lastBD alarm.BrokenDown) (int64, alarm.BrokenDown, error) {
	tz := e.Timezone

	if !hasUsableRecurrence(e) {
		if e.RecurSecs <= 0 {
			return alarm.TriggerUnset, alarm.BrokenDown{}, nil
		}
		sec := e.Trigger + e.RecurSecs
		bd, err := oracle.Localtime(sec, tz)
		return sec, bd, err
	}

	best := int64(-1)
	var bestBD alarm.BrokenDown
	for _, r := range e.Recurrences {
		if r.Empty() {
			continue
		}
		withSpecial := applySpecial(lastBD, r.Special)
		candBD, candSec, err := alignMasks(oracle, withSpecial, r, tz, false)
		if err != nil {
			return 0, alarm.BrokenDown{}, err
		}
		if best == -1 || candSec < best {
			best, bestBD = candSec, candBD
		}
	}
	if best == -1 {
		return 0, alarm.BrokenDown{}, alarmerr.New(alarmerr.KindInvalid, "no usable recurrence mask")
	}

	return best, bestBD, nil
}
