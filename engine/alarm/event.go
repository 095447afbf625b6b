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

// Package alarm is the in-memory event model: alarms, their actions,
// recurrence masks, and typed attributes, plus validation, deep-copy and
// equality. It owns no state beyond a single Event value; the queue
// (package engine/queue) owns the authoritative set and the cookie
// sequence.
package alarm

// Cookie identifies an event once it has entered the queue. Zero means
// "not yet queued". Cookies are never reused within one process lifetime.
type Cookie int32

// CookieUnset is the cookie value of an event that has not been added to a
// queue yet.
const CookieUnset Cookie = 0

// TriggerUnset is the Trigger value of an event whose next firing time has
// not been computed yet.
const TriggerUnset int64 = 0

// AlarmTimeUnset is the sentinel AlarmTime of an event that carries no
// absolute trigger of its own (distinct from Trigger's zero, which means
// "not computed" rather than "not configured").
const AlarmTimeUnset int64 = -1

// Flags is the bitset of event-level flags.
type Flags uint32

const (
	// FlagBoot lets the event power on the device from a fully-off
	// state.
	FlagBoot Flags = 1 << iota
	// FlagActDead lets the event power on the device into the minimal
	// "acting dead" UI.
	FlagActDead
	// FlagShowIcon requests the Icon hint be rendered by the UI.
	FlagShowIcon
	// FlagRunDelayed fires the event normally even if its trigger is
	// already in the past when the scheduler runs.
	FlagRunDelayed
	// FlagConnected restricts triggering to when network connectivity
	// (opaque to the core) is present. The core only stores the bit; it
	// is interpreted by collaborators outside this package.
	FlagConnected
	// FlagPostponeDelayed reschedules a missed event to "now" instead of
	// firing it immediately.
	FlagPostponeDelayed
	// FlagDisableDelayed disables a missed event instead of firing it.
	FlagDisableDelayed
	// FlagBackReschedule re-arms (rather than re-fires) an already-fired
	// recurring event when wall-clock time moves backwards past its
	// trigger.
	FlagBackReschedule
	// FlagDisabled holds the event in the queue without ever selecting
	// it for firing.
	FlagDisabled
)

// Has reports whether all the bits in want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// BrokenDown is a calendar instant with "unset" sentinels (-1) in any
// field the caller did not specify. Weekday is informational only; it is
// not used to compute an instant (recurrence masks cover weekday
// matching).
type BrokenDown struct {
	Year, Month, Day      int // Month: 0-11, Day: 1-31
	Hour, Minute, Second  int
	Weekday               int // 0 (Sunday) - 6, or -1 if unset
}

// Unset is the zero value meaning "field not specified".
const Unset = -1

// NewBrokenDown returns a BrokenDown with every field unset.
func NewBrokenDown() BrokenDown {
	return BrokenDown{
		Year: Unset, Month: Unset, Day: Unset,
		Hour: Unset, Minute: Unset, Second: Unset,
		Weekday: Unset,
	}
}

// Sufficient reports whether enough fields are set to form an instant:
// year, month, day, hour and minute must all be present (second defaults
// to 0 when unset).
func (b BrokenDown) Sufficient() bool {
	return b.Year != Unset && b.Month != Unset && b.Day != Unset &&
		b.Hour != Unset && b.Minute != Unset
}

// Event represents one scheduled alarm.
type Event struct {
	Cookie Cookie

	AppID string

	Title, Message, Sound, Icon string

	Flags Flags

	// Trigger is the absolute wall-clock second of the next firing. It
	// is derived, never set directly by a client.
	Trigger int64

	// AlarmTime is the absolute trigger the client asked for, or
	// AlarmTimeUnset if none was given (in which case BrokenDown or
	// Recurrences must be usable instead).
	AlarmTime int64

	BrokenDown BrokenDown
	HasBrokenDown bool

	// Timezone is an IANA zone name. Empty means "system local zone at
	// schedule time".
	Timezone string

	RecurSecs int64
	// RecurCount: -1 infinite, 0 one-shot, >0 remaining repeats.
	RecurCount int32

	SnoozeSecs  int64
	SnoozeTotal int64

	Actions     []Action
	Recurrences []Recurrence
	Attributes  []Attribute
}

// New returns an empty, zero-valued event ready to be filled in by a
// client before submission.
func New(appID string) *Event {
	return &Event{
		AppID:      appID,
		AlarmTime:  AlarmTimeUnset,
		RecurCount: 0,
	}
}

// AddAction appends an action to the event's ordered action list.
func (e *Event) AddAction(a Action) { e.Actions = append(e.Actions, a) }

// AddRecurrence appends a recurrence mask to the event.
func (e *Event) AddRecurrence(r Recurrence) { e.Recurrences = append(e.Recurrences, r) }

// AddAttribute appends (or replaces, if the name already exists) a typed
// attribute.
func (e *Event) AddAttribute(a Attribute) {
	for i := range e.Attributes {
		if e.Attributes[i].Name == a.Name {
			e.Attributes[i] = a
			return
		}
	}
	e.Attributes = append(e.Attributes, a)
}

// Attribute looks up a typed attribute by name.
func (e *Event) Attribute(name string) (Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// HasButtons reports whether the event has at least one button (a
// WHEN_RESPONDED action with a non-empty label).
func (e *Event) HasButtons() bool {
	for _, a := range e.Actions {
		if a.IsButton() {
			return true
		}
	}
	return false
}

// ActionsWhen returns, in submission order, the actions whose flags
// include the given lifecycle bit.
func (e *Event) ActionsWhen(when ActionFlags) []Action {
	var out []Action
	for _, a := range e.Actions {
		if a.Flags.Has(when) {
			out = append(out, a)
		}
	}
	return out
}
