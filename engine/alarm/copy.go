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

// Copy returns a deep copy of the event. The queue hands these out from
// Get/Query so that callers can never mutate queue-owned state by
// reference.
func (e *Event) Copy() *Event {
	if e == nil {
		return nil
	}
	cp := *e // shallow copy of the scalar fields

	if e.Actions != nil {
		cp.Actions = make([]Action, len(e.Actions))
		for i, a := range e.Actions {
			cp.Actions[i] = a.copy()
		}
	}
	if e.Recurrences != nil {
		cp.Recurrences = make([]Recurrence, len(e.Recurrences))
		copy(cp.Recurrences, e.Recurrences)
	}
	if e.Attributes != nil {
		cp.Attributes = make([]Attribute, len(e.Attributes))
		copy(cp.Attributes, e.Attributes)
	}

	return &cp
}

func (a Action) copy() Action {
	cp := a
	if a.IPC.Args != nil {
		cp.IPC.Args = make([]DBusArg, len(a.IPC.Args))
		copy(cp.IPC.Args, a.IPC.Args)
	}
	return cp
}
