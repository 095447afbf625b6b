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

import "reflect"

// Equal reports whether e and o represent the same event, field for
// field. Used by the round-trip and add/get property tests.
func (e *Event) Equal(o *Event) bool {
	if e == nil || o == nil {
		return e == o
	}
	return reflect.DeepEqual(e, o)
}

// EqualIgnoringCookieAndTrigger reports whether e and o are equal except
// for Cookie and Trigger, which the queue assigns/computes on add.
func (e *Event) EqualIgnoringCookieAndTrigger(o *Event) bool {
	if e == nil || o == nil {
		return e == o
	}
	a, b := *e, *o
	a.Cookie, b.Cookie = 0, 0
	a.Trigger, b.Trigger = 0, 0
	return reflect.DeepEqual(&a, &b)
}
