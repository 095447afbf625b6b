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
	"testing"

	"github.com/alarmd/alarmd/alarmerr"
)

func TestValidateRequiresATriggerSource(t *testing.T) {
	e := New("com.example.clock")
	if err := e.Validate(); err == nil {
		t.Fatalf("expected validation error for an event with no trigger source")
	} else if !alarmerr.Is(err, alarmerr.KindInvalid) {
		t.Fatalf("expected KindInvalid, got %v", err)
	}
}

func TestValidateAcceptsAbsoluteAlarmTime(t *testing.T) {
	e := New("com.example.clock")
	e.AlarmTime = 1234567890
	if err := e.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsActionWithoutWhenBit(t *testing.T) {
	e := New("com.example.clock")
	e.AlarmTime = 1234567890
	e.AddAction(Action{Flags: TypeNop, Label: "Stop"})
	if err := e.Validate(); err == nil {
		t.Fatalf("expected validation error for an action without a WHEN_* bit")
	}
}

func TestValidateRejectsExecActionWithoutCommand(t *testing.T) {
	e := New("com.example.clock")
	e.AlarmTime = 1234567890
	e.AddAction(Action{Flags: TypeExec | WhenTriggered})
	if err := e.Validate(); err == nil {
		t.Fatalf("expected validation error for an exec action with no command")
	}
}

func TestValidateRejectsDBusActionMissingFields(t *testing.T) {
	e := New("com.example.clock")
	e.AlarmTime = 1234567890
	e.AddAction(Action{Flags: TypeDBus | WhenTriggered, IPC: IPC{Service: "com.example"}})
	if err := e.Validate(); err == nil {
		t.Fatalf("expected validation error for an incomplete dbus action")
	}
}

func TestEventWithNoActionsIsLegal(t *testing.T) {
	e := New("com.example.clock")
	e.AlarmTime = 1234567890
	if err := e.Validate(); err != nil {
		t.Fatalf("an event with no actions should be legal, got: %v", err)
	}
	if e.HasButtons() {
		t.Fatalf("expected no buttons")
	}
}

func TestHasButtons(t *testing.T) {
	e := New("com.example.clock")
	e.AlarmTime = 1234567890
	e.AddAction(Action{Flags: TypeNop | WhenTriggered})
	e.AddAction(Action{Flags: TypeDisable | WhenResponded, Label: "Stop"})
	if !e.HasButtons() {
		t.Fatalf("expected the responded+labelled action to count as a button")
	}
}

func TestCopyIsDeepAndIndependent(t *testing.T) {
	e := New("com.example.clock")
	e.AlarmTime = 1234567890
	e.AddAction(Action{Flags: TypeExec | WhenTriggered, Exec: "/bin/true"})
	e.AddRecurrence(Recurrence{MaskHour: 1 << 8})
	e.AddAttribute(IntAttribute("count", 1))

	cp := e.Copy()
	cp.Actions[0].Exec = "/bin/false"
	cp.Recurrences[0].MaskHour = 1 << 9
	cp.Attributes[0].Int = 2

	if e.Actions[0].Exec != "/bin/true" {
		t.Fatalf("mutating the copy's action mutated the original")
	}
	if e.Recurrences[0].MaskHour != 1<<8 {
		t.Fatalf("mutating the copy's recurrence mutated the original")
	}
	if e.Attributes[0].Int != 1 {
		t.Fatalf("mutating the copy's attribute mutated the original")
	}
}

func TestAttributeLookupAndReplace(t *testing.T) {
	e := New("com.example.clock")
	e.AddAttribute(StringAttribute("label", "first"))
	e.AddAttribute(StringAttribute("label", "second"))

	a, ok := e.Attribute("label")
	if !ok || a.Str != "second" {
		t.Fatalf("expected replace-by-name semantics, got %+v ok=%v", a, ok)
	}
	if len(e.Attributes) != 1 {
		t.Fatalf("expected exactly one attribute after replace, got %d", len(e.Attributes))
	}
}

func TestActionsWhenOrdering(t *testing.T) {
	e := New("com.example.clock")
	first := Action{Flags: TypeNop | WhenTriggered, Label: "first"}
	second := Action{Flags: TypeNop | WhenTriggered, Label: "second"}
	e.AddAction(first)
	e.AddAction(second)

	got := e.ActionsWhen(WhenTriggered)
	if len(got) != 2 || got[0].Label != "first" || got[1].Label != "second" {
		t.Fatalf("expected submission order, got %+v", got)
	}
}
