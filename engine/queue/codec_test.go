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

package queue

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/alarmd/alarmd/engine/alarm"
)

func sampleEvent() *alarm.Event {
	e := alarm.New("com.example.clock")
	e.Cookie = 42
	e.Title = "Wake up"
	e.Message = "rise and shine; use a semicolon\tand a tab too"
	e.Flags = alarm.FlagBoot | alarm.FlagShowIcon
	e.AlarmTime = 1234567890
	e.Trigger = 1234567890
	e.HasBrokenDown = true
	e.BrokenDown = alarm.BrokenDown{Year: 2008, Month: 0, Day: 3, Hour: 6, Minute: 5, Second: 0, Weekday: 4}
	e.Timezone = "Europe/Helsinki"
	e.RecurSecs = 86400
	e.RecurCount = -1
	e.SnoozeSecs = 300
	e.AddAction(alarm.Action{
		Flags: alarm.TypeDBus | alarm.WhenTriggered | alarm.DBusAddCookie,
		Label: "Snooze",
		IPC: alarm.IPC{
			Service: "com.example", Object: "/com/example", Interface: "com.example.I", Member: "Go",
			Args: []alarm.DBusArg{
				{Signature: "s", Value: "payload"},
				{Signature: "i", Value: int64(7)},
				{Signature: "b", Value: true},
			},
		},
	})
	e.AddAction(alarm.Action{Flags: alarm.TypeExec | alarm.WhenDelayed | alarm.ExecAddCookie, Exec: "/bin/true"})
	e.AddRecurrence(alarm.Recurrence{MaskMin: alarm.MaskMinAll, MaskHour: 1 << 6, Special: alarm.SpecialYearly})
	e.AddAttribute(alarm.IntAttribute("count", 3))
	e.AddAttribute(alarm.StringAttribute("label", "hello; \\world\x01"))
	e.AddAttribute(alarm.TimeAttribute("last_fired", 1000))
	return e
}

func TestEventRoundTrip(t *testing.T) {
	orig := sampleEvent()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := EncodeEvent(w, orig); err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	r := bufio.NewReader(&buf)
	got, err := DecodeEvent(r)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	if !orig.Equal(got) {
		t.Fatalf("round trip mismatch:\norig: %+v\ngot:  %+v", orig, got)
	}
}

func TestEventRoundTripEmptyEvent(t *testing.T) {
	orig := alarm.New("com.example.empty")
	orig.AlarmTime = 1

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := EncodeEvent(w, orig); err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	got, err := DecodeEvent(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if !orig.Equal(got) {
		t.Fatalf("round trip mismatch:\norig: %+v\ngot:  %+v", orig, got)
	}
}

func TestDecoderSkipsUnknownFields(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	w.WriteByte(recEvent)
	putString(w, "mystery_field", "something a future writer added")
	putIntArray(w, "mystery_array", []int64{1, 2, 3})
	putInt(w, "cookie", tagInt32, 9)
	putString(w, "app_id", "com.example.future")
	endRecord(w)
	w.Flush()

	got, err := DecodeEvent(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.Cookie != 9 || got.AppID != "com.example.future" {
		t.Fatalf("expected known fields to survive unknown-field skipping, got %+v", got)
	}
}

func TestMultipleEventsInOneStream(t *testing.T) {
	a := sampleEvent()
	b := alarm.New("com.example.second")
	b.AlarmTime = 555
	b.Cookie = 2

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	EncodeEvent(w, a)
	EncodeEvent(w, b)

	r := bufio.NewReader(&buf)
	gotA, err := DecodeEvent(r)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	gotB, err := DecodeEvent(r)
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if !a.Equal(gotA) || !b.Equal(gotB) {
		t.Fatalf("stream of two events did not round-trip independently")
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"semi;colon",
		`back\slash`,
		"tab\tnewline\ncr\r",
		"\x01\x02\x7f",
		"unicode: \u00e9\u00e8",
	}
	for _, s := range cases {
		esc := escapeString(s)
		got, err := unescapeString(esc)
		if err != nil {
			t.Fatalf("unescape(%q): %v", s, err)
		}
		if got != s {
			t.Fatalf("escape round trip: got %q, want %q", got, s)
		}
	}
}
