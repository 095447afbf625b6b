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

package cli

import "testing"

func TestParseAppliesDefaults(t *testing.T) {
	args, err := Parse("alarmd", "1.0.0", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if args.LogLevel != "info" {
		t.Fatalf("got LogLevel %q, want %q", args.LogLevel, "info")
	}
	if args.LogDest != "stderr" {
		t.Fatalf("got LogDest %q, want %q", args.LogDest, "stderr")
	}
	if args.SnoozeDefault != 540 {
		t.Fatalf("got SnoozeDefault %d, want 540", args.SnoozeDefault)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	args, err := Parse("alarmd", "1.0.0", []string{
		"--log-level", "debug",
		"--queue-file", "/tmp/whatever",
		"--snooze-default", "120",
		"--system-bus",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if args.LogLevel != "debug" {
		t.Fatalf("got LogLevel %q, want %q", args.LogLevel, "debug")
	}
	if args.QueueFile != "/tmp/whatever" {
		t.Fatalf("got QueueFile %q, want %q", args.QueueFile, "/tmp/whatever")
	}
	if args.SnoozeDefault != 120 {
		t.Fatalf("got SnoozeDefault %d, want 120", args.SnoozeDefault)
	}
	if !args.SystemBus {
		t.Fatalf("expected SystemBus true")
	}
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	_, err := Parse("alarmd", "1.0.0", []string{"--not-a-real-flag"})
	if err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}
}
