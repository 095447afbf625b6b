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

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if ParseLevel("bogus") != LevelInfo {
		t.Fatalf("expected unrecognised level to default to LevelInfo")
	}
	if ParseLevel("Debug") != LevelDebug {
		t.Fatalf("expected case-insensitive match for Debug")
	}
}

func TestParseDestinationDefaultsToStderr(t *testing.T) {
	if ParseDestination("bogus") != DestStderr {
		t.Fatalf("expected unrecognised destination to default to DestStderr")
	}
	if ParseDestination("syslog") != DestJournal {
		t.Fatalf("expected syslog alias to map to DestJournal")
	}
}

func TestFileDestinationWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alarmd.log")
	l, err := New(LevelInfo, DestFile, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Logf("hello %s", "world")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "hello world") {
		t.Fatalf("got log contents %q, want it to contain %q", b, "hello world")
	}
}

func TestAtFiltersBelowConfiguredLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alarmd.log")
	l, err := New(LevelInfo, DestFile, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	debugf := l.At(LevelDebug)
	debugf("should not appear")
	l.At(LevelError)("should appear")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(b), "should not appear") {
		t.Fatalf("debug line leaked through at LevelInfo: %q", b)
	}
	if !strings.Contains(string(b), "should appear") {
		t.Fatalf("error line missing: %q", b)
	}
}
