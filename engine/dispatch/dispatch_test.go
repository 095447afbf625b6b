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

package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/alarmd/alarmd/engine/alarm"
)

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b, err := os.ReadFile(path); err == nil {
			return string(b)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to appear", path)
	return ""
}

func TestRunExecSpawnsCommand(t *testing.T) {
	d := New()
	out := filepath.Join(t.TempDir(), "touched")

	e := alarm.New("com.example.exec")
	e.Cookie = 7
	d.Run(e, []alarm.Action{{
		Flags: alarm.TypeExec | alarm.WhenTriggered,
		Exec:  fmt.Sprintf("echo hi > %s", out),
	}})

	got := waitForFile(t, out)
	if got != "hi\n" {
		t.Fatalf("got %q, want %q", got, "hi\n")
	}
}

func TestRunExecAddCookieAppendsArgument(t *testing.T) {
	d := New()
	out := filepath.Join(t.TempDir(), "cookie")

	e := alarm.New("com.example.cookie")
	e.Cookie = 42
	d.Run(e, []alarm.Action{{
		Flags: alarm.TypeExec | alarm.WhenTriggered | alarm.ExecAddCookie,
		Exec:  fmt.Sprintf(`printf '%%s' "$1" > %s`, out),
	}})

	got := waitForFile(t, out)
	if got != "42" {
		t.Fatalf("got %q, want %q", got, "42")
	}
}

func TestRunSkipsNonDispatchKinds(t *testing.T) {
	d := New()
	out := filepath.Join(t.TempDir(), "should-not-exist")

	e := alarm.New("com.example.nop")
	e.Cookie = 1
	d.Run(e, []alarm.Action{
		{Flags: alarm.TypeNop | alarm.WhenTriggered},
		{Flags: alarm.TypeSnooze | alarm.WhenResponded},
		{Flags: alarm.TypeDisable | alarm.WhenResponded},
	})

	time.Sleep(50 * time.Millisecond)
	if _, err := os.Stat(out); err == nil {
		t.Fatalf("expected no side effect from TYPE_NOP/SNOOZE/DISABLE")
	}
}

func TestRunDBusLogsConnectFailure(t *testing.T) {
	d := New()

	var mu sync.Mutex
	var logged []string
	d.Logf = func(format string, v ...interface{}) {
		mu.Lock()
		logged = append(logged, fmt.Sprintf(format, v...))
		mu.Unlock()
	}

	calls := 0
	origConnect := connectBus
	defer func() { connectBus = origConnect }()
	connectBus = func(systemBus bool) (*dbus.Conn, error) {
		calls++
		return nil, fmt.Errorf("no bus available in this sandbox")
	}

	e := alarm.New("com.example.dbus")
	e.Cookie = 9
	d.Run(e, []alarm.Action{{
		Flags: alarm.TypeDBus | alarm.WhenTriggered,
		IPC: alarm.IPC{
			Service:   "com.example.Target",
			Object:    "/com/example/Target",
			Interface: "com.example.Target",
			Member:    "Ping",
		},
	}})

	deadline := time.Now().Add(time.Second)
	for calls == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls != 1 {
		t.Fatalf("expected connectBus called once, got %d", calls)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(logged) != 1 {
		t.Fatalf("expected one logged failure, got %v", logged)
	}
}
