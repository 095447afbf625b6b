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

package ipc

import (
	"path/filepath"
	"testing"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/lifecycle"
	"github.com/alarmd/alarmd/engine/queue"
	"github.com/alarmd/alarmd/engine/scheduler"
	"github.com/alarmd/alarmd/engine/timeoracle"
)

type noopWake struct{}

func (noopWake) Arm(int64) error     { return nil }
func (noopWake) Disarm() error       { return nil }
func (noopWake) CanWakeDevice() bool { return false }
func (noopWake) Priority() int       { return 0 }

type noopDispatcher struct{}

func (noopDispatcher) Run(*alarm.Event, []alarm.Action) {}

type noopUI struct{}

func (noopUI) Present(*alarm.Event) error { return nil }
func (noopUI) Cancel(alarm.Cookie) error  { return nil }

func newTestServer(t *testing.T) (*LocalServer, *queue.Store, *timeoracle.Direct) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue")
	store, err := queue.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	oracle, err := timeoracle.NewDirect()
	if err != nil {
		t.Fatalf("NewDirect: %v", err)
	}
	t.Cleanup(func() { _ = oracle.Close() })

	eng := lifecycle.New(store, oracle, nil, noopDispatcher{}, noopUI{})
	sched := scheduler.New(oracle, store, noopWake{}, eng)
	eng.AttachScheduler(sched)

	return NewLocalServer(eng, store), store, oracle
}

func TestLocalServerAddGetRoundTrips(t *testing.T) {
	srv, _, oracle := newTestServer(t)

	e := alarm.New("com.example.ipc")
	e.AlarmTime = oracle.Now() + 60
	e.Trigger = e.AlarmTime
	e.AddAction(alarm.Action{Flags: alarm.TypeNop | alarm.WhenTriggered})

	cookie, err := srv.Add(e)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cookie == alarm.CookieUnset {
		t.Fatalf("expected a non-zero cookie")
	}

	got, err := srv.Get(cookie)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AppID != "com.example.ipc" {
		t.Fatalf("got AppID %q, want %q", got.AppID, "com.example.ipc")
	}
}

func TestLocalServerGetUnknownCookieIsNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, err := srv.Get(alarm.Cookie(999))
	if !alarmerr.Is(err, alarmerr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestLocalServerQueryFiltersByAppID(t *testing.T) {
	srv, _, oracle := newTestServer(t)

	a := alarm.New("com.example.a")
	a.AlarmTime = oracle.Now() + 60
	a.Trigger = a.AlarmTime
	if _, err := srv.Add(a); err != nil {
		t.Fatalf("Add a: %v", err)
	}

	b := alarm.New("com.example.b")
	b.AlarmTime = oracle.Now() + 60
	b.Trigger = b.AlarmTime
	if _, err := srv.Add(b); err != nil {
		t.Fatalf("Add b: %v", err)
	}

	cookies := srv.Query(queue.Filter{AppID: "com.example.a"})
	if len(cookies) != 1 {
		t.Fatalf("expected one match, got %v", cookies)
	}
}

func TestLocalServerSnoozeGetSetRoundTrips(t *testing.T) {
	srv, _, _ := newTestServer(t)

	srv.SnoozeSet(300)
	if got := srv.SnoozeGet(); got != 300 {
		t.Fatalf("got snooze default %d, want 300", got)
	}
}

func TestLocalServerDeleteRemovesEvent(t *testing.T) {
	srv, store, oracle := newTestServer(t)

	e := alarm.New("com.example.delete")
	e.AlarmTime = oracle.Now() + 60
	e.Trigger = e.AlarmTime
	cookie, err := srv.Add(e)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := srv.Delete(cookie); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(cookie); err == nil {
		t.Fatalf("expected cookie to be gone")
	}
}

func TestLocalServerStatusSnapshotClassifiesByFlags(t *testing.T) {
	srv, _, oracle := newTestServer(t)

	desktop := alarm.New("com.example.desktop")
	desktop.AlarmTime = oracle.Now() + 60
	desktop.Trigger = desktop.AlarmTime
	desktop.Flags |= alarm.FlagBoot
	if _, err := srv.Add(desktop); err != nil {
		t.Fatalf("Add desktop: %v", err)
	}

	actdead := alarm.New("com.example.actdead")
	actdead.AlarmTime = oracle.Now() + 60
	actdead.Trigger = actdead.AlarmTime
	actdead.Flags |= alarm.FlagActDead
	if _, err := srv.Add(actdead); err != nil {
		t.Fatalf("Add actdead: %v", err)
	}

	disabled := alarm.New("com.example.disabled")
	disabled.AlarmTime = oracle.Now() + 60
	disabled.Trigger = disabled.AlarmTime
	disabled.Flags |= alarm.FlagDisabled
	if _, err := srv.Add(disabled); err != nil {
		t.Fatalf("Add disabled: %v", err)
	}

	st := srv.StatusSnapshot()
	if st.Active != 2 {
		t.Fatalf("got Active=%d, want 2 (disabled event excluded)", st.Active)
	}
	if st.DesktopClass != 1 {
		t.Fatalf("got DesktopClass=%d, want 1", st.DesktopClass)
	}
	if st.ActdeadClass != 1 {
		t.Fatalf("got ActdeadClass=%d, want 1", st.ActdeadClass)
	}
}

func TestEncodeDecodeEventRoundTrips(t *testing.T) {
	e := alarm.New("com.example.codec")
	e.AlarmTime = 1000
	e.Trigger = 1000
	e.Cookie = 5
	e.AddAction(alarm.Action{Flags: alarm.TypeExec | alarm.WhenTriggered, Exec: "true"})

	wire, err := EncodeEvent(e)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	got, err := DecodeEvent(wire)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.AppID != e.AppID || got.Cookie != e.Cookie {
		t.Fatalf("got %+v, want AppID=%q Cookie=%d", got, e.AppID, e.Cookie)
	}
}
