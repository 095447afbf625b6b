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
	"path/filepath"
	"testing"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newEvent(appID string, trigger int64) *alarm.Event {
	e := alarm.New(appID)
	e.AlarmTime = trigger
	e.Trigger = trigger
	return e
}

func TestAddAssignsCookieAndPersists(t *testing.T) {
	s := openTestStore(t)
	e := newEvent("com.example.one", 1000)

	cookie, err := s.Add(e)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cookie == alarm.CookieUnset {
		t.Fatalf("expected a non-zero cookie")
	}

	got, err := s.Get(cookie)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !e.EqualIgnoringCookieAndTrigger(got) {
		t.Fatalf("stored event does not match the submitted one except cookie/trigger: got %+v", got)
	}
	if got.Cookie != cookie {
		t.Fatalf("expected stored cookie %d, got %d", cookie, got.Cookie)
	}
}

func TestAddRejectsInvalidEvent(t *testing.T) {
	s := openTestStore(t)
	e := alarm.New("com.example.broken") // no trigger source at all
	if _, err := s.Add(e); !alarmerr.Is(err, alarmerr.KindInvalid) {
		t.Fatalf("expected KindInvalid, got %v", err)
	}
	if len(s.Query(Filter{})) != 0 {
		t.Fatalf("a rejected add must not be persisted")
	}
}

func TestUpdateUnknownCookieFails(t *testing.T) {
	s := openTestStore(t)
	e := newEvent("com.example.one", 1000)
	e.Cookie = 999
	if err := s.Update(e); !alarmerr.Is(err, alarmerr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestUpdateReplacesEvent(t *testing.T) {
	s := openTestStore(t)
	e := newEvent("com.example.one", 1000)
	cookie, _ := s.Add(e)

	e.Cookie = cookie
	e.Title = "changed"
	if err := s.Update(e); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.Get(cookie)
	if got.Title != "changed" {
		t.Fatalf("expected the update to take effect, got %+v", got)
	}
}

func TestDeleteRemovesFromQueryAndGet(t *testing.T) {
	s := openTestStore(t)
	e := newEvent("com.example.one", 1000)
	cookie, _ := s.Add(e)

	if err := s.Delete(cookie); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(cookie); !alarmerr.Is(err, alarmerr.KindNotFound) {
		t.Fatalf("expected KindNotFound after delete, got %v", err)
	}
	for _, c := range s.Query(Filter{}) {
		if c == cookie {
			t.Fatalf("deleted cookie %d still present in query results", cookie)
		}
	}
}

func TestDeleteUnknownCookieFails(t *testing.T) {
	s := openTestStore(t)
	if err := s.Delete(12345); !alarmerr.Is(err, alarmerr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

// TestQueryMatchesExactlyWhatGetSucceedsOn is testable property 1 from
// spec.md §8: query() returns exactly the cookies for which get()
// succeeds.
func TestQueryMatchesExactlyWhatGetSucceedsOn(t *testing.T) {
	s := openTestStore(t)
	var cookies []alarm.Cookie
	for i := 0; i < 5; i++ {
		c, err := s.Add(newEvent("com.example.multi", int64(1000+i)))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		cookies = append(cookies, c)
	}
	s.Delete(cookies[2])

	queried := s.Query(Filter{})
	for _, c := range queried {
		if _, err := s.Get(c); err != nil {
			t.Fatalf("query returned cookie %d but Get failed: %v", c, err)
		}
	}
	for _, c := range cookies {
		found := false
		for _, q := range queried {
			if q == c {
				found = true
			}
		}
		_, getErr := s.Get(c)
		if found != (getErr == nil) {
			t.Fatalf("query/get disagreement for cookie %d: in query=%v, get succeeds=%v", c, found, getErr == nil)
		}
	}
}

func TestQueryOrdersByCookieAscending(t *testing.T) {
	s := openTestStore(t)
	var want []alarm.Cookie
	for i := 1; i <= 4; i++ {
		c, _ := s.Add(newEvent("com.example.order", int64(i)))
		want = append(want, c)
	}
	got := s.Query(Filter{})
	if len(got) != len(want) {
		t.Fatalf("expected %d cookies, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ascending cookie order %v, got %v", want, got)
		}
	}
}

func TestQueryFiltersByAppID(t *testing.T) {
	s := openTestStore(t)
	a, _ := s.Add(newEvent("com.example.a", 1))
	s.Add(newEvent("com.example.b", 2))

	got := s.Query(Filter{AppID: "com.example.a"})
	if len(got) != 1 || got[0] != a {
		t.Fatalf("expected only cookie %d, got %v", a, got)
	}
}

func TestQueryFiltersByTriggerRange(t *testing.T) {
	s := openTestStore(t)
	s.Add(newEvent("com.example.range", 100))
	mid, _ := s.Add(newEvent("com.example.range", 500))
	s.Add(newEvent("com.example.range", 900))

	got := s.Query(Filter{TriggerFrom: 200, TriggerTo: 800})
	if len(got) != 1 || got[0] != mid {
		t.Fatalf("expected only the mid-range cookie %d, got %v", mid, got)
	}
}

func TestQueryExcludesDisabled(t *testing.T) {
	s := openTestStore(t)
	e := newEvent("com.example.disabled", 1000)
	e.Flags |= alarm.FlagDisabled
	s.Add(e)

	got := s.Query(Filter{ExcludeFlags: alarm.FlagDisabled})
	if len(got) != 0 {
		t.Fatalf("expected the disabled event to be excluded, got %v", got)
	}
}

// TestReopenReloadsPersistedEvents verifies that a fresh Store opened
// against an existing file sees what the previous Store persisted
// (testable property 4, via the store rather than the codec directly).
func TestReopenReloadsPersistedEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cookie, err := s1.Add(newEvent("com.example.reload", 42))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get(cookie)
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if got.AppID != "com.example.reload" {
		t.Fatalf("reloaded event mismatch: %+v", got)
	}
}

// TestReloadPicksUpExternallyWrittenFile exercises the recovery half of
// external-modification handling: a second Store instance writes to the
// same path behind the first one's back, and Reload must make the first
// Store's view match what is now on disk.
func TestReloadPicksUpExternallyWrittenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s1.Close()
	if _, err := s1.Add(newEvent("com.example.original", 100)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open second handle: %v", err)
	}
	replaced, err := s2.Add(newEvent("com.example.replacement", 200))
	if err != nil {
		t.Fatalf("Add via second handle: %v", err)
	}
	s2.Close()

	if err := s1.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	got, err := s1.Get(replaced)
	if err != nil {
		t.Fatalf("expected the externally-written event to be visible after Reload: %v", err)
	}
	if got.AppID != "com.example.replacement" {
		t.Fatalf("got %+v, want the replacement event", got)
	}
}

// TestWrittenFiresOnPersist is what a corruption-grace timer watches to
// recognize that this process has rewritten the queue itself.
func TestWrittenFiresOnPersist(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Add(newEvent("com.example.one", 1000)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	select {
	case <-s.Written():
	default:
		t.Fatalf("expected a pending notification on Written() after a successful persist")
	}
}

func TestSnoozeDefault(t *testing.T) {
	s := openTestStore(t)
	if s.SnoozeDefault() != 300 {
		t.Fatalf("expected a default of 300, got %d", s.SnoozeDefault())
	}
	s.SetSnoozeDefault(60)
	if s.SnoozeDefault() != 60 {
		t.Fatalf("expected 60 after SetSnoozeDefault, got %d", s.SnoozeDefault())
	}
}
