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

// Package queue is the authoritative, persisted set of alarm events: an
// in-memory map guarded by a mutex, a monotonic cookie counter, and a
// "write new file, fsync, rename" backing store watched for out-of-band
// modification. It does not compute trigger times or make scheduling
// decisions; callers (engine/scheduler and above) set Event.Trigger
// before handing an event to Add/Update.
package queue

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
)

// Filter selects a subset of events for Query.
type Filter struct {
	AppID        string // empty matches any
	ExcludeFlags alarm.Flags
	RequireFlags alarm.Flags
	TriggerFrom  int64 // 0 means unbounded
	TriggerTo    int64 // 0 means unbounded
}

func (f Filter) matches(e *alarm.Event) bool {
	if f.AppID != "" && e.AppID != f.AppID {
		return false
	}
	if e.Flags&f.ExcludeFlags != 0 {
		return false
	}
	if e.Flags&f.RequireFlags != f.RequireFlags {
		return false
	}
	if f.TriggerFrom != 0 && e.Trigger < f.TriggerFrom {
		return false
	}
	if f.TriggerTo != 0 && e.Trigger > f.TriggerTo {
		return false
	}
	return true
}

// Store is the in-memory, persisted event set.
type Store struct {
	mu            sync.Mutex
	path          string
	events        map[alarm.Cookie]*alarm.Event
	nextCookie    alarm.Cookie
	snoozeDefault int64

	watcher  *fileWatcher
	writesCh chan struct{}
}

// Open loads path if it exists and returns a ready Store. A missing file
// is not an error: the store starts empty, as on first boot.
func Open(path string) (*Store, error) {
	s := &Store{
		path:          path,
		events:        make(map[alarm.Cookie]*alarm.Event),
		nextCookie:    1, // 0 is CookieUnset
		snoozeDefault: 300,
		writesCh:      make(chan struct{}, 1),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, alarmerr.Wrap(alarmerr.KindPersistenceFailed, err)
	}
	w, err := newFileWatcher(path)
	if err == nil {
		s.watcher = w
	}
	return s, nil
}

func (s *Store) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		e, err := DecodeEvent(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return alarmerr.Wrap(alarmerr.KindExternalCorruption, err)
		}
		s.events[e.Cookie] = e
		if e.Cookie >= s.nextCookie {
			s.nextCookie = e.Cookie + 1
		}
	}
	return nil
}

// Reload discards the in-memory event set and reparses the queue file from
// disk. It is the recovery half of external-modification handling: a
// fileWatcher notification on Watch()'s channel means the file was changed
// by something other than this process's own persist(), and the caller is
// expected to call Reload so the in-memory state (and anything Snapshot
// hands out afterward) reflects what is actually on disk rather than a
// stale cache. nextCookie is never rolled back, so cookies already handed
// out stay retired even if the replacement file omits them.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make(map[alarm.Cookie]*alarm.Event)
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return alarmerr.Wrap(alarmerr.KindExternalCorruption, err)
	}
	return nil
}

// persist rewrites the whole store to disk atomically: write to a temp
// file in the same directory, fsync, then rename over the target. This
// is the same shape as every "durable single file" writer in this
// codebase's ancestry: never mutate the live file in place.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".queue-*.tmp")
	if err != nil {
		return alarmerr.Wrap(alarmerr.KindPersistenceFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	w := bufio.NewWriter(tmp)
	cookies := s.sortedCookies()
	for _, c := range cookies {
		if err := EncodeEvent(w, s.events[c]); err != nil {
			tmp.Close()
			return alarmerr.Wrap(alarmerr.KindPersistenceFailed, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return alarmerr.Wrap(alarmerr.KindPersistenceFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return alarmerr.Wrap(alarmerr.KindPersistenceFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return alarmerr.Wrap(alarmerr.KindPersistenceFailed, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return alarmerr.Wrap(alarmerr.KindPersistenceFailed, err)
	}
	if s.watcher != nil {
		s.watcher.noteSelfWrite()
	}
	select {
	case s.writesCh <- struct{}{}:
	default: // a pending notification already covers this
	}
	return nil
}

func (s *Store) sortedCookies() []alarm.Cookie {
	out := make([]alarm.Cookie, 0, len(s.events))
	for c := range s.events {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Add validates e, assigns it a fresh cookie, persists the store, and
// returns the cookie. e.Trigger is taken as-is; the caller is expected to
// have computed it already.
func (s *Store) Add(e *alarm.Event) (alarm.Cookie, error) {
	if err := e.Validate(); err != nil {
		return alarm.CookieUnset, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cookie := s.nextCookie
	s.nextCookie++

	stored := e.Copy()
	stored.Cookie = cookie
	s.events[cookie] = stored

	if err := s.persist(); err != nil {
		delete(s.events, cookie)
		s.nextCookie--
		return alarm.CookieUnset, err
	}
	return cookie, nil
}

// Update replaces the event at e.Cookie. The cookie must already exist.
func (s *Store) Update(e *alarm.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Cookie == alarm.CookieUnset {
		return alarmerr.New(alarmerr.KindInvalid, "update requires a cookie")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.events[e.Cookie]
	if !ok {
		return alarmerr.New(alarmerr.KindNotFound, "cookie %d not found", e.Cookie)
	}

	stored := e.Copy()
	s.events[e.Cookie] = stored
	if err := s.persist(); err != nil {
		s.events[e.Cookie] = old
		return err
	}
	return nil
}

// Delete removes cookie from the store. Callers are responsible for
// firing WHEN_DELETED actions before calling this; the store only owns
// persisted state, not lifecycle side effects.
func (s *Store) Delete(cookie alarm.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.events[cookie]
	if !ok {
		return alarmerr.New(alarmerr.KindNotFound, "cookie %d not found", cookie)
	}
	delete(s.events, cookie)
	if err := s.persist(); err != nil {
		s.events[cookie] = old
		return err
	}
	return nil
}

// Get returns a deep copy of the event at cookie.
func (s *Store) Get(cookie alarm.Cookie) (*alarm.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[cookie]
	if !ok {
		return nil, alarmerr.New(alarmerr.KindNotFound, "cookie %d not found", cookie)
	}
	return e.Copy(), nil
}

// Query returns, in ascending cookie order, the cookies of events
// matching f.
func (s *Store) Query(f Filter) []alarm.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []alarm.Cookie
	for _, c := range s.sortedCookies() {
		if f.matches(s.events[c]) {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns deep copies of every stored event, in ascending
// cookie order. Used by the scheduler to recompute selection after a
// time or zone change.
func (s *Store) Snapshot() []*alarm.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*alarm.Event, 0, len(s.events))
	for _, c := range s.sortedCookies() {
		out = append(out, s.events[c].Copy())
	}
	return out
}

// SnoozeDefault returns the process-wide default snooze interval used
// when an event's own SnoozeSecs is zero.
func (s *Store) SnoozeDefault() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snoozeDefault
}

// SetSnoozeDefault sets the process-wide default snooze interval.
func (s *Store) SetSnoozeDefault(seconds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snoozeDefault = seconds
}

// Watch returns the channel of external-modification notifications, or
// nil if the watcher could not be started (e.g. the directory is not
// watchable).
func (s *Store) Watch() <-chan struct{} {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.events
}

// Written returns a channel that receives a notification every time this
// process successfully persists the store. A collaborator that armed a
// timer in response to Watch() uses this to recognize "we rewrote the
// file ourselves" and cancel it, per the external-modification recovery
// rule.
func (s *Store) Written() <-chan struct{} {
	return s.writesCh
}

// Close releases the store's background watcher.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
