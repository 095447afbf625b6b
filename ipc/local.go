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
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/lifecycle"
	"github.com/alarmd/alarmd/engine/queue"
)

// LocalServer implements Server directly against an in-process lifecycle
// Engine and queue Store. It
// is what cmd/alarmd wires DBusServer around, and what package tests use
// when they don't need a real bus.
type LocalServer struct {
	eng   *lifecycle.Engine
	store *queue.Store
}

// NewLocalServer builds a LocalServer over an already-wired engine and
// store (see lifecycle.New's two-step construction for why both are
// needed separately: Query and Get read the store directly, everything
// that mutates goes through the engine so WHEN_* actions and
// Scheduler.Recompute fire correctly).
func NewLocalServer(eng *lifecycle.Engine, store *queue.Store) *LocalServer {
	return &LocalServer{eng: eng, store: store}
}

var _ Server = (*LocalServer)(nil)

func (s *LocalServer) Add(e *alarm.Event) (alarm.Cookie, error) {
	return s.eng.Enqueue(e)
}

func (s *LocalServer) Update(e *alarm.Event) error {
	return s.eng.Replace(e)
}

func (s *LocalServer) Delete(cookie alarm.Cookie) error {
	return s.eng.Delete(cookie)
}

func (s *LocalServer) Get(cookie alarm.Cookie) (*alarm.Event, error) {
	return s.store.Get(cookie)
}

func (s *LocalServer) Query(f queue.Filter) []alarm.Cookie {
	return s.store.Query(f)
}

func (s *LocalServer) SnoozeGet() int64 {
	return s.store.SnoozeDefault()
}

func (s *LocalServer) SnoozeSet(seconds int64) {
	s.store.SetSnoozeDefault(seconds)
}

func (s *LocalServer) UIResponse(cookie alarm.Cookie, button int) error {
	return s.eng.Respond(cookie, button)
}

func (s *LocalServer) StatusSnapshot() Status {
	var st Status
	for _, e := range s.store.Snapshot() {
		if e.Flags.Has(alarm.FlagDisabled) {
			continue
		}
		st.Active++
		switch {
		case e.Flags.Has(alarm.FlagActDead):
			st.ActdeadClass++
		case e.Flags.Has(alarm.FlagBoot):
			st.DesktopClass++
		default:
			st.NoBootClass++
		}
	}
	return st
}
