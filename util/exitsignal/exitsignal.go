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

// Package exitsignal is a close-once "fire an exit request, from wherever,
// and let the main loop decide what to do with it" signal: a background
// collaborator (the scheduler's external-corruption timer, say) can demand
// that the process go down without importing os or owning the decision of
// how.
package exitsignal

import "sync"

// Signal lets any number of goroutines race to request termination; only
// the first request's error sticks, and every caller of C sees the same
// close.
type Signal struct {
	mu   sync.Mutex
	once sync.Once
	ch   chan struct{}
	err  error
}

// New returns a ready Signal.
func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire requests termination, recording err if this is the first call.
// Safe to call from multiple goroutines and more than once.
func (s *Signal) Fire(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}

// C returns the channel that closes when Fire is first called.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Err returns the error passed to the first Fire call, or nil if Fire has
// not been called yet.
func (s *Signal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
