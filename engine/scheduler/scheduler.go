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

package scheduler

import (
	"time"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/queue"
	"github.com/alarmd/alarmd/engine/timeoracle"
	"github.com/alarmd/alarmd/util/exitsignal"
)

// idlePoll is how long the main loop waits when the queue holds nothing
// armable; Recompute (called on every add/update/delete) wakes it early,
// this is only a backstop against a missed wake-up.
const idlePoll = 24 * time.Hour

// corruptionGrace is how long an externally-modified queue file is
// tolerated, after being reloaded, before Fatal fires. A supervisor
// restarting the process is expected to come back up against a clean
// file; it is this process's own next persist() that cancels the timer
// instead.
const corruptionGrace = 30 * time.Second

// Handler receives the scheduler's firing decisions. The scheduler itself
// never runs an action: it only decides which event is due and whether a
// missed firing should run, postpone or disable, then hands the result
// here. The lifecycle engine implements this.
type Handler interface {
	// Fire is called once an event's trigger has been reached (or was
	// already in the past at selection time and its flags call for
	// running anyway). delayed is true in the latter case.
	Fire(e *alarm.Event, delayed bool)
	// Disabled is called when a missed firing was suppressed by
	// DISABLE_DELAYED; the event is already persisted with FlagDisabled
	// set. The handler is responsible for running its WHEN_DISABLED
	// actions.
	Disabled(e *alarm.Event)
}

// Scheduler arms exactly one in-process timer and, when the selected
// event allows waking the device, one hardware wake alarm, recomputing
// both after every queue or clock change.
type Scheduler struct {
	oracle  timeoracle.Oracle
	store   *queue.Store
	wake    WakeSource
	handler Handler

	recompute chan struct{}

	// Fatal fires when an externally-modified queue file is not rewritten
	// by this process within corruptionGrace of being reloaded. Owners of
	// Run are expected to watch Fatal.C() alongside their shutdown signal
	// and exit the process when it closes, per the EXTERNAL_CORRUPTION
	// recovery policy.
	Fatal *exitsignal.Signal

	// Logf logs a formatted line; nil is replaced with a no-op in New.
	Logf func(format string, v ...interface{})
}

// New builds a Scheduler. wake may be a Noop from the hwwake subpackage
// on hosts with no usable real-time clock.
func New(oracle timeoracle.Oracle, store *queue.Store, wake WakeSource, handler Handler) *Scheduler {
	return &Scheduler{
		oracle:    oracle,
		store:     store,
		wake:      wake,
		handler:   handler,
		recompute: make(chan struct{}, 1),
		Fatal:     exitsignal.New(),
		Logf:      func(string, ...interface{}) {},
	}
}

// Recompute asks the scheduler to re-run selection on its next loop
// iteration. It never blocks: a pending recompute request coalesces with
// any other queued one. Callers invoke this after add, update, delete,
// a UI response and every lifecycle transition that changes a trigger.
func (s *Scheduler) Recompute() {
	select {
	case s.recompute <- struct{}{}:
	default:
	}
}

// Run selects and arms events until stop is closed. It is meant to run
// in its own goroutine for the lifetime of the process.
func (s *Scheduler) Run(stop <-chan struct{}) {
	changeCh := make(chan timeoracle.Change, 1)
	cancel := s.oracle.Subscribe(changeCh)
	defer cancel()

	queueCh := s.store.Watch()

	for {
		next, delayed, ok := s.selectAndArm()

		var wait time.Duration
		if ok {
			wait = time.Duration(next.Trigger-s.oracle.Now()) * time.Second
			if wait < 0 {
				wait = 0
			}
		} else {
			wait = idlePoll
		}
		timer := time.NewTimer(wait)

		select {
		case <-stop:
			timer.Stop()
			return

		case <-timer.C:
			if ok {
				s.handleDue(next, delayed)
			}

		case <-s.recompute:
			timer.Stop()

		case <-changeCh:
			timer.Stop()

		case <-queueCh:
			timer.Stop()
			s.handleExternalModification(stop)
		}
	}
}

// handleExternalModification reacts to a detected out-of-band change to
// the queue file: reload it from disk so selection stops working off a
// stale in-memory cache, then arm the corruption-grace timer. If this
// process itself rewrites the queue (a normal Add/Update/Delete) before
// the timer fires, the pending exit is cancelled; if stop closes first, a
// normal shutdown is already underway and no exit is requested either.
// Otherwise Fatal fires and the owner of Run is expected to terminate the
// process.
func (s *Scheduler) handleExternalModification(stop <-chan struct{}) {
	if err := s.store.Reload(); err != nil {
		s.Logf("external modification: reload failed: %v", err)
	} else {
		s.Logf("%v", alarmerr.New(alarmerr.KindExternalCorruption, "queue file changed externally, reloaded from disk"))
	}

	timer := time.NewTimer(corruptionGrace)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			s.Fatal.Fire(alarmerr.New(alarmerr.KindExternalCorruption,
				"queue file modified externally and not rewritten within %s", corruptionGrace))
		case <-s.store.Written():
		case <-stop:
		}
	}()
}

// selectAndArm picks the lowest-trigger, non-disabled event (ties broken
// by ascending cookie) and arms or disarms the hardware wake source to
// match. delayed reports whether the winning trigger was already in the
// past at selection time.
func (s *Scheduler) selectAndArm() (next *alarm.Event, delayed bool, ok bool) {
	for _, e := range s.store.Snapshot() {
		if e.Flags.Has(alarm.FlagDisabled) {
			continue
		}
		if e.Trigger <= alarm.TriggerUnset {
			continue
		}
		if !ok || e.Trigger < next.Trigger || (e.Trigger == next.Trigger && e.Cookie < next.Cookie) {
			next, ok = e, true
		}
	}

	if !ok {
		if err := s.wake.Disarm(); err != nil {
			s.Logf("wake disarm failed: %v", err)
		}
		return nil, false, false
	}

	now := s.oracle.Now()
	delayed = next.Trigger < now

	if next.Flags.Has(alarm.FlagBoot) || next.Flags.Has(alarm.FlagActDead) {
		if err := s.wake.Arm(next.Trigger); err != nil {
			s.Logf("wake arm failed for cookie %d: %v", next.Cookie, err)
		}
	} else if err := s.wake.Disarm(); err != nil {
		s.Logf("wake disarm failed: %v", err)
	}

	return next, delayed, true
}

// handleDue applies the missed-alarm policy (when delayed) and hands the
// result to the handler.
func (s *Scheduler) handleDue(e *alarm.Event, delayed bool) {
	if delayed {
		switch {
		case e.Flags.Has(alarm.FlagDisableDelayed):
			s.disableDelayed(e)
			return
		case e.Flags.Has(alarm.FlagPostponeDelayed):
			s.postponeDelayed(e)
			return
		}
		// RUN_DELAYED and the default policy both fall through to a
		// normal fire; the only difference between them is that
		// default dispatch is marked delayed for action hooks, which
		// Fire's delayed argument already carries.
	}
	s.handler.Fire(e, delayed)
}

// postponeDelayed reschedules a missed POSTPONE_DELAYED event to now,
// preserving its recurrences, and leaves it queued without firing.
func (s *Scheduler) postponeDelayed(e *alarm.Event) {
	e.Trigger = s.oracle.Now()
	if err := s.store.Update(e); err != nil {
		s.Logf("postpone-delayed update failed for cookie %d: %v", e.Cookie, err)
	}
}

// disableDelayed sets FlagDisabled on a missed DISABLE_DELAYED event,
// persists it, and notifies the handler so its WHEN_DISABLED actions run;
// no UI request is ever issued for it.
func (s *Scheduler) disableDelayed(e *alarm.Event) {
	e.Flags |= alarm.FlagDisabled
	if err := s.store.Update(e); err != nil {
		s.Logf("disable-delayed update failed for cookie %d: %v", e.Cookie, err)
		return
	}
	s.handler.Disabled(e)
}
