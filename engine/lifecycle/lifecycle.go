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

// Package lifecycle drives the per-event state machine: queued, triggered,
// waiting for UI, responded, and finally rescheduled, disabled or deleted.
// It implements scheduler.Handler, so the Scheduler's single-threaded
// selection loop calls straight into it; every method here is expected to
// return quickly and never block on IPC or external I/O (§5 of the
// original design: dispatch is fire-and-forget).
package lifecycle

import (
	"sync"
	"time"

	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/queue"
	"github.com/alarmd/alarmd/engine/scheduler"
	"github.com/alarmd/alarmd/engine/timeoracle"
)

// defaultUIResendTimeout is how long the engine waits for a UI response
// before re-presenting an event, absent a more specific configuration.
const defaultUIResendTimeout = 30 * time.Second

// Dispatcher runs a selected subset of an event's actions. It must not
// block: TYPE_EXEC and TYPE_DBUS effects are fire-and-forget, logged on
// failure, never awaited.
type Dispatcher interface {
	Run(e *alarm.Event, actions []alarm.Action)
}

// UIService hands a triggered event to the external system-UI
// collaborator and lets it cancel a previously presented one. Present may
// be called more than once for the same cookie; the UI is expected to
// deduplicate.
type UIService interface {
	Present(e *alarm.Event) error
	Cancel(cookie alarm.Cookie) error
}

// uiState tracks one cookie while it waits in IN_UI.
type uiState struct {
	event *alarm.Event
	timer *time.Timer
}

// Engine is the lifecycle state machine. The zero value is not usable;
// build one with New.
type Engine struct {
	store   *queue.Store
	oracle  timeoracle.Oracle
	sched   *scheduler.Scheduler
	dispatch Dispatcher
	ui      UIService

	resendTimeout time.Duration

	mu   sync.Mutex
	inUI map[alarm.Cookie]*uiState

	// Logf logs a formatted line; nil is replaced with a no-op in New.
	Logf func(format string, v ...interface{})
}

// New builds a lifecycle Engine. sched may be nil here and attached later
// with AttachScheduler; it must be set before any other method is called.
func New(store *queue.Store, oracle timeoracle.Oracle, sched *scheduler.Scheduler, dispatch Dispatcher, ui UIService) *Engine {
	return &Engine{
		store:         store,
		oracle:        oracle,
		sched:         sched,
		dispatch:      dispatch,
		ui:            ui,
		resendTimeout: defaultUIResendTimeout,
		inUI:          make(map[alarm.Cookie]*uiState),
		Logf:          func(string, ...interface{}) {},
	}
}

// SetResendTimeout overrides the default UI resend interval.
func (eng *Engine) SetResendTimeout(d time.Duration) { eng.resendTimeout = d }

// AttachScheduler wires the Scheduler this engine recomputes after every
// mutation. Scheduler.New takes this Engine as its Handler, so the two
// constructors resolve their cyclic dependency by calling New, then
// AttachScheduler, in that order.
func (eng *Engine) AttachScheduler(s *scheduler.Scheduler) { eng.sched = s }

// Enqueue validates and persists a brand-new event, runs its WHEN_QUEUED
// actions, and asks the scheduler to reselect. The event's Trigger field
// must already hold the computed initial trigger (engine/scheduler's
// InitialTrigger).
func (eng *Engine) Enqueue(e *alarm.Event) (alarm.Cookie, error) {
	cookie, err := eng.store.Add(e)
	if err != nil {
		return alarm.CookieUnset, err
	}
	e.Cookie = cookie
	eng.dispatch.Run(e, e.ActionsWhen(alarm.WhenQueued))
	eng.sched.Recompute()
	return cookie, nil
}

// Replace atomically updates an existing event (the client-visible
// "update" operation) and asks the scheduler to reselect.
func (eng *Engine) Replace(e *alarm.Event) error {
	if err := eng.store.Update(e); err != nil {
		return err
	}
	eng.sched.Recompute()
	return nil
}

// Delete removes cookie from the queue. If it was waiting in IN_UI, the
// UI is told to withdraw it first. WHEN_DELETED actions always run before
// the event leaves the store.
func (eng *Engine) Delete(cookie alarm.Cookie) error {
	e, err := eng.store.Get(cookie)
	if err != nil {
		return err
	}

	eng.cancelUI(cookie)

	eng.dispatch.Run(e, e.ActionsWhen(alarm.WhenDeleted))
	if err := eng.store.Delete(cookie); err != nil {
		return err
	}
	eng.sched.Recompute()
	return nil
}

// Fire implements scheduler.Handler. It runs WHEN_TRIGGERED (and, for a
// missed firing, WHEN_DELAYED) actions, then either synthesises an
// implicit response for a buttonless event or hands it to the UI.
func (eng *Engine) Fire(e *alarm.Event, delayed bool) {
	actions := e.ActionsWhen(alarm.WhenTriggered)
	if delayed {
		actions = append(actions, e.ActionsWhen(alarm.WhenDelayed)...)
	}
	eng.dispatch.Run(e, actions)

	if !e.HasButtons() {
		eng.resolve(e, nil)
		return
	}

	eng.presentToUI(e)
}

// Disabled implements scheduler.Handler: a DISABLE_DELAYED missed firing
// only ever runs its WHEN_DISABLED actions; no UI request is issued.
func (eng *Engine) Disabled(e *alarm.Event) {
	eng.dispatch.Run(e, e.ActionsWhen(alarm.WhenDisabled))
}

// presentToUI registers cookie as IN_UI and asks the UI service to show
// it, arming a resend timer in case the UI never answers.
func (eng *Engine) presentToUI(e *alarm.Event) {
	eng.mu.Lock()
	st, already := eng.inUI[e.Cookie]
	if already {
		st.event = e
	} else {
		st = &uiState{event: e}
		eng.inUI[e.Cookie] = st
	}
	st.timer = time.AfterFunc(eng.resendTimeout, func() { eng.resendToUI(e.Cookie) })
	eng.mu.Unlock()

	if err := eng.ui.Present(e); err != nil {
		eng.Logf("UI present failed for cookie %d: %v", e.Cookie, err)
	}
}

func (eng *Engine) resendToUI(cookie alarm.Cookie) {
	eng.mu.Lock()
	st, ok := eng.inUI[cookie]
	eng.mu.Unlock()
	if !ok {
		return
	}
	eng.Logf("resending cookie %d to UI after no response", cookie)
	eng.presentToUI(st.event)
}

// cancelUI withdraws cookie from IN_UI, if it is there, and tells the UI
// to stop presenting it.
func (eng *Engine) cancelUI(cookie alarm.Cookie) {
	eng.mu.Lock()
	st, ok := eng.inUI[cookie]
	if ok {
		delete(eng.inUI, cookie)
	}
	eng.mu.Unlock()

	if !ok {
		return
	}
	st.timer.Stop()
	if err := eng.ui.Cancel(cookie); err != nil {
		eng.Logf("UI cancel failed for cookie %d: %v", cookie, err)
	}
}

// Respond delivers a UI response: button is the index into the event's
// WHEN_RESPONDED-flagged actions (not its full action list), or negative
// for a user/UI cancellation.
func (eng *Engine) Respond(cookie alarm.Cookie, button int) error {
	eng.mu.Lock()
	st, ok := eng.inUI[cookie]
	if ok {
		delete(eng.inUI, cookie)
	}
	eng.mu.Unlock()

	var e *alarm.Event
	if ok {
		st.timer.Stop()
		e = st.event
	} else {
		var err error
		e, err = eng.store.Get(cookie)
		if err != nil {
			return err
		}
	}

	if button < 0 {
		eng.resolve(e, nil)
		return nil
	}

	buttons := e.ActionsWhen(alarm.WhenResponded)
	var responded *alarm.Action
	if button < len(buttons) {
		responded = &buttons[button]
		eng.dispatch.Run(e, []alarm.Action{*responded})
	}
	eng.resolve(e, responded)
	return nil
}

// resolve runs the reschedule decision for e after its responded actions
// (if any) have executed. responded is nil for an implicit response on a
// buttonless event, or a UI cancellation.
func (eng *Engine) resolve(e *alarm.Event, responded *alarm.Action) {
	switch {
	case responded != nil && responded.Flags.Has(alarm.TypeSnooze):
		eng.snooze(e)
	case responded != nil && responded.Flags.Has(alarm.TypeDisable):
		eng.disable(e)
	case eng.hasMoreRecurrences(e):
		eng.reschedule(e)
	default:
		eng.terminate(e)
	}
}

func (eng *Engine) hasMoreRecurrences(e *alarm.Event) bool {
	if e.RecurCount == 0 {
		return false
	}
	if e.RecurSecs > 0 {
		return true
	}
	for _, r := range e.Recurrences {
		if !r.Empty() {
			return true
		}
	}
	return false
}

func (eng *Engine) snooze(e *alarm.Event) {
	secs := e.SnoozeSecs
	if secs <= 0 {
		secs = eng.store.SnoozeDefault()
	}
	e.Trigger += secs
	e.SnoozeTotal += secs
	if err := eng.store.Update(e); err != nil {
		eng.Logf("snooze update failed for cookie %d: %v", e.Cookie, err)
		return
	}
	// a snoozed event re-enters the queue, so its WHEN_QUEUED hooks run again
	eng.dispatch.Run(e, e.ActionsWhen(alarm.WhenQueued))
	eng.sched.Recompute()
}

func (eng *Engine) disable(e *alarm.Event) {
	e.Flags |= alarm.FlagDisabled
	if err := eng.store.Update(e); err != nil {
		eng.Logf("disable update failed for cookie %d: %v", e.Cookie, err)
	}
}

func (eng *Engine) reschedule(e *alarm.Event) {
	lastBD, err := eng.oracle.Localtime(e.Trigger, e.Timezone)
	if err != nil {
		eng.Logf("reschedule localtime failed for cookie %d: %v", e.Cookie, err)
		eng.terminate(e)
		return
	}
	next, _, err := scheduler.RescheduleTrigger(eng.oracle, e, lastBD)
	if err != nil {
		eng.Logf("reschedule computation failed for cookie %d: %v", e.Cookie, err)
		eng.terminate(e)
		return
	}
	if next == alarm.TriggerUnset {
		eng.terminate(e)
		return
	}

	e.Trigger = next
	if e.RecurCount > 0 {
		e.RecurCount--
	}
	if err := eng.store.Update(e); err != nil {
		eng.Logf("reschedule update failed for cookie %d: %v", e.Cookie, err)
		return
	}
	eng.sched.Recompute()
}

func (eng *Engine) terminate(e *alarm.Event) {
	eng.dispatch.Run(e, e.ActionsWhen(alarm.WhenDeleted))
	if err := eng.store.Delete(e.Cookie); err != nil {
		eng.Logf("terminal delete failed for cookie %d: %v", e.Cookie, err)
		return
	}
	eng.sched.Recompute()
}
