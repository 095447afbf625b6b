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

// Package dispatch runs the per-kind side effect of an action selected by
// the lifecycle engine. Every call is fire-and-forget: a failure is
// logged and nothing is returned to the caller, so a slow or unreachable
// collaborator (a dead dbus destination, a hung shell command) never
// stalls the lifecycle engine's single-threaded loop.
package dispatch

import (
	"os/exec"
	"strconv"

	"github.com/godbus/dbus/v5"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
)

// Dispatcher runs TYPE_EXEC and TYPE_DBUS actions. TYPE_NOP, TYPE_SNOOZE
// and TYPE_DISABLE have no dispatch side effect (the lifecycle engine
// acts on the latter two itself), so Run treats them as no-ops.
type Dispatcher struct {
	// Logf logs a formatted line; nil is replaced with a no-op in New.
	Logf func(format string, v ...interface{})
}

// New builds a Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{Logf: func(string, ...interface{}) {}}
}

// Run executes actions for event e. Each TYPE_EXEC or TYPE_DBUS action
// runs in its own goroutine so a single slow action never delays the
// rest, and Run itself never blocks on any of them.
func (d *Dispatcher) Run(e *alarm.Event, actions []alarm.Action) {
	for _, a := range actions {
		a := a
		switch a.Flags.Kind() {
		case alarm.TypeExec:
			go d.runExec(e, a)
		case alarm.TypeDBus:
			go d.runDBus(e, a)
		}
	}
}

// runExec spawns a's command through a shell, never waiting on it past
// completion (the caller has already moved on); EXEC_ADD_COOKIE appends
// the decimal cookie as $1.
func (d *Dispatcher) runExec(e *alarm.Event, a alarm.Action) {
	args := []string{"-c", a.Exec, "sh"}
	if a.Flags.Has(alarm.ExecAddCookie) {
		args = append(args, strconv.FormatInt(int64(e.Cookie), 10))
	}
	cmd := exec.Command("/bin/sh", args...)
	if err := cmd.Run(); err != nil {
		d.Logf("exec dispatch failed for cookie %d (%q): %v", e.Cookie, a.Exec,
			alarmerr.Wrap(alarmerr.KindDispatchFailed, err))
	}
}

// runDBus issues a method call to a's configured destination on the
// session or system bus. DBUS_USE_ACTIVATION lets the bus daemon start
// the destination if it is not already running; otherwise the call is
// skipped when nothing owns that service name. DBUS_ADD_COOKIE appends
// the cookie as a trailing int32 argument.
func (d *Dispatcher) runDBus(e *alarm.Event, a alarm.Action) {
	conn, err := connectBus(a.Flags.Has(alarm.DBusUseSystemBus))
	if err != nil {
		d.Logf("dbus connect failed for cookie %d: %v", e.Cookie,
			alarmerr.Wrap(alarmerr.KindDispatchFailed, err))
		return
	}
	defer conn.Close()

	if !a.Flags.Has(alarm.DBusUseActivation) {
		var owned bool
		call := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, a.IPC.Service)
		if call.Err != nil || call.Store(&owned) != nil || !owned {
			d.Logf("dbus destination %s absent for cookie %d, skipping (no activation requested)",
				a.IPC.Service, e.Cookie)
			return
		}
	}

	args := make([]interface{}, 0, len(a.IPC.Args)+1)
	for _, arg := range a.IPC.Args {
		args = append(args, arg.Value)
	}
	if a.Flags.Has(alarm.DBusAddCookie) {
		args = append(args, int32(e.Cookie))
	}

	obj := conn.Object(a.IPC.Service, dbus.ObjectPath(a.IPC.Object))
	call := obj.Call(a.IPC.Interface+"."+a.IPC.Member, 0, args...)
	if call.Err != nil {
		d.Logf("dbus call failed for cookie %d (%s %s.%s): %v", e.Cookie,
			a.IPC.Service, a.IPC.Interface, a.IPC.Member,
			alarmerr.Wrap(alarmerr.KindDispatchFailed, call.Err))
	}
}

// connectBus is a var so tests can stub it without a real bus daemon.
var connectBus = func(systemBus bool) (*dbus.Conn, error) {
	if systemBus {
		return dbus.ConnectSystemBus()
	}
	return dbus.ConnectSessionBus()
}
