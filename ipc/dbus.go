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
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/queue"
)

const (
	// BusName is the well-known name the daemon requests on whichever
	// bus it was told to use (system, for the boot-time daemon; session,
	// for a per-user instance).
	BusName = "com.alarmd.Queue1"
	// ObjectPath is where the queue object is exported.
	ObjectPath = dbus.ObjectPath("/com/alarmd/Queue1")
	// Interface is the method and signal interface name.
	Interface = "com.alarmd.Queue1"
)

// DBusServer exports a Server over dbus. Method names match the §6
// request table (add, update, delete, get, query, snooze_get,
// snooze_set, ui_response); status_signal is emitted, not called, so it
// is not a method on the exported interface at all.
type DBusServer struct {
	conn *dbus.Conn
	impl Server

	// Logf logs a formatted line; nil is replaced with a no-op in
	// NewDBusServer.
	Logf func(format string, v ...interface{})
}

// NewDBusServer exports impl's methods at ObjectPath on conn and
// requests BusName. conn is not closed by this call; the caller owns
// its lifetime (typically for as long as the daemon runs).
func NewDBusServer(conn *dbus.Conn, impl Server) (*DBusServer, error) {
	s := &DBusServer{
		conn: conn,
		impl: impl,
		Logf: func(string, ...interface{}) {},
	}

	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		return nil, alarmerr.Wrap(alarmerr.KindDispatchFailed, err)
	}
	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: Interface,
				Methods: []introspect.Method{
					{Name: "Add", Args: []introspect.Arg{
						{Name: "event", Type: "ay", Direction: "in"},
						{Name: "cookie", Type: "i", Direction: "out"},
					}},
					{Name: "Update", Args: []introspect.Arg{
						{Name: "event", Type: "ay", Direction: "in"},
					}},
					{Name: "Delete", Args: []introspect.Arg{
						{Name: "cookie", Type: "i", Direction: "in"},
					}},
					{Name: "Get", Args: []introspect.Arg{
						{Name: "cookie", Type: "i", Direction: "in"},
						{Name: "event", Type: "ay", Direction: "out"},
					}},
					{Name: "Query", Args: []introspect.Arg{
						{Name: "appID", Type: "s", Direction: "in"},
						{Name: "from", Type: "x", Direction: "in"},
						{Name: "to", Type: "x", Direction: "in"},
						{Name: "cookies", Type: "ai", Direction: "out"},
					}},
					{Name: "SnoozeGet", Args: []introspect.Arg{
						{Name: "seconds", Type: "x", Direction: "out"},
					}},
					{Name: "SnoozeSet", Args: []introspect.Arg{
						{Name: "seconds", Type: "x", Direction: "in"},
					}},
					{Name: "UIResponse", Args: []introspect.Arg{
						{Name: "cookie", Type: "i", Direction: "in"},
						{Name: "button", Type: "i", Direction: "in"},
					}},
				},
				Signals: []introspect.Signal{
					{Name: "StatusChanged", Args: []introspect.Arg{
						{Name: "active", Type: "i"},
						{Name: "desktop", Type: "i"},
						{Name: "actdead", Type: "i"},
						{Name: "noBoot", Type: "i"},
					}},
				},
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, alarmerr.Wrap(alarmerr.KindDispatchFailed, err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, alarmerr.Wrap(alarmerr.KindDispatchFailed, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, alarmerr.New(alarmerr.KindDispatchFailed, "bus name %s already owned", BusName)
	}

	return s, nil
}

// EmitStatusChanged broadcasts the current Status as a signal, answering
// status_signal for anyone subscribed rather than polling.
func (s *DBusServer) EmitStatusChanged(st Status) error {
	return s.conn.Emit(ObjectPath, Interface+".StatusChanged",
		st.Active, st.DesktopClass, st.ActdeadClass, st.NoBootClass)
}

// Add is the dbus-exported method for the add request.
func (s *DBusServer) Add(wire []byte) (int32, *dbus.Error) {
	e, err := DecodeEvent(wire)
	if err != nil {
		return 0, dbusError(err)
	}
	cookie, err := s.impl.Add(e)
	if err != nil {
		return 0, dbusError(err)
	}
	return int32(cookie), nil
}

// Update is the dbus-exported method for the update request.
func (s *DBusServer) Update(wire []byte) *dbus.Error {
	e, err := DecodeEvent(wire)
	if err != nil {
		return dbusError(err)
	}
	if err := s.impl.Update(e); err != nil {
		return dbusError(err)
	}
	return nil
}

// Delete is the dbus-exported method for the delete request.
func (s *DBusServer) Delete(cookie int32) *dbus.Error {
	if err := s.impl.Delete(alarm.Cookie(cookie)); err != nil {
		return dbusError(err)
	}
	return nil
}

// Get is the dbus-exported method for the get request.
func (s *DBusServer) Get(cookie int32) ([]byte, *dbus.Error) {
	e, err := s.impl.Get(alarm.Cookie(cookie))
	if err != nil {
		return nil, dbusError(err)
	}
	wire, err := EncodeEvent(e)
	if err != nil {
		return nil, dbusError(err)
	}
	return wire, nil
}

// Query is the dbus-exported method for the query request. from/to of 0
// are unbounded, matching queue.Filter's own zero-value convention.
func (s *DBusServer) Query(appID string, from, to int64) ([]int32, *dbus.Error) {
	cookies := s.impl.Query(queue.Filter{AppID: appID, TriggerFrom: from, TriggerTo: to})
	out := make([]int32, len(cookies))
	for i, c := range cookies {
		out[i] = int32(c)
	}
	return out, nil
}

// SnoozeGet is the dbus-exported method for the snooze_get request.
func (s *DBusServer) SnoozeGet() (int64, *dbus.Error) {
	return s.impl.SnoozeGet(), nil
}

// SnoozeSet is the dbus-exported method for the snooze_set request.
func (s *DBusServer) SnoozeSet(seconds int64) *dbus.Error {
	s.impl.SnoozeSet(seconds)
	return nil
}

// UIResponse is the dbus-exported method for the ui_response request.
func (s *DBusServer) UIResponse(cookie int32, button int32) *dbus.Error {
	if err := s.impl.UIResponse(alarm.Cookie(cookie), int(button)); err != nil {
		return dbusError(err)
	}
	return nil
}

// dbusError maps an alarmerr.Kind onto a dbus error name so a remote
// caller can branch on it the same way an in-process one branches on
// alarmerr.KindOf.
func dbusError(err error) *dbus.Error {
	name := Interface + ".Failed"
	switch alarmerr.KindOf(err) {
	case alarmerr.KindInvalid:
		name = Interface + ".Invalid"
	case alarmerr.KindNotFound:
		name = Interface + ".NotFound"
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}
