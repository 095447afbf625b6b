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
	"bufio"
	"fmt"
	"strconv"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
)

// The queue file is a sequence of tagged Event records. Every primitive
// value is a one-byte type tag followed by a decimal (or escaped-string,
// for s/O/S) body terminated by an unescaped ';'; arrays are
// "[ elem-tag count elem... ]". On top of that primitive alphabet, each
// composite (Event, Action, Recurrence, Attribute) is a record: a marker
// byte, then name/value pairs (the name always tag 's'), ending in an
// empty field name. Readers skip any field name they don't recognize by
// consuming a generic value of whatever tag follows, which is what makes
// "optional fields added at the end" (spec.md §6) forward-compatible:
// skipping never needs to know what the field meant.

const (
	tagInt8    = 'b'
	tagInt16   = 'w'
	tagInt32   = 'l'
	tagInt64   = 'q'
	tagUint8   = 'B'
	tagUint16  = 'W'
	tagUint32  = 'L'
	tagUint64  = 'Q'
	tagDouble  = 'd'
	tagBool    = 'F'
	tagString  = 's'
	tagObject  = 'O'
	tagSig     = 'S'
	tagArray   = '['
	arrayClose = ']'
)

const (
	recEvent      = 'E'
	recAction     = 'A'
	recRecurrence = 'R'
	recAttribute  = 'T'
	recDBusArg    = 'D'
)

// EncodeEvent writes e to w in the queue file's tagged wire format.
func EncodeEvent(w *bufio.Writer, e *alarm.Event) error {
	if err := w.WriteByte(recEvent); err != nil {
		return err
	}
	putInt(w, "cookie", tagInt32, int64(e.Cookie))
	putString(w, "app_id", e.AppID)
	putString(w, "title", e.Title)
	putString(w, "message", e.Message)
	putString(w, "sound", e.Sound)
	putString(w, "icon", e.Icon)
	putUint(w, "flags", tagUint32, uint64(e.Flags))
	putInt(w, "trigger", tagInt64, e.Trigger)
	putInt(w, "alarm_time", tagInt64, e.AlarmTime)
	putBool(w, "has_broken_down", e.HasBrokenDown)
	if e.HasBrokenDown {
		bd := e.BrokenDown
		putIntArray(w, "broken_down", []int64{
			int64(bd.Year), int64(bd.Month), int64(bd.Day),
			int64(bd.Hour), int64(bd.Minute), int64(bd.Second), int64(bd.Weekday),
		})
	}
	putString(w, "timezone", e.Timezone)
	putInt(w, "recur_secs", tagInt64, e.RecurSecs)
	putInt(w, "recur_count", tagInt32, int64(e.RecurCount))
	putInt(w, "snooze_secs", tagInt64, e.SnoozeSecs)
	putInt(w, "snooze_total", tagInt64, e.SnoozeTotal)

	putUint(w, "actions_count", tagUint32, uint64(len(e.Actions)))
	for i := range e.Actions {
		encodeAction(w, &e.Actions[i])
	}
	putUint(w, "recurrences_count", tagUint32, uint64(len(e.Recurrences)))
	for i := range e.Recurrences {
		encodeRecurrence(w, &e.Recurrences[i])
	}
	putUint(w, "attributes_count", tagUint32, uint64(len(e.Attributes)))
	for i := range e.Attributes {
		encodeAttribute(w, &e.Attributes[i])
	}

	return endRecord(w)
}

func encodeAction(w *bufio.Writer, a *alarm.Action) {
	w.WriteByte(recAction)
	putUint(w, "flags", tagUint32, uint64(a.Flags))
	putString(w, "label", a.Label)
	putString(w, "exec", a.Exec)
	putString(w, "ipc_service", a.IPC.Service)
	putString(w, "ipc_object", a.IPC.Object)
	putString(w, "ipc_interface", a.IPC.Interface)
	putString(w, "ipc_member", a.IPC.Member)
	putUint(w, "ipc_args_count", tagUint32, uint64(len(a.IPC.Args)))
	for _, arg := range a.IPC.Args {
		encodeDBusArg(w, arg)
	}
	endRecord(w)
}

func encodeDBusArg(w *bufio.Writer, arg alarm.DBusArg) {
	w.WriteByte(recDBusArg)
	putString(w, "signature", arg.Signature)
	putAny(w, "value", arg.Value)
	endRecord(w)
}

func encodeRecurrence(w *bufio.Writer, r *alarm.Recurrence) {
	w.WriteByte(recRecurrence)
	putUint(w, "mask_min", tagUint64, r.MaskMin)
	putUint(w, "mask_hour", tagUint32, uint64(r.MaskHour))
	putUint(w, "mask_mday", tagUint32, uint64(r.MaskMDay))
	putUint(w, "mask_wday", tagUint8, uint64(r.MaskWDay))
	putUint(w, "mask_month", tagUint16, uint64(r.MaskMonth))
	putInt(w, "special", tagInt32, int64(r.Special))
	endRecord(w)
}

func encodeAttribute(w *bufio.Writer, a *alarm.Attribute) {
	w.WriteByte(recAttribute)
	putString(w, "name", a.Name)
	putInt(w, "kind", tagInt32, int64(a.Kind))
	putInt(w, "int", tagInt64, a.Int)
	putInt(w, "time", tagInt64, a.Time)
	putString(w, "str", a.Str)
	endRecord(w)
}

// DecodeEvent reads one Event record from r.
func DecodeEvent(r *bufio.Reader) (*alarm.Event, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker != recEvent {
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "expected event record, got tag %q", marker)
	}
	e := &alarm.Event{AlarmTime: alarm.AlarmTimeUnset}
	err = readFields(r, func(name string) error {
		switch name {
		case "cookie":
			v, err := getInt(r, tagInt32)
			e.Cookie = alarm.Cookie(v)
			return err
		case "app_id":
			e.AppID, err = getString(r)
			return err
		case "title":
			e.Title, err = getString(r)
			return err
		case "message":
			e.Message, err = getString(r)
			return err
		case "sound":
			e.Sound, err = getString(r)
			return err
		case "icon":
			e.Icon, err = getString(r)
			return err
		case "flags":
			v, err := getUint(r, tagUint32)
			e.Flags = alarm.Flags(v)
			return err
		case "trigger":
			e.Trigger, err = getInt(r, tagInt64)
			return err
		case "alarm_time":
			e.AlarmTime, err = getInt(r, tagInt64)
			return err
		case "has_broken_down":
			e.HasBrokenDown, err = getBool(r)
			return err
		case "broken_down":
			vals, err := getIntArray(r)
			if err != nil {
				return err
			}
			if len(vals) != 7 {
				return alarmerr.New(alarmerr.KindExternalCorruption, "broken_down: expected 7 fields, got %d", len(vals))
			}
			e.BrokenDown = alarm.BrokenDown{
				Year: int(vals[0]), Month: int(vals[1]), Day: int(vals[2]),
				Hour: int(vals[3]), Minute: int(vals[4]), Second: int(vals[5]),
				Weekday: int(vals[6]),
			}
			return nil
		case "timezone":
			e.Timezone, err = getString(r)
			return err
		case "recur_secs":
			e.RecurSecs, err = getInt(r, tagInt64)
			return err
		case "recur_count":
			v, err := getInt(r, tagInt32)
			e.RecurCount = int32(v)
			return err
		case "snooze_secs":
			e.SnoozeSecs, err = getInt(r, tagInt64)
			return err
		case "snooze_total":
			e.SnoozeTotal, err = getInt(r, tagInt64)
			return err
		case "actions_count":
			n, err := getUint(r, tagUint32)
			if err != nil || n == 0 {
				return err
			}
			e.Actions = make([]alarm.Action, n)
			for i := range e.Actions {
				a, err := decodeAction(r)
				if err != nil {
					return err
				}
				e.Actions[i] = *a
			}
			return nil
		case "recurrences_count":
			n, err := getUint(r, tagUint32)
			if err != nil || n == 0 {
				return err
			}
			e.Recurrences = make([]alarm.Recurrence, n)
			for i := range e.Recurrences {
				rec, err := decodeRecurrence(r)
				if err != nil {
					return err
				}
				e.Recurrences[i] = *rec
			}
			return nil
		case "attributes_count":
			n, err := getUint(r, tagUint32)
			if err != nil || n == 0 {
				return err
			}
			e.Attributes = make([]alarm.Attribute, n)
			for i := range e.Attributes {
				attr, err := decodeAttribute(r)
				if err != nil {
					return err
				}
				e.Attributes[i] = *attr
			}
			return nil
		default:
			return skipValue(r)
		}
	})
	return e, err
}

func decodeAction(r *bufio.Reader) (*alarm.Action, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker != recAction {
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "expected action record, got tag %q", marker)
	}
	a := &alarm.Action{}
	err = readFields(r, func(name string) error {
		switch name {
		case "flags":
			v, err := getUint(r, tagUint32)
			a.Flags = alarm.ActionFlags(v)
			return err
		case "label":
			a.Label, err = getString(r)
			return err
		case "exec":
			a.Exec, err = getString(r)
			return err
		case "ipc_service":
			a.IPC.Service, err = getString(r)
			return err
		case "ipc_object":
			a.IPC.Object, err = getString(r)
			return err
		case "ipc_interface":
			a.IPC.Interface, err = getString(r)
			return err
		case "ipc_member":
			a.IPC.Member, err = getString(r)
			return err
		case "ipc_args_count":
			n, err := getUint(r, tagUint32)
			if err != nil || n == 0 {
				return err
			}
			a.IPC.Args = make([]alarm.DBusArg, n)
			for i := range a.IPC.Args {
				arg, err := decodeDBusArg(r)
				if err != nil {
					return err
				}
				a.IPC.Args[i] = *arg
			}
			return nil
		default:
			return skipValue(r)
		}
	})
	return a, err
}

func decodeDBusArg(r *bufio.Reader) (*alarm.DBusArg, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker != recDBusArg {
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "expected dbus-arg record, got tag %q", marker)
	}
	arg := &alarm.DBusArg{}
	err = readFields(r, func(name string) error {
		switch name {
		case "signature":
			arg.Signature, err = getString(r)
			return err
		case "value":
			arg.Value, err = getAny(r)
			return err
		default:
			return skipValue(r)
		}
	})
	return arg, err
}

func decodeRecurrence(r *bufio.Reader) (*alarm.Recurrence, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker != recRecurrence {
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "expected recurrence record, got tag %q", marker)
	}
	rec := &alarm.Recurrence{}
	err = readFields(r, func(name string) error {
		switch name {
		case "mask_min":
			rec.MaskMin, err = getUint(r, tagUint64)
			return err
		case "mask_hour":
			v, err := getUint(r, tagUint32)
			rec.MaskHour = uint32(v)
			return err
		case "mask_mday":
			v, err := getUint(r, tagUint32)
			rec.MaskMDay = uint32(v)
			return err
		case "mask_wday":
			v, err := getUint(r, tagUint8)
			rec.MaskWDay = uint8(v)
			return err
		case "mask_month":
			v, err := getUint(r, tagUint16)
			rec.MaskMonth = uint16(v)
			return err
		case "special":
			v, err := getInt(r, tagInt32)
			rec.Special = alarm.Special(v)
			return err
		default:
			return skipValue(r)
		}
	})
	return rec, err
}

func decodeAttribute(r *bufio.Reader) (*alarm.Attribute, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker != recAttribute {
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "expected attribute record, got tag %q", marker)
	}
	a := &alarm.Attribute{}
	err = readFields(r, func(name string) error {
		switch name {
		case "name":
			a.Name, err = getString(r)
			return err
		case "kind":
			v, err := getInt(r, tagInt32)
			a.Kind = alarm.AttrKind(v)
			return err
		case "int":
			a.Int, err = getInt(r, tagInt64)
			return err
		case "time":
			a.Time, err = getInt(r, tagInt64)
			return err
		case "str":
			a.Str, err = getString(r)
			return err
		default:
			return skipValue(r)
		}
	})
	return a, err
}

// --- field framing ---

func putInt(w *bufio.Writer, name string, tag byte, v int64) {
	putFieldName(w, name)
	w.WriteByte(tag)
	w.WriteString(strconv.FormatInt(v, 10))
	w.WriteByte(';')
}

func putUint(w *bufio.Writer, name string, tag byte, v uint64) {
	putFieldName(w, name)
	w.WriteByte(tag)
	w.WriteString(strconv.FormatUint(v, 10))
	w.WriteByte(';')
}

func putBool(w *bufio.Writer, name string, v bool) {
	putFieldName(w, name)
	w.WriteByte(tagBool)
	if v {
		w.WriteString("1")
	} else {
		w.WriteString("0")
	}
	w.WriteByte(';')
}

func putString(w *bufio.Writer, name, v string) {
	putFieldName(w, name)
	w.WriteByte(tagString)
	w.WriteString(escapeString(v))
	w.WriteByte(';')
}

func putIntArray(w *bufio.Writer, name string, vals []int64) {
	putFieldName(w, name)
	w.WriteByte(tagArray)
	w.WriteByte(tagInt64)
	w.WriteString(strconv.Itoa(len(vals)))
	w.WriteByte(';')
	for _, v := range vals {
		w.WriteString(strconv.FormatInt(v, 10))
		w.WriteByte(';')
	}
	w.WriteByte(arrayClose)
}

func putAny(w *bufio.Writer, name string, v interface{}) {
	putFieldName(w, name)
	switch val := v.(type) {
	case nil:
		w.WriteByte(tagBool)
		w.WriteString("0")
		w.WriteByte(';')
	case string:
		w.WriteByte(tagString)
		w.WriteString(escapeString(val))
		w.WriteByte(';')
	case bool:
		w.WriteByte(tagBool)
		if val {
			w.WriteString("1")
		} else {
			w.WriteString("0")
		}
		w.WriteByte(';')
	case int64:
		w.WriteByte(tagInt64)
		w.WriteString(strconv.FormatInt(val, 10))
		w.WriteByte(';')
	case uint64:
		w.WriteByte(tagUint64)
		w.WriteString(strconv.FormatUint(val, 10))
		w.WriteByte(';')
	case float64:
		w.WriteByte(tagDouble)
		w.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		w.WriteByte(';')
	default:
		// unknown dbus argument types serialize as their string form;
		// this keeps the queue file valid even for argument kinds this
		// process doesn't natively model.
		w.WriteByte(tagString)
		w.WriteString(escapeString(fmt.Sprintf("%v", val)))
		w.WriteByte(';')
	}
}

func putFieldName(w *bufio.Writer, name string) {
	w.WriteByte(tagString)
	w.WriteString(escapeString(name))
	w.WriteByte(';')
}

func endRecord(w *bufio.Writer) error {
	w.WriteByte(tagString)
	w.WriteByte(';')
	return w.Flush()
}

// readFields reads name/value pairs until the empty-name sentinel,
// invoking handle for every field name; handle is responsible for
// consuming exactly the one value that follows (or calling skipValue).
func readFields(r *bufio.Reader, handle func(name string) error) error {
	for {
		tag, err := r.ReadByte()
		if err != nil {
			return err
		}
		if tag != tagString {
			return alarmerr.New(alarmerr.KindExternalCorruption, "expected field-name tag, got %q", tag)
		}
		name, err := readEscapedUntilSemicolon(r)
		if err != nil {
			return err
		}
		if name == "" {
			return nil
		}
		if err := handle(name); err != nil {
			return err
		}
	}
}

func getInt(r *bufio.Reader, want byte) (int64, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if tag != want {
		return 0, alarmerr.New(alarmerr.KindExternalCorruption, "expected tag %q, got %q", want, tag)
	}
	raw, err := scanUntilSemicolon(r)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func getUint(r *bufio.Reader, want byte) (uint64, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if tag != want {
		return 0, alarmerr.New(alarmerr.KindExternalCorruption, "expected tag %q, got %q", want, tag)
	}
	raw, err := scanUntilSemicolon(r)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(raw, 10, 64)
}

func getBool(r *bufio.Reader) (bool, error) {
	v, err := getUint(r, tagBool)
	return v != 0, err
}

func getString(r *bufio.Reader) (string, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if tag != tagString && tag != tagObject && tag != tagSig {
		return "", alarmerr.New(alarmerr.KindExternalCorruption, "expected a string-family tag, got %q", tag)
	}
	return readEscapedUntilSemicolon(r)
}

func getIntArray(r *bufio.Reader) ([]int64, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag != tagArray {
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "expected array tag, got %q", tag)
	}
	elemTag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	countRaw, err := scanUntilSemicolon(r)
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(countRaw)
	if err != nil {
		return nil, err
	}
	out := make([]int64, count)
	for i := 0; i < count; i++ {
		raw, err := scanUntilSemicolon(r)
		if err != nil {
			return nil, err
		}
		switch elemTag {
		case tagInt8, tagInt16, tagInt32, tagInt64:
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case tagUint8, tagUint16, tagUint32, tagUint64:
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, err
			}
			out[i] = int64(v)
		default:
			return nil, alarmerr.New(alarmerr.KindExternalCorruption, "unsupported int-array element tag %q", elemTag)
		}
	}
	closeTag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if closeTag != arrayClose {
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "expected array close, got %q", closeTag)
	}
	return out, nil
}

func getAny(r *bufio.Reader) (interface{}, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	raw, err := scanUntilSemicolon(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagString, tagObject, tagSig:
		return unescapeString(raw)
	case tagBool:
		return raw == "1", nil
	case tagInt8, tagInt16, tagInt32, tagInt64:
		return strconv.ParseInt(raw, 10, 64)
	case tagUint8, tagUint16, tagUint32, tagUint64:
		return strconv.ParseUint(raw, 10, 64)
	case tagDouble:
		return strconv.ParseFloat(raw, 64)
	default:
		return nil, alarmerr.New(alarmerr.KindExternalCorruption, "unsupported value tag %q", tag)
	}
}

// skipValue consumes one generic value (the field name has already been
// read) without interpreting it; this is what lets decoders tolerate
// fields a newer writer appended that this binary doesn't know about.
func skipValue(r *bufio.Reader) error {
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	return skipBody(r, tag)
}

func skipBody(r *bufio.Reader, tag byte) error {
	if tag == tagArray {
		elemTag, err := r.ReadByte()
		if err != nil {
			return err
		}
		countRaw, err := scanUntilSemicolon(r)
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(countRaw)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if elemTag == tagArray {
				if err := skipBody(r, elemTag); err != nil {
					return err
				}
				continue
			}
			if _, err := scanUntilSemicolon(r); err != nil {
				return err
			}
		}
		closeTag, err := r.ReadByte()
		if err != nil {
			return err
		}
		if closeTag != arrayClose {
			return alarmerr.New(alarmerr.KindExternalCorruption, "expected array close, got %q", closeTag)
		}
		return nil
	}
	_, err := scanUntilSemicolon(r)
	return err
}

// scanUntilSemicolon reads raw (still-escaped) bytes up to, and
// consuming, the first unescaped ';'. Every value encoding in this file
// guarantees ';' appears unescaped only as its own terminator, so a
// literal byte scan is enough regardless of the tag.
func scanUntilSemicolon(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == ';' {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

func readEscapedUntilSemicolon(r *bufio.Reader) (string, error) {
	raw, err := scanUntilSemicolon(r)
	if err != nil {
		return "", err
	}
	return unescapeString(raw)
}

func escapeString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			out = append(out, '\\', '\\')
		case c == ';':
			out = append(out, '\\', 'x', '3', 'b')
		case c == '\b':
			out = append(out, '\\', 'b')
		case c == '\n':
			out = append(out, '\\', 'n')
		case c == '\r':
			out = append(out, '\\', 'r')
		case c == '\t':
			out = append(out, '\\', 't')
		case c < 0x20 || c > 0x7e:
			out = append(out, '\\', 'x', hexDigit(c>>4), hexDigit(c&0xf))
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

func hexDigit(v byte) byte {
	if v < 10 {
		return '0' + v
	}
	return 'a' + (v - 10)
}

func unescapeString(s string) (string, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return "", alarmerr.New(alarmerr.KindExternalCorruption, "truncated escape sequence")
		}
		switch s[i] {
		case '\\':
			out = append(out, '\\')
		case 'b':
			out = append(out, '\b')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'x':
			if i+2 >= len(s) {
				return "", alarmerr.New(alarmerr.KindExternalCorruption, "truncated hex escape")
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", alarmerr.Wrap(alarmerr.KindExternalCorruption, err)
			}
			out = append(out, byte(v))
			i += 2
		default:
			return "", alarmerr.New(alarmerr.KindExternalCorruption, "unknown escape sequence \\%c", s[i])
		}
	}
	return string(out), nil
}
