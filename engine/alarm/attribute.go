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

package alarm

// AttrKind tags which field of Attribute is meaningful.
type AttrKind int

const (
	// AttrNull carries no value.
	AttrNull AttrKind = iota
	// AttrInt carries Int.
	AttrInt
	// AttrTime carries Time (a unix second count, kept distinct from
	// AttrInt so callers round-trip it through the queue codec as a
	// time-typed field rather than a bare integer).
	AttrTime
	// AttrString carries Str.
	AttrString
)

// Attribute is an opaque name/value pair an application can stash on an
// event for its own later retrieval; the core never interprets these.
type Attribute struct {
	Name string
	Kind AttrKind
	Int  int64
	Time int64
	Str  string
}

// NullAttribute builds a null-valued attribute.
func NullAttribute(name string) Attribute { return Attribute{Name: name, Kind: AttrNull} }

// IntAttribute builds an integer-valued attribute.
func IntAttribute(name string, v int64) Attribute {
	return Attribute{Name: name, Kind: AttrInt, Int: v}
}

// TimeAttribute builds a time-valued attribute.
func TimeAttribute(name string, v int64) Attribute {
	return Attribute{Name: name, Kind: AttrTime, Time: v}
}

// StringAttribute builds a string-valued attribute.
func StringAttribute(name string, v string) Attribute {
	return Attribute{Name: name, Kind: AttrString, Str: v}
}
