package durable

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the closed set of value types the cell can hold.
// Dynamic typing is deliberately absent: every stored value carries one of
// these tags and accessors fail softly on a kind mismatch.
type Kind string

const (
	KindAbsent     Kind = ""
	KindBool       Kind = "bool"
	KindString     Kind = "string"
	KindStringList Kind = "string_list"
	KindInt64      Kind = "int64"
	KindTime       Kind = "time"
)

// Value is the tagged union stored in the cell. The zero Value is absent.
type Value struct {
	kind Kind
	b    bool
	s    string
	list []string
	i    int64
	t    time.Time
}

func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }
func String(v string) Value  { return Value{kind: KindString, s: v} }
func Int64(v int64) Value    { return Value{kind: KindInt64, i: v} }
func Time(v time.Time) Value { return Value{kind: KindTime, t: v.UTC()} }
func StringList(v []string) Value {
	cp := make([]string, len(v))
	copy(cp, v)
	return Value{kind: KindStringList, list: cp}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) Absent() bool { return v.kind == KindAbsent }

// AsBool returns the boolean payload; ok is false on a kind mismatch.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsInt64() (int64, bool) { return v.i, v.kind == KindInt64 }

func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// AsStringList returns a copy so callers cannot mutate the stored slice.
func (v Value) AsStringList() ([]string, bool) {
	if v.kind != KindStringList {
		return nil, false
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// Equal reports value-for-value equality, the comparison the migration
// verification step relies on.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindInt64:
		return v.i == o.i
	case KindTime:
		return v.t.Equal(o.t)
	case KindStringList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.b)
	case KindString:
		return fmt.Sprintf("string(%q)", v.s)
	case KindInt64:
		return fmt.Sprintf("int64(%d)", v.i)
	case KindTime:
		return fmt.Sprintf("time(%s)", v.t.Format(time.RFC3339))
	case KindStringList:
		return fmt.Sprintf("string_list(%v)", v.list)
	}
	return "<invalid>"
}

// envelope is the JSON shape used at the storage boundary.
type envelope struct {
	Bool *bool    `json:"bool,omitempty"`
	Str  *string  `json:"string,omitempty"`
	List []string `json:"list,omitempty"`
	Int  *int64   `json:"int,omitempty"`
	Time *string  `json:"time,omitempty"`
}

// Encode serializes the payload for storage. The kind travels separately so
// the store can keep it in its own column.
func (v Value) Encode() ([]byte, error) {
	var e envelope
	switch v.kind {
	case KindAbsent:
		return nil, fmt.Errorf("encode absent value")
	case KindBool:
		e.Bool = &v.b
	case KindString:
		e.Str = &v.s
	case KindInt64:
		e.Int = &v.i
	case KindTime:
		s := v.t.Format(time.RFC3339Nano)
		e.Time = &s
	case KindStringList:
		if v.list == nil {
			e.List = []string{}
		} else {
			e.List = v.list
		}
	default:
		return nil, fmt.Errorf("encode unknown kind %q", v.kind)
	}
	return json.Marshal(e)
}

// Decode reconstructs a Value from its stored kind and payload.
func Decode(kind Kind, payload []byte) (Value, error) {
	var e envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return Value{}, fmt.Errorf("decode value payload: %w", err)
	}
	switch kind {
	case KindBool:
		if e.Bool == nil {
			return Value{}, fmt.Errorf("bool payload missing")
		}
		return Bool(*e.Bool), nil
	case KindString:
		if e.Str == nil {
			return Value{}, fmt.Errorf("string payload missing")
		}
		return String(*e.Str), nil
	case KindInt64:
		if e.Int == nil {
			return Value{}, fmt.Errorf("int64 payload missing")
		}
		return Int64(*e.Int), nil
	case KindTime:
		if e.Time == nil {
			return Value{}, fmt.Errorf("time payload missing")
		}
		t, err := time.Parse(time.RFC3339Nano, *e.Time)
		if err != nil {
			return Value{}, fmt.Errorf("parse time payload: %w", err)
		}
		return Time(t), nil
	case KindStringList:
		if e.List == nil {
			e.List = []string{}
		}
		return StringList(e.List), nil
	}
	return Value{}, fmt.Errorf("decode unknown kind %q", kind)
}
