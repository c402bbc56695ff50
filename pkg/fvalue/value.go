// Package fvalue defines the tagged value representation used throughout
// the foundation logging pipeline in place of bare interface{}.
package fvalue

import (
	"fmt"
	"math"
	"sort"
)

// Kind identifies the concrete shape held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Value is a closed sum type for anything that can appear as a field in an
// Event. It is immutable once constructed; composite constructors (List,
// Map) copy their inputs so callers may keep mutating the slices/maps they
// passed in without affecting the Value.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	bytes   []byte
	list    []Value
	m       *OrderedMap
	err     error
	inexact bool
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(v bool) Value          { return Value{kind: KindBool, b: v} }
func Int(v int64) Value          { return Value{kind: KindInt, i: v} }
func Float(v float64) Value      { return Value{kind: KindFloat, f: v} }
func String(v string) Value      { return Value{kind: KindString, s: v} }
func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, bytes: cp}
}
func Err(err error) Value {
	return Value{kind: KindError, err: err}
}

// List builds a Value wrapping an ordered sequence of child values.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Map builds a Value wrapping a copy of an OrderedMap of child values.
func Map(m *OrderedMap) Value {
	return Value{kind: KindMap, m: m.Clone()}
}

func (v Value) Kind() Kind { return v.kind }

// IsInexact reports whether v (or, for List/Map, one of its descendants)
// was produced by From's best-effort fallback rather than an exact type
// match — the signal callers use to record a serialization_error field.
func (v Value) IsInexact() bool { return v.inexact }

func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsBytes() ([]byte, bool)    { return v.bytes, v.kind == KindBytes }
func (v Value) AsList() ([]Value, bool)    { return v.list, v.kind == KindList }
func (v Value) AsMap() (*OrderedMap, bool) { return v.m, v.kind == KindMap }
func (v Value) AsError() (error, bool)     { return v.err, v.kind == KindError }

// Equal reports deep structural equality, used by the event-set resolution
// algorithm's match-field comparisons (spec §4.2).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindBytes:
		return string(a.bytes) == string(b.bytes)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return a.m.Equal(b.m)
	case KindError:
		if a.err == nil || b.err == nil {
			return a.err == b.err
		}
		return a.err.Error() == b.err.Error()
	default:
		return false
	}
}

// maxNestingDepth bounds recursive conversion/rendering so a cyclic or
// pathologically deep structure degrades to a placeholder instead of
// overflowing the stack (spec.md §9: "bounded-depth traversal").
const maxNestingDepth = 32

// From converts an arbitrary Go value into a Value, best-effort. Unsupported
// types fall back to a string form produced by fmt.Sprintf("%+v", ...); the
// returned bool reports whether the conversion was exact, and the same
// signal is carried on the returned Value itself (Value.IsInexact) so it
// survives being passed around as a bare Value (e.g. inside a KV). Callers
// that assemble Events — pipeline.NewEvent, pipeline.ApplyBoundContext —
// are responsible for turning an inexact Value into a recorded
// serialization_error field.
func From(x interface{}) (val Value, exact bool) {
	return fromDepth(x, 0)
}

func fromDepth(x interface{}, depth int) (val Value, exact bool) {
	if depth >= maxNestingDepth {
		v := String("<cycle>")
		v.inexact = true
		return v, false
	}
	switch t := x.(type) {
	case nil:
		return Null(), true
	case Value:
		return t, true
	case bool:
		return Bool(t), true
	case string:
		return String(t), true
	case []byte:
		return Bytes(t), true
	case error:
		return Err(t), true
	case int:
		return Int(int64(t)), true
	case int8:
		return Int(int64(t)), true
	case int16:
		return Int(int64(t)), true
	case int32:
		return Int(int64(t)), true
	case int64:
		return Int(t), true
	case uint:
		return Int(int64(t)), true
	case uint8:
		return Int(int64(t)), true
	case uint16:
		return Int(int64(t)), true
	case uint32:
		return Int(int64(t)), true
	case uint64:
		return Int(int64(t)), true
	case float32:
		return Float(float64(t)), true
	case float64:
		return Float(t), true
	case []interface{}:
		items := make([]Value, len(t))
		allExact := true
		for i, e := range t {
			v, ok := fromDepth(e, depth+1)
			items[i] = v
			allExact = allExact && ok
		}
		lv := List(items...)
		lv.inexact = !allExact
		return lv, allExact
	case map[string]interface{}:
		m := NewOrderedMap()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		allExact := true
		for _, k := range keys {
			v, ok := fromDepth(t[k], depth+1)
			m.Set(k, v)
			allExact = allExact && ok
		}
		mv := Map(m)
		mv.inexact = !allExact
		return mv, allExact
	default:
		v := String(fmt.Sprintf("%+v", x))
		v.inexact = true
		return v, false
	}
}

// RenderText renders a Value in the compact key_value form used by the
// text formatter: quoted only when it contains a space/reserved char.
func RenderText(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return fmt.Sprintf("%v", v.f)
		}
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return quoteIfNeeded(v.s)
	case KindBytes:
		return quoteIfNeeded(string(v.bytes))
	case KindError:
		if v.err == nil {
			return "null"
		}
		return quoteIfNeeded(v.err.Error())
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = RenderText(e)
		}
		return "[" + joinComma(parts) + "]"
	case KindMap:
		parts := make([]string, 0, v.m.Len())
		for _, k := range v.m.Keys() {
			val, _ := v.m.Get(k)
			parts = append(parts, k+":"+RenderText(val))
		}
		return "{" + joinComma(parts) + "}"
	default:
		return ""
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		switch r {
		case ' ', '"', '=', '\t', '\n', '\r':
			return true
		}
	}
	return false
}

func quoteIfNeeded(s string) string {
	if !needsQuote(s) {
		return s
	}
	return fmt.Sprintf("%q", s)
}
