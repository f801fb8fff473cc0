// Package value implements Quillmark's uniform JSON-compatible Value type,
// the single interchange currency between the YAML frontmatter parser, the
// schema engine, the glue template engine, and backends.
package value

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a sum type over {Null, Bool, Number, String, Array, Object}.
// Object preserves key insertion order.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	isInt  bool
	i      int64
	s      string
	arr    []Value
	obj    *OrderedMap
}

// OrderedMap is a String->Value mapping that preserves insertion order.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: map[string]Value{}}
}

func (m *OrderedMap) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *OrderedMap) Len() int { return len(m.keys) }

func (m *OrderedMap) Clone() *OrderedMap {
	n := NewOrderedMap()
	for _, k := range m.keys {
		n.Set(k, m.values[k])
	}
	return n
}

// Constructors

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Int(i int64) Value           { return Value{kind: KindNumber, isInt: true, i: i, n: float64(i)} }
func Float(f float64) Value       { return Value{kind: KindNumber, n: f} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func Array(items []Value) Value   { return Value{kind: KindArray, arr: items} }
func Object(m *OrderedMap) Value  { return Value{kind: KindObject, obj: m} }

func EmptyObject() Value { return Object(NewOrderedMap()) }

// Predicates / accessors

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsString() bool { return v.kind == KindString }

func (v Value) AsStr() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsI64() (int64, bool) {
	if v.kind != KindNumber || !v.isInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsF64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) AsObject() (*OrderedMap, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// String renders a best-effort scalar representation, used by filters and
// coercion that need a textual form regardless of kind.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		if v.isInt {
			return fmt.Sprintf("%d", v.i)
		}
		return fmt.Sprintf("%g", v.n)
	case KindString:
		return v.s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Clone produces a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Clone()
		}
		return Array(out)
	case KindObject:
		return Object(v.obj.Clone())
	default:
		return v
	}
}

// FromYAML converts a decoded yaml.v3 node (via Decode into `any`) into a Value.
func FromYAML(node *yaml.Node) (Value, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return Value{}, err
	}
	return FromAny(raw), nil
}

// FromAny converts a generic Go value (as produced by yaml.v3 or
// encoding/json unmarshaling into `any`) into a Value.
func FromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		if x == float64(int64(x)) {
			return Int(int64(x))
		}
		return Float(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		f, _ := x.Float64()
		return Float(f)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromAny(item)
		}
		return Array(items)
	case map[string]any:
		m := NewOrderedMap()
		for k, v := range x {
			m.Set(k, FromAny(v))
		}
		return Object(m)
	case map[any]any:
		m := NewOrderedMap()
		for k, v := range x {
			m.Set(fmt.Sprintf("%v", k), FromAny(v))
		}
		return Object(m)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// ToAny converts a Value back into a generic Go value suitable for
// encoding/json or text/template consumption.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		if v.isInt {
			return v.i
		}
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.Keys() {
			val, _ := v.obj.Get(k)
			out[k] = val.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler, preserving object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if v.isInt {
			return json.Marshal(v.i)
		}
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		var buf []byte
		buf = append(buf, '{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			val, _ := v.obj.Get(k)
			vb, err := val.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return []byte("null"), nil
	}
}
