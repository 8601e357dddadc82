package jsondoc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a mutable JSON document node.
//
// Arrays and objects hold their elements by pointer, so a *Value obtained from
// Resolve can be mutated in place. Objects keep key insertion order and
// numbers keep their literal text.
type Value struct {
	kind   Kind
	b      bool
	s      string // string payload or number literal
	items  []*Value
	keys   []string
	fields map[string]*Value
}

// Field is a key/value pair used to build objects.
type Field struct {
	Key   string
	Value *Value
}

// Null returns a JSON null.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Number returns a JSON number holding the given literal.
func Number(n json.Number) *Value { return &Value{kind: KindNumber, s: n.String()} }

// Int returns a JSON number holding i.
func Int(i int) *Value { return &Value{kind: KindNumber, s: strconv.Itoa(i)} }

// Float returns a JSON number holding f. f must be finite.
func Float(f float64) *Value {
	return &Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// String returns a JSON string.
func String(s string) *Value { return &Value{kind: KindString, s: s} }

// Array returns a JSON array holding items in order.
func Array(items ...*Value) *Value {
	v := &Value{kind: KindArray, items: make([]*Value, 0, len(items))}
	for _, item := range items {
		v.items = append(v.items, orNull(item))
	}
	return v
}

// Object returns a JSON object holding fields in order.
func Object(fields ...Field) *Value {
	v := &Value{kind: KindObject, fields: make(map[string]*Value, len(fields))}
	for _, f := range fields {
		v.Set(f.Key, f.Value)
	}
	return v
}

func orNull(v *Value) *Value {
	if v == nil {
		return Null()
	}
	return v
}

// Kind returns the variant of v. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

func (v *Value) IsNull() bool   { return v.Kind() == KindNull }
func (v *Value) IsArray() bool  { return v.Kind() == KindArray }
func (v *Value) IsObject() bool { return v.Kind() == KindObject }

// AsBool returns the boolean payload.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// AsString returns the string payload.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.s, true
}

// AsNumber returns the number literal.
func (v *Value) AsNumber() (json.Number, bool) {
	if v.Kind() != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

// AsFloat returns the number payload as float64.
func (v *Value) AsFloat() (float64, bool) {
	if v.Kind() != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// AsInt returns the number payload as int. Integral floats such as 4.0 are accepted.
func (v *Value) AsInt() (int, bool) {
	if v.Kind() != KindNumber {
		return 0, false
	}
	if i, err := strconv.Atoi(v.s); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// Len returns the number of elements of an array or fields of an object.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.keys)
	}
	return 0
}

// Items returns the array elements. The returned slice is a copy; the elements are not.
func (v *Value) Items() []*Value {
	if v.Kind() != KindArray {
		return nil
	}
	return append([]*Value(nil), v.items...)
}

// Index returns the i-th array element.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != KindArray || i < 0 || i >= len(v.items) {
		return nil, false
	}
	return v.items[i], true
}

// Insert places item at position i, shifting later elements. i must be within [0, Len()].
func (v *Value) Insert(i int, item *Value) bool {
	if v.Kind() != KindArray || i < 0 || i > len(v.items) {
		return false
	}
	v.items = append(v.items, nil)
	copy(v.items[i+1:], v.items[i:])
	v.items[i] = orNull(item)
	return true
}

// Append adds item at the end of the array.
func (v *Value) Append(item *Value) bool {
	return v.Insert(v.Len(), item)
}

// SetIndex replaces the i-th array element.
func (v *Value) SetIndex(i int, item *Value) bool {
	if v.Kind() != KindArray || i < 0 || i >= len(v.items) {
		return false
	}
	v.items[i] = orNull(item)
	return true
}

// RemoveIndex deletes the i-th array element.
func (v *Value) RemoveIndex(i int) bool {
	if v.Kind() != KindArray || i < 0 || i >= len(v.items) {
		return false
	}
	v.items = append(v.items[:i], v.items[i+1:]...)
	return true
}

// Keys returns the object keys in insertion order.
func (v *Value) Keys() []string {
	if v.Kind() != KindObject {
		return nil
	}
	return append([]string(nil), v.keys...)
}

// Get returns the value stored under key.
func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != KindObject {
		return nil, false
	}
	field, ok := v.fields[key]
	return field, ok
}

// Lookup is Get with a case-insensitive fallback when no exact key exists.
func (v *Value) Lookup(key string) (*Value, bool) {
	if field, ok := v.Get(key); ok {
		return field, true
	}
	if v.Kind() != KindObject {
		return nil, false
	}
	for _, k := range v.keys {
		if strings.EqualFold(k, key) {
			return v.fields[k], true
		}
	}
	return nil, false
}

// Set stores item under key. New keys are appended; existing keys keep their position.
func (v *Value) Set(key string, item *Value) bool {
	if v.Kind() != KindObject {
		return false
	}
	if _, exists := v.fields[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = orNull(item)
	return true
}

// Delete removes key from the object.
func (v *Value) Delete(key string) bool {
	if v.Kind() != KindObject {
		return false
	}
	if _, exists := v.fields[key]; !exists {
		return false
	}
	delete(v.fields, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
	return true
}

// Clone returns a structural deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return Null()
	}
	out := &Value{kind: v.kind, b: v.b, s: v.s}
	switch v.kind {
	case KindArray:
		out.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
	case KindObject:
		out.keys = append([]string(nil), v.keys...)
		out.fields = make(map[string]*Value, len(v.fields))
		for k, field := range v.fields {
			out.fields[k] = field.Clone()
		}
	}
	return out
}

// Equal reports whether a and b hold the same document.
// Object key order is ignored; number literals are compared by value.
func Equal(a, b *Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindNumber:
		if a.s == b.s {
			return true
		}
		fa, okA := a.AsFloat()
		fb, okB := b.AsFloat()
		return okA && okB && fa == fb
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for k, field := range a.fields {
			other, ok := b.fields[k]
			if !ok || !Equal(field, other) {
				return false
			}
		}
		return true
	}
	return false
}
