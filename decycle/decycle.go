// Package decycle converts Go values that may contain shared or cyclic
// references into JSON-safe trees, and restores such trees.
//
// An identity-bearing value (a non-nil map, a non-empty slice, or a pointer
// to a struct, map, slice or array) is emitted in full the first time it is reached. Every later visit emits a
// reference marker carrying the path of the first occurrence:
//
//	{"$ref": "$[\"parent\"][\"children\"][0]"}
//
// Paths start at "$" for the root. Object members append ["key"] with the
// key JSON-quoted, array elements append [i]. Struct fields and map keys are
// visited in the order encoding/json writes them, so a marker always points
// to a node that precedes it in the serialized text.
package decycle

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const (
	// RefKey is the single member of a reference marker.
	RefKey = "$ref"

	// Root is the path of the encoded value itself.
	Root = "$"

	// DefaultTypeKey is the member added to values implementing TypeNamer.
	DefaultTypeKey = "@type"
)

// TypeNamer is implemented by values that carry a polymorphic type name on
// the wire. The name is written under the encoder's type key.
type TypeNamer interface {
	TypeName() string
}

// UnsupportedValueError is returned when a value cannot be represented in JSON.
type UnsupportedValueError struct {
	Path   string
	Type   reflect.Type
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("decycle: unsupported value at %s (%v): %s", e.Path, e.Type, e.Reason)
}

// Encoder tracks identities for a single value. An Encoder must not be
// reused across independent values; use Encode or a fresh Encoder.
type Encoder struct {
	// TypeKey overrides DefaultTypeKey when non-empty.
	TypeKey string

	seen map[identity]string
}

type identity struct {
	kind reflect.Kind
	typ  reflect.Type
	ptr  uintptr
	len  int
}

// NewEncoder returns an Encoder with an empty identity table.
func NewEncoder() *Encoder {
	return &Encoder{seen: make(map[identity]string)}
}

// Encode converts v into a JSON-safe tree using a fresh Encoder.
func Encode(v any) (any, error) {
	return NewEncoder().Encode(v)
}

// Encode converts v into a tree of map[string]any, []any and scalar values.
// Values implementing json.Marshaler are embedded as json.RawMessage.
func (e *Encoder) Encode(v any) (any, error) {
	if e.seen == nil {
		e.seen = make(map[identity]string)
	}
	if v == nil {
		return nil, nil
	}
	return e.encode(reflect.ValueOf(v), Root)
}

func (e *Encoder) typeKey() string {
	if e.TypeKey != "" {
		return e.TypeKey
	}
	return DefaultTypeKey
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	typeNamerType     = reflect.TypeFor[TypeNamer]()
	numberType        = reflect.TypeFor[json.Number]()
)

func (e *Encoder) encode(v reflect.Value, path string) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	// Marshalers are leaves. Nil pointers are left to the pointer case so
	// that value-receiver methods are never called through nil.
	if v.CanInterface() && v.Kind() != reflect.Interface && (v.Kind() != reflect.Pointer || !v.IsNil()) {
		if v.Type().Implements(jsonMarshalerType) {
			return marshalLeaf(v, path)
		}
		if v.Kind() != reflect.Pointer && v.CanAddr() && v.Addr().Type().Implements(jsonMarshalerType) {
			return marshalLeaf(v.Addr(), path)
		}
		if v.Type().Implements(textMarshalerType) {
			return marshalText(v, path)
		}
		if v.Kind() != reflect.Pointer && v.CanAddr() && v.Addr().Type().Implements(textMarshalerType) {
			return marshalText(v.Addr(), path)
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return e.encode(v.Elem(), path)

	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		if !referable(v.Elem()) {
			return e.encode(v.Elem(), path)
		}
		id := identity{kind: reflect.Pointer, typ: v.Type(), ptr: v.Pointer()}
		if ref, ok := e.seen[id]; ok {
			return marker(ref), nil
		}
		e.seen[id] = path
		if v.Elem().Kind() == reflect.Struct {
			return e.encodeStruct(v.Elem(), typeName(v), path)
		}
		return e.encode(v.Elem(), path)

	case reflect.Struct:
		name := ""
		if v.CanAddr() {
			name = typeName(v.Addr())
		} else {
			name = typeName(v)
		}
		return e.encodeStruct(v, name, path)

	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		id := identity{kind: reflect.Map, typ: v.Type(), ptr: v.Pointer()}
		if ref, ok := e.seen[id]; ok {
			return marker(ref), nil
		}
		e.seen[id] = path
		return e.encodeMap(v, path)

	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		if v.Len() > 0 {
			id := identity{kind: reflect.Slice, typ: v.Type(), ptr: v.Pointer(), len: v.Len()}
			if ref, ok := e.seen[id]; ok {
				return marker(ref), nil
			}
			e.seen[id] = path
		}
		return e.encodeArray(v, path)

	case reflect.Array:
		return e.encodeArray(v, path)

	case reflect.String:
		if v.Type() == numberType {
			return json.Number(v.String()), nil
		}
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &UnsupportedValueError{Path: path, Type: v.Type(), Reason: strconv.FormatFloat(f, 'g', -1, 64)}
		}
		return f, nil
	}

	return nil, &UnsupportedValueError{Path: path, Type: v.Type(), Reason: "kind " + v.Kind().String()}
}

func (e *Encoder) encodeStruct(v reflect.Value, name string, path string) (any, error) {
	fields := cachedFields(v.Type())
	out := make(map[string]any, len(fields)+1)
	if name != "" {
		out[e.typeKey()] = name
	}
	for _, f := range fields {
		fv, ok := fieldByIndex(v, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if name != "" && f.name == e.typeKey() {
			continue
		}
		child, err := e.encode(fv, Member(path, f.name))
		if err != nil {
			return nil, err
		}
		if f.quoted {
			child = quoteScalar(child)
		}
		out[f.name] = child
	}
	return out, nil
}

func (e *Encoder) encodeMap(v reflect.Value, path string) (any, error) {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := mapKey(iter.Key(), path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: k, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := make(map[string]any, len(entries))
	for _, en := range entries {
		child, err := e.encode(en.val, Member(path, en.key))
		if err != nil {
			return nil, err
		}
		out[en.key] = child
	}
	return out, nil
}

func (e *Encoder) encodeArray(v reflect.Value, path string) (any, error) {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		child, err := e.encode(v.Index(i), Element(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = child
	}
	return out, nil
}

// Member returns the path of object member key below parent.
func Member(parent, key string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Strings always encode.
	_ = enc.Encode(key)
	return parent + "[" + strings.TrimSuffix(buf.String(), "\n") + "]"
}

// Element returns the path of array element i below parent.
func Element(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

// referable reports whether v encodes to an object or array, the only nodes
// a marker may name. Pointers to anything else are written inline.
func referable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Struct, reflect.Array:
		return true
	case reflect.Map, reflect.Slice:
		return !v.IsNil()
	}
	return false
}

func marker(path string) map[string]any {
	return map[string]any{RefKey: path}
}

func typeName(v reflect.Value) string {
	if !v.CanInterface() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return ""
	}
	if !v.Type().Implements(typeNamerType) {
		return ""
	}
	return v.Interface().(TypeNamer).TypeName()
}

func marshalLeaf(v reflect.Value, path string) (any, error) {
	b, err := v.Interface().(json.Marshaler).MarshalJSON()
	if err != nil {
		return nil, &UnsupportedValueError{Path: path, Type: v.Type(), Reason: err.Error()}
	}
	if !json.Valid(b) {
		return nil, &UnsupportedValueError{Path: path, Type: v.Type(), Reason: "MarshalJSON returned invalid JSON"}
	}
	return json.RawMessage(b), nil
}

func marshalText(v reflect.Value, path string) (any, error) {
	b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return nil, &UnsupportedValueError{Path: path, Type: v.Type(), Reason: err.Error()}
	}
	return string(b), nil
}

func mapKey(k reflect.Value, path string) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		b, err := tm.MarshalText()
		if err != nil {
			return "", &UnsupportedValueError{Path: path, Type: k.Type(), Reason: err.Error()}
		}
		return string(b), nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", &UnsupportedValueError{Path: path, Type: k.Type(), Reason: "map key kind " + k.Kind().String()}
}

func quoteScalar(v any) any {
	switch x := v.(type) {
	case string:
		b, _ := json.Marshal(x)
		return string(b)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return v
}

// fieldByIndex walks embedded pointers, reporting false when one is nil.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
