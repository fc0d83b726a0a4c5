// Package codec decodes JSON-RPC results into registered Go types.
//
// Decoding runs in two passes. The raw result is first parsed into a generic
// tree, "$ref" markers are replaced by the nodes they name and objects
// carrying an "@id" are indexed so later integer references to them can be
// followed. The tree is then materialized against the Go type derived from
// the declared ReturnType. A node reached twice for the same Go type yields
// the same Go value, so shared pointers and cycles survive decoding.
package codec

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"time"

	"github.com/mnehpets/openbis/decycle"
)

// IDKey is the member openBIS uses to number objects that may be referenced
// again by that number later in the same document.
const IDKey = "@id"

var unmarshalerType = reflect.TypeFor[json.Unmarshaler]()

// Decoder materializes JSON results. It is safe for concurrent use.
type Decoder struct {
	reg     *Registry
	typeKey string
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithTypeKey changes the member holding polymorphic type names.
func WithTypeKey(key string) Option {
	return func(d *Decoder) { d.typeKey = key }
}

// NewDecoder returns a Decoder resolving names against reg.
func NewDecoder(reg *Registry, opts ...Option) *Decoder {
	d := &Decoder{reg: reg, typeKey: decycle.DefaultTypeKey}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry returns the registry the decoder resolves names against.
func (d *Decoder) Registry() *Registry {
	return d.reg
}

// Decode converts raw into the Go value described by rt:
//   - Opaque: the generic tree (map[string]any, []any, json.Number, ...)
//   - Scalar: a value of the registered type, nil for JSON null
//   - List: a typed slice in input order
//   - Map: a typed map with the same key set
//
// On failure Decode returns a nil value and a *DecodeError.
func (d *Decoder) Decode(rt ReturnType, raw []byte) (any, error) {
	gt, err := d.reg.goType(rt)
	if err != nil {
		return nil, err
	}
	root, ids, err := d.parse(raw)
	if err != nil {
		return nil, err
	}
	switch rt.(type) {
	case nil, OpaqueType:
		return root, nil
	}
	if gt == nil || root == nil {
		return nil, nil
	}
	st := d.newState(ids)
	v, err := st.value(root, gt, decycle.Root)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// DecodeInto decodes raw into the value pointed to by dst.
func (d *Decoder) DecodeInto(raw []byte, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &DecodeError{Path: decycle.Root, Reason: fmt.Sprintf("destination must be a non-nil pointer, got %T", dst)}
	}
	root, ids, err := d.parse(raw)
	if err != nil {
		return err
	}
	st := d.newState(ids)
	v, err := st.value(root, rv.Type().Elem(), decycle.Root)
	if err != nil {
		return err
	}
	rv.Elem().Set(v)
	return nil
}

// Unmarshal decodes data into v using a Decoder over reg.
func Unmarshal(reg *Registry, data []byte, v any) error {
	return NewDecoder(reg).DecodeInto(data, v)
}

func (d *Decoder) parse(raw []byte) (any, map[string]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, nil, &DecodeError{Path: decycle.Root, Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, &DecodeError{Path: decycle.Root, Reason: "trailing data after JSON value"}
	}

	ids := make(map[string]map[string]any)
	indexIDs(root, ids)

	root, err := decycle.Resolve(root)
	if err != nil {
		var rerr *decycle.ReferenceError
		if errors.As(err, &rerr) {
			return nil, nil, &DecodeError{Path: rerr.At, Reason: "unresolved reference " + strconv.Quote(rerr.Path)}
		}
		return nil, nil, &DecodeError{Path: decycle.Root, Reason: "resolve references", Err: err}
	}
	return root, ids, nil
}

// indexIDs runs before references are resolved, while the tree is acyclic.
func indexIDs(node any, ids map[string]map[string]any) {
	switch n := node.(type) {
	case map[string]any:
		if id, ok := n[IDKey].(json.Number); ok {
			if _, dup := ids[id.String()]; !dup {
				ids[id.String()] = n
			}
		}
		for _, v := range n {
			indexIDs(v, ids)
		}
	case []any:
		for _, v := range n {
			indexIDs(v, ids)
		}
	}
}

type cacheKey struct {
	kind reflect.Kind
	node uintptr
	n    int
	typ  reflect.Type
}

type state struct {
	d      *Decoder
	ids    map[string]map[string]any
	done   map[cacheKey]reflect.Value
	active map[cacheKey]bool
}

func (d *Decoder) newState(ids map[string]map[string]any) *state {
	return &state{
		d:      d,
		ids:    ids,
		done:   make(map[cacheKey]reflect.Value),
		active: make(map[cacheKey]bool),
	}
}

func nodeKey(node any, t reflect.Type) (cacheKey, bool) {
	switch n := node.(type) {
	case map[string]any:
		return cacheKey{kind: reflect.Map, node: reflect.ValueOf(n).Pointer(), typ: t}, true
	case []any:
		if len(n) == 0 {
			return cacheKey{}, false
		}
		return cacheKey{kind: reflect.Slice, node: reflect.ValueOf(n).Pointer(), n: len(n), typ: t}, true
	}
	return cacheKey{}, false
}

// value returns a value of type t built from node.
func (s *state) value(node any, t reflect.Type, path string) (reflect.Value, error) {
	if node == nil {
		return reflect.Zero(t), nil
	}
	if num, ok := node.(json.Number); ok && acceptsObject(t) {
		if target, ok := s.ids[num.String()]; ok {
			node = target
		}
	}
	if t.Kind() == reflect.Interface {
		return s.iface(node, t, path)
	}

	key, identity := nodeKey(node, t)
	if identity {
		if v, ok := s.done[key]; ok {
			return v, nil
		}
	}

	switch t.Kind() {
	case reflect.Pointer:
		p := reflect.New(t.Elem())
		if identity {
			s.done[key] = p
		}
		if err := s.fill(node, p.Elem(), path); err != nil {
			return reflect.Value{}, err
		}
		return p, nil

	case reflect.Map:
		if isLeafType(t) {
			break
		}
		m, ok := node.(map[string]any)
		if !ok {
			return reflect.Value{}, typeMismatch(path, "object", node, t)
		}
		mv := reflect.MakeMapWithSize(t, len(m))
		if identity {
			s.done[key] = mv
		}
		if err := s.fillMap(m, mv, path); err != nil {
			return reflect.Value{}, err
		}
		return mv, nil

	case reflect.Slice:
		if isLeafType(t) {
			break
		}
		a, ok := node.([]any)
		if !ok {
			if str, isStr := node.(string); isStr && t.Elem().Kind() == reflect.Uint8 {
				b, err := base64.StdEncoding.DecodeString(str)
				if err != nil {
					return reflect.Value{}, &DecodeError{Path: path, Reason: "invalid base64", Err: err}
				}
				return reflect.ValueOf(b).Convert(t), nil
			}
			return reflect.Value{}, typeMismatch(path, "array", node, t)
		}
		sv := reflect.MakeSlice(t, len(a), len(a))
		if identity {
			s.done[key] = sv
		}
		for i, elem := range a {
			ev, err := s.value(elem, t.Elem(), decycle.Element(path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			sv.Index(i).Set(ev)
		}
		return sv, nil
	}

	if identity {
		if s.active[key] {
			return reflect.Value{}, &DecodeError{Path: path, Reason: fmt.Sprintf("cyclic reference into value type %v", t)}
		}
		s.active[key] = true
		defer delete(s.active, key)
	}
	v := reflect.New(t).Elem()
	if err := s.fill(node, v, path); err != nil {
		return reflect.Value{}, err
	}
	if identity {
		s.done[key] = v
	}
	return v, nil
}

// fill sets the addressable v from node.
func (s *state) fill(node any, v reflect.Value, path string) error {
	t := v.Type()

	if t == timeType {
		tm, err := parseTime(node)
		if err != nil {
			return &DecodeError{Path: path, Reason: "invalid date", Err: err}
		}
		v.Set(reflect.ValueOf(tm))
		return nil
	}
	if u, ok := v.Addr().Interface().(json.Unmarshaler); ok {
		b, err := json.Marshal(node)
		if err != nil {
			return &DecodeError{Path: path, Reason: "re-encode for " + t.String(), Err: err}
		}
		if err := u.UnmarshalJSON(b); err != nil {
			return &DecodeError{Path: path, Reason: "decode " + t.String(), Err: err}
		}
		return nil
	}
	if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		if str, isStr := node.(string); isStr {
			if err := u.UnmarshalText([]byte(str)); err != nil {
				return &DecodeError{Path: path, Reason: "decode " + t.String(), Err: err}
			}
			return nil
		}
	}

	switch t.Kind() {
	case reflect.Struct:
		m, ok := node.(map[string]any)
		if !ok {
			return typeMismatch(path, "object", node, t)
		}
		return s.fillStruct(m, v, path)

	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		cv, err := s.value(node, t, path)
		if err != nil {
			return err
		}
		v.Set(cv)
		return nil

	case reflect.Array:
		a, ok := node.([]any)
		if !ok {
			return typeMismatch(path, "array", node, t)
		}
		if len(a) > v.Len() {
			return &DecodeError{Path: path, Reason: fmt.Sprintf("array of %d does not fit %v", len(a), t)}
		}
		for i, elem := range a {
			ev, err := s.value(elem, t.Elem(), decycle.Element(path, i))
			if err != nil {
				return err
			}
			v.Index(i).Set(ev)
		}
		return nil

	case reflect.String:
		str, ok := node.(string)
		if !ok {
			return typeMismatch(path, "string", node, t)
		}
		v.SetString(str)
		return nil

	case reflect.Bool:
		b, ok := node.(bool)
		if !ok {
			return typeMismatch(path, "boolean", node, t)
		}
		v.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		num, ok := node.(json.Number)
		if !ok {
			return typeMismatch(path, "number", node, t)
		}
		n, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil || v.OverflowInt(n) {
			return &DecodeError{Path: path, Reason: fmt.Sprintf("number %s does not fit %v", num, t)}
		}
		v.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		num, ok := node.(json.Number)
		if !ok {
			return typeMismatch(path, "number", node, t)
		}
		n, err := strconv.ParseUint(num.String(), 10, 64)
		if err != nil || v.OverflowUint(n) {
			return &DecodeError{Path: path, Reason: fmt.Sprintf("number %s does not fit %v", num, t)}
		}
		v.SetUint(n)
		return nil

	case reflect.Float32, reflect.Float64:
		num, ok := node.(json.Number)
		if !ok {
			return typeMismatch(path, "number", node, t)
		}
		f, err := num.Float64()
		if err != nil || v.OverflowFloat(f) {
			return &DecodeError{Path: path, Reason: fmt.Sprintf("number %s does not fit %v", num, t)}
		}
		v.SetFloat(f)
		return nil
	}

	return &DecodeError{Path: path, Reason: "unsupported target type " + t.String()}
}

func (s *state) fillStruct(m map[string]any, v reflect.Value, path string) error {
	for _, f := range decycle.Fields(v.Type()) {
		member, ok := m[f.Name()]
		if !ok {
			continue
		}
		at := decycle.Member(path, f.Name())
		if f.Quoted() {
			if str, isStr := member.(string); isStr {
				member = unquote(str, f.Type())
			}
		}
		cv, err := s.value(member, f.Type(), at)
		if err != nil {
			return err
		}
		settableField(v, f.Index()).Set(cv)
	}
	return nil
}

func (s *state) fillMap(m map[string]any, mv reflect.Value, path string) error {
	t := mv.Type()
	for k, member := range m {
		kv, err := s.mapKey(k, t.Key(), path)
		if err != nil {
			return err
		}
		vv, err := s.value(member, t.Elem(), decycle.Member(path, k))
		if err != nil {
			return err
		}
		mv.SetMapIndex(kv, vv)
	}
	return nil
}

func (s *state) mapKey(k string, kt reflect.Type, path string) (reflect.Value, error) {
	if kt.Kind() == reflect.String && kt.Name() == "string" {
		return reflect.ValueOf(k), nil
	}
	if name, ok := s.d.reg.NameOf(kt); ok {
		if parse, ok := s.d.reg.keyParser(name); ok {
			parsed, err := parse(k)
			if err != nil {
				return reflect.Value{}, &DecodeError{Path: decycle.Member(path, k), Name: name, Reason: "invalid key", Err: err}
			}
			pv := reflect.ValueOf(parsed)
			if !pv.IsValid() || !pv.Type().AssignableTo(kt) {
				if pv.IsValid() && pv.Type().ConvertibleTo(kt) {
					return pv.Convert(kt), nil
				}
				return reflect.Value{}, &DecodeError{Path: decycle.Member(path, k), Name: name, Reason: fmt.Sprintf("key parser returned %T, want %v", parsed, kt)}
			}
			out := reflect.New(kt).Elem()
			out.Set(pv)
			return out, nil
		}
	}
	kp := reflect.New(kt)
	if u, ok := kp.Interface().(encoding.TextUnmarshaler); ok {
		if err := u.UnmarshalText([]byte(k)); err != nil {
			return reflect.Value{}, &DecodeError{Path: decycle.Member(path, k), Reason: "invalid key", Err: err}
		}
		return kp.Elem(), nil
	}
	switch kt.Kind() {
	case reflect.String:
		return reflect.ValueOf(k).Convert(kt), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil || reflect.Zero(kt).OverflowInt(n) {
			return reflect.Value{}, &DecodeError{Path: decycle.Member(path, k), Reason: "invalid integer key"}
		}
		return reflect.ValueOf(n).Convert(kt), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(k, 10, 64)
		if err != nil || reflect.Zero(kt).OverflowUint(n) {
			return reflect.Value{}, &DecodeError{Path: decycle.Member(path, k), Reason: "invalid integer key"}
		}
		return reflect.ValueOf(n).Convert(kt), nil
	}
	return reflect.Value{}, &DecodeError{Path: path, Reason: "unsupported map key type " + kt.String()}
}

// iface resolves an interface-typed target through the node's type member.
func (s *state) iface(node any, t reflect.Type, path string) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if m, ok := node.(map[string]any); ok {
		if name, ok := m[s.d.typeKey].(string); ok {
			ct, found := s.d.reg.Lookup(name)
			if found && ct != nil && ct.Kind() != reflect.Interface {
				if !ct.AssignableTo(t) {
					return reflect.Value{}, &DecodeError{Path: path, Name: name, Reason: fmt.Sprintf("%v does not implement %v", ct, t)}
				}
				cv, err := s.value(node, ct, path)
				if err != nil {
					return reflect.Value{}, err
				}
				out.Set(cv)
				return out, nil
			}
			if t.NumMethod() > 0 {
				return reflect.Value{}, &DecodeError{Path: path, Name: name, Reason: "unknown type name " + strconv.Quote(name)}
			}
		}
	}
	if t.NumMethod() > 0 {
		return reflect.Value{}, &DecodeError{Path: path, Reason: fmt.Sprintf("cannot decode %s into %v without %q", describe(node), t, s.d.typeKey)}
	}
	out.Set(reflect.ValueOf(node))
	return out, nil
}

// settableField walks index, allocating nil embedded pointers.
func settableField(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// acceptsObject reports whether a number in a slot of type t is an "@id"
// reference. Numbers stay numbers in empty interfaces, dates and types that
// decode themselves.
func acceptsObject(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return t != timeType && !reflect.PointerTo(t).Implements(unmarshalerType)
	case reflect.Interface:
		return t.NumMethod() > 0
	}
	return false
}

// isLeafType reports map and slice types that decode themselves.
func isLeafType(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(unmarshalerType)
}

func unquote(s string, t reflect.Type) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		var out string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
		return s
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s
	}
	return json.Number(s)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(node any) (time.Time, error) {
	switch n := node.(type) {
	case json.Number:
		ms, err := n.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	case string:
		var lastErr error
		for _, layout := range dateLayouts {
			t, err := time.Parse(layout, n)
			if err == nil {
				return t, nil
			}
			lastErr = err
		}
		return time.Time{}, lastErr
	}
	return time.Time{}, fmt.Errorf("expected epoch milliseconds or date string, got %s", describe(node))
}

func typeMismatch(path, want string, node any, t reflect.Type) error {
	return &DecodeError{Path: path, Reason: fmt.Sprintf("expected %s for %v, got %s", want, t, describe(node))}
}

func describe(node any) string {
	switch node.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", node)
}
