package codec

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"
)

// Built-in scalar names.
const (
	String  = "String"
	Boolean = "Boolean"
	Integer = "Integer"
	Long    = "Long"
	Double  = "Double"
	Date    = "Date"
	Object  = "Object"
	Void    = "Void"
)

// KeyParser converts a JSON object member name into a map key.
type KeyParser func(key string) (any, error)

// Registry maps type names to Go types. Names used in ReturnType values and
// the "@type" member of polymorphic JSON objects are both looked up here.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	types   map[string]reflect.Type
	names   map[reflect.Type]string
	parsers map[string]KeyParser
}

// NewRegistry returns a Registry holding the built-in scalars.
func NewRegistry() *Registry {
	r := &Registry{
		types:   make(map[string]reflect.Type),
		names:   make(map[reflect.Type]string),
		parsers: make(map[string]KeyParser),
	}
	r.register(String, reflect.TypeFor[string]())
	r.register(Boolean, reflect.TypeFor[bool]())
	r.register(Integer, reflect.TypeFor[int]())
	r.register(Long, reflect.TypeFor[int64]())
	r.register(Double, reflect.TypeFor[float64]())
	r.register(Date, reflect.TypeFor[time.Time]())
	r.register(Object, reflect.TypeFor[any]())
	r.types[Void] = nil

	r.parsers[String] = func(k string) (any, error) { return k, nil }
	r.parsers[Integer] = func(k string) (any, error) { return strconv.Atoi(k) }
	r.parsers[Long] = func(k string) (any, error) { return strconv.ParseInt(k, 10, 64) }
	return r
}

// Register binds name and any aliases to the type of proto. Pass a pointer
// (for example (*Sample)(nil)) to decode objects of that name as pointers.
// The first name registered for a type is its canonical name.
func (r *Registry) Register(name string, proto any, aliases ...string) {
	t := reflect.TypeOf(proto)
	if t == nil {
		panic("codec: Register " + name + ": nil prototype")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(name, t)
	for _, a := range aliases {
		r.register(a, t)
	}
}

// RegisterType is the generic form of Register.
func RegisterType[T any](r *Registry, name string, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := reflect.TypeFor[T]()
	r.register(name, t)
	for _, a := range aliases {
		r.register(a, t)
	}
}

func (r *Registry) register(name string, t reflect.Type) {
	if prev, ok := r.types[name]; ok && prev != t {
		panic(fmt.Sprintf("codec: type name %q already bound to %v", name, prev))
	}
	r.types[name] = t
	if _, ok := r.names[t]; !ok {
		r.names[t] = name
	}
}

// RegisterKey marks name as a composite key type: map keys of that type are
// parsed with parse instead of being kept as strings.
func (r *Registry) RegisterKey(name string, parse KeyParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[name] = parse
}

// Lookup returns the Go type registered under name.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// NameOf returns the canonical name registered for t.
func (r *Registry) NameOf(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.names[t]
	return n, ok
}

func (r *Registry) keyParser(name string) (KeyParser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	return p, ok
}

// goType returns the Go type a ReturnType materializes into. A nil type
// with a nil error means Void.
func (r *Registry) goType(rt ReturnType) (reflect.Type, error) {
	switch t := rt.(type) {
	case nil, OpaqueType:
		return anyType, nil
	case ScalarType:
		gt, ok := r.Lookup(t.Name)
		if !ok {
			return nil, &DecodeError{Path: "$", Name: t.Name, Reason: "unknown type name " + strconv.Quote(t.Name)}
		}
		return gt, nil
	case ListType:
		et, err := r.goType(t.Elem)
		if err != nil {
			return nil, err
		}
		if et == nil {
			return nil, &DecodeError{Path: "$", Name: t.String(), Reason: "Void is not a list element"}
		}
		return reflect.SliceOf(et), nil
	case MapType:
		kt, err := r.keyType(t.Key)
		if err != nil {
			return nil, err
		}
		vt, err := r.goType(t.Value)
		if err != nil {
			return nil, err
		}
		if vt == nil {
			return nil, &DecodeError{Path: "$", Name: t.String(), Reason: "Void is not a map value"}
		}
		return reflect.MapOf(kt, vt), nil
	}
	panic(fmt.Sprintf("codec: unknown return type %T", rt))
}

// keyType is the Go key type for a map key ReturnType: the registered type
// when a key parser exists, string otherwise.
func (r *Registry) keyType(rt ReturnType) (reflect.Type, error) {
	s, ok := rt.(ScalarType)
	if !ok {
		return nil, &DecodeError{Path: "$", Name: str(rt), Reason: "map keys must be scalar"}
	}
	if _, ok := r.keyParser(s.Name); !ok {
		if _, known := r.Lookup(s.Name); !known {
			return nil, &DecodeError{Path: "$", Name: s.Name, Reason: "unknown type name " + strconv.Quote(s.Name)}
		}
		return stringType, nil
	}
	t, _ := r.Lookup(s.Name)
	if t == nil || !t.Comparable() {
		return nil, &DecodeError{Path: "$", Name: s.Name, Reason: "key type is not comparable"}
	}
	return t, nil
}

var (
	anyType    = reflect.TypeFor[any]()
	stringType = reflect.TypeFor[string]()
	timeType   = reflect.TypeFor[time.Time]()
)
