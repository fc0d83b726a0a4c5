package codec

import (
	"fmt"
	"strings"
)

// ReturnType describes the shape of an RPC result. It is one of ScalarType,
// ListType, MapType or OpaqueType.
type ReturnType interface {
	fmt.Stringer
	returnType()
}

// ScalarType names a single registered type.
type ScalarType struct {
	Name string
}

// ListType is an ordered sequence of Elem.
type ListType struct {
	Elem ReturnType
}

// MapType is a mapping from Key to Value.
type MapType struct {
	Key   ReturnType
	Value ReturnType
}

// OpaqueType leaves the result as generic JSON.
type OpaqueType struct{}

func (ScalarType) returnType() {}
func (ListType) returnType()   {}
func (MapType) returnType()    {}
func (OpaqueType) returnType() {}

func (t ScalarType) String() string { return t.Name }
func (t ListType) String() string   { return "List<" + str(t.Elem) + ">" }
func (t MapType) String() string    { return "Map<" + str(t.Key) + "," + str(t.Value) + ">" }
func (OpaqueType) String() string   { return "" }

func str(rt ReturnType) string {
	if rt == nil {
		return ""
	}
	return rt.String()
}

// Scalar returns the ReturnType for a registered type name.
func Scalar(name string) ReturnType { return ScalarType{Name: name} }

// ListOf returns List<elem>.
func ListOf(elem ReturnType) ReturnType { return ListType{Elem: elem} }

// MapOf returns Map<key,value>.
func MapOf(key, value ReturnType) ReturnType { return MapType{Key: key, Value: value} }

// Opaque returns the ReturnType that skips typed decoding.
func Opaque() ReturnType { return OpaqueType{} }

// Descriptor renders rt in the wire descriptor form used by the JavaScript
// facade: a bare name, or {"name":"List"|"Map","arguments":[...]}; nil for
// Opaque.
func Descriptor(rt ReturnType) any {
	switch t := rt.(type) {
	case nil, OpaqueType:
		return nil
	case ScalarType:
		return t.Name
	case ListType:
		return map[string]any{"name": "List", "arguments": []any{Descriptor(t.Elem)}}
	case MapType:
		return map[string]any{"name": "Map", "arguments": []any{Descriptor(t.Key), Descriptor(t.Value)}}
	}
	panic(fmt.Sprintf("codec: unknown return type %T", rt))
}

// ParseReturnType parses the textual form produced by String, for example
// "Sample", "List<Sample>" or "Map<IObjectId,Rights>". The empty string is
// Opaque.
func ParseReturnType(s string) (ReturnType, error) {
	p := &typeParser{s: strings.ReplaceAll(s, " ", "")}
	if p.s == "" {
		return Opaque(), nil
	}
	rt, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("codec: return type %q: unexpected %q at %d", s, p.s[p.pos:], p.pos)
	}
	return rt, nil
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) parse() (ReturnType, error) {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("<>,", rune(p.s[p.pos])) {
		p.pos++
	}
	name := p.s[start:p.pos]
	if name == "" {
		return nil, fmt.Errorf("codec: return type %q: missing name at %d", p.s, start)
	}
	if p.pos == len(p.s) || p.s[p.pos] != '<' {
		return Scalar(name), nil
	}
	p.pos++

	var args []ReturnType
	for {
		arg, err := p.parse()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("codec: return type %q: unterminated arguments", p.s)
		}
		c := p.s[p.pos]
		p.pos++
		if c == '>' {
			break
		}
		if c != ',' {
			return nil, fmt.Errorf("codec: return type %q: unexpected %q", p.s, c)
		}
	}

	switch {
	case name == "List" && len(args) == 1:
		return ListOf(args[0]), nil
	case name == "Map" && len(args) == 2:
		return MapOf(args[0], args[1]), nil
	}
	return nil, fmt.Errorf("codec: return type %q: %s takes wrong number of arguments (%d)", p.s, name, len(args))
}
