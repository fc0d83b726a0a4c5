package openbistest

import (
	"slices"
	"strings"

	"github.com/mnehpets/openbis/dto"
)

// object is what criteria are evaluated against. related holds the
// objects reachable through a sub-criteria class, keyed by its short name.
type object struct {
	kind       string
	code       string
	permID     string
	identifier string
	props      map[string]string
	related    map[string][]*object
}

func spaceObject(sp *space) *object {
	return &object{kind: "SpaceSearchCriteria", code: sp.code, permID: sp.code, identifier: "/" + sp.code}
}

func (s *Server) sampleObject(x *sample) *object {
	o := &object{
		kind:       "SampleSearchCriteria",
		code:       x.code,
		permID:     x.permID,
		identifier: x.identifier(),
		props:      x.props,
		related:    map[string][]*object{},
	}
	if sp := s.findSpace(x.space); sp != nil {
		o.related["SpaceSearchCriteria"] = []*object{spaceObject(sp)}
	}
	return o
}

func storeObject(st *store) *object {
	return &object{kind: "DataStoreSearchCriteria", code: st.code, permID: st.code}
}

func fileObject(f File) *object {
	return &object{
		kind:   "DataSetFileSearchCriteria",
		code:   f.Path,
		permID: f.DataSet + "#" + f.Path,
		related: map[string][]*object{
			"DataSetSearchCriteria": {{kind: "DataSetSearchCriteria", code: f.DataSet, permID: f.DataSet}},
		},
	}
}

// matches reports whether o satisfies c. A nil c matches everything.
func matches(c *dto.Criteria, o *object) bool {
	if c == nil {
		return true
	}
	return eval(c, o) != c.Negated
}

func eval(c *dto.Criteria, o *object) bool {
	switch kind := short(c.Type); kind {
	case "CodeSearchCriteria":
		return matchString(c, o.code)
	case "CodesSearchCriteria":
		return slices.ContainsFunc(c.StringValues(), func(v string) bool { return strings.EqualFold(v, o.code) })
	case "PermIdSearchCriteria":
		return matchString(c, o.permID)
	case "IdentifierSearchCriteria":
		return matchString(c, o.identifier)
	case "IdSearchCriteria":
		id, ok := c.FieldValue.(dto.ObjectID)
		if !ok {
			return false
		}
		s := id.String()
		return s == o.permID || strings.EqualFold(s, o.identifier)
	case "StringPropertySearchCriteria":
		v, ok := o.props[c.FieldName]
		return ok && matchString(c, v)
	default:
		if kind == o.kind {
			return all(c, o)
		}
		return slices.ContainsFunc(o.related[kind], func(r *object) bool { return all(c, r) })
	}
}

// all evaluates the children of a composite node.
func all(c *dto.Criteria, o *object) bool {
	if len(c.Criteria) == 0 {
		return true
	}
	if c.Operator == dto.Or {
		return slices.ContainsFunc(c.Criteria, func(sub *dto.Criteria) bool { return matches(sub, o) })
	}
	for _, sub := range c.Criteria {
		if !matches(sub, o) {
			return false
		}
	}
	return true
}

func matchString(c *dto.Criteria, s string) bool {
	value, match, ok := c.StringValue()
	if !ok {
		return match == "AnyStringValue"
	}
	switch match {
	case "StringEqualToValue":
		return strings.EqualFold(s, value)
	case "StringContainsValue":
		return strings.Contains(strings.ToLower(s), strings.ToLower(value))
	case "StringStartsWithValue":
		return strings.HasPrefix(strings.ToLower(s), strings.ToLower(value))
	case "StringEndsWithValue":
		return strings.HasSuffix(strings.ToLower(s), strings.ToLower(value))
	case "AnyStringValue":
		return true
	}
	return false
}

func short(typeName string) string {
	if i := strings.LastIndexByte(typeName, '.'); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}
