package decycle

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	Code     string  `json:"code"`
	Parent   *node   `json:"parent,omitempty"`
	Children []*node `json:"children,omitempty"`
	Self     *node   `json:"self,omitempty"`
}

type typed struct {
	Code string `json:"code"`
}

func (typed) TypeName() string { return "as.dto.space.Space" }

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestEncodeSelfReference(t *testing.T) {
	a := &node{Code: "A"}
	a.Self = a

	out, err := Encode(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"A","self":{"$ref":"$"}}`, marshal(t, out))
}

func TestEncodeParentChildCycle(t *testing.T) {
	parent := &node{Code: "P"}
	child := &node{Code: "C", Parent: parent}
	parent.Children = []*node{child}

	out, err := Encode(parent)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"children":[{"code":"C","parent":{"$ref":"$"}}],"code":"P"}`,
		marshal(t, out))
}

func TestEncodeSharedReference(t *testing.T) {
	shared := &typed{Code: "S"}
	in := map[string]any{"a": shared, "b": shared}

	out, err := Encode(in)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"a":{"@type":"as.dto.space.Space","code":"S"},"b":{"$ref":"$[\"a\"]"}}`,
		marshal(t, out))
}

func TestEncodeSharedScalarPointerIsInline(t *testing.T) {
	code := "X"
	n := 3
	in := struct {
		Code  *string `json:"code"`
		Label *string `json:"label"`
		Count *int    `json:"count"`
		Again *int    `json:"again"`
	}{Code: &code, Label: &code, Count: &n, Again: &n}

	out, err := Encode(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"X","label":"X","count":3,"again":3}`, marshal(t, out))
}

func TestEncodeRefsPointBackwards(t *testing.T) {
	shared := &node{Code: "S"}
	in := struct {
		Z *node `json:"z"`
		A *node `json:"a"`
	}{Z: shared, A: shared}

	out, err := Encode(in)
	require.NoError(t, err)
	// "a" is written before "z", so the marker lives under "z".
	assert.JSONEq(t, `{"a":{"code":"S"},"z":{"$ref":"$[\"a\"]"}}`, marshal(t, out))
}

func TestEncodePerEncoderIsolation(t *testing.T) {
	shared := &node{Code: "S"}

	first, err := Encode(shared)
	require.NoError(t, err)
	second, err := Encode([]any{shared})
	require.NoError(t, err)

	assert.JSONEq(t, `{"code":"S"}`, marshal(t, first))
	assert.JSONEq(t, `[{"code":"S"}]`, marshal(t, second))
}

func TestEncodePrimitivesPassThrough(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, `null`},
		{"x", `"x"`},
		{true, `true`},
		{42, `42`},
		{1.5, `1.5`},
		{[]int{}, `[]`},
		{(*node)(nil), `null`},
		{[]byte("hi"), `"aGk="`},
		{time.UnixMilli(0).UTC(), `"1970-01-01T00:00:00Z"`},
		{map[int]string{2: "b", 1: "a"}, `{"1":"a","2":"b"}`},
		{[]any{json.Number("12345678901234567890")}, `[12345678901234567890]`},
	}
	for _, tt := range tests {
		out, err := Encode(tt.in)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, marshal(t, out))
	}
}

func TestEncodeRawMarshaler(t *testing.T) {
	out, err := Encode(map[string]any{"raw": json.RawMessage(`{"k":[1,2]}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":{"k":[1,2]}}`, marshal(t, out))
}

func TestEncodeUnsupported(t *testing.T) {
	_, err := Encode(map[string]any{"f": math.NaN()})
	var uerr *UnsupportedValueError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, `$["f"]`, uerr.Path)

	_, err = Encode(func() {})
	require.ErrorAs(t, err, &uerr)
}

func TestEncodeMatchesMarshalWithoutSharing(t *testing.T) {
	type inner struct {
		B int    `json:"b"`
		A string `json:"a,omitempty"`
	}
	type outer struct {
		inner
		Tags  []string          `json:"tags"`
		Props map[string]string `json:"props"`
		Skip  string            `json:"-"`
		Count int64             `json:"count,string"`
	}
	v := outer{inner: inner{B: 2}, Tags: []string{"x", "y"}, Props: map[string]string{"k": "v"}, Skip: "no", Count: 7}

	out, err := Encode(v)
	require.NoError(t, err)
	want, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), marshal(t, out))
}

func TestResolveRestoresSharingAndCycles(t *testing.T) {
	var tree any
	require.NoError(t, json.Unmarshal([]byte(
		`{"a":{"code":"S","self":{"$ref":"$[\"a\"]"}},"b":{"$ref":"$[\"a\"]"},"list":[{"$ref":"$[\"a\"]"}]}`), &tree))

	out, err := Resolve(tree)
	require.NoError(t, err)

	m := out.(map[string]any)
	a := m["a"].(map[string]any)
	b := m["b"].(map[string]any)
	a["marker"] = true
	assert.Equal(t, true, b["marker"])
	assert.Equal(t, true, a["self"].(map[string]any)["marker"])
	assert.Equal(t, true, m["list"].([]any)[0].(map[string]any)["marker"])
}

func TestResolveUnknownPath(t *testing.T) {
	var tree any
	require.NoError(t, json.Unmarshal([]byte(`{"a":{"$ref":"$[\"missing\"]"}}`), &tree))

	_, err := Resolve(tree)
	var rerr *ReferenceError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, `$["missing"]`, rerr.Path)
	assert.Equal(t, `$["a"]`, rerr.At)
}

func TestEncodeResolveRoundTrip(t *testing.T) {
	parent := &node{Code: "P"}
	c1 := &node{Code: "C1", Parent: parent}
	c2 := &node{Code: "C2", Parent: parent}
	parent.Children = []*node{c1, c2}

	out, err := Encode(parent)
	require.NoError(t, err)

	var tree any
	require.NoError(t, json.Unmarshal([]byte(marshal(t, out)), &tree))
	resolved, err := Resolve(tree)
	require.NoError(t, err)

	root := resolved.(map[string]any)
	children := root["children"].([]any)
	require.Len(t, children, 2)
	for _, c := range children {
		root["marker"] = 1
		assert.Equal(t, 1, c.(map[string]any)["parent"].(map[string]any)["marker"])
	}
}

func TestEncodeTypeMember(t *testing.T) {
	type criteria struct {
		Type     string `json:"@type"`
		Operator string `json:"operator"`
	}
	type shadowed struct {
		typed
		Type string `json:"@type"`
	}

	out, err := Encode(criteria{Type: "as.dto.space.search.SpaceSearchCriteria", Operator: "AND"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"@type":"as.dto.space.search.SpaceSearchCriteria","operator":"AND"}`, marshal(t, out))

	// A TypeNamer wins over a field of the same name.
	out, err = Encode(shadowed{typed: typed{Code: "S"}, Type: "ignored"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"@type":"as.dto.space.Space","code":"S"}`, marshal(t, out))
}
