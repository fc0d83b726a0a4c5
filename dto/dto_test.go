package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/openbis/codec"
	"github.com/mnehpets/openbis/decycle"
)

func encode(t *testing.T, v any) map[string]any {
	t.Helper()
	tree, err := decycle.Encode(v)
	require.NoError(t, err)
	b, err := json.Marshal(tree)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestCreationCarriesTypeNames(t *testing.T) {
	c := &SampleCreation{
		Code:      "S1",
		TypeID:    NewEntityTypePermId("UNKNOWN", KindSample),
		SpaceID:   NewSpacePermId("LAB"),
		ParentIDs: []ObjectID{NewSampleIdentifier("/LAB/P1")},
	}
	got := encode(t, c)

	assert.Equal(t, "as.dto.sample.create.SampleCreation", got["@type"])
	assert.Equal(t, map[string]any{
		"@type":      "as.dto.entitytype.id.EntityTypePermId",
		"permId":     "UNKNOWN",
		"entityKind": "SAMPLE",
	}, got["typeId"])
	assert.Equal(t, map[string]any{"@type": "as.dto.space.id.SpacePermId", "permId": "LAB"}, got["spaceId"])
	assert.Equal(t, []any{map[string]any{"@type": "as.dto.sample.id.SampleIdentifier", "identifier": "/LAB/P1"}}, got["parentIds"])
	assert.NotContains(t, got, "experimentId")
}

func TestCriteriaTree(t *testing.T) {
	c := SampleSearch().WithOperator(Or).WithCode("S1").WithSpace("LAB")
	got := encode(t, c)

	assert.Equal(t, "as.dto.sample.search.SampleSearchCriteria", got["@type"])
	assert.Equal(t, "OR", got["operator"])
	subs := got["criteria"].([]any)
	require.Len(t, subs, 2)
	assert.Equal(t, map[string]any{
		"@type":     "as.dto.common.search.CodeSearchCriteria",
		"fieldName": "code",
		"fieldType": "ATTRIBUTE",
		"fieldValue": map[string]any{
			"@type": "as.dto.common.search.StringEqualToValue",
			"value": "S1",
		},
	}, subs[0])
	space := subs[1].(map[string]any)
	assert.Equal(t, "as.dto.space.search.SpaceSearchCriteria", space["@type"])
	assert.Len(t, space["criteria"], 1)
}

func TestCriteriaValues(t *testing.T) {
	code := DataStoreSearch().WithCode("DSS1").Criteria[0]
	assert.True(t, code.IsCode())
	v, match, ok := code.StringValue()
	assert.True(t, ok)
	assert.Equal(t, "DSS1", v)
	assert.Equal(t, "StringEqualToValue", match)

	codes := DataStoreSearch().WithCodes("A", "B").Criteria[0]
	assert.True(t, codes.IsCodes())
	assert.Equal(t, []string{"A", "B"}, codes.StringValues())

	// The same leaves after a trip through the wire decode to generic values.
	var back Criteria
	require.NoError(t, codec.Unmarshal(NewRegistry(), mustJSON(t, DataStoreSearch().WithCodes("A", "B")), &back))
	require.Len(t, back.Criteria, 1)
	assert.Equal(t, []string{"A", "B"}, back.Criteria[0].StringValues())

	var prefix Criteria
	require.NoError(t, codec.Unmarshal(NewRegistry(), mustJSON(t, SampleSearch().WithCodeStartingWith("S")), &prefix))
	v, match, ok = prefix.Criteria[0].StringValue()
	assert.True(t, ok)
	assert.Equal(t, "S", v)
	assert.Equal(t, "StringStartsWithValue", match)
}

func TestCriteriaIDDecodes(t *testing.T) {
	var back Criteria
	raw := mustJSON(t, SampleSearch().WithID(NewSamplePermId("20240101-1")))
	require.NoError(t, codec.Unmarshal(NewRegistry(), raw, &back))
	require.Len(t, back.Criteria, 1)
	assert.Equal(t, NewSamplePermId("20240101-1"), back.Criteria[0].FieldValue)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	tree, err := decycle.Encode(v)
	require.NoError(t, err)
	b, err := json.Marshal(tree)
	require.NoError(t, err)
	return b
}

func TestFetchOptions(t *testing.T) {
	fo := SampleFetch().With("space", "parents.type", "children").Page(10, 5)
	assert.Equal(t, []string{"children", "parents", "space"}, fo.Relations())
	assert.True(t, fo.Has("space"))
	assert.False(t, fo.Has("experiment"))
	assert.Equal(t, spaceFetch, fo.Get("space").Type)
	assert.Equal(t, sampleTypeFetch, fo.Get("parents").Get("type").Type)

	got := encode(t, fo)
	assert.Equal(t, sampleFetch, got["@type"])
	assert.EqualValues(t, 10, got["from"])
	assert.EqualValues(t, 5, got["count"])
	assert.Equal(t, map[string]any{"@type": spaceFetch, "from": nil, "count": nil}, got["space"])

	var back FetchOptions
	require.NoError(t, json.Unmarshal(mustJSON(t, fo), &back))
	assert.Equal(t, sampleFetch, back.Type)
	assert.Equal(t, 10, back.From)
	assert.Equal(t, 5, back.Count)
	assert.Equal(t, []string{"children", "parents", "space"}, back.Relations())
	assert.True(t, back.Get("parents").Has("type"))
}

func TestFetchOptionsUnknownRelation(t *testing.T) {
	fo := SpaceFetch().With("nonsense")
	assert.Equal(t, emptyFetch, fo.Get("nonsense").Type)

	var nilFO *FetchOptions
	assert.False(t, nilFO.Has("space"))
	assert.Nil(t, nilFO.Get("space"))
	assert.Empty(t, nilFO.Relations())

	b, err := json.Marshal(FetchOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"@type":"`+emptyFetch+`","from":null,"count":null}`, string(b))
}

func TestListUpdate(t *testing.T) {
	a, b, c := NewSamplePermId("A"), NewSamplePermId("B"), NewSamplePermId("C")

	u := (&ListUpdate{}).Add(b, c).Remove(a)
	assert.Equal(t, []ObjectID{b, c}, u.Apply([]ObjectID{a, b}))

	u = (&ListUpdate{}).Set(c).Add(a)
	assert.Equal(t, []ObjectID{c, a}, u.Apply([]ObjectID{a, b}))

	var none *ListUpdate
	assert.Equal(t, []ObjectID{a}, none.Apply([]ObjectID{a}))

	got := encode(t, u)
	assert.Equal(t, "as.dto.common.update.IdListUpdateValue", got["@type"])
	actions := got["actions"].([]any)
	require.Len(t, actions, 2)
	assert.Equal(t, listSet, actions[0].(map[string]any)["@type"])
}

func TestFieldUpdate(t *testing.T) {
	got := encode(t, &SpaceUpdate{
		SpaceID:     NewSpacePermId("LAB"),
		Description: Set("new"),
	})
	assert.Equal(t, map[string]any{
		"@type":      "as.dto.common.update.FieldUpdateValue",
		"isModified": true,
		"value":      "new",
	}, got["description"])

	var back SpaceUpdate
	require.NoError(t, codec.Unmarshal(NewRegistry(), mustJSON(t, &SpaceUpdate{SpaceID: NewSpacePermId("LAB")}), &back))
	assert.False(t, back.Description.Modified)
	assert.Equal(t, NewSpacePermId("LAB"), back.SpaceID)
}

func TestEntityTypeUpdateName(t *testing.T) {
	u := &EntityTypeUpdate{Kind: KindDataSet, TypeID: NewEntityTypePermId("RAW", KindDataSet)}
	assert.Equal(t, "as.dto.dataset.update.DataSetTypeUpdate", encode(t, u)["@type"])
	assert.Equal(t, "as.dto.sample.update.SampleTypeUpdate", (&EntityTypeUpdate{}).TypeName())
}

func TestSearchResultWithCycles(t *testing.T) {
	parent := &Sample{Code: "P", PermID: &SamplePermId{PermID: "1"}}
	child := &Sample{Code: "C", PermID: &SamplePermId{PermID: "2"}, Parents: []*Sample{parent}}
	parent.Children = []*Sample{child}
	space := &Space{Code: "LAB", Samples: []*Sample{parent, child}}
	parent.Space, child.Space = space, space

	raw := mustJSON(t, &SearchResult[*Sample]{Objects: []*Sample{parent, child}, TotalCount: 2})

	dec := codec.NewDecoder(NewRegistry())
	v, err := dec.Decode(codec.Scalar("SearchResult[Sample]"), raw)
	require.NoError(t, err)
	res := v.(*SearchResult[*Sample])
	require.Len(t, res.Objects, 2)
	assert.Equal(t, 2, res.TotalCount)

	p, c := res.Objects[0], res.Objects[1]
	assert.Equal(t, "P", p.Code)
	assert.Same(t, c, p.Children[0])
	assert.Same(t, p, c.Parents[0])
	assert.Same(t, p.Space, c.Space)
	assert.Equal(t, "1", p.PermID.PermID)
}

func TestRightsMap(t *testing.T) {
	raw := []byte(`{
		"LAB": {"@type":"as.dto.rights.Rights","rights":["UPDATE","DELETE"]},
		"/LAB/S1": {"@type":"as.dto.rights.Rights","rights":[]}
	}`)
	dec := codec.NewDecoder(NewRegistry())
	v, err := dec.Decode(codec.MapOf(codec.Scalar("IObjectId"), codec.Scalar("Rights")), raw)
	require.NoError(t, err)

	m := v.(map[string]*Rights)
	require.Len(t, m, 2)
	assert.True(t, m["LAB"].Has(RightUpdate))
	assert.False(t, m["LAB"].Has(RightCreate))
	assert.False(t, m["/LAB/S1"].Has(RightDelete))
	assert.False(t, (*Rights)(nil).Has(RightDelete))
}

func TestOperationResults(t *testing.T) {
	raw := []byte(`{
		"@type":"as.dto.operation.SynchronousOperationExecutionResults",
		"results":[
			{"@type":"as.dto.sample.create.CreateSamplesOperationResult",
			 "objectIds":[{"@type":"as.dto.sample.id.SamplePermId","permId":"20240101-7"}]},
			{"@type":"as.dto.sample.delete.DeleteSamplesOperationResult",
			 "deletionId":{"@type":"as.dto.deletion.id.DeletionTechId","techId":3}}
		]}`)
	dec := codec.NewDecoder(NewRegistry())
	v, err := dec.Decode(codec.Scalar("OperationExecutionResults"), raw)
	require.NoError(t, err)

	res := v.(*OperationExecutionResults)
	require.Len(t, res.Results, 2)
	assert.Equal(t, []ObjectID{NewSamplePermId("20240101-7")}, res.Results[0].ObjectIDs)
	assert.Equal(t, DeletionTechId{TechID: 3}, res.Results[1].DeletionID)
	assert.Equal(t, "as.dto.operation.SynchronousOperationExecutionResults", res.TypeName())
}

func TestOperationVerb(t *testing.T) {
	assert.Equal(t, "Create", CreateSamplesOperation().Verb())
	assert.Equal(t, "Delete", DeleteSpacesOperation(SpaceDeletion("x")).Verb())
	assert.Equal(t, "Search", SearchSamplesOperation(SampleSearch(), nil).Verb())
	assert.Equal(t, "", (&Operation{Type: "as.dto.Other"}).Verb())
	assert.True(t, AsynchronousExecution("bulk").Asynchronous())
	assert.False(t, SynchronousExecution().Asynchronous())
}

func TestIDStrings(t *testing.T) {
	assert.Equal(t, "CODE (VOCAB)", NewVocabularyTermPermId("CODE", "VOCAB").String())
	assert.Equal(t, "M1 (GENE)", NewMaterialPermId("M1", "GENE").String())
	assert.Equal(t, "20240101-1#original/a.txt",
		DataSetFilePermId{DataSetID: NewDataSetPermId("20240101-1"), FilePath: "original/a.txt"}.String())
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"Sample", "as.dto.sample.Sample", "SearchResult[DataSetFile]", "IDataStoreId", "DataStorePermId", "as.dto.dataset.update.DataSetTypeUpdate"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}
}
