package openbis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/jsonrpc"
)

func TestSpaceLifecycle(t *testing.T) {
	_, f := loggedIn(t)
	ctx := context.Background()

	ids, err := f.CreateSpaces(ctx, &dto.SpaceCreation{Code: "LAB", Description: "wet lab"}, &dto.SpaceCreation{Code: "DRY"})
	require.NoError(t, err)
	assert.Equal(t, []dto.SpacePermId{dto.NewSpacePermId("LAB"), dto.NewSpacePermId("DRY")}, ids)

	_, err = f.CreateSpaces(ctx, &dto.SpaceCreation{Code: "LAB"})
	var se *jsonrpc.ServerError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "already exists")

	require.NoError(t, f.UpdateSpaces(ctx, &dto.SpaceUpdate{
		SpaceID:     dto.NewSpacePermId("LAB"),
		Description: dto.Set("wet lab, floor 2"),
	}))

	got, err := f.GetSpaces(ctx, []dto.ObjectID{dto.NewSpacePermId("LAB"), dto.NewSpacePermId("GONE")}, dto.SpaceFetch().With("registrator"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wet lab, floor 2", got["LAB"].Description)
	assert.Equal(t, "alice", got["LAB"].Registrator.UserID)

	res, err := f.SearchSpaces(ctx, dto.SpaceSearch().WithCodeStartingWith("d"), nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "DRY", res.Objects[0].Code)
	assert.Nil(t, res.Objects[0].Registrator)

	require.NoError(t, f.DeleteSpaces(ctx, []dto.ObjectID{dto.NewSpacePermId("DRY")}, "unused"))
	res, err = f.SearchSpaces(ctx, dto.SpaceSearch(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
}

func TestSampleLifecycle(t *testing.T) {
	srv, f := loggedIn(t)
	ctx := context.Background()
	srv.AddSpace("LAB")
	parent := srv.AddSample("LAB", "P1")

	ids, err := f.CreateSamples(ctx, &dto.SampleCreation{
		Code:       "S1",
		TypeID:     dto.NewEntityTypePermId("CELL", dto.KindSample),
		SpaceID:    dto.NewSpacePermId("LAB"),
		Properties: map[string]string{"NAME": "hela"},
		ParentIDs:  []dto.ObjectID{dto.NewSamplePermId(parent)},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	id := ids[0]

	byIdentifier := dto.NewSampleIdentifier("/LAB/S1")
	got, err := f.GetSamples(ctx, []dto.ObjectID{id, byIdentifier}, dto.SampleFetch().With("type", "properties", "parents.children"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	s := got[id.String()]
	assert.Same(t, s, got["/LAB/S1"])
	assert.Equal(t, "CELL", s.Type.Code)
	assert.Equal(t, "hela", s.Properties["NAME"])
	require.Len(t, s.Parents, 1)
	assert.Same(t, s, s.Parents[0].Children[0])

	require.NoError(t, f.UpdateSamples(ctx, &dto.SampleUpdate{
		SampleID:   id,
		Properties: map[string]string{"NAME": "hek"},
		ParentIDs:  (&dto.ListUpdate{}).Remove(dto.NewSamplePermId(parent)),
	}))
	res, err := f.SearchSamples(ctx, dto.SampleSearch().WithProperty("NAME", "hek"), dto.SampleFetch().With("parents"))
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalCount)
	assert.Empty(t, res.Objects[0].Parents)

	deletionID, err := f.DeleteSamples(ctx, []dto.ObjectID{id}, "mislabelled")
	require.NoError(t, err)
	assert.Equal(t, dto.DeletionTechId{TechID: 1}, deletionID)

	res, err = f.SearchSamples(ctx, dto.SampleSearch().WithSpace("LAB"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)

	trash, err := f.SearchDeletions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, trash.Objects, 1)
	assert.Equal(t, "mislabelled", trash.Objects[0].Reason)

	require.NoError(t, f.RevertDeletions(ctx, deletionID))
	res, err = f.SearchSamples(ctx, dto.SampleSearch().WithSpace("LAB"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
}

func TestConfirmDeletion(t *testing.T) {
	srv, f := loggedIn(t)
	ctx := context.Background()
	id := srv.AddSample("LAB", "GONE")

	deletionID, err := f.DeleteSamples(ctx, []dto.ObjectID{dto.NewSamplePermId(id)}, "")
	require.NoError(t, err)
	require.NoError(t, f.ConfirmDeletions(ctx, deletionID))

	trash, err := f.SearchDeletions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, trash.Objects)

	err = f.RevertDeletions(ctx, deletionID)
	var se *jsonrpc.ServerError
	assert.ErrorAs(t, err, &se)
}

func TestSearchPaging(t *testing.T) {
	srv, f := loggedIn(t)
	for _, code := range []string{"A", "B", "C", "D", "E"} {
		srv.AddSample("LAB", code)
	}

	res, err := f.SearchSamples(context.Background(), dto.SampleSearch(), dto.SampleFetch().Page(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalCount)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "B", res.Objects[0].Code)
	assert.Equal(t, "C", res.Objects[1].Code)
}

func TestSearchWithOrAndNot(t *testing.T) {
	srv, f := loggedIn(t)
	for _, code := range []string{"A1", "A2", "B1"} {
		srv.AddSample("LAB", code)
	}
	ctx := context.Background()

	either := dto.SampleSearch().WithOperator(dto.Or).WithCode("A1").WithCode("B1")
	res, err := f.SearchSamples(ctx, either, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)

	notA := dto.SampleSearch().With(dto.SampleSearch().WithCodeStartingWith("A").Not())
	res, err = f.SearchSamples(ctx, notA, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "B1", res.Objects[0].Code)

	codes := dto.SampleSearch().WithCodes("A2", "B1", "Z9")
	res, err = f.SearchSamples(ctx, codes, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
}

func TestExecuteOperations(t *testing.T) {
	_, f := loggedIn(t)
	ctx := context.Background()

	ops := []*dto.Operation{
		dto.CreateSpacesOperation(&dto.SpaceCreation{Code: "OPS"}),
		dto.CreateSamplesOperation(&dto.SampleCreation{Code: "S1", SpaceID: dto.NewSpacePermId("OPS")}),
	}
	res, err := f.ExecuteOperations(ctx, ops, nil)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, []dto.ObjectID{dto.NewSpacePermId("OPS")}, res.Results[0].ObjectIDs)
	require.Len(t, res.Results[1].ObjectIDs, 1)
	assert.Equal(t, "as.dto.sample.create.CreateSamplesOperationResult", res.Results[1].Type)

	sample := res.Results[1].ObjectIDs[0]
	del := dto.DeleteSamplesOperation(dto.SampleDeletion("cleanup"), sample)
	res, err = f.ExecuteOperations(ctx, []*dto.Operation{del}, dto.AsynchronousExecution("cleanup"))
	require.NoError(t, err)
	require.NotNil(t, res.ExecutionID)
	assert.Empty(t, res.Results)

	_, err = f.ExecuteOperations(ctx, []*dto.Operation{dto.CreateSpacesOperation(&dto.SpaceCreation{Code: "OPS"})}, nil)
	var se *jsonrpc.ServerError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "CreateSpacesOperation")
}

func TestRightsAndServices(t *testing.T) {
	srv, f := loggedIn(t)
	ctx := context.Background()
	srv.SetRights("LAB", dto.RightUpdate, dto.RightDelete)

	rights, err := f.GetRights(ctx, []dto.ObjectID{dto.NewSpacePermId("LAB"), dto.NewSpacePermId("OTHER")}, nil)
	require.NoError(t, err)
	assert.True(t, rights["LAB"].Has(dto.RightDelete))
	assert.False(t, rights["LAB"].Has(dto.RightCreate))
	assert.Empty(t, rights["OTHER"].Rights)

	opts := (&dto.CustomASServiceExecutionOptions{}).WithParameter("n", 3).WithParameter("mode", "fast")
	out, err := f.ExecuteCustomASService(ctx, "echo", opts)
	require.NoError(t, err)
	reply, ok := out.(map[string]any)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "echo", reply["service"])
	params := reply["parameters"].(map[string]any)
	assert.Equal(t, "fast", params["mode"])

	codes, err := f.CreateCodes(ctx, "EXP", dto.KindExperiment, 2)
	require.NoError(t, err)
	assert.Len(t, codes, 2)
	permIDs, err := f.CreatePermIDStrings(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, permIDs, 3)
}
