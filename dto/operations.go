package dto

import "strings"

// Operation is one step of executeOperations. Type names the openBIS
// operation class; the other fields are set according to it.
type Operation struct {
	Type         string           `json:"@type"`
	Creations    []any            `json:"creations,omitempty"`
	Updates      []any            `json:"updates,omitempty"`
	ObjectIDs    []ObjectID       `json:"objectIds,omitempty"`
	Options      *DeletionOptions `json:"options,omitempty"`
	Criteria     *Criteria        `json:"criteria,omitempty"`
	FetchOptions *FetchOptions    `json:"fetchOptions,omitempty"`
}

// Verb returns the leading verb of the operation class: "Create",
// "Update", "Delete", "Get" or "Search".
func (o *Operation) Verb() string {
	name := shortName(o.Type)
	for _, v := range []string{"Create", "Update", "Delete", "Get", "Search"} {
		if strings.HasPrefix(name, v) {
			return v
		}
	}
	return ""
}

func CreateSpacesOperation(c ...*SpaceCreation) *Operation {
	return &Operation{Type: "as.dto.space.create.CreateSpacesOperation", Creations: anySlice(c)}
}

func CreateProjectsOperation(c ...*ProjectCreation) *Operation {
	return &Operation{Type: "as.dto.project.create.CreateProjectsOperation", Creations: anySlice(c)}
}

func CreateExperimentsOperation(c ...*ExperimentCreation) *Operation {
	return &Operation{Type: "as.dto.experiment.create.CreateExperimentsOperation", Creations: anySlice(c)}
}

func CreateSamplesOperation(c ...*SampleCreation) *Operation {
	return &Operation{Type: "as.dto.sample.create.CreateSamplesOperation", Creations: anySlice(c)}
}

func UpdateSamplesOperation(u ...*SampleUpdate) *Operation {
	return &Operation{Type: "as.dto.sample.update.UpdateSamplesOperation", Updates: anySlice(u)}
}

func UpdateSpacesOperation(u ...*SpaceUpdate) *Operation {
	return &Operation{Type: "as.dto.space.update.UpdateSpacesOperation", Updates: anySlice(u)}
}

func DeleteSamplesOperation(opts *DeletionOptions, ids ...ObjectID) *Operation {
	return &Operation{Type: "as.dto.sample.delete.DeleteSamplesOperation", ObjectIDs: ids, Options: opts}
}

func DeleteSpacesOperation(opts *DeletionOptions, ids ...ObjectID) *Operation {
	return &Operation{Type: "as.dto.space.delete.DeleteSpacesOperation", ObjectIDs: ids, Options: opts}
}

func GetSamplesOperation(fo *FetchOptions, ids ...ObjectID) *Operation {
	return &Operation{Type: "as.dto.sample.get.GetSamplesOperation", ObjectIDs: ids, FetchOptions: fo}
}

func SearchSamplesOperation(c *Criteria, fo *FetchOptions) *Operation {
	return &Operation{Type: "as.dto.sample.search.SearchSamplesOperation", Criteria: c, FetchOptions: fo}
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// OperationResult is the result of one Operation. Create operations fill
// ObjectIDs, trash-can deletions fill DeletionID.
type OperationResult struct {
	Type       string     `json:"@type,omitempty"`
	ObjectIDs  []ObjectID `json:"objectIds,omitempty"`
	DeletionID ObjectID   `json:"deletionId,omitempty"`
}

// OperationExecutionOptions controls how executeOperations runs.
type OperationExecutionOptions struct {
	Type           string `json:"@type"`
	Description    string `json:"description,omitempty"`
	ExecuteInOrder bool   `json:"executeInOrder"`
}

// SynchronousExecution runs the operations in one transaction and waits.
func SynchronousExecution() *OperationExecutionOptions {
	return &OperationExecutionOptions{
		Type:           "as.dto.operation.SynchronousOperationExecutionOptions",
		ExecuteInOrder: true,
	}
}

// AsynchronousExecution queues the operations and returns an execution id.
func AsynchronousExecution(description string) *OperationExecutionOptions {
	return &OperationExecutionOptions{
		Type:           "as.dto.operation.AsynchronousOperationExecutionOptions",
		Description:    description,
		ExecuteInOrder: true,
	}
}

// Asynchronous reports whether o queues the operations.
func (o *OperationExecutionOptions) Asynchronous() bool {
	return o != nil && strings.Contains(o.Type, "Asynchronous")
}

// OperationExecutionPermId identifies a queued execution.
type OperationExecutionPermId struct {
	PermID string `json:"permId"`
}

func (OperationExecutionPermId) TypeName() string  { return "as.dto.operation.id.OperationExecutionPermId" }
func (id OperationExecutionPermId) String() string { return id.PermID }

// OperationExecutionResults holds the per-operation results of a synchronous
// execution, or the execution id of an asynchronous one.
type OperationExecutionResults struct {
	Results     []*OperationResult        `json:"results,omitempty"`
	ExecutionID *OperationExecutionPermId `json:"executionId,omitempty"`
}

func (r *OperationExecutionResults) TypeName() string {
	if r.ExecutionID != nil {
		return "as.dto.operation.AsynchronousOperationExecutionResults"
	}
	return "as.dto.operation.SynchronousOperationExecutionResults"
}
