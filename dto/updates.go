package dto

// FieldUpdate changes one field of an object. Fields left at the zero
// FieldUpdate are not touched by the server.
type FieldUpdate[T any] struct {
	Modified bool `json:"isModified"`
	Value    T    `json:"value"`
}

func (FieldUpdate[T]) TypeName() string { return "as.dto.common.update.FieldUpdateValue" }

// Set returns a FieldUpdate setting the field to v.
func Set[T any](v T) FieldUpdate[T] {
	return FieldUpdate[T]{Modified: true, Value: v}
}

// ListUpdateAction adds, removes or replaces ids of a to-many relation.
type ListUpdateAction struct {
	Type  string     `json:"@type"`
	Items []ObjectID `json:"items"`
}

const (
	listAdd    = "as.dto.common.update.ListUpdateActionAdd"
	listRemove = "as.dto.common.update.ListUpdateActionRemove"
	listSet    = "as.dto.common.update.ListUpdateActionSet"
)

// ListUpdate is a sequence of actions on a to-many relation, applied in
// order.
type ListUpdate struct {
	Actions []*ListUpdateAction `json:"actions"`
}

func (*ListUpdate) TypeName() string { return "as.dto.common.update.IdListUpdateValue" }

func (u *ListUpdate) Add(ids ...ObjectID) *ListUpdate    { return u.action(listAdd, ids) }
func (u *ListUpdate) Remove(ids ...ObjectID) *ListUpdate { return u.action(listRemove, ids) }
func (u *ListUpdate) Set(ids ...ObjectID) *ListUpdate    { return u.action(listSet, ids) }

func (u *ListUpdate) action(typeName string, ids []ObjectID) *ListUpdate {
	u.Actions = append(u.Actions, &ListUpdateAction{Type: typeName, Items: ids})
	return u
}

// Apply runs the actions against current and returns the resulting ids,
// compared by their string form.
func (u *ListUpdate) Apply(current []ObjectID) []ObjectID {
	if u == nil {
		return current
	}
	out := append([]ObjectID(nil), current...)
	for _, a := range u.Actions {
		switch a.Type {
		case listSet:
			out = append([]ObjectID(nil), a.Items...)
		case listAdd:
			for _, id := range a.Items {
				if indexOf(out, id) < 0 {
					out = append(out, id)
				}
			}
		case listRemove:
			for _, id := range a.Items {
				if i := indexOf(out, id); i >= 0 {
					out = append(out[:i], out[i+1:]...)
				}
			}
		}
	}
	return out
}

func indexOf(ids []ObjectID, id ObjectID) int {
	for i, x := range ids {
		if x.String() == id.String() {
			return i
		}
	}
	return -1
}

type SpaceUpdate struct {
	SpaceID     ObjectID            `json:"spaceId"`
	Description FieldUpdate[string] `json:"description"`
	Frozen      bool                `json:"freeze,omitempty"`
}

func (*SpaceUpdate) TypeName() string { return "as.dto.space.update.SpaceUpdate" }

type ProjectUpdate struct {
	ProjectID   ObjectID              `json:"projectId"`
	SpaceID     FieldUpdate[ObjectID] `json:"spaceId"`
	Description FieldUpdate[string]   `json:"description"`
}

func (*ProjectUpdate) TypeName() string { return "as.dto.project.update.ProjectUpdate" }

type ExperimentUpdate struct {
	ExperimentID ObjectID              `json:"experimentId"`
	ProjectID    FieldUpdate[ObjectID] `json:"projectId"`
	Properties   map[string]string     `json:"properties,omitempty"`
	TagIDs       *ListUpdate           `json:"tagIds,omitempty"`
}

func (*ExperimentUpdate) TypeName() string { return "as.dto.experiment.update.ExperimentUpdate" }

type SampleUpdate struct {
	SampleID     ObjectID              `json:"sampleId"`
	SpaceID      FieldUpdate[ObjectID] `json:"spaceId"`
	ProjectID    FieldUpdate[ObjectID] `json:"projectId"`
	ExperimentID FieldUpdate[ObjectID] `json:"experimentId"`
	Properties   map[string]string     `json:"properties,omitempty"`
	ParentIDs    *ListUpdate           `json:"parentIds,omitempty"`
	ChildIDs     *ListUpdate           `json:"childIds,omitempty"`
	TagIDs       *ListUpdate           `json:"tagIds,omitempty"`
}

func (*SampleUpdate) TypeName() string { return "as.dto.sample.update.SampleUpdate" }

type DataSetUpdate struct {
	DataSetID    ObjectID              `json:"dataSetId"`
	ExperimentID FieldUpdate[ObjectID] `json:"experimentId"`
	SampleID     FieldUpdate[ObjectID] `json:"sampleId"`
	Properties   map[string]string     `json:"properties,omitempty"`
	ParentIDs    *ListUpdate           `json:"parentIds,omitempty"`
	TagIDs       *ListUpdate           `json:"tagIds,omitempty"`
}

func (*DataSetUpdate) TypeName() string { return "as.dto.dataset.update.DataSetUpdate" }

type MaterialUpdate struct {
	MaterialID ObjectID          `json:"materialId"`
	Properties map[string]string `json:"properties,omitempty"`
	TagIDs     *ListUpdate       `json:"tagIds,omitempty"`
}

func (*MaterialUpdate) TypeName() string { return "as.dto.material.update.MaterialUpdate" }

type VocabularyUpdate struct {
	VocabularyID ObjectID            `json:"vocabularyId"`
	Description  FieldUpdate[string] `json:"description"`
}

func (*VocabularyUpdate) TypeName() string { return "as.dto.vocabulary.update.VocabularyUpdate" }

type VocabularyTermUpdate struct {
	VocabularyTermID ObjectID            `json:"vocabularyTermId"`
	Label            FieldUpdate[string] `json:"label"`
	Description      FieldUpdate[string] `json:"description"`
	Official         FieldUpdate[bool]   `json:"official"`
}

func (*VocabularyTermUpdate) TypeName() string {
	return "as.dto.vocabulary.update.VocabularyTermUpdate"
}

type TagUpdate struct {
	TagID       ObjectID            `json:"tagId"`
	Description FieldUpdate[string] `json:"description"`
	SampleIDs   *ListUpdate         `json:"sampleIds,omitempty"`
}

func (*TagUpdate) TypeName() string { return "as.dto.tag.update.TagUpdate" }

type PropertyTypeUpdate struct {
	TypeID      ObjectID            `json:"typeId"`
	Label       FieldUpdate[string] `json:"label"`
	Description FieldUpdate[string] `json:"description"`
}

func (*PropertyTypeUpdate) TypeName() string { return "as.dto.property.update.PropertyTypeUpdate" }

type PersonUpdate struct {
	UserID  ObjectID              `json:"userId"`
	SpaceID FieldUpdate[ObjectID] `json:"spaceId"`
	Active  FieldUpdate[bool]     `json:"active"`
}

func (*PersonUpdate) TypeName() string { return "as.dto.person.update.PersonUpdate" }

// EntityTypeUpdate changes a sample, experiment, data set or material type.
// Kind selects which; it is not sent.
type EntityTypeUpdate struct {
	Kind        EntityKind          `json:"-"`
	TypeID      ObjectID            `json:"typeId"`
	Description FieldUpdate[string] `json:"description"`
}

func (u *EntityTypeUpdate) TypeName() string {
	switch u.Kind {
	case KindExperiment:
		return "as.dto.experiment.update.ExperimentTypeUpdate"
	case KindDataSet:
		return "as.dto.dataset.update.DataSetTypeUpdate"
	case KindMaterial:
		return "as.dto.material.update.MaterialTypeUpdate"
	}
	return "as.dto.sample.update.SampleTypeUpdate"
}

type PluginUpdate struct {
	PluginID    ObjectID            `json:"pluginId"`
	Description FieldUpdate[string] `json:"description"`
	Script      FieldUpdate[string] `json:"script"`
	Available   FieldUpdate[bool]   `json:"available"`
}

func (*PluginUpdate) TypeName() string { return "as.dto.plugin.update.PluginUpdate" }
