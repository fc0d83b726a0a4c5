package dto

// DeletionOptions carries the mandatory reason of a deletion. Type selects
// the openBIS options class, which differs per entity.
type DeletionOptions struct {
	Type   string `json:"@type"`
	Reason string `json:"reason"`
}

func newDeletion(typeName, reason string) *DeletionOptions {
	return &DeletionOptions{Type: typeName, Reason: reason}
}

func SpaceDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.space.delete.SpaceDeletionOptions", reason)
}

func ProjectDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.project.delete.ProjectDeletionOptions", reason)
}

func ExperimentDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.experiment.delete.ExperimentDeletionOptions", reason)
}

func SampleDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.sample.delete.SampleDeletionOptions", reason)
}

func DataSetDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.dataset.delete.DataSetDeletionOptions", reason)
}

func MaterialDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.material.delete.MaterialDeletionOptions", reason)
}

func VocabularyDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.vocabulary.delete.VocabularyDeletionOptions", reason)
}

func VocabularyTermDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.vocabulary.delete.VocabularyTermDeletionOptions", reason)
}

func TagDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.tag.delete.TagDeletionOptions", reason)
}

func PropertyTypeDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.property.delete.PropertyTypeDeletionOptions", reason)
}

func PluginDeletion(reason string) *DeletionOptions {
	return newDeletion("as.dto.plugin.delete.PluginDeletionOptions", reason)
}

// EntityTypeDeletion returns options for deleting types of the given kind.
func EntityTypeDeletion(kind EntityKind, reason string) *DeletionOptions {
	switch kind {
	case KindExperiment:
		return newDeletion("as.dto.experiment.delete.ExperimentTypeDeletionOptions", reason)
	case KindDataSet:
		return newDeletion("as.dto.dataset.delete.DataSetTypeDeletionOptions", reason)
	case KindMaterial:
		return newDeletion("as.dto.material.delete.MaterialTypeDeletionOptions", reason)
	}
	return newDeletion("as.dto.sample.delete.SampleTypeDeletionOptions", reason)
}

// Deletion is an entry of the trash can.
type Deletion struct {
	ID             *DeletionTechId `json:"id,omitempty"`
	Reason         string          `json:"reason"`
	DeletedObjects []ObjectID      `json:"deletedObjects,omitempty"`
}

func (*Deletion) TypeName() string { return "as.dto.deletion.Deletion" }
