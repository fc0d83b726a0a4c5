package dto

// Creations describe new objects. Fields holding ids are ObjectID values so
// either a perm id or an identifier can be used.

type SpaceCreation struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (*SpaceCreation) TypeName() string { return "as.dto.space.create.SpaceCreation" }

type ProjectCreation struct {
	Code        string   `json:"code"`
	Description string   `json:"description,omitempty"`
	SpaceID     ObjectID `json:"spaceId"`
	LeaderID    ObjectID `json:"leaderId,omitempty"`
}

func (*ProjectCreation) TypeName() string { return "as.dto.project.create.ProjectCreation" }

type ExperimentCreation struct {
	Code       string            `json:"code"`
	TypeID     ObjectID          `json:"typeId"`
	ProjectID  ObjectID          `json:"projectId"`
	Properties map[string]string `json:"properties,omitempty"`
	TagIDs     []ObjectID        `json:"tagIds,omitempty"`
}

func (*ExperimentCreation) TypeName() string { return "as.dto.experiment.create.ExperimentCreation" }

type SampleCreation struct {
	Code              string            `json:"code,omitempty"`
	AutoGeneratedCode bool              `json:"autoGeneratedCode,omitempty"`
	TypeID            ObjectID          `json:"typeId"`
	SpaceID           ObjectID          `json:"spaceId,omitempty"`
	ProjectID         ObjectID          `json:"projectId,omitempty"`
	ExperimentID      ObjectID          `json:"experimentId,omitempty"`
	ContainerID       ObjectID          `json:"containerId,omitempty"`
	Properties        map[string]string `json:"properties,omitempty"`
	ParentIDs         []ObjectID        `json:"parentIds,omitempty"`
	ChildIDs          []ObjectID        `json:"childIds,omitempty"`
	TagIDs            []ObjectID        `json:"tagIds,omitempty"`
}

func (*SampleCreation) TypeName() string { return "as.dto.sample.create.SampleCreation" }

// DataSetCreation registers the metadata of a data set. DataStoreID decides
// which data store receives it when several are in scope.
type DataSetCreation struct {
	Code         string            `json:"code,omitempty"`
	TypeID       ObjectID          `json:"typeId"`
	DataSetKind  string            `json:"dataSetKind,omitempty"`
	DataStoreID  ObjectID          `json:"dataStoreId,omitempty"`
	ExperimentID ObjectID          `json:"experimentId,omitempty"`
	SampleID     ObjectID          `json:"sampleId,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
	ParentIDs    []ObjectID        `json:"parentIds,omitempty"`
	TagIDs       []ObjectID        `json:"tagIds,omitempty"`
}

func (*DataSetCreation) TypeName() string { return "as.dto.dataset.create.DataSetCreation" }

// DataSetFileCreation describes one file already present in the store.
type DataSetFileCreation struct {
	Path          string `json:"path"`
	Directory     bool   `json:"directory"`
	FileLength    int64  `json:"fileLength,omitempty"`
	ChecksumCRC32 int64  `json:"checksumCRC32,omitempty"`
}

func (*DataSetFileCreation) TypeName() string { return "dss.dto.datasetfile.create.DataSetFileCreation" }

// FullDataSetCreation is the data store form of a data set creation.
type FullDataSetCreation struct {
	Metadata     *DataSetCreation       `json:"metadataCreation"`
	FileMetadata []*DataSetFileCreation `json:"fileMetadata,omitempty"`
}

func (*FullDataSetCreation) TypeName() string { return "dss.dto.dataset.create.FullDataSetCreation" }

// UploadedDataSetCreation registers files sent to the upload endpoint under
// UploadID.
type UploadedDataSetCreation struct {
	TypeID       ObjectID          `json:"typeId"`
	ExperimentID ObjectID          `json:"experimentId,omitempty"`
	SampleID     ObjectID          `json:"sampleId,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
	ParentIDs    []ObjectID        `json:"parentIds,omitempty"`
	UploadID     string            `json:"uploadId"`
}

func (*UploadedDataSetCreation) TypeName() string {
	return "dss.dto.dataset.create.UploadedDataSetCreation"
}

type MaterialCreation struct {
	Code       string            `json:"code"`
	TypeID     ObjectID          `json:"typeId"`
	Properties map[string]string `json:"properties,omitempty"`
	TagIDs     []ObjectID        `json:"tagIds,omitempty"`
}

func (*MaterialCreation) TypeName() string { return "as.dto.material.create.MaterialCreation" }

type VocabularyCreation struct {
	Code        string                    `json:"code"`
	Description string                    `json:"description,omitempty"`
	Terms       []*VocabularyTermCreation `json:"terms,omitempty"`
}

func (*VocabularyCreation) TypeName() string { return "as.dto.vocabulary.create.VocabularyCreation" }

type VocabularyTermCreation struct {
	VocabularyID ObjectID `json:"vocabularyId,omitempty"`
	Code         string   `json:"code"`
	Label        string   `json:"label,omitempty"`
	Description  string   `json:"description,omitempty"`
	Official     bool     `json:"official"`
}

func (*VocabularyTermCreation) TypeName() string {
	return "as.dto.vocabulary.create.VocabularyTermCreation"
}

type TagCreation struct {
	Code          string     `json:"code"`
	Description   string     `json:"description,omitempty"`
	ExperimentIDs []ObjectID `json:"experimentIds,omitempty"`
	SampleIDs     []ObjectID `json:"sampleIds,omitempty"`
	DataSetIDs    []ObjectID `json:"dataSetIds,omitempty"`
}

func (*TagCreation) TypeName() string { return "as.dto.tag.create.TagCreation" }

type PropertyTypeCreation struct {
	Code         string   `json:"code"`
	Label        string   `json:"label"`
	Description  string   `json:"description"`
	DataType     string   `json:"dataType"`
	VocabularyID ObjectID `json:"vocabularyId,omitempty"`
}

func (*PropertyTypeCreation) TypeName() string { return "as.dto.property.create.PropertyTypeCreation" }

type PersonCreation struct {
	UserID  string   `json:"userId"`
	SpaceID ObjectID `json:"spaceId,omitempty"`
}

func (*PersonCreation) TypeName() string { return "as.dto.person.create.PersonCreation" }

// PropertyAssignmentCreation assigns a property type to a new entity type.
type PropertyAssignmentCreation struct {
	PropertyTypeID ObjectID `json:"propertyTypeId"`
	Section        string   `json:"section,omitempty"`
	Ordinal        int      `json:"ordinal,omitempty"`
	Mandatory      bool     `json:"mandatory"`
}

func (*PropertyAssignmentCreation) TypeName() string {
	return "as.dto.property.create.PropertyAssignmentCreation"
}

// EntityTypeCreation holds the fields shared by the entity type creations.
type EntityTypeCreation struct {
	Code                string                        `json:"code"`
	Description         string                        `json:"description,omitempty"`
	PropertyAssignments []*PropertyAssignmentCreation `json:"propertyAssignments,omitempty"`
}

type SampleTypeCreation struct {
	EntityTypeCreation
	GeneratedCodePrefix string `json:"generatedCodePrefix,omitempty"`
	AutoGeneratedCode   bool   `json:"autoGeneratedCode,omitempty"`
}

func (*SampleTypeCreation) TypeName() string { return "as.dto.sample.create.SampleTypeCreation" }

type ExperimentTypeCreation struct {
	EntityTypeCreation
}

func (*ExperimentTypeCreation) TypeName() string {
	return "as.dto.experiment.create.ExperimentTypeCreation"
}

type DataSetTypeCreation struct {
	EntityTypeCreation
	MainDataSetPattern string `json:"mainDataSetPattern,omitempty"`
}

func (*DataSetTypeCreation) TypeName() string { return "as.dto.dataset.create.DataSetTypeCreation" }

type MaterialTypeCreation struct {
	EntityTypeCreation
}

func (*MaterialTypeCreation) TypeName() string { return "as.dto.material.create.MaterialTypeCreation" }

type PluginCreation struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	PluginType  string     `json:"pluginType"`
	EntityKind  EntityKind `json:"entityKind,omitempty"`
	Script      string     `json:"script,omitempty"`
	Available   bool       `json:"available"`
}

func (*PluginCreation) TypeName() string { return "as.dto.plugin.create.PluginCreation" }
