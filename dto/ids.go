package dto

import "strconv"

// ObjectID identifies an openBIS object. String is the form openBIS uses as
// the key of maps keyed by id.
type ObjectID interface {
	TypeName() string
	String() string
}

// SpacePermId identifies a space by code.
type SpacePermId struct {
	PermID string `json:"permId"`
}

func NewSpacePermId(code string) SpacePermId { return SpacePermId{PermID: code} }
func (SpacePermId) TypeName() string         { return "as.dto.space.id.SpacePermId" }
func (id SpacePermId) String() string        { return id.PermID }

// ProjectPermId identifies a project by perm id.
type ProjectPermId struct {
	PermID string `json:"permId"`
}

func NewProjectPermId(permID string) ProjectPermId { return ProjectPermId{PermID: permID} }
func (ProjectPermId) TypeName() string             { return "as.dto.project.id.ProjectPermId" }
func (id ProjectPermId) String() string            { return id.PermID }

// ProjectIdentifier identifies a project by "/SPACE/PROJECT".
type ProjectIdentifier struct {
	Identifier string `json:"identifier"`
}

func NewProjectIdentifier(identifier string) ProjectIdentifier {
	return ProjectIdentifier{Identifier: identifier}
}
func (ProjectIdentifier) TypeName() string  { return "as.dto.project.id.ProjectIdentifier" }
func (id ProjectIdentifier) String() string { return id.Identifier }

// ExperimentPermId identifies an experiment by perm id.
type ExperimentPermId struct {
	PermID string `json:"permId"`
}

func NewExperimentPermId(permID string) ExperimentPermId { return ExperimentPermId{PermID: permID} }
func (ExperimentPermId) TypeName() string                { return "as.dto.experiment.id.ExperimentPermId" }
func (id ExperimentPermId) String() string               { return id.PermID }

// ExperimentIdentifier identifies an experiment by "/SPACE/PROJECT/EXPERIMENT".
type ExperimentIdentifier struct {
	Identifier string `json:"identifier"`
}

func NewExperimentIdentifier(identifier string) ExperimentIdentifier {
	return ExperimentIdentifier{Identifier: identifier}
}
func (ExperimentIdentifier) TypeName() string  { return "as.dto.experiment.id.ExperimentIdentifier" }
func (id ExperimentIdentifier) String() string { return id.Identifier }

// SamplePermId identifies a sample by perm id.
type SamplePermId struct {
	PermID string `json:"permId"`
}

func NewSamplePermId(permID string) SamplePermId { return SamplePermId{PermID: permID} }
func (SamplePermId) TypeName() string            { return "as.dto.sample.id.SamplePermId" }
func (id SamplePermId) String() string           { return id.PermID }

// SampleIdentifier identifies a sample by "/SPACE/SAMPLE" or
// "/SPACE/PROJECT/SAMPLE".
type SampleIdentifier struct {
	Identifier string `json:"identifier"`
}

func NewSampleIdentifier(identifier string) SampleIdentifier {
	return SampleIdentifier{Identifier: identifier}
}
func (SampleIdentifier) TypeName() string  { return "as.dto.sample.id.SampleIdentifier" }
func (id SampleIdentifier) String() string { return id.Identifier }

// DataSetPermId identifies a data set by code.
type DataSetPermId struct {
	PermID string `json:"permId"`
}

func NewDataSetPermId(code string) DataSetPermId { return DataSetPermId{PermID: code} }
func (DataSetPermId) TypeName() string           { return "as.dto.dataset.id.DataSetPermId" }
func (id DataSetPermId) String() string          { return id.PermID }

// DataStorePermId identifies a data store server by code.
type DataStorePermId struct {
	PermID string `json:"permId"`
}

func NewDataStorePermId(code string) DataStorePermId { return DataStorePermId{PermID: code} }
func (DataStorePermId) TypeName() string             { return "as.dto.datastore.id.DataStorePermId" }
func (id DataStorePermId) String() string            { return id.PermID }

// PersonPermId identifies a person by user id.
type PersonPermId struct {
	PermID string `json:"permId"`
}

func NewPersonPermId(userID string) PersonPermId { return PersonPermId{PermID: userID} }
func (PersonPermId) TypeName() string            { return "as.dto.person.id.PersonPermId" }
func (id PersonPermId) String() string           { return id.PermID }

// TagPermId identifies a tag by "/OWNER/CODE".
type TagPermId struct {
	PermID string `json:"permId"`
}

func NewTagPermId(permID string) TagPermId { return TagPermId{PermID: permID} }
func (TagPermId) TypeName() string         { return "as.dto.tag.id.TagPermId" }
func (id TagPermId) String() string        { return id.PermID }

// TagCode identifies a tag of the session user by code.
type TagCode struct {
	Code string `json:"code"`
}

func NewTagCode(code string) TagCode { return TagCode{Code: code} }
func (TagCode) TypeName() string     { return "as.dto.tag.id.TagCode" }
func (id TagCode) String() string    { return id.Code }

// VocabularyPermId identifies a vocabulary by code.
type VocabularyPermId struct {
	PermID string `json:"permId"`
}

func NewVocabularyPermId(code string) VocabularyPermId { return VocabularyPermId{PermID: code} }
func (VocabularyPermId) TypeName() string              { return "as.dto.vocabulary.id.VocabularyPermId" }
func (id VocabularyPermId) String() string             { return id.PermID }

// VocabularyTermPermId identifies a term within a vocabulary.
type VocabularyTermPermId struct {
	Code           string `json:"code"`
	VocabularyCode string `json:"vocabularyCode"`
}

func NewVocabularyTermPermId(code, vocabularyCode string) VocabularyTermPermId {
	return VocabularyTermPermId{Code: code, VocabularyCode: vocabularyCode}
}
func (VocabularyTermPermId) TypeName() string { return "as.dto.vocabulary.id.VocabularyTermPermId" }
func (id VocabularyTermPermId) String() string {
	return id.Code + " (" + id.VocabularyCode + ")"
}

// MaterialPermId identifies a material by code and type code.
type MaterialPermId struct {
	Code     string `json:"code"`
	TypeCode string `json:"typeCode"`
}

func NewMaterialPermId(code, typeCode string) MaterialPermId {
	return MaterialPermId{Code: code, TypeCode: typeCode}
}
func (MaterialPermId) TypeName() string  { return "as.dto.material.id.MaterialPermId" }
func (id MaterialPermId) String() string { return id.Code + " (" + id.TypeCode + ")" }

// PropertyTypePermId identifies a property type by code.
type PropertyTypePermId struct {
	PermID string `json:"permId"`
}

func NewPropertyTypePermId(code string) PropertyTypePermId { return PropertyTypePermId{PermID: code} }
func (PropertyTypePermId) TypeName() string                { return "as.dto.property.id.PropertyTypePermId" }
func (id PropertyTypePermId) String() string               { return id.PermID }

// EntityTypePermId identifies a sample, experiment, data set or material type.
type EntityTypePermId struct {
	PermID     string     `json:"permId"`
	EntityKind EntityKind `json:"entityKind,omitempty"`
}

func NewEntityTypePermId(code string, kind EntityKind) EntityTypePermId {
	return EntityTypePermId{PermID: code, EntityKind: kind}
}
func (EntityTypePermId) TypeName() string  { return "as.dto.entitytype.id.EntityTypePermId" }
func (id EntityTypePermId) String() string { return id.PermID }

// PluginPermId identifies a plugin by name.
type PluginPermId struct {
	PermID string `json:"permId"`
}

func NewPluginPermId(name string) PluginPermId { return PluginPermId{PermID: name} }
func (PluginPermId) TypeName() string          { return "as.dto.plugin.id.PluginPermId" }
func (id PluginPermId) String() string         { return id.PermID }

// DataSetFilePermId identifies a file inside a data set.
type DataSetFilePermId struct {
	DataSetID DataSetPermId `json:"dataSetId"`
	FilePath  string        `json:"filePath"`
}

func (DataSetFilePermId) TypeName() string { return "dss.dto.datasetfile.id.DataSetFilePermId" }
func (id DataSetFilePermId) String() string {
	return id.DataSetID.PermID + "#" + id.FilePath
}

// CustomASServiceCode identifies a custom application server service.
type CustomASServiceCode struct {
	PermID string `json:"permId"`
}

func NewCustomASServiceCode(code string) CustomASServiceCode { return CustomASServiceCode{PermID: code} }
func (CustomASServiceCode) TypeName() string                 { return "as.dto.service.id.CustomASServiceCode" }
func (id CustomASServiceCode) String() string                { return id.PermID }

// DeletionTechId identifies a deletion in the trash can.
type DeletionTechId struct {
	TechID int64 `json:"techId"`
}

func (DeletionTechId) TypeName() string  { return "as.dto.deletion.id.DeletionTechId" }
func (id DeletionTechId) String() string { return strconv.FormatInt(id.TechID, 10) }
