package dto

import "github.com/mnehpets/openbis/codec"

type typeNamer interface {
	TypeName() string
}

// Interface names openBIS uses for id parameters and map keys. They all
// decode as ObjectID; map keys of these types stay strings.
var idInterfaces = []string{
	"IObjectId",
	"ISpaceId",
	"IProjectId",
	"IExperimentId",
	"ISampleId",
	"IDataSetId",
	"IDataStoreId",
	"IPersonId",
	"ITagId",
	"IVocabularyId",
	"IVocabularyTermId",
	"IMaterialId",
	"IPropertyTypeId",
	"IEntityTypeId",
	"IPluginId",
	"IDataSetFileId",
	"IDeletionId",
	"ICustomASServiceId",
	"IOperationExecutionId",
}

// NewRegistry returns a codec registry holding every type of this package.
func NewRegistry() *codec.Registry {
	r := codec.NewRegistry()
	Register(r)
	return r
}

// Register adds the types of this package to r. Entities are registered as
// pointers under their short name ("Sample") and their openBIS class name
// ("as.dto.sample.Sample"); ids as values. Each searchable entity also gets
// "SearchResult[<short name>]".
func Register(r *codec.Registry) {
	for _, name := range idInterfaces {
		codec.RegisterType[ObjectID](r, name)
	}

	searchable[*Space](r, "Space")
	searchable[*Project](r, "Project")
	searchable[*Experiment](r, "Experiment")
	searchable[*Sample](r, "Sample")
	searchable[*DataSet](r, "DataSet")
	searchable[*DataStore](r, "DataStore")
	searchable[*Person](r, "Person")
	searchable[*Tag](r, "Tag")
	searchable[*Vocabulary](r, "Vocabulary")
	searchable[*VocabularyTerm](r, "VocabularyTerm")
	searchable[*Material](r, "Material")
	searchable[*PropertyType](r, "PropertyType")
	searchable[*SampleType](r, "SampleType")
	searchable[*ExperimentType](r, "ExperimentType")
	searchable[*DataSetType](r, "DataSetType")
	searchable[*MaterialType](r, "MaterialType")
	searchable[*Plugin](r, "Plugin")
	searchable[*DataSetFile](r, "DataSetFile")
	searchable[*GlobalSearchObject](r, "GlobalSearchObject")
	searchable[*CustomASService](r, "CustomASService")
	searchable[*Deletion](r, "Deletion")

	named[*PropertyAssignment](r, "PropertyAssignment")
	named[*Rights](r, "Rights")
	named[*SessionInformation](r, "SessionInformation")
	codec.RegisterType[*OperationExecutionResults](r, "OperationExecutionResults",
		"as.dto.operation.SynchronousOperationExecutionResults",
		"as.dto.operation.AsynchronousOperationExecutionResults")

	named[SpacePermId](r, "SpacePermId")
	named[ProjectPermId](r, "ProjectPermId")
	named[ProjectIdentifier](r, "ProjectIdentifier")
	named[ExperimentPermId](r, "ExperimentPermId")
	named[ExperimentIdentifier](r, "ExperimentIdentifier")
	named[SamplePermId](r, "SamplePermId")
	named[SampleIdentifier](r, "SampleIdentifier")
	named[DataSetPermId](r, "DataSetPermId")
	named[DataStorePermId](r, "DataStorePermId")
	named[PersonPermId](r, "PersonPermId")
	named[TagPermId](r, "TagPermId")
	named[TagCode](r, "TagCode")
	named[VocabularyPermId](r, "VocabularyPermId")
	named[VocabularyTermPermId](r, "VocabularyTermPermId")
	named[MaterialPermId](r, "MaterialPermId")
	named[PropertyTypePermId](r, "PropertyTypePermId")
	named[EntityTypePermId](r, "EntityTypePermId")
	named[PluginPermId](r, "PluginPermId")
	named[DataSetFilePermId](r, "DataSetFilePermId")
	named[CustomASServiceCode](r, "CustomASServiceCode")
	named[DeletionTechId](r, "DeletionTechId")
	named[OperationExecutionPermId](r, "OperationExecutionPermId")

	named[*SpaceCreation](r, "SpaceCreation")
	named[*ProjectCreation](r, "ProjectCreation")
	named[*ExperimentCreation](r, "ExperimentCreation")
	named[*SampleCreation](r, "SampleCreation")
	named[*DataSetCreation](r, "DataSetCreation")
	named[*DataSetFileCreation](r, "DataSetFileCreation")
	named[*FullDataSetCreation](r, "FullDataSetCreation")
	named[*UploadedDataSetCreation](r, "UploadedDataSetCreation")
	named[*MaterialCreation](r, "MaterialCreation")
	named[*VocabularyCreation](r, "VocabularyCreation")
	named[*VocabularyTermCreation](r, "VocabularyTermCreation")
	named[*TagCreation](r, "TagCreation")
	named[*PropertyTypeCreation](r, "PropertyTypeCreation")
	named[*PersonCreation](r, "PersonCreation")
	named[*PropertyAssignmentCreation](r, "PropertyAssignmentCreation")
	named[*SampleTypeCreation](r, "SampleTypeCreation")
	named[*ExperimentTypeCreation](r, "ExperimentTypeCreation")
	named[*DataSetTypeCreation](r, "DataSetTypeCreation")
	named[*MaterialTypeCreation](r, "MaterialTypeCreation")
	named[*PluginCreation](r, "PluginCreation")

	named[*SpaceUpdate](r, "SpaceUpdate")
	named[*ProjectUpdate](r, "ProjectUpdate")
	named[*ExperimentUpdate](r, "ExperimentUpdate")
	named[*SampleUpdate](r, "SampleUpdate")
	named[*DataSetUpdate](r, "DataSetUpdate")
	named[*MaterialUpdate](r, "MaterialUpdate")
	named[*VocabularyUpdate](r, "VocabularyUpdate")
	named[*VocabularyTermUpdate](r, "VocabularyTermUpdate")
	named[*TagUpdate](r, "TagUpdate")
	named[*PropertyTypeUpdate](r, "PropertyTypeUpdate")
	named[*PersonUpdate](r, "PersonUpdate")
	named[*PluginUpdate](r, "PluginUpdate")
	named[*ListUpdate](r, "ListUpdate")
	codec.RegisterType[*EntityTypeUpdate](r, "EntityTypeUpdate",
		"as.dto.sample.update.SampleTypeUpdate",
		"as.dto.experiment.update.ExperimentTypeUpdate",
		"as.dto.dataset.update.DataSetTypeUpdate",
		"as.dto.material.update.MaterialTypeUpdate")

	named[*CustomASServiceExecutionOptions](r, "CustomASServiceExecutionOptions")
	codec.RegisterType[*FieldValue](r, "FieldValue",
		stringEqualTo, stringContains, stringPrefix,
		"as.dto.common.search.StringEndsWithValue",
		"as.dto.common.search.AnyStringValue")
}

// named registers T under short and its class name. T's TypeName must not
// dereference its receiver.
func named[T typeNamer](r *codec.Registry, short string) {
	var zero T
	codec.RegisterType[T](r, short, zero.TypeName())
}

func searchable[T typeNamer](r *codec.Registry, short string) {
	named[T](r, short)
	codec.RegisterType[*SearchResult[T]](r, "SearchResult["+short+"]")
}
