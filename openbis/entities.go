package openbis

import (
	"context"

	"github.com/mnehpets/openbis/codec"
	"github.com/mnehpets/openbis/dto"
)

// The entity operations below share one shape per verb. Get returns a map
// keyed by the string form of each found id; missing ids are absent. A nil
// FetchOptions fetches the entity without relations.

func create[ID any, C any](ctx context.Context, f *Facade, method, idName string, creations []C) ([]ID, error) {
	return authed[[]ID](ctx, f, method, codec.ListOf(codec.Scalar(idName)), creations)
}

func update[U any](ctx context.Context, f *Facade, method string, updates []U) error {
	_, err := authed[any](ctx, f, method, codec.Scalar(codec.Void), updates)
	return err
}

func remove(ctx context.Context, f *Facade, method string, ids []dto.ObjectID, opts *dto.DeletionOptions) error {
	_, err := authed[any](ctx, f, method, codec.Scalar(codec.Void), ids, opts)
	return err
}

func get[T any](ctx context.Context, f *Facade, method, idIface, name string, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]T, error) {
	return authed[map[string]T](ctx, f, method, codec.MapOf(codec.Scalar(idIface), codec.Scalar(name)), ids, fo)
}

func search[T any](ctx context.Context, f *Facade, method, name string, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[T], error) {
	return authed[*dto.SearchResult[T]](ctx, f, method, codec.Scalar("SearchResult["+name+"]"), c, fo)
}

func orDefault(fo *dto.FetchOptions, def func() *dto.FetchOptions) *dto.FetchOptions {
	if fo != nil {
		return fo
	}
	return def()
}

// Space operations.

func (f *Facade) CreateSpaces(ctx context.Context, creations ...*dto.SpaceCreation) ([]dto.SpacePermId, error) {
	return create[dto.SpacePermId](ctx, f, "createSpaces", "SpacePermId", creations)
}

func (f *Facade) UpdateSpaces(ctx context.Context, updates ...*dto.SpaceUpdate) error {
	return update(ctx, f, "updateSpaces", updates)
}

func (f *Facade) DeleteSpaces(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteSpaces", ids, dto.SpaceDeletion(reason))
}

func (f *Facade) GetSpaces(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Space, error) {
	return get[*dto.Space](ctx, f, "getSpaces", "ISpaceId", "Space", ids, orDefault(fo, dto.SpaceFetch))
}

func (f *Facade) SearchSpaces(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Space], error) {
	return search[*dto.Space](ctx, f, "searchSpaces", "Space", c, orDefault(fo, dto.SpaceFetch))
}

// Project operations.

func (f *Facade) CreateProjects(ctx context.Context, creations ...*dto.ProjectCreation) ([]dto.ProjectPermId, error) {
	return create[dto.ProjectPermId](ctx, f, "createProjects", "ProjectPermId", creations)
}

func (f *Facade) UpdateProjects(ctx context.Context, updates ...*dto.ProjectUpdate) error {
	return update(ctx, f, "updateProjects", updates)
}

func (f *Facade) DeleteProjects(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteProjects", ids, dto.ProjectDeletion(reason))
}

func (f *Facade) GetProjects(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Project, error) {
	return get[*dto.Project](ctx, f, "getProjects", "IProjectId", "Project", ids, orDefault(fo, dto.ProjectFetch))
}

func (f *Facade) SearchProjects(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Project], error) {
	return search[*dto.Project](ctx, f, "searchProjects", "Project", c, orDefault(fo, dto.ProjectFetch))
}

// Experiment operations.

func (f *Facade) CreateExperiments(ctx context.Context, creations ...*dto.ExperimentCreation) ([]dto.ExperimentPermId, error) {
	return create[dto.ExperimentPermId](ctx, f, "createExperiments", "ExperimentPermId", creations)
}

func (f *Facade) UpdateExperiments(ctx context.Context, updates ...*dto.ExperimentUpdate) error {
	return update(ctx, f, "updateExperiments", updates)
}

// DeleteExperiments moves the objects to the trash can and returns the deletion id.
func (f *Facade) DeleteExperiments(ctx context.Context, ids []dto.ObjectID, reason string) (dto.ObjectID, error) {
	return authed[dto.ObjectID](ctx, f, "deleteExperiments", codec.Scalar("IDeletionId"), ids, dto.ExperimentDeletion(reason))
}

func (f *Facade) GetExperiments(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Experiment, error) {
	return get[*dto.Experiment](ctx, f, "getExperiments", "IExperimentId", "Experiment", ids, orDefault(fo, dto.ExperimentFetch))
}

func (f *Facade) SearchExperiments(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Experiment], error) {
	return search[*dto.Experiment](ctx, f, "searchExperiments", "Experiment", c, orDefault(fo, dto.ExperimentFetch))
}

// Sample operations.

func (f *Facade) CreateSamples(ctx context.Context, creations ...*dto.SampleCreation) ([]dto.SamplePermId, error) {
	return create[dto.SamplePermId](ctx, f, "createSamples", "SamplePermId", creations)
}

func (f *Facade) UpdateSamples(ctx context.Context, updates ...*dto.SampleUpdate) error {
	return update(ctx, f, "updateSamples", updates)
}

// DeleteSamples moves the objects to the trash can and returns the deletion id.
func (f *Facade) DeleteSamples(ctx context.Context, ids []dto.ObjectID, reason string) (dto.ObjectID, error) {
	return authed[dto.ObjectID](ctx, f, "deleteSamples", codec.Scalar("IDeletionId"), ids, dto.SampleDeletion(reason))
}

func (f *Facade) GetSamples(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Sample, error) {
	return get[*dto.Sample](ctx, f, "getSamples", "ISampleId", "Sample", ids, orDefault(fo, dto.SampleFetch))
}

func (f *Facade) SearchSamples(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Sample], error) {
	return search[*dto.Sample](ctx, f, "searchSamples", "Sample", c, orDefault(fo, dto.SampleFetch))
}

// DataSet operations.

func (f *Facade) CreateDataSets(ctx context.Context, creations ...*dto.DataSetCreation) ([]dto.DataSetPermId, error) {
	return create[dto.DataSetPermId](ctx, f, "createDataSets", "DataSetPermId", creations)
}

func (f *Facade) UpdateDataSets(ctx context.Context, updates ...*dto.DataSetUpdate) error {
	return update(ctx, f, "updateDataSets", updates)
}

// DeleteDataSets moves the objects to the trash can and returns the deletion id.
func (f *Facade) DeleteDataSets(ctx context.Context, ids []dto.ObjectID, reason string) (dto.ObjectID, error) {
	return authed[dto.ObjectID](ctx, f, "deleteDataSets", codec.Scalar("IDeletionId"), ids, dto.DataSetDeletion(reason))
}

func (f *Facade) GetDataSets(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.DataSet, error) {
	return get[*dto.DataSet](ctx, f, "getDataSets", "IDataSetId", "DataSet", ids, orDefault(fo, dto.DataSetFetch))
}

func (f *Facade) SearchDataSets(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.DataSet], error) {
	return search[*dto.DataSet](ctx, f, "searchDataSets", "DataSet", c, orDefault(fo, dto.DataSetFetch))
}

// Material operations.

func (f *Facade) CreateMaterials(ctx context.Context, creations ...*dto.MaterialCreation) ([]dto.MaterialPermId, error) {
	return create[dto.MaterialPermId](ctx, f, "createMaterials", "MaterialPermId", creations)
}

func (f *Facade) UpdateMaterials(ctx context.Context, updates ...*dto.MaterialUpdate) error {
	return update(ctx, f, "updateMaterials", updates)
}

func (f *Facade) DeleteMaterials(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteMaterials", ids, dto.MaterialDeletion(reason))
}

func (f *Facade) GetMaterials(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Material, error) {
	return get[*dto.Material](ctx, f, "getMaterials", "IMaterialId", "Material", ids, orDefault(fo, dto.MaterialFetch))
}

func (f *Facade) SearchMaterials(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Material], error) {
	return search[*dto.Material](ctx, f, "searchMaterials", "Material", c, orDefault(fo, dto.MaterialFetch))
}

// Vocabulary operations.

func (f *Facade) CreateVocabularies(ctx context.Context, creations ...*dto.VocabularyCreation) ([]dto.VocabularyPermId, error) {
	return create[dto.VocabularyPermId](ctx, f, "createVocabularies", "VocabularyPermId", creations)
}

func (f *Facade) UpdateVocabularies(ctx context.Context, updates ...*dto.VocabularyUpdate) error {
	return update(ctx, f, "updateVocabularies", updates)
}

func (f *Facade) DeleteVocabularies(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteVocabularies", ids, dto.VocabularyDeletion(reason))
}

func (f *Facade) GetVocabularies(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Vocabulary, error) {
	return get[*dto.Vocabulary](ctx, f, "getVocabularies", "IVocabularyId", "Vocabulary", ids, orDefault(fo, dto.VocabularyFetch))
}

func (f *Facade) SearchVocabularies(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Vocabulary], error) {
	return search[*dto.Vocabulary](ctx, f, "searchVocabularies", "Vocabulary", c, orDefault(fo, dto.VocabularyFetch))
}

// VocabularyTerm operations.

func (f *Facade) CreateVocabularyTerms(ctx context.Context, creations ...*dto.VocabularyTermCreation) ([]dto.VocabularyTermPermId, error) {
	return create[dto.VocabularyTermPermId](ctx, f, "createVocabularyTerms", "VocabularyTermPermId", creations)
}

func (f *Facade) UpdateVocabularyTerms(ctx context.Context, updates ...*dto.VocabularyTermUpdate) error {
	return update(ctx, f, "updateVocabularyTerms", updates)
}

func (f *Facade) DeleteVocabularyTerms(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteVocabularyTerms", ids, dto.VocabularyTermDeletion(reason))
}

func (f *Facade) GetVocabularyTerms(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.VocabularyTerm, error) {
	return get[*dto.VocabularyTerm](ctx, f, "getVocabularyTerms", "IVocabularyTermId", "VocabularyTerm", ids, orDefault(fo, dto.VocabularyTermFetch))
}

func (f *Facade) SearchVocabularyTerms(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.VocabularyTerm], error) {
	return search[*dto.VocabularyTerm](ctx, f, "searchVocabularyTerms", "VocabularyTerm", c, orDefault(fo, dto.VocabularyTermFetch))
}

// Tag operations.

func (f *Facade) CreateTags(ctx context.Context, creations ...*dto.TagCreation) ([]dto.TagPermId, error) {
	return create[dto.TagPermId](ctx, f, "createTags", "TagPermId", creations)
}

func (f *Facade) UpdateTags(ctx context.Context, updates ...*dto.TagUpdate) error {
	return update(ctx, f, "updateTags", updates)
}

func (f *Facade) DeleteTags(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteTags", ids, dto.TagDeletion(reason))
}

func (f *Facade) GetTags(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Tag, error) {
	return get[*dto.Tag](ctx, f, "getTags", "ITagId", "Tag", ids, orDefault(fo, dto.TagFetch))
}

func (f *Facade) SearchTags(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Tag], error) {
	return search[*dto.Tag](ctx, f, "searchTags", "Tag", c, orDefault(fo, dto.TagFetch))
}

// PropertyType operations.

func (f *Facade) CreatePropertyTypes(ctx context.Context, creations ...*dto.PropertyTypeCreation) ([]dto.PropertyTypePermId, error) {
	return create[dto.PropertyTypePermId](ctx, f, "createPropertyTypes", "PropertyTypePermId", creations)
}

func (f *Facade) UpdatePropertyTypes(ctx context.Context, updates ...*dto.PropertyTypeUpdate) error {
	return update(ctx, f, "updatePropertyTypes", updates)
}

func (f *Facade) DeletePropertyTypes(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deletePropertyTypes", ids, dto.PropertyTypeDeletion(reason))
}

func (f *Facade) GetPropertyTypes(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.PropertyType, error) {
	return get[*dto.PropertyType](ctx, f, "getPropertyTypes", "IPropertyTypeId", "PropertyType", ids, orDefault(fo, dto.PropertyTypeFetch))
}

func (f *Facade) SearchPropertyTypes(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.PropertyType], error) {
	return search[*dto.PropertyType](ctx, f, "searchPropertyTypes", "PropertyType", c, orDefault(fo, dto.PropertyTypeFetch))
}

// Person operations.

func (f *Facade) CreatePersons(ctx context.Context, creations ...*dto.PersonCreation) ([]dto.PersonPermId, error) {
	return create[dto.PersonPermId](ctx, f, "createPersons", "PersonPermId", creations)
}

func (f *Facade) UpdatePersons(ctx context.Context, updates ...*dto.PersonUpdate) error {
	return update(ctx, f, "updatePersons", updates)
}

func (f *Facade) GetPersons(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Person, error) {
	return get[*dto.Person](ctx, f, "getPersons", "IPersonId", "Person", ids, orDefault(fo, dto.PersonFetch))
}

func (f *Facade) SearchPersons(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Person], error) {
	return search[*dto.Person](ctx, f, "searchPersons", "Person", c, orDefault(fo, dto.PersonFetch))
}

// SampleType operations.

func (f *Facade) CreateSampleTypes(ctx context.Context, creations ...*dto.SampleTypeCreation) ([]dto.EntityTypePermId, error) {
	return create[dto.EntityTypePermId](ctx, f, "createSampleTypes", "EntityTypePermId", creations)
}

func (f *Facade) UpdateSampleTypes(ctx context.Context, updates ...*dto.EntityTypeUpdate) error {
	return update(ctx, f, "updateSampleTypes", updates)
}

func (f *Facade) DeleteSampleTypes(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteSampleTypes", ids, dto.EntityTypeDeletion(dto.KindSample, reason))
}

func (f *Facade) GetSampleTypes(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.SampleType, error) {
	return get[*dto.SampleType](ctx, f, "getSampleTypes", "IEntityTypeId", "SampleType", ids, orDefault(fo, dto.SampleTypeFetch))
}

func (f *Facade) SearchSampleTypes(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.SampleType], error) {
	return search[*dto.SampleType](ctx, f, "searchSampleTypes", "SampleType", c, orDefault(fo, dto.SampleTypeFetch))
}

// ExperimentType operations.

func (f *Facade) CreateExperimentTypes(ctx context.Context, creations ...*dto.ExperimentTypeCreation) ([]dto.EntityTypePermId, error) {
	return create[dto.EntityTypePermId](ctx, f, "createExperimentTypes", "EntityTypePermId", creations)
}

func (f *Facade) UpdateExperimentTypes(ctx context.Context, updates ...*dto.EntityTypeUpdate) error {
	return update(ctx, f, "updateExperimentTypes", updates)
}

func (f *Facade) DeleteExperimentTypes(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteExperimentTypes", ids, dto.EntityTypeDeletion(dto.KindExperiment, reason))
}

func (f *Facade) GetExperimentTypes(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.ExperimentType, error) {
	return get[*dto.ExperimentType](ctx, f, "getExperimentTypes", "IEntityTypeId", "ExperimentType", ids, orDefault(fo, dto.ExperimentTypeFetch))
}

func (f *Facade) SearchExperimentTypes(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.ExperimentType], error) {
	return search[*dto.ExperimentType](ctx, f, "searchExperimentTypes", "ExperimentType", c, orDefault(fo, dto.ExperimentTypeFetch))
}

// DataSetType operations.

func (f *Facade) CreateDataSetTypes(ctx context.Context, creations ...*dto.DataSetTypeCreation) ([]dto.EntityTypePermId, error) {
	return create[dto.EntityTypePermId](ctx, f, "createDataSetTypes", "EntityTypePermId", creations)
}

func (f *Facade) UpdateDataSetTypes(ctx context.Context, updates ...*dto.EntityTypeUpdate) error {
	return update(ctx, f, "updateDataSetTypes", updates)
}

func (f *Facade) DeleteDataSetTypes(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteDataSetTypes", ids, dto.EntityTypeDeletion(dto.KindDataSet, reason))
}

func (f *Facade) GetDataSetTypes(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.DataSetType, error) {
	return get[*dto.DataSetType](ctx, f, "getDataSetTypes", "IEntityTypeId", "DataSetType", ids, orDefault(fo, dto.DataSetTypeFetch))
}

func (f *Facade) SearchDataSetTypes(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.DataSetType], error) {
	return search[*dto.DataSetType](ctx, f, "searchDataSetTypes", "DataSetType", c, orDefault(fo, dto.DataSetTypeFetch))
}

// MaterialType operations.

func (f *Facade) CreateMaterialTypes(ctx context.Context, creations ...*dto.MaterialTypeCreation) ([]dto.EntityTypePermId, error) {
	return create[dto.EntityTypePermId](ctx, f, "createMaterialTypes", "EntityTypePermId", creations)
}

func (f *Facade) UpdateMaterialTypes(ctx context.Context, updates ...*dto.EntityTypeUpdate) error {
	return update(ctx, f, "updateMaterialTypes", updates)
}

func (f *Facade) DeleteMaterialTypes(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deleteMaterialTypes", ids, dto.EntityTypeDeletion(dto.KindMaterial, reason))
}

func (f *Facade) GetMaterialTypes(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.MaterialType, error) {
	return get[*dto.MaterialType](ctx, f, "getMaterialTypes", "IEntityTypeId", "MaterialType", ids, orDefault(fo, dto.MaterialTypeFetch))
}

func (f *Facade) SearchMaterialTypes(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.MaterialType], error) {
	return search[*dto.MaterialType](ctx, f, "searchMaterialTypes", "MaterialType", c, orDefault(fo, dto.MaterialTypeFetch))
}

// Plugin operations.

func (f *Facade) CreatePlugins(ctx context.Context, creations ...*dto.PluginCreation) ([]dto.PluginPermId, error) {
	return create[dto.PluginPermId](ctx, f, "createPlugins", "PluginPermId", creations)
}

func (f *Facade) UpdatePlugins(ctx context.Context, updates ...*dto.PluginUpdate) error {
	return update(ctx, f, "updatePlugins", updates)
}

func (f *Facade) DeletePlugins(ctx context.Context, ids []dto.ObjectID, reason string) error {
	return remove(ctx, f, "deletePlugins", ids, dto.PluginDeletion(reason))
}

func (f *Facade) GetPlugins(ctx context.Context, ids []dto.ObjectID, fo *dto.FetchOptions) (map[string]*dto.Plugin, error) {
	return get[*dto.Plugin](ctx, f, "getPlugins", "IPluginId", "Plugin", ids, orDefault(fo, dto.PluginFetch))
}

func (f *Facade) SearchPlugins(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Plugin], error) {
	return search[*dto.Plugin](ctx, f, "searchPlugins", "Plugin", c, orDefault(fo, dto.PluginFetch))
}

// SearchDataStores lists data store servers. The application server only
// supports searching them.
func (f *Facade) SearchDataStores(ctx context.Context, c *dto.Criteria, fo *dto.FetchOptions) (*dto.SearchResult[*dto.DataStore], error) {
	return search[*dto.DataStore](ctx, f, "searchDataStores", "DataStore", c, orDefault(fo, dto.DataStoreFetch))
}

// Trash can operations.

func (f *Facade) SearchDeletions(ctx context.Context, fo *dto.FetchOptions) (*dto.SearchResult[*dto.Deletion], error) {
	if fo == nil {
		fo = dto.NewFetchOptions("as.dto.deletion.fetchoptions.DeletionFetchOptions")
	}
	c := dto.NewCriteria("as.dto.deletion.search.DeletionSearchCriteria")
	return search[*dto.Deletion](ctx, f, "searchDeletions", "Deletion", c, fo)
}

// ConfirmDeletions empties the given trash can entries for good.
func (f *Facade) ConfirmDeletions(ctx context.Context, ids ...dto.ObjectID) error {
	_, err := authed[any](ctx, f, "confirmDeletions", codec.Scalar(codec.Void), ids)
	return err
}

// RevertDeletions restores the objects of the given trash can entries.
func (f *Facade) RevertDeletions(ctx context.Context, ids ...dto.ObjectID) error {
	_, err := authed[any](ctx, f, "revertDeletions", codec.Scalar(codec.Void), ids)
	return err
}
