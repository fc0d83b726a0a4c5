package dto

import "time"

// EntityKind is the kind of an entity type.
type EntityKind string

const (
	KindSample     EntityKind = "SAMPLE"
	KindExperiment EntityKind = "EXPERIMENT"
	KindDataSet    EntityKind = "DATA_SET"
	KindMaterial   EntityKind = "MATERIAL"
)

// Right is an operation the session user may perform on an object.
type Right string

const (
	RightCreate Right = "CREATE"
	RightUpdate Right = "UPDATE"
	RightDelete Right = "DELETE"
)

// Space is a top-level container of projects and samples.
type Space struct {
	PermID           *SpacePermId `json:"permId,omitempty"`
	Code             string       `json:"code"`
	Description      string       `json:"description,omitempty"`
	Frozen           bool         `json:"frozen,omitempty"`
	RegistrationDate time.Time    `json:"registrationDate"`
	ModificationDate time.Time    `json:"modificationDate"`
	Registrator      *Person      `json:"registrator,omitempty"`
	Projects         []*Project   `json:"projects,omitempty"`
	Samples          []*Sample    `json:"samples,omitempty"`
}

func (*Space) TypeName() string { return "as.dto.space.Space" }

type Project struct {
	PermID           *ProjectPermId     `json:"permId,omitempty"`
	Identifier       *ProjectIdentifier `json:"identifier,omitempty"`
	Code             string             `json:"code"`
	Description      string             `json:"description,omitempty"`
	Frozen           bool               `json:"frozen,omitempty"`
	RegistrationDate time.Time          `json:"registrationDate"`
	ModificationDate time.Time          `json:"modificationDate"`
	Registrator      *Person            `json:"registrator,omitempty"`
	Leader           *Person            `json:"leader,omitempty"`
	Space            *Space             `json:"space,omitempty"`
	Experiments      []*Experiment      `json:"experiments,omitempty"`
	Samples          []*Sample          `json:"samples,omitempty"`
}

func (*Project) TypeName() string { return "as.dto.project.Project" }

type Experiment struct {
	PermID           *ExperimentPermId     `json:"permId,omitempty"`
	Identifier       *ExperimentIdentifier `json:"identifier,omitempty"`
	Code             string                `json:"code"`
	Type             *ExperimentType       `json:"type,omitempty"`
	Properties       map[string]any        `json:"properties,omitempty"`
	Frozen           bool                  `json:"frozen,omitempty"`
	RegistrationDate time.Time             `json:"registrationDate"`
	ModificationDate time.Time             `json:"modificationDate"`
	Registrator      *Person               `json:"registrator,omitempty"`
	Project          *Project              `json:"project,omitempty"`
	Samples          []*Sample             `json:"samples,omitempty"`
	DataSets         []*DataSet            `json:"dataSets,omitempty"`
	Tags             []*Tag                `json:"tags,omitempty"`
}

func (*Experiment) TypeName() string { return "as.dto.experiment.Experiment" }

// Sample is an object in the lab: a specimen, a plate, an ELN entry.
// Parents and Children usually refer back to each other.
type Sample struct {
	PermID           *SamplePermId     `json:"permId,omitempty"`
	Identifier       *SampleIdentifier `json:"identifier,omitempty"`
	Code             string            `json:"code"`
	Type             *SampleType       `json:"type,omitempty"`
	Properties       map[string]any    `json:"properties,omitempty"`
	Frozen           bool              `json:"frozen,omitempty"`
	RegistrationDate time.Time         `json:"registrationDate"`
	ModificationDate time.Time         `json:"modificationDate"`
	Registrator      *Person           `json:"registrator,omitempty"`
	Space            *Space            `json:"space,omitempty"`
	Project          *Project          `json:"project,omitempty"`
	Experiment       *Experiment       `json:"experiment,omitempty"`
	Container        *Sample           `json:"container,omitempty"`
	Components       []*Sample         `json:"components,omitempty"`
	Parents          []*Sample         `json:"parents,omitempty"`
	Children         []*Sample         `json:"children,omitempty"`
	DataSets         []*DataSet        `json:"dataSets,omitempty"`
	Tags             []*Tag            `json:"tags,omitempty"`
}

func (*Sample) TypeName() string { return "as.dto.sample.Sample" }

type DataSet struct {
	PermID           *DataSetPermId `json:"permId,omitempty"`
	Code             string         `json:"code"`
	Kind             string         `json:"kind,omitempty"`
	Type             *DataSetType   `json:"type,omitempty"`
	Properties       map[string]any `json:"properties,omitempty"`
	Frozen           bool           `json:"frozen,omitempty"`
	RegistrationDate time.Time      `json:"registrationDate"`
	ModificationDate time.Time      `json:"modificationDate"`
	Registrator      *Person        `json:"registrator,omitempty"`
	Experiment       *Experiment    `json:"experiment,omitempty"`
	Sample           *Sample        `json:"sample,omitempty"`
	DataStore        *DataStore     `json:"dataStore,omitempty"`
	Parents          []*DataSet     `json:"parents,omitempty"`
	Children         []*DataSet     `json:"children,omitempty"`
	Tags             []*Tag         `json:"tags,omitempty"`
}

func (*DataSet) TypeName() string { return "as.dto.dataset.DataSet" }

// DataStore is a data store server. Its DownloadURL is the base of the data
// store's own JSON-RPC and upload endpoints.
type DataStore struct {
	PermID           *DataStorePermId `json:"permId,omitempty"`
	Code             string           `json:"code"`
	DownloadURL      string           `json:"downloadUrl"`
	RemoteURL        string           `json:"remoteUrl,omitempty"`
	RegistrationDate time.Time        `json:"registrationDate"`
	ModificationDate time.Time        `json:"modificationDate"`
}

func (*DataStore) TypeName() string { return "as.dto.datastore.DataStore" }

type Person struct {
	PermID           *PersonPermId `json:"permId,omitempty"`
	UserID           string        `json:"userId"`
	FirstName        string        `json:"firstName,omitempty"`
	LastName         string        `json:"lastName,omitempty"`
	Email            string        `json:"email,omitempty"`
	Active           bool          `json:"active"`
	RegistrationDate time.Time     `json:"registrationDate"`
	Space            *Space        `json:"space,omitempty"`
}

func (*Person) TypeName() string { return "as.dto.person.Person" }

type Tag struct {
	PermID           *TagPermId `json:"permId,omitempty"`
	Code             string     `json:"code"`
	Description      string     `json:"description,omitempty"`
	RegistrationDate time.Time  `json:"registrationDate"`
	Owner            *Person    `json:"owner,omitempty"`
}

func (*Tag) TypeName() string { return "as.dto.tag.Tag" }

type Vocabulary struct {
	PermID            *VocabularyPermId `json:"permId,omitempty"`
	Code              string            `json:"code"`
	Description       string            `json:"description,omitempty"`
	ManagedInternally bool              `json:"managedInternally,omitempty"`
	RegistrationDate  time.Time         `json:"registrationDate"`
	Terms             []*VocabularyTerm `json:"terms,omitempty"`
}

func (*Vocabulary) TypeName() string { return "as.dto.vocabulary.Vocabulary" }

type VocabularyTerm struct {
	PermID      *VocabularyTermPermId `json:"permId,omitempty"`
	Code        string                `json:"code"`
	Label       string                `json:"label,omitempty"`
	Description string                `json:"description,omitempty"`
	Ordinal     int64                 `json:"ordinal,omitempty"`
	Official    bool                  `json:"official"`
	Vocabulary  *Vocabulary           `json:"vocabulary,omitempty"`
}

func (*VocabularyTerm) TypeName() string { return "as.dto.vocabulary.VocabularyTerm" }

type Material struct {
	PermID           *MaterialPermId `json:"permId,omitempty"`
	Code             string          `json:"code"`
	Type             *MaterialType   `json:"type,omitempty"`
	Properties       map[string]any  `json:"properties,omitempty"`
	RegistrationDate time.Time       `json:"registrationDate"`
	Tags             []*Tag          `json:"tags,omitempty"`
}

func (*Material) TypeName() string { return "as.dto.material.Material" }

type PropertyType struct {
	PermID            *PropertyTypePermId `json:"permId,omitempty"`
	Code              string              `json:"code"`
	Label             string              `json:"label,omitempty"`
	Description       string              `json:"description,omitempty"`
	DataType          string              `json:"dataType,omitempty"`
	ManagedInternally bool                `json:"managedInternally,omitempty"`
	Vocabulary        *Vocabulary         `json:"vocabulary,omitempty"`
	RegistrationDate  time.Time           `json:"registrationDate"`
}

func (*PropertyType) TypeName() string { return "as.dto.property.PropertyType" }

// PropertyAssignment binds a property type to an entity type.
type PropertyAssignment struct {
	Section      string        `json:"section,omitempty"`
	Ordinal      int           `json:"ordinal,omitempty"`
	Mandatory    bool          `json:"mandatory"`
	PropertyType *PropertyType `json:"propertyType,omitempty"`
}

func (*PropertyAssignment) TypeName() string { return "as.dto.property.PropertyAssignment" }

// EntityType holds what sample, experiment, data set and material types
// have in common.
type EntityType struct {
	PermID              *EntityTypePermId     `json:"permId,omitempty"`
	Code                string                `json:"code"`
	Description         string                `json:"description,omitempty"`
	ModificationDate    time.Time             `json:"modificationDate"`
	PropertyAssignments []*PropertyAssignment `json:"propertyAssignments,omitempty"`
}

type SampleType struct {
	EntityType
	GeneratedCodePrefix string `json:"generatedCodePrefix,omitempty"`
	AutoGeneratedCode   bool   `json:"autoGeneratedCode,omitempty"`
	Listable            bool   `json:"listable,omitempty"`
}

func (*SampleType) TypeName() string { return "as.dto.sample.SampleType" }

type ExperimentType struct {
	EntityType
}

func (*ExperimentType) TypeName() string { return "as.dto.experiment.ExperimentType" }

type DataSetType struct {
	EntityType
	MainDataSetPattern string `json:"mainDataSetPattern,omitempty"`
}

func (*DataSetType) TypeName() string { return "as.dto.dataset.DataSetType" }

type MaterialType struct {
	EntityType
}

func (*MaterialType) TypeName() string { return "as.dto.material.MaterialType" }

// Plugin is a dynamic property, validation or entity validation script.
type Plugin struct {
	PermID      *PluginPermId `json:"permId,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	PluginType  string        `json:"pluginType,omitempty"`
	PluginKind  string        `json:"pluginKind,omitempty"`
	EntityKinds []EntityKind  `json:"entityKinds,omitempty"`
	Script      string        `json:"script,omitempty"`
	Available   bool          `json:"available"`
}

func (*Plugin) TypeName() string { return "as.dto.plugin.Plugin" }

// DataSetFile is a file or directory stored in a data set on a data store.
type DataSetFile struct {
	PermID        *DataSetFilePermId `json:"permId,omitempty"`
	DataSetPermID *DataSetPermId     `json:"dataSetPermId,omitempty"`
	DataStore     *DataStore         `json:"dataStore,omitempty"`
	Path          string             `json:"path"`
	Directory     bool               `json:"directory"`
	FileLength    int64              `json:"fileLength"`
	ChecksumCRC32 int64              `json:"checksumCRC32,omitempty"`
	Checksum      string             `json:"checksum,omitempty"`
	ChecksumType  string             `json:"checksumType,omitempty"`
}

func (*DataSetFile) TypeName() string { return "dss.dto.datasetfile.DataSetFile" }

// Rights lists what the session user may do with one object.
type Rights struct {
	Rights []Right `json:"rights"`
}

func (*Rights) TypeName() string { return "as.dto.rights.Rights" }

// Has reports whether r grants right.
func (r *Rights) Has(right Right) bool {
	if r == nil {
		return false
	}
	for _, x := range r.Rights {
		if x == right {
			return true
		}
	}
	return false
}

type SessionInformation struct {
	UserName      string  `json:"userName"`
	HomeGroupCode string  `json:"homeGroupCode,omitempty"`
	SessionToken  string  `json:"sessionToken"`
	Person        *Person `json:"person,omitempty"`
	CreatorPerson *Person `json:"creatorPerson,omitempty"`
}

func (*SessionInformation) TypeName() string { return "as.dto.session.SessionInformation" }

// GlobalSearchObject is one hit of a global text search.
type GlobalSearchObject struct {
	ObjectKind       string      `json:"objectKind"`
	ObjectPermID     ObjectID    `json:"objectPermId,omitempty"`
	ObjectIdentifier ObjectID    `json:"objectIdentifier,omitempty"`
	Score            float64     `json:"score"`
	Match            string      `json:"match,omitempty"`
	Experiment       *Experiment `json:"experiment,omitempty"`
	Sample           *Sample     `json:"sample,omitempty"`
	DataSet          *DataSet    `json:"dataSet,omitempty"`
	Material         *Material   `json:"material,omitempty"`
}

func (*GlobalSearchObject) TypeName() string { return "as.dto.global.GlobalSearchObject" }
