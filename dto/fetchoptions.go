package dto

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const emptyFetch = "as.dto.common.fetchoptions.EmptyFetchOptions"

// relations lists, per fetch options class, the relations that can be
// fetched and the fetch options class of each.
var relations = map[string]map[string]string{
	spaceFetch: {
		"registrator": personFetch,
		"projects":    projectFetch,
		"samples":     sampleFetch,
	},
	projectFetch: {
		"registrator": personFetch,
		"leader":      personFetch,
		"space":       spaceFetch,
		"experiments": experimentFetch,
		"samples":     sampleFetch,
	},
	experimentFetch: {
		"type":        experimentTypeFetch,
		"properties":  propertyFetch,
		"registrator": personFetch,
		"project":     projectFetch,
		"samples":     sampleFetch,
		"dataSets":    dataSetFetch,
		"tags":        tagFetch,
	},
	sampleFetch: {
		"type":        sampleTypeFetch,
		"properties":  propertyFetch,
		"registrator": personFetch,
		"space":       spaceFetch,
		"project":     projectFetch,
		"experiment":  experimentFetch,
		"container":   sampleFetch,
		"components":  sampleFetch,
		"parents":     sampleFetch,
		"children":    sampleFetch,
		"dataSets":    dataSetFetch,
		"tags":        tagFetch,
	},
	dataSetFetch: {
		"type":        dataSetTypeFetch,
		"properties":  propertyFetch,
		"registrator": personFetch,
		"experiment":  experimentFetch,
		"sample":      sampleFetch,
		"dataStore":   dataStoreFetch,
		"parents":     dataSetFetch,
		"children":    dataSetFetch,
		"tags":        tagFetch,
	},
	materialFetch: {
		"type":       materialTypeFetch,
		"properties": propertyFetch,
		"tags":       tagFetch,
	},
	personFetch: {
		"space": spaceFetch,
	},
	tagFetch: {
		"owner": personFetch,
	},
	vocabularyFetch: {
		"terms": vocabularyTermFetch,
	},
	vocabularyTermFetch: {
		"vocabulary": vocabularyFetch,
	},
	propertyTypeFetch: {
		"vocabulary": vocabularyFetch,
	},
	sampleTypeFetch:     {"propertyAssignments": propertyAssignmentFetch},
	experimentTypeFetch: {"propertyAssignments": propertyAssignmentFetch},
	dataSetTypeFetch:    {"propertyAssignments": propertyAssignmentFetch},
	materialTypeFetch:   {"propertyAssignments": propertyAssignmentFetch},
	propertyAssignmentFetch: {
		"propertyType": propertyTypeFetch,
	},
	dataSetFileFetch: {},
	globalSearchFetch: {
		"experiment": experimentFetch,
		"sample":     sampleFetch,
		"dataSet":    dataSetFetch,
		"material":   materialFetch,
	},
}

const (
	spaceFetch              = "as.dto.space.fetchoptions.SpaceFetchOptions"
	projectFetch            = "as.dto.project.fetchoptions.ProjectFetchOptions"
	experimentFetch         = "as.dto.experiment.fetchoptions.ExperimentFetchOptions"
	sampleFetch             = "as.dto.sample.fetchoptions.SampleFetchOptions"
	dataSetFetch            = "as.dto.dataset.fetchoptions.DataSetFetchOptions"
	dataStoreFetch          = "as.dto.datastore.fetchoptions.DataStoreFetchOptions"
	materialFetch           = "as.dto.material.fetchoptions.MaterialFetchOptions"
	personFetch             = "as.dto.person.fetchoptions.PersonFetchOptions"
	tagFetch                = "as.dto.tag.fetchoptions.TagFetchOptions"
	vocabularyFetch         = "as.dto.vocabulary.fetchoptions.VocabularyFetchOptions"
	vocabularyTermFetch     = "as.dto.vocabulary.fetchoptions.VocabularyTermFetchOptions"
	propertyTypeFetch       = "as.dto.property.fetchoptions.PropertyTypeFetchOptions"
	propertyAssignmentFetch = "as.dto.property.fetchoptions.PropertyAssignmentFetchOptions"
	propertyFetch           = "as.dto.property.fetchoptions.PropertyFetchOptions"
	pluginFetch             = "as.dto.plugin.fetchoptions.PluginFetchOptions"
	sampleTypeFetch         = "as.dto.sample.fetchoptions.SampleTypeFetchOptions"
	experimentTypeFetch     = "as.dto.experiment.fetchoptions.ExperimentTypeFetchOptions"
	dataSetTypeFetch        = "as.dto.dataset.fetchoptions.DataSetTypeFetchOptions"
	materialTypeFetch       = "as.dto.material.fetchoptions.MaterialTypeFetchOptions"
	dataSetFileFetch        = "dss.dto.datasetfile.fetchoptions.DataSetFileFetchOptions"
	globalSearchFetch       = "as.dto.global.fetchoptions.GlobalSearchObjectFetchOptions"
	customServiceFetch      = "as.dto.service.fetchoptions.CustomASServiceFetchOptions"
)

// FetchOptions selects the related objects a get or search returns. Each
// relation is itself a FetchOptions, so whole object graphs can be requested:
//
//	fo := dto.SampleFetch().With("space", "parents.type", "children")
//
// The zero value fetches nothing and marshals as EmptyFetchOptions.
type FetchOptions struct {
	Type  string
	From  int
	Count int

	sub map[string]*FetchOptions
}

func NewFetchOptions(typeName string) *FetchOptions {
	return &FetchOptions{Type: typeName}
}

func SpaceFetch() *FetchOptions           { return NewFetchOptions(spaceFetch) }
func ProjectFetch() *FetchOptions         { return NewFetchOptions(projectFetch) }
func ExperimentFetch() *FetchOptions      { return NewFetchOptions(experimentFetch) }
func SampleFetch() *FetchOptions          { return NewFetchOptions(sampleFetch) }
func DataSetFetch() *FetchOptions         { return NewFetchOptions(dataSetFetch) }
func DataStoreFetch() *FetchOptions       { return NewFetchOptions(dataStoreFetch) }
func MaterialFetch() *FetchOptions        { return NewFetchOptions(materialFetch) }
func PersonFetch() *FetchOptions          { return NewFetchOptions(personFetch) }
func TagFetch() *FetchOptions             { return NewFetchOptions(tagFetch) }
func VocabularyFetch() *FetchOptions      { return NewFetchOptions(vocabularyFetch) }
func VocabularyTermFetch() *FetchOptions  { return NewFetchOptions(vocabularyTermFetch) }
func PropertyTypeFetch() *FetchOptions    { return NewFetchOptions(propertyTypeFetch) }
func PluginFetch() *FetchOptions          { return NewFetchOptions(pluginFetch) }
func SampleTypeFetch() *FetchOptions      { return NewFetchOptions(sampleTypeFetch) }
func ExperimentTypeFetch() *FetchOptions  { return NewFetchOptions(experimentTypeFetch) }
func DataSetTypeFetch() *FetchOptions     { return NewFetchOptions(dataSetTypeFetch) }
func MaterialTypeFetch() *FetchOptions    { return NewFetchOptions(materialTypeFetch) }
func DataSetFileFetch() *FetchOptions     { return NewFetchOptions(dataSetFileFetch) }
func GlobalSearchFetch() *FetchOptions    { return NewFetchOptions(globalSearchFetch) }
func CustomASServiceFetch() *FetchOptions { return NewFetchOptions(customServiceFetch) }

// With adds the relations named by each dotted path and returns f.
func (f *FetchOptions) With(paths ...string) *FetchOptions {
	for _, p := range paths {
		cur := f
		for _, name := range strings.Split(p, ".") {
			cur = cur.Sub(name)
		}
	}
	return f
}

// Sub returns the fetch options of relation name, adding the relation if
// it is not fetched yet.
func (f *FetchOptions) Sub(name string) *FetchOptions {
	if s, ok := f.sub[name]; ok {
		return s
	}
	typeName, ok := relations[f.Type][name]
	if !ok {
		typeName = emptyFetch
	}
	s := NewFetchOptions(typeName)
	if f.sub == nil {
		f.sub = make(map[string]*FetchOptions)
	}
	f.sub[name] = s
	return s
}

// Has reports whether relation name is fetched. It is nil-safe.
func (f *FetchOptions) Has(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.sub[name]
	return ok
}

// Get returns the fetch options of relation name, or nil.
func (f *FetchOptions) Get(name string) *FetchOptions {
	if f == nil {
		return nil
	}
	return f.sub[name]
}

// Relations returns the fetched relation names, sorted.
func (f *FetchOptions) Relations() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.sub))
	for n := range f.sub {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Page limits a search to count results starting at from.
func (f *FetchOptions) Page(from, count int) *FetchOptions {
	f.From = from
	f.Count = count
	return f
}

func (f FetchOptions) TypeName() string {
	if f.Type == "" {
		return emptyFetch
	}
	return f.Type
}

// MarshalJSON writes the relations as members next to "@type". Unset paging
// is written as null.
func (f FetchOptions) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(f.sub)+3)
	for name, s := range f.sub {
		m[name] = s
	}
	m["@type"] = f.TypeName()
	m["from"] = nil
	m["count"] = nil
	if f.Count > 0 {
		m["from"] = f.From
		m["count"] = f.Count
	}
	return json.Marshal(m)
}

func (f *FetchOptions) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*f = FetchOptions{}
	for name, raw := range m {
		switch name {
		case "@type":
			if err := json.Unmarshal(raw, &f.Type); err != nil {
				return fmt.Errorf("fetch options type: %w", err)
			}
		case "from", "count":
			var n *int
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("fetch options %s: %w", name, err)
			}
			if n == nil {
				continue
			}
			if name == "from" {
				f.From = *n
			} else {
				f.Count = *n
			}
		case "sort", "sortBy", "cacheMode":
		default:
			if len(raw) == 0 || raw[0] != '{' {
				continue
			}
			s := &FetchOptions{}
			if err := json.Unmarshal(raw, s); err != nil {
				return fmt.Errorf("fetch options %s: %w", name, err)
			}
			if f.sub == nil {
				f.sub = make(map[string]*FetchOptions)
			}
			f.sub[name] = s
		}
	}
	return nil
}
