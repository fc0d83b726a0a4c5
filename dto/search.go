package dto

// Operator combines the sub-criteria of a Criteria node.
type Operator string

const (
	And Operator = "AND"
	Or  Operator = "OR"
)

// Field types of leaf criteria.
const (
	FieldAttribute = "ATTRIBUTE"
	FieldProperty  = "PROPERTY"
	FieldAny       = "ANY_FIELD"
)

// Wire names of the criteria this package builds.
const (
	codeCriteria       = "as.dto.common.search.CodeSearchCriteria"
	codesCriteria      = "as.dto.common.search.CodesSearchCriteria"
	permIDCriteria     = "as.dto.common.search.PermIdSearchCriteria"
	idCriteria         = "as.dto.common.search.IdSearchCriteria"
	identifierCriteria = "as.dto.common.search.IdentifierSearchCriteria"
	propertyCriteria   = "as.dto.common.search.StringPropertySearchCriteria"
	textCriteria       = "as.dto.global.search.GlobalSearchTextCriteria"

	stringEqualTo  = "as.dto.common.search.StringEqualToValue"
	stringContains = "as.dto.common.search.StringContainsValue"
	stringPrefix   = "as.dto.common.search.StringStartsWithValue"
)

// Criteria is a node of a search criteria tree. Composite nodes (the ones
// returned by SpaceSearch, SampleSearch, ...) hold sub-criteria joined by
// Operator; leaf nodes compare one field against FieldValue.
//
// Type is written as the "@type" member, so any openBIS criteria class can be
// expressed even when this package has no constructor for it.
type Criteria struct {
	Type       string      `json:"@type"`
	FieldName  string      `json:"fieldName,omitempty"`
	FieldType  string      `json:"fieldType,omitempty"`
	FieldValue any         `json:"fieldValue,omitempty"`
	Negated    bool        `json:"negated,omitempty"`
	Criteria   []*Criteria `json:"criteria,omitempty"`
	Operator   Operator    `json:"operator,omitempty"`
}

// FieldValue is the typed value of a leaf criterion.
type FieldValue struct {
	Type  string `json:"@type"`
	Value any    `json:"value"`
}

func NewCriteria(typeName string) *Criteria {
	return &Criteria{Type: typeName, Operator: And}
}

func SpaceSearch() *Criteria        { return NewCriteria("as.dto.space.search.SpaceSearchCriteria") }
func ProjectSearch() *Criteria      { return NewCriteria("as.dto.project.search.ProjectSearchCriteria") }
func ExperimentSearch() *Criteria   { return NewCriteria("as.dto.experiment.search.ExperimentSearchCriteria") }
func SampleSearch() *Criteria       { return NewCriteria("as.dto.sample.search.SampleSearchCriteria") }
func DataSetSearch() *Criteria      { return NewCriteria("as.dto.dataset.search.DataSetSearchCriteria") }
func DataStoreSearch() *Criteria    { return NewCriteria("as.dto.datastore.search.DataStoreSearchCriteria") }
func MaterialSearch() *Criteria     { return NewCriteria("as.dto.material.search.MaterialSearchCriteria") }
func PersonSearch() *Criteria       { return NewCriteria("as.dto.person.search.PersonSearchCriteria") }
func TagSearch() *Criteria          { return NewCriteria("as.dto.tag.search.TagSearchCriteria") }
func VocabularySearch() *Criteria   { return NewCriteria("as.dto.vocabulary.search.VocabularySearchCriteria") }
func PropertyTypeSearch() *Criteria { return NewCriteria("as.dto.property.search.PropertyTypeSearchCriteria") }
func PluginSearch() *Criteria       { return NewCriteria("as.dto.plugin.search.PluginSearchCriteria") }
func SampleTypeSearch() *Criteria   { return NewCriteria("as.dto.sample.search.SampleTypeSearchCriteria") }
func DataSetTypeSearch() *Criteria  { return NewCriteria("as.dto.dataset.search.DataSetTypeSearchCriteria") }
func DataSetFileSearch() *Criteria  { return NewCriteria("dss.dto.datasetfile.search.DataSetFileSearchCriteria") }
func CustomASServiceSearch() *Criteria {
	return NewCriteria("as.dto.service.search.CustomASServiceSearchCriteria")
}

// VocabularyTermSearch matches the terms of one vocabulary.
func VocabularyTermSearch(vocabularyCode string) *Criteria {
	c := NewCriteria("as.dto.vocabulary.search.VocabularyTermSearchCriteria")
	return c.With(VocabularySearch().WithCode(vocabularyCode))
}

// GlobalSearch matches objects whose indexed text contains text.
func GlobalSearch(text string) *Criteria {
	c := NewCriteria("as.dto.global.search.GlobalSearchCriteria")
	c.Criteria = append(c.Criteria, &Criteria{
		Type:       textCriteria,
		FieldName:  "text",
		FieldType:  FieldAny,
		FieldValue: &FieldValue{Type: stringContains, Value: text},
	})
	return c
}

// With appends sub-criteria and returns c.
func (c *Criteria) With(sub ...*Criteria) *Criteria {
	c.Criteria = append(c.Criteria, sub...)
	return c
}

// WithOperator sets how sub-criteria are combined and returns c.
func (c *Criteria) WithOperator(op Operator) *Criteria {
	c.Operator = op
	return c
}

// WithCode matches the code exactly.
func (c *Criteria) WithCode(code string) *Criteria {
	return c.With(stringLeaf(codeCriteria, "code", stringEqualTo, code))
}

// WithCodeStartingWith matches codes with the given prefix.
func (c *Criteria) WithCodeStartingWith(prefix string) *Criteria {
	return c.With(stringLeaf(codeCriteria, "code", stringPrefix, prefix))
}

// WithCodes matches any of the codes.
func (c *Criteria) WithCodes(codes ...string) *Criteria {
	return c.With(&Criteria{
		Type:       codesCriteria,
		FieldName:  "codes",
		FieldType:  FieldAttribute,
		FieldValue: append([]string(nil), codes...),
	})
}

// WithPermID matches the perm id exactly.
func (c *Criteria) WithPermID(permID string) *Criteria {
	return c.With(stringLeaf(permIDCriteria, "perm_id", stringEqualTo, permID))
}

// WithIdentifier matches an identifier such as "/SPACE/PROJECT".
func (c *Criteria) WithIdentifier(identifier string) *Criteria {
	return c.With(stringLeaf(identifierCriteria, "identifier", stringEqualTo, identifier))
}

// WithID matches the object identified by id.
func (c *Criteria) WithID(id ObjectID) *Criteria {
	return c.With(&Criteria{
		Type:       idCriteria,
		FieldName:  "id",
		FieldType:  FieldAttribute,
		FieldValue: id,
	})
}

// WithProperty matches a property value exactly.
func (c *Criteria) WithProperty(name, value string) *Criteria {
	leaf := stringLeaf(propertyCriteria, name, stringEqualTo, value)
	leaf.FieldType = FieldProperty
	return c.With(leaf)
}

// WithSpace restricts the search to objects of the given space.
func (c *Criteria) WithSpace(code string) *Criteria {
	return c.With(SpaceSearch().WithCode(code))
}

// WithDataSet restricts the search to a data set, for file searches.
func (c *Criteria) WithDataSet(code string) *Criteria {
	return c.With(DataSetSearch().WithCode(code))
}

// Not negates c and returns it.
func (c *Criteria) Not() *Criteria {
	c.Negated = true
	return c
}

func stringLeaf(typeName, field, valueType, value string) *Criteria {
	return &Criteria{
		Type:       typeName,
		FieldName:  field,
		FieldType:  FieldAttribute,
		FieldValue: &FieldValue{Type: valueType, Value: value},
	}
}

// IsCode reports whether c is a leaf comparing the code attribute.
func (c *Criteria) IsCode() bool { return c.Type == codeCriteria }

// IsCodes reports whether c is a leaf listing several codes.
func (c *Criteria) IsCodes() bool { return c.Type == codesCriteria }

// IsPermID reports whether c is a leaf comparing the perm id.
func (c *Criteria) IsPermID() bool { return c.Type == permIDCriteria }

// StringValue returns the compared string of a string leaf, with the value
// type's short name ("StringEqualToValue", ...).
func (c *Criteria) StringValue() (value, match string, ok bool) {
	switch fv := c.FieldValue.(type) {
	case *FieldValue:
		s, isStr := fv.Value.(string)
		return s, shortName(fv.Type), isStr
	case map[string]any:
		s, isStr := fv["value"].(string)
		t, _ := fv["@type"].(string)
		return s, shortName(t), isStr
	}
	return "", "", false
}

// StringValues returns the codes of a codes leaf.
func (c *Criteria) StringValues() []string {
	switch fv := c.FieldValue.(type) {
	case []string:
		return fv
	case []any:
		out := make([]string, 0, len(fv))
		for _, v := range fv {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func shortName(typeName string) string {
	for i := len(typeName) - 1; i >= 0; i-- {
		if typeName[i] == '.' {
			return typeName[i+1:]
		}
	}
	return typeName
}

// SearchResult is one page of a search. TotalCount counts all matches, not
// only the ones in Objects.
type SearchResult[T any] struct {
	Objects    []T `json:"objects"`
	TotalCount int `json:"totalCount"`
}

func (*SearchResult[T]) TypeName() string { return "as.dto.common.search.SearchResult" }
