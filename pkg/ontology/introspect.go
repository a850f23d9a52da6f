package ontology

import (
	"context"
	"sort"
	"strings"
)

// SearchType selects which parts of the knowledge base a semantic search
// inspects.
type SearchType string

const (
	// SearchAll searches schema and instance data.
	SearchAll SearchType = "all"
	// SearchClasses restricts the search to class names.
	SearchClasses SearchType = "classes"
	// SearchProperties restricts the search to property names and labels.
	SearchProperties SearchType = "properties"
	// SearchInstances restricts the search to instance property values.
	SearchInstances SearchType = "instances"
)

// QueryKind selects what a structured introspection query returns.
type QueryKind string

const (
	QueryClasses    QueryKind = "classes"
	QueryProperties QueryKind = "properties"
	QueryInstances  QueryKind = "instances"
)

// ClassSummary describes one class in an ontology description.
type ClassSummary struct {
	Name          string               `json:"name"`
	Properties    []PropertyDefinition `json:"properties"`
	InstanceCount int                  `json:"instance_count"`
}

// PropertySummary is one entry of the flattened property list.
type PropertySummary struct {
	Name  string       `json:"name"`
	Class string       `json:"class"`
	Type  PropertyType `json:"type"`
	Label string       `json:"label"`
}

// Description is a point-in-time view of the whole ontology.
type Description struct {
	Classes    []ClassSummary    `json:"classes"`
	Properties []PropertySummary `json:"properties"`
}

// SearchResult is a single ranked hit from SearchSemantic.
type SearchResult struct {
	// Kind is "class", "property", or "instance".
	Kind string `json:"kind"`
	// Name identifies the hit: class name, "class.property", or instance id.
	Name string `json:"name"`
	// Detail carries the matched text (label or property value).
	Detail string `json:"detail,omitempty"`
	// Score ranks the hit; higher is more relevant.
	Score float64 `json:"score"`
}

// SimilaritySearcher is an optional vector search provider. Results are merged
// with the lexical hits by score. Implementations that cannot serve a query
// should return an error; the introspector degrades to lexical results.
type SimilaritySearcher interface {
	Search(ctx context.Context, text string, topK int) ([]SearchResult, error)
}

// Introspector answers questions about the ontology and its instances. Every
// answer is computed from live registry and store state at call time.
type Introspector struct {
	schema *Registry
	store  *Store

	// similarity is optional; nil means lexical search only.
	similarity SimilaritySearcher
}

// NewIntrospector creates an introspector over the given registry and store.
func NewIntrospector(schema *Registry, store *Store) *Introspector {
	return &Introspector{schema: schema, store: store}
}

// WithSimilaritySearcher attaches a vector search provider and returns the
// introspector for chaining.
func (in *Introspector) WithSimilaritySearcher(s SimilaritySearcher) *Introspector {
	in.similarity = s
	return in
}

// DescribeOntology returns every class with its properties and instance count,
// plus a flattened list of all properties across classes.
func (in *Introspector) DescribeOntology() *Description {
	classes := in.schema.ListClasses()

	desc := &Description{
		Classes:    make([]ClassSummary, 0, len(classes)),
		Properties: make([]PropertySummary, 0),
	}
	for _, class := range classes {
		desc.Classes = append(desc.Classes, ClassSummary{
			Name:          class.Name,
			Properties:    class.Properties,
			InstanceCount: in.store.CountInstances(class.Name),
		})
		for _, prop := range class.Properties {
			desc.Properties = append(desc.Properties, PropertySummary{
				Name:  prop.Name,
				Class: class.Name,
				Type:  prop.Type,
				Label: prop.Label,
			})
		}
	}
	return desc
}

// Query runs a structured introspection query. classFilter narrows properties
// and instances to one class; it is ignored for the classes kind. An unknown
// kind is an error, never an empty result.
func (in *Introspector) Query(kind QueryKind, classFilter string) (any, error) {
	switch kind {
	case QueryClasses:
		return in.schema.ListClasses(), nil
	case QueryProperties:
		desc := in.DescribeOntology()
		if classFilter == "" {
			return desc.Properties, nil
		}
		props := make([]PropertySummary, 0)
		for _, p := range desc.Properties {
			if p.Class == classFilter {
				props = append(props, p)
			}
		}
		return props, nil
	case QueryInstances:
		return in.store.ListInstances(classFilter), nil
	default:
		return nil, NewQueryError(CodeInvalidQueryKind,
			"unknown query kind "+string(kind))
	}
}

// Lexical match scores. Schema hits outrank instance value hits.
const (
	scoreSchemaMatch = 0.8
	scoreValueMatch  = 0.7
)

// SearchSemantic performs a case-insensitive substring search across the
// ontology and merges in vector results when a provider is attached. Results
// are sorted by descending score, then by name for stable output, and
// truncated to topK.
func (in *Introspector) SearchSemantic(ctx context.Context, text string, searchType SearchType, topK int) []SearchResult {
	if topK <= 0 {
		topK = 10
	}
	needle := strings.ToLower(text)

	var results []SearchResult
	if searchType == SearchAll || searchType == SearchClasses || searchType == SearchProperties {
		results = append(results, in.searchSchema(needle, searchType)...)
	}
	if searchType == SearchAll || searchType == SearchInstances {
		results = append(results, in.searchValues(needle)...)
	}

	if in.similarity != nil {
		vector, err := in.similarity.Search(ctx, text, topK)
		if err == nil {
			results = append(results, vector...)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func (in *Introspector) searchSchema(needle string, searchType SearchType) []SearchResult {
	var results []SearchResult
	for _, class := range in.schema.ListClasses() {
		if searchType != SearchProperties && strings.Contains(strings.ToLower(class.Name), needle) {
			results = append(results, SearchResult{
				Kind:  "class",
				Name:  class.Name,
				Score: scoreSchemaMatch,
			})
		}
		if searchType == SearchClasses {
			continue
		}
		for _, prop := range class.Properties {
			if strings.Contains(strings.ToLower(prop.Name), needle) ||
				strings.Contains(strings.ToLower(prop.Label), needle) {
				results = append(results, SearchResult{
					Kind:   "property",
					Name:   class.Name + "." + prop.Name,
					Detail: prop.Label,
					Score:  scoreSchemaMatch,
				})
			}
		}
	}
	return results
}

func (in *Introspector) searchValues(needle string) []SearchResult {
	var results []SearchResult
	for _, inst := range in.store.ListInstances("") {
		for name, value := range inst.Properties {
			s, ok := value.(string)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(s), needle) {
				results = append(results, SearchResult{
					Kind:   "instance",
					Name:   inst.ID,
					Detail: name + "=" + s,
					Score:  scoreValueMatch,
				})
				break
			}
		}
	}
	return results
}
