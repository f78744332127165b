// Package docindex defines the document schema and manages the on-disk
// index lifecycle: creating (and, if needed, recreating) the index
// directory, buffering documents during a traversal, and committing them.
package docindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names as stored in the index. id and parent_id are kept as
// keyword-analyzed decimal text rather than bleve's numeric field type: a
// numeric field stores float64 internally, which cannot exactly represent
// the sentinel parent id (math.MaxUint64) or, in principle, ids near the top
// of the uint64 range. Decimal text round-trips exactly and still supports
// exact-match point lookups via a TermQuery.
const (
	FieldID       = "id"
	FieldParentID = "parent_id"
	FieldPath     = "path"
	FieldTags     = "tags"
)

// Document is the unit of indexing: one visited filesystem entry and the
// facet paths that apply to it.
type Document struct {
	ID       uint64
	ParentID uint64
	Path     string
	Tags     []string
}

// buildMapping constructs the index schema described by the data model: path
// is tokenized free text (with term vectors, so the search service can turn
// match locations into highlight snippets); tags is a multi-valued exact-match
// facet field; id and parent_id are exact-match decimal text.
func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	// Paths split into runs of letters and digits, so "/repo/Cargo.toml"
	// indexes as "repo", "cargo", "toml" and a query for "Cargo" matches it.
	if err := im.AddCustomTokenizer("path_words", map[string]interface{}{
		"type": regexp.Name, "regexp": `[\p{L}\p{N}]+`,
	}); err != nil {
		panic(err)
	}
	if err := im.AddCustomAnalyzer("path", map[string]interface{}{
		"type": custom.Name, "tokenizer": "path_words", "token_filters": []string{lowercase.Name},
	}); err != nil {
		panic(err)
	}
	im.DefaultAnalyzer = "path"

	doc := bleve.NewDocumentMapping()

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	idField.IncludeInAll = false
	doc.AddFieldMappingsAt(FieldID, idField)

	parentField := bleve.NewTextFieldMapping()
	parentField.Analyzer = keyword.Name
	parentField.Store = true
	parentField.IncludeInAll = false
	doc.AddFieldMappingsAt(FieldParentID, parentField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = "path"
	pathField.Store = true
	pathField.IncludeTermVectors = true
	doc.AddFieldMappingsAt(FieldPath, pathField)

	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = keyword.Name
	tagsField.Store = true
	tagsField.IncludeInAll = false
	doc.AddFieldMappingsAt(FieldTags, tagsField)

	im.DefaultMapping = doc
	return im
}
