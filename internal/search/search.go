// Package search executes compiled queries against a document index,
// retrieves documents, generates highlight snippets, and reports facet
// aggregate counts.
package search

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/doctagserr"
	"github.com/tinyrange/doctags/internal/query"
)

// MaxLimit bounds an "unlimited" search (limit = 0).
const MaxLimit = 100000

// Hit is one scored search result.
type Hit struct {
	Score float64
	Path  string
}

// Interval is a half-open byte range [Start, End) into a Match's Path
// identifying a query-matched token.
type Interval struct {
	Start int
	End   int
}

// Match is a search hit augmented with highlight intervals.
type Match struct {
	Score   float64
	Path    string
	Snippet []Interval
}

// Service executes queries against a single open index.
type Service struct {
	idx bleve.Index
}

// New wraps an already-open index handle.
func New(idx bleve.Index) *Service {
	return &Service{idx: idx}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (s *Service) compile(raw string) (bquery.Query, error) {
	return query.Compile(raw)
}

// Search compiles raw and returns up to limit hits ordered by descending
// relevance. limit = 0 means unlimited, capped at MaxLimit.
func (s *Service) Search(raw string, limit int) ([]Hit, error) {
	q, err := s.compile(raw)
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(q, clampLimit(limit), 0, false)
	req.Fields = []string{docindex.FieldPath}

	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", doctagserr.ErrIndexIO, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{Score: h.Score, Path: fieldString(h.Fields, docindex.FieldPath)})
	}
	return hits, nil
}

// SearchMatches is Search plus, for every hit, a set of disjoint
// monotonically-increasing highlight intervals into Path identifying the
// query-matched tokens.
func (s *Service) SearchMatches(raw string, limit int) ([]Match, error) {
	q, err := s.compile(raw)
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(q, clampLimit(limit), 0, false)
	req.Fields = []string{docindex.FieldPath}
	req.IncludeLocations = true

	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", doctagserr.ErrIndexIO, err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, h := range res.Hits {
		path := fieldString(h.Fields, docindex.FieldPath)
		matches = append(matches, Match{
			Score:   h.Score,
			Path:    path,
			Snippet: snippetIntervals(h.Locations, path),
		})
	}
	return matches, nil
}

// snippetIntervals flattens every term-location the path field produced for
// a hit into a sorted, disjoint, in-bounds set of highlight intervals.
func snippetIntervals(locations search.FieldTermLocationMap, path string) []Interval {
	termLocs, ok := locations[docindex.FieldPath]
	if !ok {
		return nil
	}
	var ivs []Interval
	for _, locs := range termLocs {
		for _, loc := range locs {
			start, end := int(loc.Start), int(loc.End)
			if start < 0 || end > len(path) || start >= end {
				continue
			}
			ivs = append(ivs, Interval{Start: start, End: end})
		}
	}
	return mergeIntervals(ivs)
}

func mergeIntervals(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
	merged := []Interval{ivs[0]}
	for _, iv := range ivs[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// DocFromID looks up a document by its exact id, returning nil if absent.
func (s *Service) DocFromID(id uint64) (*docindex.Document, error) {
	q := bquery.NewTermQuery(strconv.FormatUint(id, 10))
	q.SetField(docindex.FieldID)
	return s.lookupOne(q)
}

// DocFromPath looks up a document by its exact stored path. bleve's term
// query against a tokenized field does not reliably match the full,
// untokenized field value, so this first tries the exact term query and,
// if that comes back empty, falls back to a parsed query over the path text
// and verifies the hit's stored path equals target exactly. This mirrors a
// known workaround rather than a design choice: see the indexer's open
// questions about exact lookups on analyzed fields.
func (s *Service) DocFromPath(path string) (*docindex.Document, error) {
	exact := bquery.NewTermQuery(path)
	exact.SetField(docindex.FieldPath)
	if doc, err := s.lookupOne(exact); err != nil {
		return nil, err
	} else if doc != nil {
		return doc, nil
	}

	parsed, err := bquery.ParseQueryString(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", doctagserr.ErrBadQuery, err)
	}
	req := bleve.NewSearchRequestOptions(parsed, MaxLimit, 0, false)
	req.Fields = []string{docindex.FieldID, docindex.FieldParentID, docindex.FieldPath, docindex.FieldTags}
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", doctagserr.ErrIndexIO, err)
	}
	for _, h := range res.Hits {
		if fieldString(h.Fields, docindex.FieldPath) == path {
			return docFromFields(h.Fields), nil
		}
	}
	return nil, nil
}

// ChildrenByParentID returns every document whose parent_id equals id, in
// path order. It backs the tag-VFS projector's fallback for a parent node
// that is neither a facet query nor a synthetic directory: an ordinary real
// directory, listed by its document id.
func (s *Service) ChildrenByParentID(id uint64) ([]docindex.Document, error) {
	q := bquery.NewTermQuery(strconv.FormatUint(id, 10))
	q.SetField(docindex.FieldParentID)
	req := bleve.NewSearchRequestOptions(q, MaxLimit, 0, false)
	req.Fields = []string{docindex.FieldID, docindex.FieldParentID, docindex.FieldPath, docindex.FieldTags}
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", doctagserr.ErrIndexIO, err)
	}
	docs := make([]docindex.Document, 0, len(res.Hits))
	for _, h := range res.Hits {
		docs = append(docs, *docFromFields(h.Fields))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// AllDocuments returns every document in the index, in path order. It backs
// the tag-VFS "_" directory, the flat listing of every indexed file
// regardless of tag.
func (s *Service) AllDocuments() ([]docindex.Document, error) {
	req := bleve.NewSearchRequestOptions(bquery.NewMatchAllQuery(), MaxLimit, 0, false)
	req.Fields = []string{docindex.FieldID, docindex.FieldParentID, docindex.FieldPath, docindex.FieldTags}
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", doctagserr.ErrIndexIO, err)
	}
	docs := make([]docindex.Document, 0, len(res.Hits))
	for _, h := range res.Hits {
		docs = append(docs, *docFromFields(h.Fields))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// DocsForFacet returns every document carrying the exact facet tag, in path
// order. It backs a tag-VFS leaf directory listing.
func (s *Service) DocsForFacet(facetPath string) ([]docindex.Document, error) {
	q := bquery.NewTermQuery(facetPath)
	q.SetField(docindex.FieldTags)
	req := bleve.NewSearchRequestOptions(q, MaxLimit, 0, false)
	req.Fields = []string{docindex.FieldID, docindex.FieldParentID, docindex.FieldPath, docindex.FieldTags}
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", doctagserr.ErrIndexIO, err)
	}
	docs := make([]docindex.Document, 0, len(res.Hits))
	for _, h := range res.Hits {
		docs = append(docs, *docFromFields(h.Fields))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (s *Service) lookupOne(q bquery.Query) (*docindex.Document, error) {
	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	req.Fields = []string{docindex.FieldID, docindex.FieldParentID, docindex.FieldPath, docindex.FieldTags}
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", doctagserr.ErrIndexIO, err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	return docFromFields(res.Hits[0].Fields), nil
}

func docFromFields(fields map[string]interface{}) *docindex.Document {
	id, _ := strconv.ParseUint(fieldString(fields, docindex.FieldID), 10, 64)
	parentID, _ := strconv.ParseUint(fieldString(fields, docindex.FieldParentID), 10, 64)
	return &docindex.Document{
		ID:       id,
		ParentID: parentID,
		Path:     fieldString(fields, docindex.FieldPath),
		Tags:     fieldStrings(fields, docindex.FieldTags),
	}
}

// fieldString and fieldStrings account for bleve's stored-field return
// quirk: a multi-valued field with exactly one stored value comes back as a
// bare string rather than a one-element slice.
func fieldString(fields map[string]interface{}, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}

func fieldStrings(fields map[string]interface{}, name string) []string {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
