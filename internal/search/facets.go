package search

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/doctagserr"
	"github.com/tinyrange/doctags/internal/facet"
)

// FacetCount is one facet component aggregated at a given depth and its
// distinct-document count.
type FacetCount struct {
	// Component is the facet's leaf name at the requested depth ("rust").
	Component string
	// Facet is the full path to that aggregation point ("/lang/rust").
	Facet string
	// Count is the number of distinct documents carrying any full tag that
	// falls under Facet.
	Count int
}

// allTags enumerates every distinct tag value present in the index, each
// with its document frequency, by walking the tags field's term dictionary.
func (s *Service) allTags() (map[string]int, error) {
	reader, err := s.idx.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: open reader: %v", doctagserr.ErrIndexIO, err)
	}
	defer reader.Close()

	dict, err := reader.FieldDict(docindex.FieldTags)
	if err != nil {
		return nil, fmt.Errorf("%w: field dict: %v", doctagserr.ErrIndexIO, err)
	}
	defer dict.Close()

	terms := map[string]int{}
	for {
		entry, err := dict.Next()
		if err == io.EOF || entry == nil {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: enumerate tags: %v", doctagserr.ErrIndexIO, err)
		}
		terms[entry.Term] = int(entry.Count)
	}
	return terms, nil
}

// FacetChildren aggregates every full tag value that lies one level deeper
// than prefix (the root, when prefix is empty) into the set of distinct
// facet components directly under it, each with the count of documents
// carrying any tag under that component. This is the "requery the facet
// collector with prefix /a" step the tag-VFS projector uses to build each
// level of its synthetic directory tree.
func (s *Service) FacetChildren(prefix string) ([]FacetCount, error) {
	terms, err := s.allTags()
	if err != nil {
		return nil, err
	}

	depth := 0
	if prefix != "" {
		depth = len(facet.Components(prefix))
	}

	groups := map[string][]string{}
	var order []string
	for term := range terms {
		if prefix != "" && !strings.HasPrefix(term, prefix+"/") {
			continue
		}
		if prefix == "" && !strings.HasPrefix(term, "/") {
			continue
		}
		comps := facet.Components(term)
		if len(comps) <= depth {
			continue
		}
		child := "/" + strings.Join(comps[:depth+1], "/")
		if _, ok := groups[child]; !ok {
			order = append(order, child)
		}
		groups[child] = append(groups[child], term)
	}

	out := make([]FacetCount, 0, len(order))
	for _, child := range order {
		count, err := s.distinctDocCount(groups[child])
		if err != nil {
			return nil, err
		}
		comps := facet.Components(child)
		out = append(out, FacetCount{Component: comps[len(comps)-1], Facet: child, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out, nil
}

// distinctDocCount returns the number of documents carrying at least one of
// the given exact tag terms, via a zero-size search so only Total is paid
// for (no hits are fetched or scored against relevance).
func (s *Service) distinctDocCount(terms []string) (int, error) {
	if len(terms) == 0 {
		return 0, nil
	}
	disjuncts := make([]bquery.Query, 0, len(terms))
	for _, t := range terms {
		tq := bquery.NewTermQuery(t)
		tq.SetField(docindex.FieldTags)
		disjuncts = append(disjuncts, tq)
	}
	q := bquery.NewDisjunctionQuery(disjuncts)
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := s.idx.Search(req)
	if err != nil {
		return 0, fmt.Errorf("%w: facet count: %v", doctagserr.ErrIndexIO, err)
	}
	return int(res.Total), nil
}

// Stats reports the total document count and, for every distinct full tag
// value, its occurrence count.
type Stats struct {
	TotalDocuments int
	Facets         []FacetCount
}

func (s *Service) Stats() (Stats, error) {
	total, err := s.idx.DocCount()
	if err != nil {
		return Stats{}, fmt.Errorf("%w: doc count: %v", doctagserr.ErrIndexIO, err)
	}
	terms, err := s.allTags()
	if err != nil {
		return Stats{}, err
	}
	facets := make([]FacetCount, 0, len(terms))
	for term, count := range terms {
		facets = append(facets, FacetCount{Facet: term, Count: count})
	}
	sort.Slice(facets, func(i, j int) bool { return facets[i].Facet < facets[j].Facet })
	return Stats{TotalDocuments: int(total), Facets: facets}, nil
}
