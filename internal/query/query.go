// Package query compiles the hybrid tag/text query language into a bleve
// query tree: free-form path text mixed with colon-prefixed tag atoms.
package query

import (
	"fmt"
	"regexp"
	"strings"

	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/doctagserr"
	"github.com/tinyrange/doctags/internal/facet"
)

// tagAtomRe matches a maximal run of colon-prefixed segments: ":lang:rust" or
// ":gitrepo". Each match becomes exactly one required facet constraint.
var tagAtomRe = regexp.MustCompile(`(:[A-Za-z0-9_\-.]+)+`)

// Compile parses raw into a query tree: a term query per tag atom, ANDed
// with a parsed path-field query built from whatever text remains once the
// atoms are stripped out. An empty residual is treated as match-all.
//
// Compilation can fail independently of execution — a malformed residual
// (a lone ":" left dangling, an unbalanced quote) is reported as
// doctagserr.ErrBadQuery without ever touching the index.
func Compile(raw string) (bquery.Query, error) {
	var facets []string
	residual := tagAtomRe.ReplaceAllStringFunc(raw, func(atom string) string {
		f, err := facet.ToFacet(atom)
		if err != nil {
			// Leave malformed atoms in place so they surface as unparsable
			// residual text rather than being silently dropped.
			return atom
		}
		facets = append(facets, f)
		return " "
	})

	residual = strings.TrimSpace(residual)
	if residual == "" {
		residual = "*"
	}

	pathQuery, err := bquery.ParseQueryString(residual)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", doctagserr.ErrBadQuery, err)
	}

	if len(facets) == 0 {
		return pathQuery, nil
	}

	conjuncts := make([]bquery.Query, 0, len(facets)+1)
	conjuncts = append(conjuncts, pathQuery)
	for _, f := range facets {
		tq := bquery.NewTermQuery(f)
		tq.SetField(docindex.FieldTags)
		conjuncts = append(conjuncts, tq)
	}
	return bquery.NewConjunctionQuery(conjuncts), nil
}
