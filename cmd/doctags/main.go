// Command doctags builds and queries a tagged filesystem index.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/doctagserr"
	"github.com/tinyrange/doctags/internal/search"
	"github.com/tinyrange/doctags/internal/walk"
)

func run() error {
	indexFlag := flag.String("index", "", "index directory")
	sameFS := flag.Bool("same-filesystem", false, "do not descend into directories on a different device")
	limit := flag.Int("limit", 10, "max results (0 for unlimited)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `doctags - tagged filesystem indexer and faceted search

USAGE:
  doctags -index DIR index DIR1 [DIR2 ...]
  doctags -index DIR search QUERY
  doctags -index DIR stats

COMMANDS:
  index DIR...   Traverse the given base directories and (re)build the index
  search QUERY   Run a query and print one matching path per line
  stats          Print the total document count and facet counts

FLAGS:
  -index DIR            Index directory (required)
  -same-filesystem      Do not cross filesystem boundaries while indexing
  -limit N               Max search results, 0 for unlimited (default 10)
`)
	}
	flag.Parse()

	if *indexFlag == "" || flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	switch cmd := flag.Arg(0); cmd {
	case "index":
		return runIndex(*indexFlag, flag.Args()[1:], *sameFS, logger)
	case "search":
		if flag.NArg() < 2 {
			flag.Usage()
			os.Exit(1)
		}
		return runSearch(*indexFlag, strings.Join(flag.Args()[1:], " "), *limit)
	case "stats":
		return runStats(*indexFlag)
	default:
		flag.Usage()
		os.Exit(1)
		return nil
	}
}

func runIndex(indexDir string, baseDirs []string, sameFS bool, logger *slog.Logger) error {
	if len(baseDirs) == 0 {
		return fmt.Errorf("index: at least one base directory is required")
	}

	w, err := docindex.Create(indexDir, docindex.CreateOptions{})
	if err != nil {
		return err
	}

	opts := walk.Options{SameFilesystem: sameFS, Logger: logger}
	walkErr := walk.Walk(baseDirs, opts, func(r walk.Record) error {
		return w.Add(docindex.Document{ID: r.ID, ParentID: r.ParentID, Path: r.Path, Tags: r.Tags})
	})
	if walkErr != nil {
		return fmt.Errorf("%w: traversal aborted: %v", doctagserr.ErrFS, walkErr)
	}
	return w.Commit()
}

func runSearch(indexDir, q string, limit int) error {
	idx, err := docindex.Open(indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	svc := search.New(idx)
	hits, err := svc.Search(q, limit)
	if err != nil {
		return err
	}
	for _, h := range hits {
		fmt.Println(h.Path)
	}
	return nil
}

func runStats(indexDir string) error {
	idx, err := docindex.Open(indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	svc := search.New(idx)
	stats, err := svc.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Total documents: %d\n", stats.TotalDocuments)
	for _, f := range stats.Facets {
		fmt.Printf("%s: %d\n", f.Facet, f.Count)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "doctags: %v\n", err)
		os.Exit(1)
	}
}
