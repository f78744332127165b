// Command doctagsfs mounts a tagged filesystem index as a read-only
// directory tree, one virtual directory per facet component.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/fuseadapter"
	"github.com/tinyrange/doctags/internal/search"
	"github.com/tinyrange/doctags/internal/vfsproj"
)

func run() error {
	indexFlag := flag.String("index", "", "index directory")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `doctagsfs - mount a tagged filesystem index as a read-only tag tree

USAGE:
  doctagsfs -index DIR MOUNTPOINT

FLAGS:
  -index DIR   Index directory (required)
`)
	}
	flag.Parse()

	if *indexFlag == "" || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	mountpoint := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	idx, err := docindex.Open(*indexFlag)
	if err != nil {
		return err
	}
	defer idx.Close()

	svc := search.New(idx)
	tree, err := vfsproj.Build(svc)
	if err != nil {
		return err
	}

	adapter := fuseadapter.New(tree, logger)
	server, err := fuseadapter.Mount(adapter, mountpoint)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("doctagsfs: unmounting", "mountpoint", mountpoint)
		server.Unmount()
	}()

	logger.Info("doctagsfs: mounted", "mountpoint", mountpoint, "index", *indexFlag)
	server.Wait()
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "doctagsfs: %v\n", err)
		os.Exit(1)
	}
}
