// Package manifest loads and serializes the per-directory sidecar manifest
// (.doctags.toml) that declares the tags applied to a directory and its
// entries.
package manifest

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/tinyrange/doctags/internal/doctagserr"
	"github.com/tinyrange/doctags/internal/facet"
)

// FileName is the sidecar manifest's fixed basename.
const FileName = ".doctags.toml"

// SelfKey is the special files-table key denoting the directory itself.
const SelfKey = "."

// Manifest holds the facet-normalized tags declared by one directory's
// sidecar. DirTags apply to the directory and every descendant. FileTags maps
// a canonicalized absolute path (or the manifest directory itself) to the
// facets that apply only to that entry.
type Manifest struct {
	DirTags  []string
	FileTags map[string][]string
}

type rawManifest struct {
	Tags  []string            `toml:"tags"`
	Files map[string][]string `toml:"files"`
}

// Read loads dir's sidecar manifest. dir must already be a canonicalized
// absolute path; it is used both to locate the sidecar and as the join root
// for relative file keys.
//
// Absence of a sidecar is not an error. Any other failure - malformed TOML,
// an invalid tag, anything - is logged and treated as an empty Manifest: one
// directory's bad sidecar must never abort a traversal.
func Read(dir string, logger *slog.Logger) Manifest {
	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if !os.IsNotExist(err) {
			warn(logger, "read manifest", dir, err)
		}
		return Manifest{}
	}
	m, err := parse(dir, raw, logger)
	if err != nil {
		warn(logger, "parse manifest", dir, err)
		return Manifest{}
	}
	return m
}

func parse(dir string, raw []byte, logger *slog.Logger) (Manifest, error) {
	var rm rawManifest
	if _, err := toml.Decode(string(raw), &rm); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", doctagserr.ErrInvalidManifest, err)
	}

	dirTags := make([]string, 0, len(rm.Tags))
	for _, t := range rm.Tags {
		f, err := facet.ToFacet(t)
		if err != nil {
			return Manifest{}, fmt.Errorf("%w: dir tag %q: %v", doctagserr.ErrInvalidManifest, t, err)
		}
		dirTags = append(dirTags, f)
	}

	fileTags := make(map[string][]string, len(rm.Files))
	for key, tags := range rm.Files {
		facets := make([]string, 0, len(tags))
		for _, t := range tags {
			f, err := facet.ToFacet(t)
			if err != nil {
				return Manifest{}, fmt.Errorf("%w: file %q tag %q: %v", doctagserr.ErrInvalidManifest, key, t, err)
			}
			facets = append(facets, f)
		}

		canonical, ok := canonicalizeKey(dir, key)
		if !ok {
			warn(logger, fmt.Sprintf("skip invalid file entry %q", key), dir, nil)
			continue
		}
		fileTags[canonical] = facets
	}

	return Manifest{DirTags: dirTags, FileTags: fileTags}, nil
}

// canonicalizeKey resolves a files-table key to the canonical absolute path
// it refers to. It reports false for entries that cannot be resolved inside
// dir or that name a file which does not exist.
func canonicalizeKey(dir, key string) (string, bool) {
	if key == SelfKey {
		return dir, true
	}
	joined, err := securejoin.SecureJoin(dir, key)
	if err != nil {
		return "", false
	}
	if _, err := os.Lstat(joined); err != nil {
		return "", false
	}
	return joined, true
}

// Write serializes m back to dir's sidecar. Filenames are stored relative to
// dir; the directory itself is written under the "." key. This is the
// tagging-mutation write path; it is not exercised by the traversal/index
// pipeline, which only ever reads manifests.
func Write(dir string, m Manifest) error {
	rm := rawManifest{
		Tags:  make([]string, 0, len(m.DirTags)),
		Files: make(map[string][]string, len(m.FileTags)),
	}
	for _, f := range m.DirTags {
		tag, err := facet.ToTag(f)
		if err != nil {
			return fmt.Errorf("%w: dir facet %q: %v", doctagserr.ErrInvalidManifest, f, err)
		}
		rm.Tags = append(rm.Tags, tag)
	}
	for path, facets := range m.FileTags {
		key := SelfKey
		if path != dir {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return fmt.Errorf("%w: file %q is not under %q: %v", doctagserr.ErrInvalidManifest, path, dir, err)
			}
			key = rel
		}
		tags := make([]string, 0, len(facets))
		for _, f := range facets {
			tag, err := facet.ToTag(f)
			if err != nil {
				return fmt.Errorf("%w: file %q facet %q: %v", doctagserr.ErrInvalidManifest, path, f, err)
			}
			tags = append(tags, tag)
		}
		rm.Files[key] = tags
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rm); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func warn(logger *slog.Logger, msg, dir string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("doctags manifest: "+msg, "dir", dir, "error", err)
	} else {
		logger.Warn("doctags manifest: "+msg, "dir", dir)
	}
}
