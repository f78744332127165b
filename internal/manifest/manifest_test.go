package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSidecar(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadBasicManifest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Cargo.toml", "Cargo.lock"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeSidecar(t, dir, `
tags = ["lang:rust", "author:pka"]

[files]
"." = ["gitrepo"]
"Cargo.toml" = ["format:toml"]
`)

	m := Read(dir, nil)
	wantDir := []string{"/lang/rust", "/author/pka"}
	if len(m.DirTags) != len(wantDir) {
		t.Fatalf("DirTags = %v, want %v", m.DirTags, wantDir)
	}
	for i, f := range wantDir {
		if m.DirTags[i] != f {
			t.Fatalf("DirTags[%d] = %q, want %q", i, m.DirTags[i], f)
		}
	}

	selfTags, ok := m.FileTags[dir]
	if !ok || len(selfTags) != 1 || selfTags[0] != "/gitrepo" {
		t.Fatalf("FileTags[dir] = %v, ok=%v, want [/gitrepo]", selfTags, ok)
	}

	cargoToml := filepath.Join(dir, "Cargo.toml")
	tomlTags, ok := m.FileTags[cargoToml]
	if !ok || len(tomlTags) != 1 || tomlTags[0] != "/format/toml" {
		t.Fatalf("FileTags[Cargo.toml] = %v, ok=%v, want [/format/toml]", tomlTags, ok)
	}

	if _, ok := m.FileTags[filepath.Join(dir, "Cargo.lock")]; ok {
		t.Fatalf("Cargo.lock should carry no file-specific tags")
	}
}

func TestReadMissingManifestIsEmpty(t *testing.T) {
	dir := t.TempDir()
	m := Read(dir, nil)
	if len(m.DirTags) != 0 || len(m.FileTags) != 0 {
		t.Fatalf("expected empty manifest, got %+v", m)
	}
}

func TestReadMalformedManifestIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, `tags = ["lang::rust"]`)
	m := Read(dir, nil)
	if len(m.DirTags) != 0 {
		t.Fatalf("expected empty manifest on bad tag, got %+v", m)
	}
}

func TestReadSkipsNonExistentFileEntry(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, `
[files]
"does-not-exist.txt" = ["x"]
`)
	m := Read(dir, nil)
	if len(m.FileTags) != 0 {
		t.Fatalf("expected non-existent file entry to be skipped, got %+v", m.FileTags)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := Manifest{
		DirTags: []string{"/lang/rust", "/gitrepo"},
		FileTags: map[string][]string{
			dir:                         {"/gitrepo"},
			filepath.Join(dir, "a.txt"): {"/format/text"},
		},
	}
	if err := Write(dir, m); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := Read(dir, nil)
	if len(got.DirTags) != 2 {
		t.Fatalf("DirTags after round trip = %v", got.DirTags)
	}
	if tags := got.FileTags[filepath.Join(dir, "a.txt")]; len(tags) != 1 || tags[0] != "/format/text" {
		t.Fatalf("a.txt tags after round trip = %v", tags)
	}
}
