package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/protokoll/minutes/internal/checksum"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("#Datum;01.03.2024\nHallo;\n")
	if err := s.Write("plenum/2024-03-01.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("plenum/2024-03-01.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("plenum/2024-03-01.txt", []byte("bye"))
	if err := s.Delete("plenum/2024-03-01.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("plenum/2024-03-01.txt"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("plenum/2024-03-01.txt", []byte("a;\r\n"))
	_ = s.Write("fsr/2024-03-08.txt", []byte("b;"))
	_ = s.Write("notes.txt", []byte("no series"))
	_ = s.Write("plenum/entwurf.txt", []byte("no date"))
	_ = s.Write("plenum/2024-03-15.md", []byte("wrong extension"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	byPath := map[string]SourceFile{}
	for _, it := range items {
		byPath[it.Path] = it
	}
	p, ok := byPath["plenum/2024-03-01.txt"]
	if !ok {
		t.Fatalf("missing plenum source: %+v", items)
	}
	if p.Series != "plenum" || !p.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("source = %+v", p)
	}
	if p.Checksum != checksum.Source("a;\n") {
		t.Errorf("checksum = %s", p.Checksum)
	}
}

func TestSourcePath(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := SourcePath("plenum", date)
	if p != "plenum/2024-03-01.txt" {
		t.Fatalf("path = %q", p)
	}
	series, got, ok := ParseSourcePath(p)
	if !ok || series != "plenum" || !got.Equal(date) {
		t.Errorf("parse = %q %v %v", series, got, ok)
	}
	for _, bad := range []string{"2024-03-01.txt", "a/b/2024-03-01.txt", "plenum/03.01.2024.txt", "plenum/2024-03-01.md"} {
		if _, _, ok := ParseSourcePath(bad); ok {
			t.Errorf("ParseSourcePath(%q) accepted", bad)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("plenum/2024-03-01.txt", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("plenum/2024-03-01.txt", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("plenum/2024-03-01.txt")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, "plenum", ".minutes-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/minutes-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "minutes-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
