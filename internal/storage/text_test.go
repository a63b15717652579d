package storage

import (
	"path/filepath"
	"testing"
)

func TestTextStoreRoundTrip(t *testing.T) {
	store, err := NewTextStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewTextStore failed: %v", err)
	}

	path, err := store.Write("abc123", "# Ruling\n\nSome text.")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != "doc_abc123.md" {
		t.Fatalf("unexpected artifact name: %s", path)
	}

	got, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "# Ruling\n\nSome text." {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestTextStoreOverwrite(t *testing.T) {
	store, err := NewTextStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewTextStore failed: %v", err)
	}

	if _, err := store.Write("abc123", "first"); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	path, err := store.Write("abc123", "second")
	if err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	got, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}
