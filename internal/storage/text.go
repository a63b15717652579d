// Package storage keeps the plain-text artifacts produced by text
// acquisition so re-runs can skip scraping and parsing.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// TextStore writes one markdown artifact per document under a flat
// directory.
type TextStore struct {
	dir string
}

func NewTextStore(dir string) (*TextStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create text directory: %w", err)
	}
	return &TextStore{dir: dir}, nil
}

// Path returns where the text artifact for a document lives.
func (t *TextStore) Path(documentID string) string {
	return filepath.Join(t.dir, "doc_"+documentID+".md")
}

// Write stores the acquired text for a document, overwriting any
// previous artifact, and returns the artifact path.
func (t *TextStore) Write(documentID, text string) (string, error) {
	path := t.Path(documentID)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write text artifact: %w", err)
	}
	return path, nil
}

// Read loads a previously written text artifact.
func (t *TextStore) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text artifact: %w", err)
	}
	return string(data), nil
}
