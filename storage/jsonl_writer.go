package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"listing-harvester/models"
)

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewJSONLWriter creates (or truncates) the file at path. Intermediate
// directories are created automatically.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("jsonl: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("jsonl: create file %q: %w", path, err)
	}
	return &JSONLWriter{path: path, file: f}, nil
}

// WriteItems writes every item as its own line. HTML characters and
// non-ASCII text are written verbatim.
func (j *JSONLWriter) WriteItems(items []models.ListingItem) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	w := bufio.NewWriter(j.file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("jsonl: encode item: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("jsonl: flush %q: %w", j.path, err)
	}
	return nil
}

// Close closes the underlying file.
func (j *JSONLWriter) Close() error {
	return j.file.Close()
}
