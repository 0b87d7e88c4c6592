package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"orientd/orientation"
)

// CSVWriter appends orientation transitions to a CSV file, one row per
// change. Suitable for offline analysis alongside the SQLite store.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	w := &CSVWriter{file: file, writer: csv.NewWriter(file)}

	info, err := file.Stat()
	if err == nil && info.Size() == 0 {
		w.writer.Write([]string{"iso8601", "ts_ms", "state", "x", "y"})
		w.writer.Flush()
	}

	return w, nil
}

// WriteTransition appends one row.
func (w *CSVWriter) WriteTransition(tr orientation.Transition) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Write([]string{
		tr.Timestamp.UTC().Format(time.RFC3339),
		fmt.Sprintf("%d", tr.Timestamp.UnixMilli()),
		tr.StateName,
		fmt.Sprintf("%.6f", tr.Vector.X),
		fmt.Sprintf("%.6f", tr.Vector.Y),
	})
	w.writer.Flush()
}

// Close flushes and closes the file.
func (w *CSVWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer != nil {
		w.writer.Flush()
	}
	if w.file != nil {
		w.file.Close()
	}
}
