// Package history keeps a parquet journal of completed diagnoses and
// summarizes it.
package history

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Record is one settled diagnosis request
type Record struct {
	SessionID   string  `json:"session_id" parquet:"session_id"`
	FileName    string  `json:"file_name" parquet:"file_name"`
	Label       string  `json:"label" parquet:"label"`
	Confidence  float64 `json:"confidence" parquet:"confidence"`
	Error       string  `json:"error,omitempty" parquet:"error"`
	Status      int     `json:"status,omitempty" parquet:"status"`
	DurationMS  int64   `json:"duration_ms" parquet:"duration_ms"`
	TimestampMS int64   `json:"timestamp_ms" parquet:"timestamp_ms"`
}

func (r Record) Succeeded() bool {
	return r.Error == ""
}

func (r Record) Time() time.Time {
	return time.UnixMilli(r.TimestampMS)
}

func (r Record) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// Journal is an append-only parquet file of records
type Journal struct {
	path string
	mu   sync.Mutex
}

func Open(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) Path() string {
	return j.path
}

// Load reads every record; a journal that does not exist yet is empty.
func (j *Journal) Load() ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

func (j *Journal) load() ([]Record, error) {
	file, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	records := make([]Record, 0, pf.NumRows())
	rows := make([]Record, 128)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history rows: %w", err)
		}
	}

	slog.Debug("Loaded diagnosis history", "path", j.path, "rows", len(records))
	return records, nil
}

// Append adds records. Parquet files are immutable, so the journal is
// rewritten to a temp file and renamed into place.
func (j *Journal) Append(records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	existing, err := j.load()
	if err != nil {
		return err
	}
	rows := append(existing, records...)

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}
