// Package filesink writes each record as a GeoJSON file under a directory
// tree laid out by product and date.
package filesink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
)

// Writer stores records as {dir}/{product}/{YYYY-MM-DD}.geojson.
// It implements pipeline.Loader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a file sink rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "file" }

// Path returns where r is written.
func (w *Writer) Path(r domain.Record) string {
	return filepath.Join(w.dir, string(r.Product), r.Date.Format(domain.DateLayout)+".geojson")
}

// Load writes every record, replacing earlier files for the same date.
func (w *Writer) Load(ctx context.Context, records []domain.Record) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := domain.EncodeRecord(r)
		if err != nil {
			return err
		}
		if err := writeAtomic(w.Path(r), data); err != nil {
			return err
		}
	}
	w.logger.Debug("records written", "sink", w.Name(), "dir", w.dir, "count", len(records))
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place, so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.geojson")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
