package csvwriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonmartinstorm/commitsnusern/internal/models"
)

type CSVWriter struct {
	Path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{Path: path}
}

// WriteRecords skriver hele settet til w.Path. Snapshot-tiden havner ikke i CSV-en.
func (w *CSVWriter) WriteRecords(_ context.Context, records []models.CommitRecord, _ time.Time) error {
	return WriteFile(w.Path, records)
}

func (w *CSVWriter) Name() string {
	return "csv"
}

// WriteFile oppretter foreldrekataloger, og skriver header og én rad per record.
func WriteFile(path string, records []models.CommitRecord) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("kunne ikke opprette katalog %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kunne ikke opprette CSV-fil: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("kunne ikke lukke CSV-fil: %w", cerr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write(models.CSVHeader); err != nil {
		return fmt.Errorf("kunne ikke skrive CSV-header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("kunne ikke skrive CSV-rad: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("kunne ikke skrive CSV: %w", err)
	}

	slog.Info("CSV lagret", "fil", path, "linjer", len(records))
	return nil
}
