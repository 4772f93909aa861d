package csvwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/jonmartinstorm/commitsnusern/internal/models"
)

var ErrUnexpectedHeader = errors.New("uventet CSV-header")

// ReadFile leser en fil skrevet av WriteFile tilbake til records.
func ReadFile(path string) ([]models.CommitRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kunne ikke åpne CSV-fil: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(models.CSVHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("kunne ikke lese CSV-header: %w", err)
	}
	if !slices.Equal(header, models.CSVHeader) {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedHeader, header)
	}

	var records []models.CommitRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kunne ikke lese CSV-rad: %w", err)
		}
		records = append(records, models.CommitRecord{
			Repo:      row[0],
			SHA:       row[1],
			ParentSHA: row[2],
			Author:    row[3],
		})
	}
	return records, nil
}
