package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

type fileWriter interface {
	OutputWriter
	Files() []string
}

type namedWriter struct {
	format string
	writer fileWriter
}

// DualWriter appends every review to the CSV file and to a JSON Lines sidecar.
type DualWriter struct {
	writers []namedWriter
}

// NewDualWriter creates both writers; the directories may be the same.
func NewDualWriter(csvDir, jsonDir string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvDir)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}
	jsonWriter, err := NewJSONWriter(jsonDir)
	if err != nil {
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &DualWriter{
		writers: []namedWriter{
			{format: "csv", writer: csvWriter},
			{format: "json", writer: jsonWriter},
		},
	}, nil
}

// Write appends to CSV first, then JSON, stopping at the first failure.
func (dw *DualWriter) Write(reviews []*models.Review) error {
	for _, nw := range dw.writers {
		if err := nw.writer.Write(reviews); err != nil {
			return fmt.Errorf("%s write: %w", nw.format, err)
		}
	}
	return nil
}

func (dw *DualWriter) Close() error {
	var errs []error
	for _, nw := range dw.writers {
		if err := nw.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", nw.format, err))
		}
	}
	return errors.Join(errs...)
}

func (dw *DualWriter) Validate() error {
	var errs []error
	for _, nw := range dw.writers {
		if err := nw.writer.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s validation: %w", nw.format, err))
		}
	}
	return errors.Join(errs...)
}

// Files lists CSV files first, then JSON files.
func (dw *DualWriter) Files() []string {
	var files []string
	for _, nw := range dw.writers {
		files = append(files, nw.writer.Files()...)
	}
	return files
}
