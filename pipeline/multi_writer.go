// Package pipeline accumulates extracted materials and writes them out.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-scrape-materials/models"
)

// MultiWriter fans a result set out to several writers. A failing writer
// does not stop the others.
type MultiWriter struct {
	writers []OutputWriter
}

// NewMultiWriter combines writers in call order.
func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// NewDualWriter writes the grouped JSON and flat CSV snapshots.
func NewDualWriter(csvFilename, jsonFilename string) *MultiWriter {
	return NewMultiWriter(NewJSONWriter(jsonFilename), NewCSVWriter(csvFilename))
}

// Write calls every writer and joins their errors.
func (mw *MultiWriter) Write(rs models.ResultSet) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(rs); err != nil {
			slog.Error("output write failed",
				slog.String("path", w.Path()),
				slog.Any("error", err),
			)
			errs = append(errs, err)
			continue
		}
		slog.Debug("output written",
			slog.String("path", w.Path()),
			slog.Int("records", rs.Count()),
		)
	}
	return errors.Join(errs...)
}

// Validate validates every output file.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Path(), err))
		}
	}
	return errors.Join(errs...)
}

// Path lists the output files.
func (mw *MultiWriter) Path() string {
	return strings.Join(mw.Paths(), ", ")
}

// Paths returns each writer's output file.
func (mw *MultiWriter) Paths() []string {
	paths := make([]string, 0, len(mw.writers))
	for _, w := range mw.writers {
		paths = append(paths, w.Path())
	}
	return paths
}
