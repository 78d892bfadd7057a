package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-materials/models"
)

// CSVHeader is the first row of the CSV snapshot.
var CSVHeader = []string{"Shop", "Date", "Material", "Title", "Price", "Discount", "Stock"}

// SerializationError reports a failed output write.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// CSVWriter writes the flat view as RFC 4180 CSV.
type CSVWriter struct {
	path string
}

// NewCSVWriter returns a writer that overwrites filename.
func NewCSVWriter(filename string) *CSVWriter {
	return &CSVWriter{path: filename}
}

// Path returns the output file.
func (cw *CSVWriter) Path() string {
	return cw.path
}

// Write replaces the file with the header and one row per record.
func (cw *CSVWriter) Write(rs models.ResultSet) error {
	err := writeFileAtomic(cw.path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(CSVHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, m := range rs.Records {
			record := []string{m.Shop, m.Date, m.Material, m.Title, m.Price, m.Discount, m.Stock}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return fmt.Errorf("flush csv records: %w", err)
		}
		return nil
	})
	if err != nil {
		return &SerializationError{Path: cw.path, Err: err}
	}
	return nil
}

// Validate ensures the file holds at least the header row.
func (cw *CSVWriter) Validate() error {
	f, err := os.Open(cw.path)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(CSVHeader) {
		return fmt.Errorf("csv header has %d columns, want %d", len(header), len(CSVHeader))
	}
	return nil
}

// JSONWriter writes the grouped view as a pretty-printed object.
type JSONWriter struct {
	path string
}

// NewJSONWriter returns a writer that overwrites filename.
func NewJSONWriter(filename string) *JSONWriter {
	return &JSONWriter{path: filename}
}

// Path returns the output file.
func (jw *JSONWriter) Path() string {
	return jw.path
}

// Write replaces the file with the shop-keyed object.
func (jw *JSONWriter) Write(rs models.ResultSet) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return &SerializationError{Path: jw.path, Err: fmt.Errorf("encode json: %w", err)}
	}
	data = append(data, '\n')

	err = writeFileAtomic(jw.path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return &SerializationError{Path: jw.path, Err: err}
	}
	return nil
}

// Validate ensures the file decodes as a shop-keyed object.
func (jw *JSONWriter) Validate() error {
	data, err := os.ReadFile(jw.path)
	if err != nil {
		return fmt.Errorf("read json file: %w", err)
	}
	var decoded map[string][]models.Material
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode json file: %w", err)
	}
	return nil
}

// writeFileAtomic writes to a temporary sibling and renames it over
// filename, so readers never see a half-written snapshot.
func writeFileAtomic(filename string, fill func(io.Writer) error) error {
	if err := ensureDir(filename); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("replace %s: %w", filename, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
