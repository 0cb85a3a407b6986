package producer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ScriptCSVReader is a CSV chat script reader that provides row-by-row access.
// Lines starting with # are comments.
type ScriptCSVReader struct {
	file      *os.File
	reader    *csv.Reader
	header    []string
	rowNum    int
	hasError  bool
	lastError error
	Logger    *slog.Logger
}

// NewScriptCSVReader creates a new CSV reader for the specified file
func NewScriptCSVReader(path string, logger *slog.Logger) (*ScriptCSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("failed to open CSV file", "path", path, "error", err)
		return nil, err
	}

	r, err := newScriptCSVReader(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

func newScriptCSVReader(src io.Reader, logger *slog.Logger) (*ScriptCSVReader, error) {
	csvReader := csv.NewReader(src)
	csvReader.Comment = '#'
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		logger.Error("failed to read CSV header", "error", err)
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) == 0 {
		logger.Error("CSV file has no columns")
		return nil, fmt.Errorf("CSV file has no columns")
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	return &ScriptCSVReader{
		reader: csvReader,
		header: header,
		Logger: logger,
	}, nil
}

// GetHeader returns the CSV header row
func (r *ScriptCSVReader) GetHeader() []string {
	if r.header == nil {
		return []string{}
	}
	// Return a copy to prevent external modification
	headerCopy := make([]string, len(r.header))
	copy(headerCopy, r.header)
	return headerCopy
}

// HasNextRow checks if there is another row to read
func (r *ScriptCSVReader) HasNextRow() bool {
	return !r.hasError
}

func (r *ScriptCSVReader) read() ([]string, error) {
	if r.hasError {
		return nil, fmt.Errorf("reader is in error state: %v", r.lastError)
	}

	record, err := r.reader.Read()
	if err != nil {
		r.hasError = true
		if errors.Is(err, io.EOF) {
			return nil, err
		}
		r.lastError = err
		r.Logger.Error("failed to read CSV row", "row", r.rowNum+1, "error", err)
		return nil, fmt.Errorf("failed to read CSV row %d: %w", r.rowNum+1, err)
	}

	r.rowNum++
	return record, nil
}

// GetNextRow returns the next row as a map with column names as keys
func (r *ScriptCSVReader) GetNextRow() (map[string]string, error) {
	record, err := r.read()
	if err != nil {
		return nil, err
	}

	row := make(map[string]string, len(r.header))
	for i, col := range r.header {
		if i < len(record) {
			row[col] = record[i]
		} else {
			row[col] = ""
		}
	}
	return row, nil
}

// GetRawRow returns the next row as a slice of strings
func (r *ScriptCSVReader) GetRawRow() ([]string, error) {
	return r.read()
}

// RowCount returns the number of rows read so far
func (r *ScriptCSVReader) RowCount() int {
	return r.rowNum
}

// IsValid checks if the CSV reader is in a valid state
func (r *ScriptCSVReader) IsValid() bool {
	return !r.hasError && r.reader != nil
}

// FindColumnIndex finds the index of a column by name (case-insensitive)
func (r *ScriptCSVReader) FindColumnIndex(colName string) int {
	for i, col := range r.header {
		if strings.EqualFold(col, colName) {
			return i
		}
	}
	return -1
}

// Close closes the underlying file
func (r *ScriptCSVReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *ScriptCSVReader) GetLogger() *slog.Logger {
	return r.Logger
}
