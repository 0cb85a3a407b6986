package producer

import (
	"log/slog"
)

// CSVReader defines the interface for reading and processing CSV files
type CSVReader interface {
	GetHeader() []string
	HasNextRow() bool
	GetNextRow() (map[string]string, error)
	GetRawRow() ([]string, error)
	RowCount() int
	IsValid() bool
	FindColumnIndex(colName string) int
	Close() error
	GetLogger() *slog.Logger
}

// RowTransformer turns one script row into wire bytes
type RowTransformer interface {
	TransformRow(row map[string]string) (Step, error)
}
