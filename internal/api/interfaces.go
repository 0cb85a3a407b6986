package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/polychat-monitor/internal/message"
)

// Logger type alias for slog.Logger
type Logger = *slog.Logger

// Error definitions for api package
var (
	ErrInvalidLimit     = errors.New("limit must be greater than 0")
	ErrInvalidPage      = errors.New("page must be greater than 0")
	ErrInvalidStreamID  = errors.New("stream ID is required")
	ErrInvalidTime      = errors.New("invalid time format")
	ErrInvalidType      = errors.New("unknown message type")
	ErrInvalidDirection = errors.New("direction must be client or server")
	ErrInvalidRange     = errors.New("start_time must not be after end_time")
)

// Store defines the interface for record storage operations
type Store interface {
	// ListStreams returns all stream IDs that have records
	ListStreams(ctx context.Context) ([]string, error)

	// QueryRecords retrieves one page of records matching q
	// Returns items (as interface{}), total count (as int), and error
	QueryRecords(ctx context.Context, q RecordQuery) (interface{}, int, error)

	// Close closes the store connection
	Close(ctx context.Context) error
}

// SortOrder defines the sort order direction
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// PaginationParams holds pagination request parameters
type PaginationParams struct {
	Limit int
	Page  int
}

// Validate checks if pagination parameters are valid
func (p PaginationParams) Validate() error {
	if p.Limit <= 0 {
		return ErrInvalidLimit
	}
	if p.Page <= 0 {
		return ErrInvalidPage
	}
	return nil
}

// RecordQuery holds all record query parameters
type RecordQuery struct {
	StreamID   string
	Type       string
	Direction  message.Direction
	FailedOnly bool
	StartTime  *time.Time
	EndTime    *time.Time
	Pagination PaginationParams
	SortOrder  SortOrder
}

// Validate checks pagination and the time range
func (q RecordQuery) Validate() error {
	if err := q.Pagination.Validate(); err != nil {
		return err
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return ErrInvalidRange
	}
	return nil
}

// ListResponse is a generic paginated response structure
type ListResponse struct {
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Items interface{} `json:"items"`
}

// QueryResponse is a generic query response structure
type QueryResponse struct {
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Items interface{} `json:"items"`
}

// Authenticator defines the interface for authentication
type Authenticator interface {
	// Authenticate checks if the token is valid
	Authenticate(token string) bool
}

// Sorter defines the interface for sorting operations
type Sorter interface {
	// SortStrings sorts a slice of strings according to the order
	SortStrings(items []string, order SortOrder)
}

// QueryParser defines the interface for parsing query parameters
type QueryParser interface {
	// ParseInt parses an integer from query parameters
	ParseInt(key string, defaultVal int) int

	// ParseBool parses a boolean flag from query parameters
	ParseBool(key string) bool

	// ParseSortOrder parses sort order from query parameters
	ParseSortOrder(key string, defaultVal SortOrder) SortOrder

	// ParseTimeParam parses a time parameter from query
	ParseTimeParam(key string) (*time.Time, error)

	// ParseType parses a message type name from query
	ParseType(key string) (string, error)

	// ParseDirection parses a stream direction from query
	ParseDirection(key string) (message.Direction, error)
}

// HTTPHandler defines the HTTP handler interface
type HTTPHandler interface {
	// ListStreams handles the GET /streams endpoint
	ListStreams(w http.ResponseWriter, r *http.Request)

	// QueryRecords handles the GET /records endpoint
	QueryRecords(w http.ResponseWriter, r *http.Request)

	// QueryStreamRecords handles the GET /streams/{id}/records endpoint
	QueryStreamRecords(w http.ResponseWriter, r *http.Request)
}
