package api

import (
	"crypto/subtle"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/protocol"
)

// StringSorter implements the Sorter interface for sorting strings
type StringSorter struct{}

// NewStringSorter creates a new string sorter
func NewStringSorter() *StringSorter {
	return &StringSorter{}
}

// SortStrings sorts a slice of strings in ascending or descending order
func (s *StringSorter) SortStrings(items []string, order SortOrder) {
	if order == SortAscending {
		sort.Strings(items)
	} else {
		sort.Sort(sort.Reverse(sort.StringSlice(items)))
	}
}

// TokenAuthenticator implements the Authenticator interface
type TokenAuthenticator struct {
	expectedToken string
}

// NewTokenAuthenticator creates a new token authenticator
func NewTokenAuthenticator(token string) *TokenAuthenticator {
	return &TokenAuthenticator{
		expectedToken: token,
	}
}

// Authenticate checks if the token matches the expected token
func (t *TokenAuthenticator) Authenticate(token string) bool {
	if t.expectedToken == "" {
		return true // no auth required
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(t.expectedToken)) == 1
}

// DefaultQueryParser implements the QueryParser interface
type DefaultQueryParser struct {
	params map[string][]string // Mimic http.Request.URL.Query() format
}

// NewDefaultQueryParser creates a new query parser from URL query values
func NewDefaultQueryParser(queryParams map[string][]string) *DefaultQueryParser {
	return &DefaultQueryParser{
		params: queryParams,
	}
}

func (p *DefaultQueryParser) first(key string) (string, bool) {
	values, ok := p.params[key]
	if !ok || len(values) == 0 || values[0] == "" {
		return "", false
	}
	return values[0], true
}

// ParseInt parses an integer from query parameters with a default fallback
func (p *DefaultQueryParser) ParseInt(key string, defaultVal int) int {
	val, ok := p.first(key)
	if !ok {
		return defaultVal
	}
	if n, err := strconv.Atoi(val); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// ParseBool reports whether key is set to a true value
func (p *DefaultQueryParser) ParseBool(key string) bool {
	val, ok := p.first(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(val)
	return err == nil && b
}

// ParseSortOrder parses the sort order from query parameters
func (p *DefaultQueryParser) ParseSortOrder(key string, defaultVal SortOrder) SortOrder {
	val, ok := p.first(key)
	if !ok {
		return defaultVal
	}

	order := strings.ToLower(val)
	if order == "desc" || order == "descending" {
		return SortDescending
	}
	return SortAscending
}

// ParseTimeParam parses a time parameter from query
// Supports RFC3339Nano and RFC3339 formats
func (p *DefaultQueryParser) ParseTimeParam(key string) (*time.Time, error) {
	val, ok := p.first(key)
	if !ok {
		return nil, nil // not provided is not an error
	}

	// Try RFC3339Nano first
	if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return &t, nil
	}

	// Try RFC3339
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}

	return nil, ErrInvalidTime
}

// ParseType accepts a message type display name ("Direct") or a numeric tag ("5").
// Unknown tags are stored under their rendered name, so "Unknown (0x2a)" is accepted as well.
func (p *DefaultQueryParser) ParseType(key string) (string, error) {
	val, ok := p.first(key)
	if !ok {
		return "", nil
	}
	if t, ok := protocol.ParseMessageType(val); ok {
		return t.String(), nil
	}
	if n, err := strconv.ParseUint(val, 0, 8); err == nil {
		return protocol.MessageType(n).String(), nil
	}
	if strings.HasPrefix(val, "Unknown (0x") {
		return val, nil
	}
	return "", ErrInvalidType
}

// ParseDirection parses client or server
func (p *DefaultQueryParser) ParseDirection(key string) (message.Direction, error) {
	val, ok := p.first(key)
	if !ok {
		return "", nil
	}
	switch d := message.Direction(strings.ToLower(val)); d {
	case message.FromClient, message.FromServer:
		return d, nil
	default:
		return "", ErrInvalidDirection
	}
}

// Pagination helper functions

// CalculateOffset calculates the starting index for pagination
func CalculateOffset(page, limit int) int {
	return (page - 1) * limit
}

// PaginateSlice returns a slice of the items based on pagination parameters
func PaginateSlice(items []string, offset, limit int) []string {
	if offset >= len(items) {
		return []string{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
