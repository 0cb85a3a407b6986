package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/storage"
)

// TestStringSorterAscending tests ascending sort order
func TestStringSorterAscending(t *testing.T) {
	sorter := NewStringSorter()
	items := []string{"gamma", "alpha", "beta"}
	expected := []string{"alpha", "beta", "gamma"}
	sorter.SortStrings(items, SortAscending)
	for i, v := range items {
		if v != expected[i] {
			t.Errorf("expected %s, got %s at index %d", expected[i], v, i)
		}
	}
}

// TestStringSorterDescending tests descending sort order
func TestStringSorterDescending(t *testing.T) {
	sorter := NewStringSorter()
	items := []string{"gamma", "alpha", "beta"}
	expected := []string{"gamma", "beta", "alpha"}
	sorter.SortStrings(items, SortDescending)
	for i, v := range items {
		if v != expected[i] {
			t.Errorf("expected %s, got %s at index %d", expected[i], v, i)
		}
	}
}

func TestTokenAuthenticator(t *testing.T) {
	auth := NewTokenAuthenticator("secret123")
	if !auth.Authenticate("secret123") {
		t.Error("expected authentication to succeed")
	}
	if auth.Authenticate("wrongtoken") || auth.Authenticate("") {
		t.Error("expected authentication to fail")
	}

	if !NewTokenAuthenticator("").Authenticate("anything") {
		t.Error("expected authentication to succeed when no token required")
	}
}

// TestDefaultQueryParserParseInt tests parsing integer parameters
func TestDefaultQueryParserParseInt(t *testing.T) {
	params := map[string][]string{
		"limit":    {"50"},
		"page":     {"2"},
		"invalid":  {"abc"},
		"negative": {"-3"},
	}
	parser := NewDefaultQueryParser(params)

	tests := []struct {
		key        string
		defaultVal int
		expected   int
	}{
		{"limit", 10, 50},
		{"page", 1, 2},
		{"invalid", 100, 100},
		{"negative", 5, 5},
		{"missing", 75, 75},
	}

	for _, tt := range tests {
		result := parser.ParseInt(tt.key, tt.defaultVal)
		if result != tt.expected {
			t.Errorf("ParseInt(%s, %d) = %d, expected %d", tt.key, tt.defaultVal, result, tt.expected)
		}
	}
}

func TestDefaultQueryParserParseBoolAndSort(t *testing.T) {
	parser := NewDefaultQueryParser(map[string][]string{
		"errors": {"true"},
		"quiet":  {"no"},
		"sort":   {"desc"},
		"sort2":  {"ASC"},
	})

	if !parser.ParseBool("errors") || parser.ParseBool("quiet") || parser.ParseBool("missing") {
		t.Error("unexpected ParseBool result")
	}
	if parser.ParseSortOrder("sort", SortAscending) != SortDescending {
		t.Error("expected SortDescending")
	}
	if parser.ParseSortOrder("sort2", SortDescending) != SortAscending {
		t.Error("expected SortAscending")
	}
	if parser.ParseSortOrder("missing", SortDescending) != SortDescending {
		t.Error("expected SortDescending default")
	}
}

func TestDefaultQueryParserParseTime(t *testing.T) {
	parser := NewDefaultQueryParser(map[string][]string{
		"time":  {"2026-02-13T22:30:00Z"},
		"nano":  {"2026-02-13T22:30:00.123456789Z"},
		"empty": {""},
		"bad":   {"not-a-time"},
	})

	for _, key := range []string{"time", "nano"} {
		result, err := parser.ParseTimeParam(key)
		if err != nil || result == nil {
			t.Errorf("expected %s to parse, got %v, %v", key, result, err)
		}
	}
	if result, err := parser.ParseTimeParam("empty"); result != nil || err != nil {
		t.Errorf("expected empty value to be ignored, got %v, %v", result, err)
	}
	if _, err := parser.ParseTimeParam("bad"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}
}

func TestDefaultQueryParserParseType(t *testing.T) {
	parser := NewDefaultQueryParser(map[string][]string{
		"name":    {"Register Success"},
		"tag":     {"11"},
		"hex":     {"0x2a"},
		"unknown": {"Unknown (0x2a)"},
		"bad":     {"Shout"},
	})

	tests := map[string]string{
		"name":    "Register Success",
		"tag":     "List Length",
		"hex":     "Unknown (0x2a)",
		"unknown": "Unknown (0x2a)",
		"missing": "",
	}
	for key, want := range tests {
		got, err := parser.ParseType(key)
		if err != nil || got != want {
			t.Errorf("ParseType(%s) = %q, %v; want %q", key, got, err, want)
		}
	}
	if _, err := parser.ParseType("bad"); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}

func TestDefaultQueryParserParseDirection(t *testing.T) {
	parser := NewDefaultQueryParser(map[string][]string{
		"a": {"client"},
		"b": {"SERVER"},
		"c": {"both"},
	})
	if d, err := parser.ParseDirection("a"); err != nil || d != message.FromClient {
		t.Errorf("unexpected direction %q, %v", d, err)
	}
	if d, err := parser.ParseDirection("b"); err != nil || d != message.FromServer {
		t.Errorf("unexpected direction %q, %v", d, err)
	}
	if _, err := parser.ParseDirection("c"); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("expected ErrInvalidDirection, got %v", err)
	}
}

// TestPaginationParamsValidate tests pagination parameter validation
func TestPaginationParamsValidate(t *testing.T) {
	tests := []struct {
		params PaginationParams
		valid  bool
	}{
		{PaginationParams{Limit: 10, Page: 1}, true},
		{PaginationParams{Limit: 0, Page: 1}, false},
		{PaginationParams{Limit: 10, Page: 0}, false},
		{PaginationParams{Limit: -5, Page: 1}, false},
	}

	for _, tt := range tests {
		err := tt.params.Validate()
		if tt.valid && err != nil {
			t.Errorf("expected valid params, got error: %v", err)
		}
		if !tt.valid && err == nil {
			t.Errorf("expected error for invalid params: %+v", tt.params)
		}
	}
}

func TestRecordQueryValidateRange(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	ok := RecordQuery{StartTime: &start, EndTime: &end, Pagination: PaginationParams{Limit: 1, Page: 1}}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid range, got %v", err)
	}
	bad := RecordQuery{StartTime: &end, EndTime: &start, Pagination: PaginationParams{Limit: 1, Page: 1}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

// TestCalculateOffset tests offset calculation for pagination
func TestCalculateOffset(t *testing.T) {
	tests := []struct {
		page     int
		limit    int
		expected int
	}{
		{1, 10, 0},
		{2, 10, 10},
		{3, 10, 20},
		{1, 25, 0},
	}

	for _, tt := range tests {
		result := CalculateOffset(tt.page, tt.limit)
		if result != tt.expected {
			t.Errorf("CalculateOffset(%d, %d) = %d, expected %d", tt.page, tt.limit, result, tt.expected)
		}
	}
}

// TestPaginateSlice tests pagination slice operation
func TestPaginateSlice(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	tests := []struct {
		offset   int
		limit    int
		expected []string
	}{
		{0, 2, []string{"a", "b"}},
		{2, 2, []string{"c", "d"}},
		{4, 2, []string{"e"}},
		{5, 2, []string{}},
	}

	for _, tt := range tests {
		result := PaginateSlice(items, tt.offset, tt.limit)
		if len(result) != len(tt.expected) {
			t.Errorf("PaginateSlice offset=%d limit=%d: expected %d items, got %d", tt.offset, tt.limit, len(tt.expected), len(result))
		}
		for i, v := range result {
			if v != tt.expected[i] {
				t.Errorf("expected %s, got %s at index %d", tt.expected[i], v, i)
			}
		}
	}
}

func TestServiceListStreamsSortsAndPaginates(t *testing.T) {
	svc := NewService(&okStore{ids: []string{"c", "a", "b"}}, NewStringSorter(), 0)

	resp, err := svc.ListStreams(context.Background(), 1, 2, SortDescending)
	if err != nil {
		t.Fatalf("ListStreams failed: %v", err)
	}
	items := resp.Items.([]string)
	if resp.Total != 3 || len(items) != 2 || items[0] != "c" || items[1] != "b" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if _, err := svc.ListStreams(context.Background(), 0, 2, SortAscending); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
}

func TestStoreAdapterTranslatesQuery(t *testing.T) {
	var (
		gotFilter          storage.RecordFilter
		gotLimit, gotPage  int
		gotAsc, closeCalls = false, 0
	)
	adapter := NewStoreAdapter(
		func(ctx context.Context, f storage.RecordFilter, limit, page int, asc bool) ([]message.Record, int64, error) {
			gotFilter, gotLimit, gotPage, gotAsc = f, limit, page, asc
			return []message.Record{{ID: "r1"}}, 7, nil
		},
		func(ctx context.Context) ([]string, error) { return []string{"s1"}, nil },
		func(ctx context.Context) error { closeCalls++; return nil },
	)

	start := time.Now()
	items, total, err := adapter.QueryRecords(context.Background(), RecordQuery{
		StreamID:   "s1",
		Type:       "Direct",
		Direction:  message.FromClient,
		FailedOnly: true,
		StartTime:  &start,
		Pagination: PaginationParams{Limit: 20, Page: 3},
		SortOrder:  SortAscending,
	})
	if err != nil || total != 7 {
		t.Fatalf("unexpected result: %v, %d, %v", items, total, err)
	}
	if recs := items.([]message.Record); len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if gotFilter.Stream != "s1" || gotFilter.Type != "Direct" || gotFilter.Direction != message.FromClient || !gotFilter.FailedOnly || gotFilter.Start != &start {
		t.Fatalf("unexpected filter: %+v", gotFilter)
	}
	if gotLimit != 20 || gotPage != 3 || !gotAsc {
		t.Fatalf("unexpected paging: %d %d %v", gotLimit, gotPage, gotAsc)
	}

	ids, err := adapter.ListStreams(context.Background())
	if err != nil || len(ids) != 1 {
		t.Fatalf("unexpected streams: %v, %v", ids, err)
	}
	if err := adapter.Close(context.Background()); err != nil || closeCalls != 1 {
		t.Fatalf("expected close to be delegated")
	}
}
