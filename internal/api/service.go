package api

import (
	"context"
)

// Service contains business logic for record queries separated from HTTP concerns
type Service struct {
	store        Store
	sorter       Sorter
	defaultLimit int
}

// NewService creates a new Service
func NewService(store Store, sorter Sorter, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &Service{store: store, sorter: sorter, defaultLimit: defaultLimit}
}

// ListStreams returns a paginated, sorted list of stream IDs
func (s *Service) ListStreams(ctx context.Context, page, limit int, order SortOrder) (ListResponse, error) {
	params := PaginationParams{Limit: limit, Page: page}
	if err := params.Validate(); err != nil {
		return ListResponse{}, err
	}

	ids, err := s.store.ListStreams(ctx)
	if err != nil {
		return ListResponse{}, err
	}

	s.sorter.SortStrings(ids, order)
	offset := CalculateOffset(page, limit)
	paginated := PaginateSlice(ids, offset, limit)

	return ListResponse{Total: len(ids), Page: page, Limit: limit, Items: paginated}, nil
}

// QueryRecords queries dissected records and returns a paginated response
func (s *Service) QueryRecords(ctx context.Context, q RecordQuery) (QueryResponse, error) {
	if err := q.Validate(); err != nil {
		return QueryResponse{}, err
	}

	items, total, err := s.store.QueryRecords(ctx, q)
	if err != nil {
		return QueryResponse{}, err
	}

	return QueryResponse{Total: total, Page: q.Pagination.Page, Limit: q.Pagination.Limit, Items: items}, nil
}
