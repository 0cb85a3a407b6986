package api

import (
	"context"

	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/storage"
)

// StoreAdapter wraps a record store implementation to match the Store interface
type StoreAdapter struct {
	queryFunc       func(context.Context, storage.RecordFilter, int, int, bool) ([]message.Record, int64, error)
	listStreamsFunc func(context.Context) ([]string, error)
	closeFunc       func(context.Context) error
}

// NewStoreAdapter creates a new store adapter
func NewStoreAdapter(
	queryFunc func(context.Context, storage.RecordFilter, int, int, bool) ([]message.Record, int64, error),
	listStreamsFunc func(context.Context) ([]string, error),
	closeFunc func(context.Context) error,
) *StoreAdapter {
	return &StoreAdapter{
		queryFunc:       queryFunc,
		listStreamsFunc: listStreamsFunc,
		closeFunc:       closeFunc,
	}
}

// NewMongoAdapter adapts a MongoStore
func NewMongoAdapter(ms *storage.MongoStore) *StoreAdapter {
	return NewStoreAdapter(ms.QueryRecords, ms.ListStreams, ms.Close)
}

// ListStreams returns all stream IDs
func (a *StoreAdapter) ListStreams(ctx context.Context) ([]string, error) {
	return a.listStreamsFunc(ctx)
}

// QueryRecords translates q into a storage filter
func (a *StoreAdapter) QueryRecords(ctx context.Context, q RecordQuery) (interface{}, int, error) {
	f := storage.RecordFilter{
		Stream:     q.StreamID,
		Type:       q.Type,
		Direction:  q.Direction,
		FailedOnly: q.FailedOnly,
		Start:      q.StartTime,
		End:        q.EndTime,
	}
	items, total, err := a.queryFunc(ctx, f, q.Pagination.Limit, q.Pagination.Page, q.SortOrder == SortAscending)
	return items, int(total), err
}

// Close closes the store connection
func (a *StoreAdapter) Close(ctx context.Context) error {
	return a.closeFunc(ctx)
}
