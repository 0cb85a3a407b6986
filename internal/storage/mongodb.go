package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/polychat-monitor/internal/message"
)

const (
	defaultURI        = "mongodb://localhost:27017"
	defaultDatabase   = "polychat"
	defaultCollection = "records"
	defaultLimit      = 100
	writeTimeout      = 5 * time.Second
)

var ErrNilRecord = errors.New("storage: nil record")

// MongoStore handles storing dissected records in MongoDB
type MongoStore struct {
	client     *mongo.Client
	db         *mongo.Database
	collection CollectionAPI
}

// CollectionAPI abstracts required mongo.Collection methods to allow testing.
type CollectionAPI interface {
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Distinct(context.Context, string, interface{}, ...*options.DistinctOptions) ([]interface{}, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
	Find(context.Context, interface{}, ...*options.FindOptions) (CursorAPI, error)
}

// CursorAPI abstracts the mongo.Cursor methods used in QueryRecords.
type CursorAPI interface {
	Close(context.Context) error
	Next(context.Context) bool
	Decode(interface{}) error
	Err() error
}

// realCollection adapts *mongo.Collection to CollectionAPI
type realCollection struct{ c *mongo.Collection }

func (r realCollection) InsertOne(ctx context.Context, doc interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return r.c.InsertOne(ctx, doc, opts...)
}
func (r realCollection) Distinct(ctx context.Context, field string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error) {
	return r.c.Distinct(ctx, field, filter, opts...)
}
func (r realCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return r.c.CountDocuments(ctx, filter, opts...)
}
func (r realCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (CursorAPI, error) {
	cur, err := r.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return realCursor{cur}, nil
}

// realCursor adapts *mongo.Cursor to CursorAPI
type realCursor struct{ c *mongo.Cursor }

func (rc realCursor) Close(ctx context.Context) error { return rc.c.Close(ctx) }
func (rc realCursor) Next(ctx context.Context) bool   { return rc.c.Next(ctx) }
func (rc realCursor) Decode(v interface{}) error      { return rc.c.Decode(v) }
func (rc realCursor) Err() error                      { return rc.c.Err() }

// NewMongoStore creates a new MongoDB store connection
func NewMongoStore(ctx context.Context, mongoURI, dbName, collectionName string) (*MongoStore, error) {
	if mongoURI == "" {
		mongoURI = defaultURI
	}
	if dbName == "" {
		dbName = defaultDatabase
	}
	if collectionName == "" {
		collectionName = defaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &MongoStore{
		client:     client,
		db:         db,
		collection: realCollection{db.Collection(collectionName)},
	}, nil
}

// StoreRecord inserts one record. A zero timestamp is replaced by the current time.
func (ms *MongoStore) StoreRecord(ctx context.Context, rec *message.Record) error {
	if rec == nil {
		return ErrNilRecord
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if _, err := ms.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (ms *MongoStore) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

// ListStreams returns the distinct stream identifiers that have records.
func (ms *MongoStore) ListStreams(ctx context.Context) ([]string, error) {
	values, err := ms.collection.Distinct(ctx, "stream", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct stream: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// RecordFilter narrows QueryRecords. Zero fields match everything.
type RecordFilter struct {
	Stream     string
	Type       string
	Direction  message.Direction
	FailedOnly bool
	// Start and End are inclusive bounds on the record timestamp.
	Start *time.Time
	End   *time.Time
}

func (f RecordFilter) toBSON() bson.M {
	filter := bson.M{}
	if f.Stream != "" {
		filter["stream"] = f.Stream
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Direction != "" {
		filter["direction"] = f.Direction
	}
	if f.FailedOnly {
		filter["error_kind"] = bson.M{"$exists": true, "$ne": ""}
	}
	if f.Start != nil || f.End != nil {
		tr := bson.M{}
		if f.Start != nil {
			tr["$gte"] = *f.Start
		}
		if f.End != nil {
			tr["$lte"] = *f.End
		}
		filter["timestamp"] = tr
	}
	return filter
}

// QueryRecords returns one page of matching records and the total match count.
// Records are ordered by timestamp, then by stream sequence number.
func (ms *MongoStore) QueryRecords(ctx context.Context, f RecordFilter, limit, page int, sortAsc bool) ([]message.Record, int64, error) {
	filter := f.toBSON()

	total, err := ms.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	findOpts := options.Find().SetLimit(int64(limit))
	if page <= 1 {
		findOpts.SetSkip(0)
	} else {
		findOpts.SetSkip(int64((page - 1) * limit))
	}
	sortOrder := -1
	if sortAsc {
		sortOrder = 1
	}
	findOpts.SetSort(bson.D{{Key: "timestamp", Value: sortOrder}, {Key: "seq", Value: sortOrder}})

	cur, err := ms.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("find documents: %w", err)
	}
	defer cur.Close(ctx)

	results := make([]message.Record, 0, limit)
	for cur.Next(ctx) {
		var rec message.Record
		if err := cur.Decode(&rec); err != nil {
			return nil, 0, fmt.Errorf("decode record: %w", err)
		}
		results = append(results, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error: %w", err)
	}

	return results, total, nil
}
