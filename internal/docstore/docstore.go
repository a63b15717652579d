// Package docstore is the MongoDB system of record for case documents.
// It owns the document lifecycle (pending, processing, processed,
// error) and the timeline write-through collection.
package docstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Document lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusError      = "error"
)

// Document kinds.
const (
	TypeLink = "link"
	TypeFile = "file"
)

// Store wraps the MongoDB collections used by the pipeline.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

type StoreParams struct {
	URI      string
	Database string
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, params StoreParams) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(params.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{
		client: client,
		db:     client.Database(params.Database),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) documents() *mongo.Collection {
	return s.db.Collection("documents")
}

func (s *Store) timeline() *mongo.Collection {
	return s.db.Collection("time_line")
}

var uploadsPrefixRE = regexp.MustCompile(`^uploads[\\/]`)

// CleanSource strips the local uploads directory prefix from a stored
// file path, leaving the doc_... source name used in the graph.
func CleanSource(filePath string) string {
	return uploadsPrefixRE.ReplaceAllString(filePath, "")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
