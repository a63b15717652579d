package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document is one case document moving through the pipeline. Link
// documents carry a DocumentURL; file documents carry a FilePath under
// the uploads directory. TextPath is set once plain text exists.
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CaseID       string             `bson:"case_id" json:"case_id"`
	Name         string             `bson:"name" json:"name"`
	DocumentType string             `bson:"document_type" json:"document_type"`
	DocumentURL  string             `bson:"document_url,omitempty" json:"document_url,omitempty"`
	FilePath     string             `bson:"file_path,omitempty" json:"file_path,omitempty"`
	TextPath     string             `bson:"text_path,omitempty" json:"text_path,omitempty"`
	Status       string             `bson:"status" json:"status"`
	ActualError  string             `bson:"actual_error,omitempty" json:"actual_error,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// SourceURL is the source name the document contributes to the graph:
// the original URL for links, the cleaned upload name for files.
func (d Document) SourceURL() string {
	if d.DocumentType == TypeLink {
		return d.DocumentURL
	}
	return CleanSource(d.FilePath)
}

// Insert stores a new pending document and returns its id.
func (s *Store) Insert(ctx context.Context, doc Document) (primitive.ObjectID, error) {
	doc.ID = primitive.NewObjectID()
	doc.Status = StatusPending
	doc.CreatedAt = nowUTC()
	doc.UpdatedAt = doc.CreatedAt

	if _, err := s.documents().InsertOne(ctx, doc); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc.ID, nil
}

// ClaimPending atomically moves up to limit pending documents of the
// given type to processing and returns them, oldest first. Each claim
// is a single compare-and-set round trip, so concurrent runs never
// pick up the same document twice.
func (s *Store) ClaimPending(ctx context.Context, docType string, limit int) ([]Document, error) {
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	var claimed []Document
	for len(claimed) < limit {
		var doc Document
		err := s.documents().FindOneAndUpdate(ctx,
			bson.M{"status": StatusPending, "document_type": docType},
			bson.M{"$set": bson.M{"status": StatusProcessing, "updated_at": nowUTC()}},
			opts,
		).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return claimed, fmt.Errorf("failed to claim document: %w", err)
		}
		claimed = append(claimed, doc)
	}
	return claimed, nil
}

// MarkPending releases a claimed document back to the pending pool so
// a later run can pick it up again.
func (s *Store) MarkPending(ctx context.Context, id primitive.ObjectID) error {
	return s.updateDocument(ctx, id, bson.M{"status": StatusPending})
}

// SetTextPath records where the acquired plain text was written.
func (s *Store) SetTextPath(ctx context.Context, id primitive.ObjectID, textPath string) error {
	return s.updateDocument(ctx, id, bson.M{"text_path": textPath})
}

// MarkProcessed completes a document's run through the pipeline.
func (s *Store) MarkProcessed(ctx context.Context, id primitive.ObjectID) error {
	return s.updateDocument(ctx, id, bson.M{"status": StatusProcessed, "actual_error": ""})
}

// MarkError records a per-document failure without touching any other
// document in the batch.
func (s *Store) MarkError(ctx context.Context, id primitive.ObjectID, cause error) error {
	return s.updateDocument(ctx, id, bson.M{"status": StatusError, "actual_error": cause.Error()})
}

func (s *Store) updateDocument(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = nowUTC()
	_, err := s.documents().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id.Hex(), err)
	}
	return nil
}

// TimelineRecord mirrors what was pushed to the graph for one source,
// kept in MongoDB for audit and replay.
type TimelineRecord struct {
	CaseID    string `bson:"case_id"`
	SourceURL string `bson:"source_url"`
	Data      any    `bson:"data"`
}

// InsertTimeline writes the per-source extraction through to the
// time_line collection.
func (s *Store) InsertTimeline(ctx context.Context, record TimelineRecord) error {
	if _, err := s.timeline().InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert timeline record: %w", err)
	}
	return nil
}
