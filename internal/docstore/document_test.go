package docstore

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestClaimPendingMatchesAndSetsInOneCommand(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("claims until the pending pool is exhausted", func(mt *mtest.T) {
		store := &Store{client: mt.Client, db: mt.Client.Database("casethread")}

		docID := primitive.NewObjectID()
		claimed := mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: docID},
			{Key: "case_id", Value: "case-1"},
			{Key: "document_type", Value: TypeLink},
			{Key: "status", Value: StatusProcessing},
		}})
		exhausted := mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
		mt.AddMockResponses(claimed, exhausted)

		docs, err := store.ClaimPending(context.Background(), TypeLink, 10)
		if err != nil {
			mt.Fatalf("ClaimPending failed: %v", err)
		}
		if len(docs) != 1 || docs[0].ID != docID {
			mt.Fatalf("expected the one pending document, got %+v", docs)
		}

		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "findAndModify" {
			mt.Fatalf("expected a findAndModify command, got %+v", evt)
		}
		query := evt.Command.Lookup("query").Document()
		if got := query.Lookup("status").StringValue(); got != StatusPending {
			mt.Fatalf("claim must match status %q, got %q", StatusPending, got)
		}
		if got := query.Lookup("document_type").StringValue(); got != TypeLink {
			mt.Fatalf("claim must match document type %q, got %q", TypeLink, got)
		}
		if got := evt.Command.Lookup("update", "$set", "status").StringValue(); got != StatusProcessing {
			mt.Fatalf("claim must set status %q in the same command, got %q", StatusProcessing, got)
		}
	})
}
