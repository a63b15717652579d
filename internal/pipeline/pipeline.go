// Package pipeline orchestrates a batch ingestion run: claim pending
// documents, acquire their text, extract statements and push them to
// the knowledge graph. Failures are isolated per document.
package pipeline

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"casethread/internal/docstore"
	"casethread/pkg/extract"
	"casethread/pkg/logger"
	"casethread/pkg/scrape"
)

// TextAcquirer turns a URL into plain text plus page metadata.
type TextAcquirer interface {
	Acquire(ctx context.Context, pageURL string) (scrape.Extraction, error)
}

// FileParser turns an uploaded file into plain text.
type FileParser interface {
	ParseFile(ctx context.Context, path string) (string, error)
}

// StatementExtractor produces structured statements from document text.
type StatementExtractor interface {
	Extract(ctx context.Context, text string) ([]extract.Statement, error)
}

// GraphIngestor upserts one document's statements into the graph.
type GraphIngestor interface {
	Ingest(ctx context.Context, caseName, sourceName, docTitle string, statements []extract.Statement) error
}

// DocumentStore is the document lifecycle backend.
type DocumentStore interface {
	ClaimPending(ctx context.Context, docType string, limit int) ([]docstore.Document, error)
	MarkPending(ctx context.Context, id primitive.ObjectID) error
	SetTextPath(ctx context.Context, id primitive.ObjectID, textPath string) error
	MarkProcessed(ctx context.Context, id primitive.ObjectID) error
	MarkError(ctx context.Context, id primitive.ObjectID, cause error) error
	InsertTimeline(ctx context.Context, record docstore.TimelineRecord) error
}

// TextArtifacts persists acquired text between runs.
type TextArtifacts interface {
	Write(documentID, text string) (string, error)
	Read(path string) (string, error)
}

// Orchestrator runs ingestion batches.
type Orchestrator struct {
	store     DocumentStore
	scraper   TextAcquirer
	parser    FileParser
	extractor StatementExtractor
	ingestor  GraphIngestor
	artifacts TextArtifacts
}

type OrchestratorParams struct {
	Store     DocumentStore
	Scraper   TextAcquirer
	Parser    FileParser
	Extractor StatementExtractor
	Ingestor  GraphIngestor
	Artifacts TextArtifacts
}

func NewOrchestrator(params OrchestratorParams) *Orchestrator {
	return &Orchestrator{
		store:     params.Store,
		scraper:   params.Scraper,
		parser:    params.Parser,
		extractor: params.Extractor,
		ingestor:  params.Ingestor,
		artifacts: params.Artifacts,
	}
}

// RunResult summarises one batch run.
type RunResult struct {
	Claimed   int
	Processed int
	Failed    int
}

// RunBatch claims up to limit pending documents of docType and runs
// each through the pipeline. One document failing marks only that
// document as errored; the rest of the batch continues.
func (o *Orchestrator) RunBatch(ctx context.Context, docType string, limit int) (RunResult, error) {
	docs, err := o.store.ClaimPending(ctx, docType, limit)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to claim batch: %w", err)
	}
	if len(docs) == 0 {
		logger.Debug(fmt.Sprintf("no pending %s documents", docType))
		return RunResult{}, nil
	}

	result := RunResult{Claimed: len(docs)}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			// Claimed documents would otherwise be stranded in
			// processing forever; hand them back before stopping.
			o.releaseClaims(context.WithoutCancel(ctx), docs[i:])
			return result, err
		}
		if err := o.processDocument(ctx, doc); err != nil {
			logger.Error("Failed to process document", "doc", doc.ID.Hex(), "err", err)
			if markErr := o.store.MarkError(ctx, doc.ID, err); markErr != nil {
				logger.Error("Failed to record document error", "doc", doc.ID.Hex(), "err", markErr)
			}
			result.Failed++
			continue
		}
		result.Processed++
	}
	logger.Info("Batch complete", "type", docType, "claimed", result.Claimed, "processed", result.Processed, "failed", result.Failed)
	return result, nil
}

func (o *Orchestrator) releaseClaims(ctx context.Context, docs []docstore.Document) {
	for _, doc := range docs {
		if err := o.store.MarkPending(ctx, doc.ID); err != nil {
			logger.Error("Failed to release claimed document", "doc", doc.ID.Hex(), "err", err)
		}
	}
}

func (o *Orchestrator) processDocument(ctx context.Context, doc docstore.Document) error {
	text, err := o.acquireText(ctx, doc)
	if err != nil {
		return err
	}

	statements, err := o.extractor.Extract(ctx, text)
	if err != nil {
		return err
	}
	if len(statements) == 0 {
		// Nothing datable in the document; that is a terminal success.
		logger.Info("No statements extracted", "doc", doc.ID.Hex())
		return o.store.MarkProcessed(ctx, doc.ID)
	}

	if err := o.ingestor.Ingest(ctx, doc.CaseID, doc.SourceURL(), doc.Name, statements); err != nil {
		return err
	}

	if err := o.store.InsertTimeline(ctx, docstore.TimelineRecord{
		CaseID:    doc.CaseID,
		SourceURL: doc.SourceURL(),
		Data:      statements,
	}); err != nil {
		return err
	}

	return o.store.MarkProcessed(ctx, doc.ID)
}

// acquireText reuses the stored artifact when one exists, otherwise it
// scrapes or parses the document and persists the result.
func (o *Orchestrator) acquireText(ctx context.Context, doc docstore.Document) (string, error) {
	if doc.TextPath != "" {
		return o.artifacts.Read(doc.TextPath)
	}

	var text string
	switch doc.DocumentType {
	case docstore.TypeLink:
		ex, err := o.scraper.Acquire(ctx, doc.DocumentURL)
		if err != nil {
			return "", err
		}
		text = ex.Content
	case docstore.TypeFile:
		parsed, err := o.parser.ParseFile(ctx, doc.FilePath)
		if err != nil {
			return "", err
		}
		text = parsed
	default:
		return "", fmt.Errorf("unknown document type %q", doc.DocumentType)
	}

	path, err := o.artifacts.Write(doc.ID.Hex(), text)
	if err != nil {
		return "", err
	}
	if err := o.store.SetTextPath(ctx, doc.ID, path); err != nil {
		return "", err
	}
	return text, nil
}
