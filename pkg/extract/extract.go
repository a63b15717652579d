package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"casethread/pkg/ai"
	"casethread/pkg/logger"
)

const tokenEncoding = "o200k_base"

// Extractor runs the statement-extraction contract against a model.
type Extractor struct {
	client    ai.Client
	model     string
	maxTokens int
	schema    string
}

// ExtractorParams configures a new Extractor. MaxTokens bounds the
// document text passed to the model; 0 means no truncation.
type ExtractorParams struct {
	Client    ai.Client
	Model     string
	MaxTokens int
}

func NewExtractor(params ExtractorParams) (*Extractor, error) {
	schema, err := json.MarshalIndent(ai.GenerateSchema(Statement{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render statement schema: %w", err)
	}
	return &Extractor{
		client:    params.Client,
		model:     params.Model,
		maxTokens: params.MaxTokens,
		schema:    string(schema),
	}, nil
}

// Extract runs one completion over the document text and decodes the
// result into statements. Statements without entities are dropped. An
// empty list is a valid result, not an error.
func (e *Extractor) Extract(ctx context.Context, text string) ([]Statement, error) {
	text, err := e.truncate(text)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(ai.ExtractStatementsPrompt, e.schema) + text
	raw, err := e.client.GenerateCompletion(ctx, prompt,
		ai.WithModel(e.model),
		ai.WithTemperature(0.1),
		ai.WithJSONOnly(),
	)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return DecodeStatements(raw)
}

// DecodeStatements parses a raw model response into statements,
// stripping code fences and repairing malformed JSON where possible.
func DecodeStatements(raw string) ([]Statement, error) {
	cleaned := ai.StripCodeFence(raw)

	var statements []Statement
	if err := ai.UnmarshalFlexible(cleaned, &statements); err != nil {
		// Some models wrap the list in an envelope object.
		var envelope struct {
			Statements []Statement `json:"statements"`
		}
		if envErr := ai.UnmarshalFlexible(cleaned, &envelope); envErr != nil || envelope.Statements == nil {
			return nil, &MalformedExtractionError{Raw: raw, Err: err}
		}
		statements = envelope.Statements
	}

	kept := statements[:0]
	for _, s := range statements {
		if err := s.validate(); err != nil {
			return nil, &MalformedExtractionError{Raw: raw, Err: err}
		}
		if len(s.EntityList()) == 0 {
			logger.Debug(fmt.Sprintf("dropping statement without entities: %q", s.Statement))
			continue
		}
		kept = append(kept, s)
	}
	return kept, nil
}

func (e *Extractor) truncate(text string) (string, error) {
	if e.maxTokens <= 0 {
		return text, nil
	}
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return "", fmt.Errorf("failed to load token encoding: %w", err)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= e.maxTokens {
		return text, nil
	}
	logger.Warn(fmt.Sprintf("document text truncated from %d to %d tokens", len(tokens), e.maxTokens))
	return enc.Decode(tokens[:e.maxTokens]), nil
}
