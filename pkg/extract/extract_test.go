package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"casethread/pkg/ai"
)

type fakeClient struct {
	response string
	err      error

	gotPrompt string
	gotOpts   ai.GenerateOptions
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.gotPrompt = prompt
	for _, opt := range opts {
		opt(&f.gotOpts)
	}
	return f.response, f.err
}

func (f *fakeClient) GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) ResetMetrics()               {}
func (f *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

const validResponse = `[
  {
    "Date": "2024-03-15",
    "Statement": "Acme Corp acquired Beta Ltd for $2bn.",
    "Entities": "acme corp; beta ltd",
    "EntityTypes": ["organization", "organization"],
    "Relations": [{"Subject": "acme corp", "Predicate": "acquired", "Object": "beta ltd"}],
    "Category": "Business Activity"
  },
  {
    "Date": "2023-01-01",
    "Statement": "The market was generally quiet that year.",
    "Entities": "",
    "EntityTypes": [],
    "Relations": [],
    "Category": "Event"
  }
]`

func TestExtractDropsStatementsWithoutEntities(t *testing.T) {
	client := &fakeClient{response: validResponse}
	e, err := NewExtractor(ExtractorParams{Client: client, Model: "test-model"})
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	statements, err := e.Extract(context.Background(), "some document text")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("expected 1 statement after dropping the entity-less one, got %d", len(statements))
	}
	if statements[0].Date != "2024-03-15" {
		t.Fatalf("unexpected surviving statement: %+v", statements[0])
	}
	if !client.gotOpts.JSONOnly {
		t.Fatal("expected the completion to be constrained to JSON")
	}
	if !strings.Contains(client.gotPrompt, "some document text") {
		t.Fatal("expected the document text to be appended to the prompt")
	}
	if !strings.Contains(client.gotPrompt, `"Entities"`) {
		t.Fatal("expected the statement schema to be embedded in the prompt")
	}
}

func TestDecodeStatementsFencedResponse(t *testing.T) {
	statements, err := DecodeStatements("```json\n" + validResponse + "\n```")
	if err != nil {
		t.Fatalf("DecodeStatements failed: %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(statements))
	}
}

func TestDecodeStatementsEnvelope(t *testing.T) {
	statements, err := DecodeStatements(`{"statements": ` + validResponse + `}`)
	if err != nil {
		t.Fatalf("DecodeStatements failed: %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(statements))
	}
}

func TestDecodeStatementsEmptyList(t *testing.T) {
	statements, err := DecodeStatements("[]")
	if err != nil {
		t.Fatalf("DecodeStatements failed: %v", err)
	}
	if len(statements) != 0 {
		t.Fatalf("expected no statements, got %d", len(statements))
	}
}

func TestDecodeStatementsMalformed(t *testing.T) {
	_, err := DecodeStatements("I could not find any dates in this document.")
	if err == nil {
		t.Fatal("expected an error for prose output")
	}
	var malformed *MalformedExtractionError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected a MalformedExtractionError, got: %v", err)
	}
}

func TestDecodeStatementsRejectsNonConforming(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "missing date",
			raw:  `[{"Date": "", "Statement": "Something happened.", "Entities": "x", "Category": "Event"}]`,
		},
		{
			name: "missing statement",
			raw:  `[{"Date": "2024-01-01", "Statement": "", "Entities": "x", "Category": "Event"}]`,
		},
		{
			name: "unknown category",
			raw:  `[{"Date": "2024-01-01", "Statement": "Something happened.", "Entities": "x", "Category": "Gossip"}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStatements(tt.raw)
			var malformed *MalformedExtractionError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected a MalformedExtractionError, got: %v", err)
			}
		})
	}
}

func TestEntityListPairsTypes(t *testing.T) {
	s := Statement{
		Entities:    "Acme Corp; jane doe;  ; berlin",
		EntityTypes: []string{"organization", "person"},
	}
	got := s.EntityList()
	want := []Entity{
		{Name: "acme corp", Type: "organization"},
		{Name: "jane doe", Type: "person"},
		{Name: "berlin", Type: "other"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entities, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entity %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestNormalizedCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Legal", "Legal"},
		{"Financial Reporting", "Financial Reporting"},
		{"Gossip", "Other"},
		{"", "Other"},
	}
	for _, tt := range tests {
		if got := (Statement{Category: tt.in}).NormalizedCategory(); got != tt.want {
			t.Fatalf("NormalizedCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
