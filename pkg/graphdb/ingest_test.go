package graphdb

import (
	"testing"

	"casethread/pkg/extract"
)

func TestHashEventStable(t *testing.T) {
	a := HashEvent("acme-v-beta", "2024-03-15", "Acme Corp acquired Beta Ltd.")
	b := HashEvent("acme-v-beta", "2024-03-15", "Acme Corp acquired Beta Ltd.")
	if a != b {
		t.Fatalf("same inputs must hash identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a sha256 hex digest, got %q", a)
	}

	c := HashEvent("other-case", "2024-03-15", "Acme Corp acquired Beta Ltd.")
	if a == c {
		t.Fatal("different cases must produce different event ids")
	}
}

func TestExtractYears(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{"Founded in 1998 and sold in 2021.", []int{1998, 2021}},
		{"Room 2500 holds 3000 files.", nil},
		{"No dates here.", nil},
		{"1999 1999", []int{1999, 1999}},
	}
	for _, tt := range tests {
		got := extractYears(tt.text)
		if len(got) != len(tt.want) {
			t.Fatalf("extractYears(%q) = %v, want %v", tt.text, got, tt.want)
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Fatalf("extractYears(%q) = %v, want %v", tt.text, got, tt.want)
			}
		}
	}
}

func TestPrepRow(t *testing.T) {
	row := prepRow("acme-v-beta", extract.Statement{
		Date:        "2024-03-15",
		Statement:   "In 2024 Acme Corp acquired Beta Ltd.",
		Entities:    "Acme Corp; Beta Ltd",
		EntityTypes: []string{"organization"},
		Category:    "Business Activity",
	})

	if row.EvID != HashEvent("acme-v-beta", "2024-03-15", "In 2024 Acme Corp acquired Beta Ltd.") {
		t.Fatalf("unexpected event id %q", row.EvID)
	}
	if len(row.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %+v", row.Entities)
	}
	if row.Entities[0].Name != "acme corp" || row.Entities[0].Type != "organization" {
		t.Fatalf("unexpected first entity: %+v", row.Entities[0])
	}
	if row.Entities[1].Type != "other" {
		t.Fatalf("missing type must default to other, got %+v", row.Entities[1])
	}
	if len(row.Years) != 1 || row.Years[0] != 2024 {
		t.Fatalf("expected years [2024], got %v", row.Years)
	}
}

func TestPrepRowOutOfTaxonomyCategory(t *testing.T) {
	row := prepRow("c", extract.Statement{
		Date:      "2020-01-01",
		Statement: "Something happened.",
		Entities:  "someone",
		Category:  "Rumour",
	})
	if row.Category != "Other" {
		t.Fatalf("expected category Other, got %q", row.Category)
	}
}

func TestBuildTriples(t *testing.T) {
	row := eventRow{
		EvID: "ev-1",
		Relations: []extract.Relation{
			{Subject: "acme corp", Predicate: "acquired", Object: "beta ltd"},
			{Subject: "acme corp", Predicate: "founded_in", Object: "1998"},
			{Subject: "", Predicate: "acquired", Object: "beta ltd"},
			{Subject: "acme corp", Predicate: "", Object: "beta ltd"},
			{Subject: "acme corp", Predicate: "acquired", Object: " "},
		},
	}

	triples := buildTriples(row)
	if len(triples) != 2 {
		t.Fatalf("expected 2 complete triples, got %d: %+v", len(triples), triples)
	}
	if triples[0].ObjIsYear {
		t.Fatal("entity object misclassified as year")
	}
	if !triples[1].ObjIsYear {
		t.Fatal("1998 must be classified as a year object")
	}
	for _, tr := range triples {
		if tr.EvID != "ev-1" {
			t.Fatalf("triple must carry the event id, got %+v", tr)
		}
	}
}

func TestBuildTriplesLowercasesEntityNames(t *testing.T) {
	row := prepRow("c", extract.Statement{
		Date:      "2024-03-15",
		Statement: "Acme Corp acquired Beta Ltd.",
		Entities:  "Acme Corp; Beta Ltd",
		Category:  "Business Activity",
	})
	row.Relations = []extract.Relation{
		{Subject: "Acme Corp", Predicate: "acquired", Object: "Beta Ltd"},
	}

	merged := make(map[string]bool)
	for _, e := range row.Entities {
		merged[e.Name] = true
	}

	triples := buildTriples(row)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	if !merged[triples[0].Subj] {
		t.Fatalf("relation subject %q must match a merged entity name", triples[0].Subj)
	}
	if !merged[triples[0].Obj] {
		t.Fatalf("relation object %q must match a merged entity name", triples[0].Obj)
	}
}

func TestBuildTriplesYearBoundary(t *testing.T) {
	tests := []struct {
		obj  string
		want bool
	}{
		{"1998", true},
		{"2024", true},
		{"198", false},
		{"19981", false},
		{"beta ltd", false},
	}
	for _, tt := range tests {
		triples := buildTriples(eventRow{
			EvID:      "ev",
			Relations: []extract.Relation{{Subject: "s", Predicate: "p", Object: tt.obj}},
		})
		if len(triples) != 1 {
			t.Fatalf("expected one triple for %q", tt.obj)
		}
		if triples[0].ObjIsYear != tt.want {
			t.Fatalf("ObjIsYear(%q) = %v, want %v", tt.obj, triples[0].ObjIsYear, tt.want)
		}
	}
}
