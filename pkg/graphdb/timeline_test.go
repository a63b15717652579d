package graphdb

import (
	"strings"
	"testing"
)

func TestTimelineFilters(t *testing.T) {
	where, params := timelineFilters(TimelineQuery{Case: "c", Skip: 10, Limit: 5})
	if where != "" {
		t.Fatalf("expected no WHERE clause, got %q", where)
	}
	if params["skip"] != 10 || params["limit"] != 5 {
		t.Fatalf("unexpected pagination params: %v", params)
	}

	where, params = timelineFilters(TimelineQuery{
		Case:      "c",
		StartDate: "2020-01-01",
		EndDate:   "2020-12-31",
	})
	if !strings.Contains(where, "ev.date >= date($startDate)") || !strings.Contains(where, "ev.date <= date($endDate)") {
		t.Fatalf("expected both date filters, got %q", where)
	}
	if !strings.Contains(where, " AND ") {
		t.Fatalf("filters must be AND-joined, got %q", where)
	}
	if params["startDate"] != "2020-01-01" || params["endDate"] != "2020-12-31" {
		t.Fatalf("unexpected filter params: %v", params)
	}
}

func TestTimelineDedupOrdersSourcesBeforeGrouping(t *testing.T) {
	order := strings.Index(timelineCypher, "ORDER BY ingestedAt DESC")
	group := strings.Index(timelineCypher, "WITH date, statement, category, tag, entities, collect({")
	pick := strings.Index(timelineCypher, "})[0] AS latest")
	if order == -1 || group == -1 || pick == -1 {
		t.Fatalf("timeline query lost its dedup structure:\n%s", timelineCypher)
	}
	if !(order < group && group < pick) {
		t.Fatal("candidate sources must be ordered by ingestedAt before the group keeps its first entry")
	}
}

func TestTimelineCountUsesDistinctFactKey(t *testing.T) {
	key := "date + '|' + statement + '|' + category + '|' + tag + '|' + apoc.text.join(sortedEntities, ',')"
	if !strings.Contains(timelineCountCypher, key) {
		t.Fatalf("total must be counted over the full fact key:\n%s", timelineCountCypher)
	}
	if !strings.Contains(timelineCountCypher, "count(DISTINCT uniqueKey)") {
		t.Fatal("total must deduplicate by the fact key, not count raw events")
	}
}

func TestRewriteSource(t *testing.T) {
	r := NewReader(ReaderParams{PublicBaseURL: "https://api.example.com/"})

	tests := []struct {
		in   string
		want string
	}{
		{"doc_case1_report.pdf", "https://api.example.com/uploads/doc_case1_report.pdf"},
		{"https://news.example.com/article", "https://news.example.com/article"},
		{"document.pdf", "document.pdf"},
	}
	for _, tt := range tests {
		if got := r.rewriteSource(tt.in); got != tt.want {
			t.Fatalf("rewriteSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRewriteSourceWithoutBaseURL(t *testing.T) {
	r := NewReader(ReaderParams{})
	if got := r.rewriteSource("doc_case1_report.pdf"); got != "doc_case1_report.pdf" {
		t.Fatalf("expected passthrough without a base URL, got %q", got)
	}
}
