package graphdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// TimelineEntry is one deduplicated row of a case timeline.
type TimelineEntry struct {
	Source    string   `json:"source"`
	EventID   string   `json:"eventId"`
	Date      string   `json:"date"`
	Statement string   `json:"statement"`
	Category  string   `json:"category"`
	Tag       string   `json:"tag"`
	Entities  []string `json:"entities"`
}

// TimelineQuery selects a page of a case timeline. StartDate and
// EndDate are inclusive ISO dates; empty means unbounded.
type TimelineQuery struct {
	Case      string
	Skip      int
	Limit     int
	StartDate string
	EndDate   string
}

// Timeline events that agree on date, statement, category, tag and
// sorted entity set are duplicates from re-ingested sources; only the
// most recently ingested copy is returned.
const timelineCypher = `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(f:Source)-[:HAS_EVENT]->(ev:Event)-[:INVOLVES]->(e:Entity)
%s
WITH ev, f, collect(DISTINCT e.name) AS entityList
WITH ev, f, apoc.coll.sort(entityList) AS sortedEntities
WITH ev.date AS date,
    ev.id AS eventId,
    ev.statement AS statement,
    ev.category AS category,
    coalesce(ev.tag, '') AS tag,
    sortedEntities AS entities,
    f.name AS source,
    f.ingestedAt AS ingestedAt
ORDER BY ingestedAt DESC
WITH date, statement, category, tag, entities, collect({
    eventId: eventId,
    statement: statement,
    category: category,
    tag: tag,
    source: source,
    ingestedAt: ingestedAt
})[0] AS latest
RETURN latest.source AS source,
    latest.eventId AS eventId,
    date,
    latest.statement AS statement,
    latest.category AS category,
    latest.tag AS tag,
    entities
ORDER BY date
SKIP $skip
LIMIT $limit`

const timelineCountCypher = `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(:Source)-[:HAS_EVENT]->(ev:Event)-[:INVOLVES]->(e:Entity)
%s
WITH ev, collect(DISTINCT e.name) AS entityList
WITH ev.date AS date, ev.statement AS statement, ev.category AS category, coalesce(ev.tag, '') AS tag, apoc.coll.sort(entityList) AS sortedEntities
WITH date, statement, category, sortedEntities,
    date + '|' + statement + '|' + category + '|' + tag + '|' + apoc.text.join(sortedEntities, ',') AS uniqueKey
RETURN count(DISTINCT uniqueKey) AS total`

// Reader serves timeline and graph reads. Source names that carry the
// upload prefix are rewritten to public URLs against publicBaseURL.
type Reader struct {
	client        *Client
	publicBaseURL string
}

type ReaderParams struct {
	Client        *Client
	PublicBaseURL string
}

func NewReader(params ReaderParams) *Reader {
	return &Reader{
		client:        params.Client,
		publicBaseURL: strings.TrimSuffix(params.PublicBaseURL, "/"),
	}
}

// Timeline returns one page of the deduplicated case timeline plus the
// total number of distinct timeline rows matching the date filters.
func (r *Reader) Timeline(ctx context.Context, q TimelineQuery) ([]TimelineEntry, int64, error) {
	where, params := timelineFilters(q)

	result, err := r.client.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(timelineCypher, where), params)
		if err != nil {
			return nil, err
		}

		var entries []TimelineEntry
		for res.Next(ctx) {
			record := res.Record()
			entry := TimelineEntry{
				Source:    recordString(record, "source"),
				EventID:   recordString(record, "eventId"),
				Date:      recordDate(record, "date"),
				Statement: recordString(record, "statement"),
				Category:  recordString(record, "category"),
				Tag:       recordString(record, "tag"),
				Entities:  recordStrings(record, "entities"),
			}
			entry.Source = r.rewriteSource(entry.Source)
			entries = append(entries, entry)
		}
		return entries, res.Err()
	})
	if err != nil {
		return nil, 0, fmt.Errorf("timeline query failed: %w", err)
	}

	total, err := r.timelineTotal(ctx, where, params)
	if err != nil {
		return nil, 0, err
	}
	return result.([]TimelineEntry), total, nil
}

func (r *Reader) timelineTotal(ctx context.Context, where string, params map[string]any) (int64, error) {
	result, err := r.client.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(timelineCountCypher, where), params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		total, _ := record.Get("total")
		return total, nil
	})
	if err != nil {
		return 0, fmt.Errorf("timeline count failed: %w", err)
	}
	total, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", result)
	}
	return total, nil
}

func timelineFilters(q TimelineQuery) (string, map[string]any) {
	params := map[string]any{
		"case":  q.Case,
		"skip":  q.Skip,
		"limit": q.Limit,
	}
	var filters []string
	if q.StartDate != "" {
		filters = append(filters, "ev.date >= date($startDate)")
		params["startDate"] = q.StartDate
	}
	if q.EndDate != "" {
		filters = append(filters, "ev.date <= date($endDate)")
		params["endDate"] = q.EndDate
	}
	if len(filters) == 0 {
		return "", params
	}
	return "WHERE " + strings.Join(filters, " AND "), params
}

// rewriteSource maps uploaded-file source names to their public URL.
// Link sources are already URLs and pass through unchanged.
func (r *Reader) rewriteSource(source string) string {
	if strings.HasPrefix(source, "doc_") && r.publicBaseURL != "" {
		return r.publicBaseURL + "/uploads/" + source
	}
	return source
}

func recordString(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}

func recordStrings(record *neo4j.Record, key string) []string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return nil
	}
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func recordDate(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case dbtype.Date:
		return v.Time().Format("2006-01-02")
	case time.Time:
		return v.Format("2006-01-02")
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
