// Package extract turns case-document text into structured,
// calendar-anchored statements using a single model completion per
// document with a fixed JSON contract.
package extract

import (
	"fmt"
	"strings"
)

// Relation is a subject-predicate-object triple between two entities
// named in a statement, or between an entity and a year.
type Relation struct {
	Subject   string `json:"Subject"`
	Predicate string `json:"Predicate"`
	Object    string `json:"Object"`
}

// Statement is the model-facing contract for one extracted statement.
// Entities is a "; "-separated string in the raw model output.
type Statement struct {
	Date        string     `json:"Date"`
	Statement   string     `json:"Statement"`
	Entities    string     `json:"Entities"`
	EntityTypes []string   `json:"EntityTypes"`
	Relations   []Relation `json:"Relations"`
	Category    string     `json:"Category"`
}

// Entity pairs an entity name with its resolved type.
type Entity struct {
	Name string
	Type string
}

var categories = map[string]bool{
	"Business Activity":   true,
	"Biography":           true,
	"Legal":               true,
	"Governance":          true,
	"Financial Reporting": true,
	"Event":               true,
	"Other":               true,
}

// EntityList splits the "; "-separated entity string into cleaned,
// lower-cased names paired with their types. A missing or short
// EntityTypes list resolves the overflow to "other".
func (s Statement) EntityList() []Entity {
	parts := strings.Split(s.Entities, ";")
	entities := make([]Entity, 0, len(parts))
	for i, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		entityType := "other"
		if i < len(s.EntityTypes) {
			if t := strings.ToLower(strings.TrimSpace(s.EntityTypes[i])); t != "" {
				entityType = t
			}
		}
		entities = append(entities, Entity{Name: name, Type: entityType})
	}
	return entities
}

// validate rejects statements that break the extraction contract.
func (s Statement) validate() error {
	if strings.TrimSpace(s.Date) == "" {
		return fmt.Errorf("statement is missing a date")
	}
	if strings.TrimSpace(s.Statement) == "" {
		return fmt.Errorf("statement is missing its text")
	}
	if !categories[s.Category] {
		return fmt.Errorf("unknown category %q", s.Category)
	}
	return nil
}

// NormalizedCategory maps out-of-taxonomy categories to "Other".
func (s Statement) NormalizedCategory() string {
	if categories[s.Category] {
		return s.Category
	}
	return "Other"
}

// MalformedExtractionError reports a model response that could not be
// decoded into a statement list even after repair.
type MalformedExtractionError struct {
	Raw string
	Err error
}

func (e *MalformedExtractionError) Error() string {
	return fmt.Sprintf("model response is not a statement list: %v", e.Err)
}

func (e *MalformedExtractionError) Unwrap() error {
	return e.Err
}
