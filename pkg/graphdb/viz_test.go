package graphdb

import (
	"strings"
	"testing"
)

func TestEntityCategoriesQueryCoversAllEvents(t *testing.T) {
	if !strings.Contains(entityCategoriesCypher, "RETURN DISTINCT ev.category AS name") {
		t.Fatalf("legend query must return distinct event categories:\n%s", entityCategoriesCypher)
	}
	// A category must appear in the legend even when every entity of its
	// events was already claimed by an earlier node row.
	if strings.Contains(entityCategoriesCypher, "INVOLVES") {
		t.Fatal("legend query must not depend on entity traversal")
	}
}
