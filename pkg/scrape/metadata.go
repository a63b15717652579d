package scrape

import (
	"regexp"
	"strings"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
)

var boldDateRE = regexp.MustCompile(`\b(20\d{2}[-/]\d{1,2}[-/]\d{1,2})\b`)

// sniffMetadata fills in title, author and publication date from the raw
// markup when the extraction cascade left them blank. The probes run in
// order of trustworthiness and the first hit per field wins.
func sniffMetadata(rawHTML string, ex Extraction) Extraction {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ex
	}

	var (
		metaDate    string
		timeDate    string
		boldDate    string
		metaAuthor  string
		classAuthor string
	)
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "meta":
			prop := strings.ToLower(nodeAttr(n, "property"))
			name := strings.ToLower(nodeAttr(n, "name"))
			content := strings.TrimSpace(nodeAttr(n, "content"))
			if content == "" {
				return
			}
			switch {
			case metaDate == "" && (prop == "article:published_time" || name == "pubdate" || name == "date"):
				metaDate = content
			case metaAuthor == "" && (name == "author" || prop == "article:author"):
				metaAuthor = content
			}
		case "time":
			if timeDate == "" {
				if dt := strings.TrimSpace(nodeAttr(n, "datetime")); dt != "" {
					timeDate = dt
				} else if text := strings.TrimSpace(nodeText(n)); text != "" {
					timeDate = text
				}
			}
		case "b", "strong":
			if boldDate == "" {
				if m := boldDateRE.FindString(nodeText(n)); m != "" {
					boldDate = m
				}
			}
		case "title":
			if ex.Title == "" {
				ex.Title = strings.TrimSpace(nodeText(n))
			}
		default:
			if classAuthor == "" && hasAuthorClass(n) {
				if text := strings.TrimSpace(nodeText(n)); text != "" && len(text) < 120 {
					classAuthor = strings.TrimPrefix(text, "By ")
				}
			}
		}
	})

	if ex.Date == "" {
		for _, candidate := range []string{metaDate, timeDate, boldDate} {
			if candidate == "" {
				continue
			}
			ex.Date = normalizeDate(candidate)
			break
		}
	}
	if ex.Author == "" {
		if metaAuthor != "" {
			ex.Author = metaAuthor
		} else {
			ex.Author = classAuthor
		}
	}
	return ex
}

func hasAuthorClass(n *html.Node) bool {
	class := strings.ToLower(nodeAttr(n, "class"))
	return strings.Contains(class, "author") || strings.Contains(class, "byline")
}

// normalizeDate turns a free-form date string into YYYY-MM-DD. The raw
// string is kept when parsing fails so downstream can still show it.
func normalizeDate(raw string) string {
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}
