package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	goose "github.com/advancedlogic/GoOse/pkg/goose"
	trafilatura "github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"casethread/pkg/logger"
)

// Extraction is the plain-text result of acquiring a source.
type Extraction struct {
	URL     string
	Title   string
	Author  string
	Date    string
	Content string
}

// extractCascade walks the extraction strategies from most to least
// structured. Earlier strategies are allowed to come back empty; only
// the terminal strategy decides whether acquisition failed.
func extractCascade(rawHTML, pageURL string) Extraction {
	ex := Extraction{URL: pageURL}

	if got := extractTrafilatura(rawHTML, pageURL); got.Content != "" {
		return mergeExtraction(ex, got)
	}
	logger.Debug(fmt.Sprintf("trafilatura produced no text for %s, trying goose", pageURL))

	if got := extractGoose(rawHTML, pageURL); got.Content != "" {
		return mergeExtraction(ex, got)
	}
	logger.Debug(fmt.Sprintf("goose produced no text for %s, trying readability", pageURL))

	if got := extractReadability(rawHTML, pageURL); got.Content != "" {
		return mergeExtraction(ex, got)
	}
	logger.Debug(fmt.Sprintf("readability produced no text for %s, falling back to paragraph scan", pageURL))

	return mergeExtraction(ex, extractParagraphs(rawHTML, pageURL))
}

func mergeExtraction(base, got Extraction) Extraction {
	base.Content = got.Content
	if got.Title != "" {
		base.Title = got.Title
	}
	if got.Author != "" {
		base.Author = got.Author
	}
	if got.Date != "" {
		base.Date = got.Date
	}
	return base
}

func extractTrafilatura(rawHTML, pageURL string) Extraction {
	var ex Extraction
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ex
	}
	res, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		OriginalURL:     parsed,
		ExcludeComments: true,
		EnableFallback:  true,
		Focus:           trafilatura.FavorRecall,
	})
	if err != nil || res == nil {
		return ex
	}
	ex.Content = strings.TrimSpace(res.ContentText)
	ex.Title = strings.TrimSpace(res.Metadata.Title)
	ex.Author = strings.TrimSpace(res.Metadata.Author)
	if !res.Metadata.Date.IsZero() {
		ex.Date = res.Metadata.Date.Format("2006-01-02")
	}
	return ex
}

func extractGoose(rawHTML, pageURL string) Extraction {
	var ex Extraction
	g := goose.New()
	article, err := g.ExtractFromRawHTML(rawHTML, pageURL)
	if err != nil || article == nil {
		return ex
	}
	ex.Content = strings.TrimSpace(article.CleanedText)
	ex.Title = strings.TrimSpace(article.Title)
	return ex
}

func extractReadability(rawHTML, pageURL string) Extraction {
	var ex Extraction
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ex
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		return ex
	}
	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		return ex
	}
	ex.Content = strings.TrimSpace(builder.String())
	return ex
}

// extractParagraphs is the terminal strategy: collect the text of every
// <p> node. Empty output here means the page genuinely has no article.
func extractParagraphs(rawHTML, pageURL string) Extraction {
	var ex Extraction
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ex
	}

	var paragraphs []string
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "p":
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				paragraphs = append(paragraphs, text)
			}
		case "title":
			if ex.Title == "" {
				ex.Title = strings.TrimSpace(nodeText(n))
			}
		}
	})
	ex.Content = strings.Join(paragraphs, "\n\n")
	return ex
}

func walkNodes(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, fn)
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walkNodes(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteString(" ")
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
