package fetch

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

// Extractor pulls article bodies from full pages for items whose feed
// entry carried no usable content. Three tiers: a readability-style
// main-content pass, site-specific selectors, then generic containers.
type Extractor struct {
	client    *Client
	maxLength int
}

// NewExtractor creates a content extractor with the configured body cap.
func NewExtractor(client *Client, maxLength int) *Extractor {
	return &Extractor{client: client, maxLength: maxLength}
}

// EnrichBatch extracts bodies for every item with less than 100 chars of
// content, mutating the items in place. Best-effort: failures leave the
// item as-is.
func (e *Extractor) EnrichBatch(ctx context.Context, items []*core.RawItem) {
	for _, item := range items {
		if len(item.Content) >= 100 {
			continue
		}
		content, pubTime := e.Extract(ctx, item.URL)
		if content != "" {
			item.Content = content
		}
		if item.PubTime == nil && pubTime != nil {
			item.PubTime = pubTime
		}
		logger.Debug("extracted body", "url", item.URL, "chars", len(content))
		time.Sleep(e.client.Delay())
	}
}

// Extract fetches a page and returns (body text, publication time).
// Returns empty on any failure.
func (e *Extractor) Extract(ctx context.Context, url string) (string, *time.Time) {
	body, err := e.client.Get(ctx, url)
	if err != nil {
		logger.Debug("extract fetch failed", "url", url, "error", err.Error())
		return "", nil
	}
	return e.ExtractFromHTML(body, url)
}

// ExtractFromHTML runs the three extraction tiers over raw HTML.
func (e *Extractor) ExtractFromHTML(html []byte, url string) (string, *time.Time) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", nil
	}

	content := extractReadable(doc)
	if len(content) < 100 {
		content = extractSiteSpecific(doc, url)
	}
	if len(content) < 100 {
		content = extractGeneric(doc)
	}

	if e.maxLength > 0 && len(content) > e.maxLength {
		content = truncateRunes(content, e.maxLength) + "..."
	}
	return content, extractPubTime(doc, string(html))
}

// extractReadable drops boilerplate elements and concatenates the text
// of the densest content region.
func extractReadable(doc *goquery.Document) string {
	clone := doc.Clone()
	clone.Find("script, style, nav, header, footer, aside, form, iframe, noscript, .sidebar, .ad, .advertisement, .cookie-banner").Remove()

	best := ""
	clone.Find("article, main, [role='main']").Each(func(_ int, sel *goquery.Selection) {
		text := blockText(sel)
		if len(text) > len(best) {
			best = text
		}
	})
	return best
}

func extractSiteSpecific(doc *goquery.Document, url string) string {
	var selectors []string
	switch {
	case strings.Contains(url, "techcrunch.com"):
		selectors = []string{".article-content", ".entry-content"}
	case strings.Contains(url, "theverge.com"):
		selectors = []string{".duet--article--article-body-component", "article"}
	case strings.Contains(url, "36kr.com"):
		selectors = []string{".article-content", ".common-width"}
	default:
		return ""
	}
	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if text := blockText(node); text != "" {
				return text
			}
		}
	}
	return ""
}

func extractGeneric(doc *goquery.Document) string {
	clone := doc.Clone()
	clone.Find("script, style, nav, header, footer, aside").Remove()
	for _, sel := range []string{"article", "main", ".content", "#content"} {
		if node := clone.Find(sel).First(); node.Length() > 0 {
			text := blockText(node)
			if len(text) > 200 {
				return text
			}
		}
	}
	return ""
}

// blockText extracts text preserving paragraph breaks.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Find("p, h1, h2, h3, h4, li, blockquote, pre").Each(func(_ int, node *goquery.Selection) {
		text := strings.TrimSpace(node.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n")
	})
	if b.Len() == 0 {
		return strings.Join(strings.Fields(sel.Text()), " ")
	}
	return strings.TrimSpace(b.String())
}

var isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)

// extractPubTime looks for a publication timestamp: <time datetime>,
// article:published_time meta, then any ISO timestamp in the page.
func extractPubTime(doc *goquery.Document, html string) *time.Time {
	if node := doc.Find("time").First(); node.Length() > 0 {
		if dt, ok := node.Attr("datetime"); ok {
			if t := normalize.ParseTime(dt); t != nil {
				return t
			}
		}
		if t := normalize.ParseTime(strings.TrimSpace(node.Text())); t != nil {
			return t
		}
	}
	if meta := doc.Find(`meta[property="article:published_time"]`).First(); meta.Length() > 0 {
		if content, ok := meta.Attr("content"); ok {
			if t := normalize.ParseTime(content); t != nil {
				return t
			}
		}
	}
	if match := isoTimestampRe.FindString(html); match != "" {
		return normalize.ParseTime(strings.Replace(match, " ", "T", 1))
	}
	return nil
}

// truncateRunes cuts a string to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
