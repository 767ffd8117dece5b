package fetch

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"aidaily/internal/core"
	"aidaily/internal/normalize"
	"aidaily/internal/sources"
)

// RSSParser fetches and parses the configured RSS/Atom sources.
type RSSParser struct {
	client *Client
}

// NewRSSParser creates an RSS parser on top of a fetch client.
func NewRSSParser(client *Client) *RSSParser {
	return &RSSParser{client: client}
}

// ParseAll fetches every RSS source in the registry with bounded
// concurrency. Failures are recorded in the returned statuses, never
// raised.
func (p *RSSParser) ParseAll(ctx context.Context) ([]core.RawItem, []core.SourceStatus) {
	return fetchAll(ctx, sources.RSSSources(), p.client.Delay(), p.ParseSource)
}

// ParseSource fetches and parses a single RSS source.
func (p *RSSParser) ParseSource(ctx context.Context, src sources.Source) ([]core.RawItem, error) {
	body, err := p.client.Get(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return p.ParseFeed(body, src)
}

// ParseFeed parses feed bytes into raw items for the given source.
func (p *RSSParser) ParseFeed(body []byte, src sources.Source) ([]core.RawItem, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	items := make([]core.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := entryToItem(entry, src)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func entryToItem(entry *gofeed.Item, src sources.Source) (core.RawItem, bool) {
	title := strings.TrimSpace(entry.Title)
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return core.RawItem{}, false
	}
	link = normalize.CanonicalURL(link)

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}
	summary = truncateRunes(StripHTML(summary), 500)

	content := ""
	if src.Method == sources.MethodRSSContent || src.Method == sources.MethodRSSHTML {
		content = StripHTML(entry.Content)
	}

	return core.RawItem{
		ID:         normalize.ItemID(link),
		Title:      title,
		URL:        link,
		SourceKey:  src.Key,
		SourceName: src.Name,
		SourceType: src.SourceType,
		Language:   src.Language,
		PubTime:    entryTime(entry),
		Summary:    summary,
		Content:    content,
	}, true
}

// entryTime resolves the publication time of a feed entry: parsed fields
// first, then the raw strings through the generic date parser.
func entryTime(entry *gofeed.Item) *time.Time {
	for _, t := range []*time.Time{entry.PublishedParsed, entry.UpdatedParsed} {
		if t != nil {
			utc := t.UTC()
			return &utc
		}
	}
	for _, s := range []string{entry.Published, entry.Updated} {
		if t := normalize.ParseTime(s); t != nil {
			return t
		}
	}
	return nil
}

// StripHTML flattens an HTML fragment to whitespace-normalized text.
func StripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
