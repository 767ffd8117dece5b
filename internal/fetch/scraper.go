package fetch

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"aidaily/internal/core"
	"aidaily/internal/normalize"
	"aidaily/internal/sources"
)

// siteParser extracts an article list from one known site's HTML.
type siteParser func(doc *goquery.Document, src sources.Source) []core.RawItem

// siteParsers is the explicit per-site dispatch table. Unknown sites
// yield no items.
var siteParsers = map[string]siteParser{
	"36kr_ai":  parse36kr,
	"techmeme": parseTechmeme,
}

// Scraper fetches the configured web-scrape sources.
type Scraper struct {
	client *Client
}

// NewScraper creates a scraper on top of a fetch client.
func NewScraper(client *Client) *Scraper {
	return &Scraper{client: client}
}

// ScrapeAll fetches every web-scrape source with bounded concurrency.
// Failures are recorded in statuses, never raised.
func (s *Scraper) ScrapeAll(ctx context.Context) ([]core.RawItem, []core.SourceStatus) {
	return fetchAll(ctx, sources.ScrapeSources(), s.client.Delay(), s.ScrapeSource)
}

// ScrapeSource fetches one site and runs its registered parser.
func (s *Scraper) ScrapeSource(ctx context.Context, src sources.Source) ([]core.RawItem, error) {
	body, err := s.client.Get(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return Scrape(src, body)
}

// Scrape dispatches HTML to the site's parser. Unknown sites return an
// empty list.
func Scrape(src sources.Source, html []byte) ([]core.RawItem, error) {
	parser, ok := siteParsers[src.Key]
	if !ok {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	return parser(doc, src), nil
}

func parse36kr(doc *goquery.Document, src sources.Source) []core.RawItem {
	var items []core.RawItem
	articles := doc.Find("div.article-item")
	if articles.Length() == 0 {
		articles = doc.Find(".kr-flow-article-item")
	}
	if articles.Length() == 0 {
		articles = doc.Find("article")
	}

	articles.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 20 {
			return false
		}
		link := sel.Find("a.article-item-title").First()
		if link.Length() == 0 {
			link = sel.Find("h2 a").First()
		}
		if link.Length() == 0 {
			link = sel.Find(`a[href*="/p/"]`).First()
		}
		if link.Length() == 0 {
			return true
		}
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = "https://36kr.com" + href
		}
		href = normalize.CanonicalURL(href)

		summary := ""
		if desc := sel.Find(".article-item-description").First(); desc.Length() > 0 {
			summary = strings.TrimSpace(desc.Text())
		} else if p := sel.Find("p").First(); p.Length() > 0 {
			summary = strings.TrimSpace(p.Text())
		}
		summary = truncateRunes(summary, 500)

		items = append(items, core.RawItem{
			ID:         normalize.ItemID(href),
			Title:      title,
			URL:        href,
			SourceKey:  src.Key,
			SourceName: src.Name,
			SourceType: src.SourceType,
			Language:   src.Language,
			Summary:    summary,
		})
		return true
	})
	return items
}

func parseTechmeme(doc *goquery.Document, src sources.Source) []core.RawItem {
	var items []core.RawItem
	entries := doc.Find(".clus .ii")
	if entries.Length() == 0 {
		entries = doc.Find("div.ii")
	}

	entries.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 30 {
			return false
		}
		link := sel.Find("a.ourh").First()
		if link.Length() == 0 {
			link = sel.Find("a").First()
		}
		if link.Length() == 0 {
			return true
		}
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = "https://techmeme.com/" + strings.TrimPrefix(href, "/")
		}
		href = normalize.CanonicalURL(href)

		sourceName := src.Name
		if cite := sel.Find(".cite2").First(); cite.Length() > 0 {
			sourceName = strings.TrimSpace(cite.Text())
		} else if cite := sel.Find("cite").First(); cite.Length() > 0 {
			sourceName = strings.TrimSpace(cite.Text())
		}

		items = append(items, core.RawItem{
			ID:         normalize.ItemID(href),
			Title:      title,
			URL:        href,
			SourceKey:  src.Key,
			SourceName: sourceName,
			SourceType: src.SourceType,
			Language:   src.Language,
		})
		return true
	})
	return items
}
