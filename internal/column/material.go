// Package column implements the deep-column workflow: discover hot
// topics from the clustered news stream, collect writing material, have
// the LLM draft a long-form article, and publish it.
package column

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"aidaily/internal/cluster"
	"aidaily/internal/fetch"
	"aidaily/internal/logger"
)

const (
	maxMaterialArticles = 8
	// Full-page excerpts are fetched only for the top few articles to
	// bound cost and wall time.
	maxExcerptFetches = 3
	maxExcerptRunes   = 500
)

// Collector assembles the writing material for one topic cluster.
type Collector struct {
	client *fetch.Client
}

// NewCollector creates a material collector on the shared HTTP client.
func NewCollector(client *fetch.Client) *Collector {
	return &Collector{client: client}
}

// Collect formats a cluster's articles as the material block fed to the
// article writer. Titles come from the cluster; page excerpts are
// fetched for the leading articles only.
func (c *Collector) Collect(ctx context.Context, topic *cluster.TopicCluster) string {
	articles := topic.Articles
	if len(articles) > maxMaterialArticles {
		articles = articles[:maxMaterialArticles]
	}

	var blocks []string
	for i, article := range articles {
		title := article.TitleZH
		if title == "" {
			title = article.Title
		}
		source := article.Source
		if source == "" {
			source = article.SiteID
		}

		entry := fmt.Sprintf("### 报道 %d（来源: %s）\n标题: %s", i+1, source, title)
		if i < maxExcerptFetches {
			if excerpt := c.fetchExcerpt(ctx, article.URL); excerpt != "" {
				entry += "\n摘要: " + excerpt
			}
		}
		blocks = append(blocks, entry)
	}

	header := fmt.Sprintf("话题: %s\n报道数量: %d 篇，涉及 %d 个来源\n",
		topic.RepresentativeTitle, topic.Count(), topic.SourceCount())
	return header + "\n\n" + strings.Join(blocks, "\n\n")
}

// fetchExcerpt pulls a short description for one URL: meta description
// first, then og:description, then the stripped page body.
func (c *Collector) fetchExcerpt(ctx context.Context, url string) string {
	if url == "" {
		return ""
	}
	body, err := c.client.Get(ctx, url)
	if err != nil {
		logger.Debug("excerpt fetch failed", "url", url, "error", err.Error())
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	for _, selector := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			content = strings.TrimSpace(content)
			if len([]rune(content)) > 30 {
				return truncateRunes(content, maxExcerptRunes)
			}
		}
	}

	doc.Find("script, style, nav, header, footer").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len([]rune(text)) > 100 {
		return truncateRunes(text, maxExcerptRunes)
	}
	return ""
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
