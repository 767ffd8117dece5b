// Package pipeline wires the ingestion, filtering, AI and publishing
// stages into the two runnable flows: the daily digest and the
// hourly-buzz collection round.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"aidaily/internal/archive"
	"aidaily/internal/classify"
	"aidaily/internal/config"
	"aidaily/internal/core"
	"aidaily/internal/dedup"
	"aidaily/internal/fetch"
	"aidaily/internal/llm"
	"aidaily/internal/logger"
	"aidaily/internal/publish"
	"aidaily/internal/relevance"
	"aidaily/internal/render"
	"aidaily/internal/summarize"
	"aidaily/internal/translate"
)

// Below this many shared items the daily run falls back to fetching the
// sources itself.
const minSharedItems = 10

const dedupCacheFile = "news_cache.json"
const titleCacheFile = "title-zh-cache.json"

// Daily runs the full digest flow: collect, filter, dedup, enrich,
// summarize, translate, classify, render and publish.
type Daily struct {
	cfg *config.Config

	shared     *archive.SharedLoader
	rss        *fetch.RSSParser
	scraper    *fetch.Scraper
	extractor  *fetch.Extractor
	filter     *relevance.Filter
	dedup      *dedup.Dedup
	gw         *llm.Gateway
	summarizer *summarize.Summarizer
	translator *translate.Translator
	classifier *classify.Classifier
	report     *render.Report
	wechat     *publish.WeChat
}

// NewDaily assembles the digest pipeline from cfg.
func NewDaily(cfg *config.Config) *Daily {
	client := fetch.NewClient(cfg.Crawler.RequestTimeout, cfg.Crawler.UserAgent, cfg.Crawler.RequestDelay)
	gw := llm.New(cfg.API)

	return &Daily{
		cfg:        cfg,
		shared:     archive.NewSharedLoader(cfg.App.SharedDataDir),
		rss:        fetch.NewRSSParser(client),
		scraper:    fetch.NewScraper(client),
		extractor:  fetch.NewExtractor(client, cfg.Crawler.MaxContentLength),
		filter:     relevance.NewFilter(),
		dedup:      dedup.New(cfg.Pipeline.DedupTitleThreshold, filepath.Join(cfg.App.DataDir, dedupCacheFile)),
		gw:         gw,
		summarizer: summarize.New(gw, cfg.Pipeline.SummarizeBatchSize),
		translator: translate.New(gw, cfg.Translate, filepath.Join(cfg.App.DataDir, titleCacheFile)),
		classifier: classify.New(gw),
		report:     render.NewReport(cfg.App.OutputDir),
		wechat:     publish.NewWeChat(cfg.WeChat, cfg.App.DataDir),
	}
}

// Run executes the digest flow. With publishToWeChat false the report
// is only written locally.
func (d *Daily) Run(ctx context.Context, publishToWeChat bool) error {
	now := time.Now().UTC()
	logger.Info("daily report run started")

	raw := d.collect(ctx)
	if len(raw) == 0 {
		return fmt.Errorf("no news collected")
	}

	recent := filterByTime(raw, d.cfg.Pipeline.FilterWindowHours, now)
	if len(recent) == 0 {
		logger.Warn("no items inside the time window, using all collected items")
		recent = raw
		if len(recent) > d.cfg.Pipeline.MaxTotalNews {
			recent = recent[:d.cfg.Pipeline.MaxTotalNews]
		}
	}

	scored := d.filter.Apply(recent)
	if len(scored) == 0 {
		return fmt.Errorf("no relevant news after keyword filtering")
	}

	unique := d.dedup.Apply(scored)
	if len(unique) == 0 {
		return fmt.Errorf("no news left after deduplication")
	}
	if len(unique) > d.cfg.Pipeline.MaxTotalNews {
		logger.Info("capping news by score", "kept", d.cfg.Pipeline.MaxTotalNews, "total", len(unique))
		unique = unique[:d.cfg.Pipeline.MaxTotalNews]
	}

	d.enrichContent(ctx, unique)

	d.summarizer.Apply(ctx, unique)
	unique = summarize.Drop(unique)
	d.translateTitles(ctx, unique)
	d.translator.Close()

	categorized := d.classifier.Apply(ctx, unique, d.gw.Configured())
	for cat := range categorized {
		if len(categorized[cat]) > d.cfg.Pipeline.MaxNewsPerCategory {
			categorized[cat] = categorized[cat][:d.cfg.Pipeline.MaxNewsPerCategory]
		}
	}

	lead := d.generateLead(ctx, categorized)
	htmlBody := d.report.HTML(categorized, lead)
	if _, err := d.report.SaveHTML(htmlBody, now); err != nil {
		return err
	}
	markdown := d.report.Markdown(categorized, lead, now)
	if _, err := d.report.SaveMarkdown(markdown, now); err != nil {
		return err
	}

	if publishToWeChat {
		if !d.wechat.Configured() {
			logger.Warn("wechat credentials not configured, skipping publish")
		} else if err := d.wechat.PublishDailyReport(ctx, htmlBody, now); err != nil {
			return fmt.Errorf("publish to wechat: %w", err)
		}
	}

	total := 0
	for _, items := range categorized {
		total += len(items)
	}
	logger.Info("daily report run finished", "items", total, "tokens", d.gw.TokensUsed())
	return nil
}

// collect prefers the upstream shared archive and only fetches the
// sources directly when the shared data is missing or too thin.
func (d *Daily) collect(ctx context.Context) []core.RawItem {
	var all []core.RawItem

	if d.shared.Available() {
		items, err := d.shared.Load(d.cfg.Pipeline.WindowHours, time.Now().UTC())
		if err != nil {
			logger.Warn("shared data load failed", "error", err.Error())
		} else {
			all = append(all, items...)
			logger.Info("shared data loaded", "items", len(items))
		}
	}

	if len(all) < minSharedItems {
		logger.Info("shared data insufficient, fetching sources directly")

		rssItems, rssStatuses := d.rss.ParseAll(ctx)
		all = append(all, rssItems...)
		logger.Info("rss sources fetched", "items", len(rssItems), "sources", len(rssStatuses))

		webItems, webStatuses := d.scraper.ScrapeAll(ctx)
		all = append(all, webItems...)
		logger.Info("web sources scraped", "items", len(webItems), "sources", len(webStatuses))
	}

	logger.Info("collection complete", "items", len(all))
	return all
}

// filterByTime keeps items inside the window. Items without a
// timestamp pass through; many sources never carry one.
func filterByTime(items []core.RawItem, windowHours int, now time.Time) []core.RawItem {
	cutoff := now.Add(-time.Duration(windowHours) * time.Hour)

	var kept []core.RawItem
	noTime := 0
	for _, item := range items {
		if item.PubTime == nil {
			kept = append(kept, item)
			noTime++
			continue
		}
		if !item.PubTime.Before(cutoff) && !item.PubTime.After(now.Add(time.Hour)) {
			kept = append(kept, item)
		}
	}
	logger.Info("time filter applied", "in", len(items), "out", len(kept), "no_timestamp", noTime)
	return kept
}

// enrichContent fetches article bodies for items whose feed content is
// too short to summarize from.
func (d *Daily) enrichContent(ctx context.Context, items []core.ScoredItem) {
	var thin []*core.RawItem
	for i := range items {
		if len(items[i].Raw.Content) < 100 {
			thin = append(thin, &items[i].Raw)
		}
	}
	if len(thin) == 0 {
		return
	}
	logger.Info("extracting article bodies", "items", len(thin))
	d.extractor.EnrichBatch(ctx, thin)
}

// translateTitles fills TitleCN for every item, batching the titles
// that actually need translation.
func (d *Daily) translateTitles(ctx context.Context, items []core.ScoredItem) {
	var indices []int
	var titles []string
	for i := range items {
		title := items[i].Raw.Title
		if translate.NeedsTranslation(title) {
			indices = append(indices, i)
			titles = append(titles, title)
		} else {
			items[i].TitleCN = title
		}
	}
	if len(titles) == 0 {
		return
	}

	translated := d.translator.Titles(ctx, titles)
	for j, idx := range indices {
		items[idx].TitleCN = translated[j]
	}
	logger.Info("titles translated", "count", len(titles))
}

// generateLead asks the LLM for a 50-80 character opening paragraph,
// falling back to a counted summary line.
func (d *Daily) generateLead(ctx context.Context, categorized map[string][]core.ScoredItem) string {
	titles := leadTitles(categorized)
	if len(titles) == 0 {
		return "今日AI行业暂无重大动态更新。"
	}

	if d.gw.Configured() {
		prompt := fmt.Sprintf(`请根据以下今日AI资讯标题，生成一段50-80字的每日导语摘要，概括今日AI领域的主要动态：

- %s

要求：
1. 简洁概括今日主要动态
2. 突出重点公司和技术
3. 语言流畅，适合作为日报开头
4. 直接输出导语内容，不要加任何前缀`, strings.Join(titles, "\n- "))

		response, err := d.gw.Chat(ctx, "你是一位专业的科技新闻编辑。", prompt, 0.5, 200)
		if err == nil && response != "" {
			return strings.Trim(strings.TrimSpace(response), `"'`)
		}
		if err != nil {
			logger.Warn("lead generation failed", "error", err.Error())
		}
	}

	total := 0
	for _, items := range categorized {
		total += len(items)
	}
	return fmt.Sprintf("今日AI领域共有%d条动态值得关注。", total)
}

// leadTitles picks up to eight headline titles, two per category in
// render order, truncated to 50 runes each.
func leadTitles(categorized map[string][]core.ScoredItem) []string {
	var titles []string
	for _, cat := range core.CategoryOrder {
		items := categorized[cat]
		for i, item := range items {
			if i >= 2 {
				break
			}
			title := item.TitleCN
			if title == "" {
				title = item.Raw.Title
			}
			if runes := []rune(title); len(runes) > 50 {
				title = string(runes[:50])
			}
			titles = append(titles, title)
		}
	}
	if len(titles) > 8 {
		titles = titles[:8]
	}
	return titles
}
