package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"aidaily/internal/archive"
	"aidaily/internal/config"
	"aidaily/internal/core"
	"aidaily/internal/fetch"
	"aidaily/internal/logger"
	"aidaily/internal/publish"
)

const feishuLedgerFile = "feishu_written_ids.json"

// Buzz runs the hourly collection round: fetch every source, fold the
// results into the rolling archive, emit the window files, and push the
// top picks downstream.
type Buzz struct {
	cfg     *config.Config
	rss     *fetch.RSSParser
	scraper *fetch.Scraper
	wecom   *publish.WeCom
	feishu  *publish.Feishu

	// TopN bounds the WeCom digest push.
	TopN int
}

// NewBuzz assembles the hourly pipeline from cfg.
func NewBuzz(cfg *config.Config) *Buzz {
	client := fetch.NewClient(cfg.Crawler.RequestTimeout, cfg.Crawler.UserAgent, cfg.Crawler.RequestDelay)
	return &Buzz{
		cfg:     cfg,
		rss:     fetch.NewRSSParser(client),
		scraper: fetch.NewScraper(client),
		wecom:   publish.NewWeCom(cfg.WeCom.WebhookURL),
		feishu:  publish.NewFeishu(cfg.Feishu),
		TopN:    20,
	}
}

// Run executes one collection round. With push false the WeCom and
// Feishu deliveries are skipped.
func (b *Buzz) Run(ctx context.Context, push bool) error {
	now := time.Now().UTC()
	dataDir := b.cfg.App.DataDir

	store, err := archive.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	logger.Info("archive loaded", "items", len(store.Records()))

	rssItems, rssStatuses := b.rss.ParseAll(ctx)
	webItems, webStatuses := b.scraper.ScrapeAll(ctx)
	items := append(rssItems, webItems...)
	statuses := append(rssStatuses, webStatuses...)
	logger.Info("sources collected", "items", len(items), "sources", len(statuses))

	for _, item := range items {
		store.UpsertItem(item, now)
	}
	pruned := store.Prune(b.cfg.Pipeline.ArchiveRetainDays, now)
	if pruned > 0 {
		logger.Info("stale archive records pruned", "count", pruned)
	}
	if err := store.Save(now); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}

	payload := archive.BuildLatest(store, b.cfg.Pipeline.WindowHours, now)
	if err := archive.WriteLatest(dataDir, payload); err != nil {
		return fmt.Errorf("write latest window: %w", err)
	}
	if err := archive.WriteStatus(dataDir, statuses, now); err != nil {
		return fmt.Errorf("write source status: %w", err)
	}
	logger.Info("window files written", "window_items", payload.TotalItems, "ai_items", len(payload.ItemsAI))

	if !push {
		return nil
	}

	b.pushWeCom(ctx, payload.ItemsAI, now)

	latestPath := filepath.Join(dataDir, "latest-24h.json")
	ledgerPath := filepath.Join(dataDir, feishuLedgerFile)
	if _, err := b.feishu.Sync(ctx, latestPath, ledgerPath, now); err != nil {
		logger.Error("feishu sync failed", err)
	}
	return nil
}

func (b *Buzz) pushWeCom(ctx context.Context, items []core.ArchiveRecord, now time.Time) {
	if !b.wecom.Configured() {
		logger.Warn("wecom webhook not configured, skipping buzz push")
		return
	}
	if len(items) == 0 {
		logger.Info("no ai items in window, skipping buzz push")
		return
	}

	top := publish.SelectTop(items, b.TopN)
	content := publish.FormatNews(top, now)
	if err := b.wecom.SendMarkdown(ctx, content); err != nil {
		logger.Error("wecom buzz push failed", err)
		return
	}
	logger.Info("buzz pushed to wecom", "items", len(top))
}
