package column

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"aidaily/internal/cluster"
	"aidaily/internal/config"
	"aidaily/internal/fetch"
	"aidaily/internal/llm"
	"aidaily/internal/logger"
	"aidaily/internal/publish"
	"aidaily/internal/render"
)

const candidatesFile = "candidates.json"

// Pipeline drives the deep-column workflow: discover pushes candidate
// topics for selection, generate writes and publishes one of them, auto
// chains both with the hottest topic.
type Pipeline struct {
	cfg       *config.Config
	selector  *cluster.Selector
	collector *Collector
	writer    *Writer
	wecom     *publish.WeCom
	wechat    *publish.WeChat
}

// NewPipeline assembles the column workflow from cfg.
func NewPipeline(cfg *config.Config) *Pipeline {
	client := fetch.NewClient(cfg.Crawler.RequestTimeout, cfg.Crawler.UserAgent, cfg.Crawler.RequestDelay)
	gw := llm.New(cfg.API)

	return &Pipeline{
		cfg: cfg,
		selector: cluster.NewSelector(cluster.Options{
			SimilarityThreshold: cfg.Cluster.SimilarityThreshold,
			MinArticles:         cfg.Cluster.MinArticles,
			TimeWindowHours:     cfg.Cluster.TimeWindowHours,
			MaxCandidates:       cfg.Cluster.MaxCandidateTopics,
		}),
		collector: NewCollector(client),
		writer:    NewWriter(gw, cfg.Cluster.ArticleWordCount),
		wecom:     publish.NewWeCom(cfg.WeCom.WebhookURL),
		wechat:    publish.NewWeChat(cfg.WeChat, cfg.App.DataDir),
	}
}

func (p *Pipeline) candidatesPath() string {
	return filepath.Join(p.cfg.App.DataDir, candidatesFile)
}

// Discover scans the news window for hot topics and pushes the
// candidates for selection.
func (p *Pipeline) Discover(ctx context.Context) error {
	now := time.Now().UTC()
	logger.Info("scanning for hot topics")

	items, err := p.selector.LoadNews(p.cfg.App.SharedDataDir, now)
	if err != nil {
		return fmt.Errorf("load news: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("no news available for clustering")
	}

	clusters := p.selector.Cluster(items)
	if len(clusters) == 0 {
		return fmt.Errorf("no hot topics found")
	}

	candidates := p.selector.Candidates()
	logger.Info("candidate topics found", "count", len(candidates))

	if err := cluster.SaveCandidates(p.candidatesPath(), candidates, now); err != nil {
		return err
	}
	return p.wecom.SendCandidates(ctx, candidates, now)
}

// Generate writes and publishes the column for one topic. topicID is
// zero-based. With publishToWeChat false the article is only written to
// the output directory.
func (p *Pipeline) Generate(ctx context.Context, topicID int, publishToWeChat bool) error {
	now := time.Now().UTC()

	topic, ok := p.selector.ClusterByID(topicID)
	if !ok {
		// Not in memory: restore from the saved candidates, then
		// re-cluster to get the full article set back.
		candidates, err := cluster.LoadCandidates(p.candidatesPath())
		if err != nil || topicID >= len(candidates) {
			return fmt.Errorf("topic #%d not found, run discover first", topicID+1)
		}
		items, err := p.selector.LoadNews(p.cfg.App.SharedDataDir, now)
		if err != nil {
			return fmt.Errorf("load news: %w", err)
		}
		p.selector.Cluster(items)
		topic, ok = p.selector.ClusterByID(topicID)
		if !ok {
			return fmt.Errorf("topic #%d no longer present after re-clustering", topicID+1)
		}
	}

	logger.Info("generating column", "topic", topic.RepresentativeTitle, "articles", topic.Count())

	materials := p.collector.Collect(ctx, topic)
	logger.Info("material collected", "chars", len([]rune(materials)))

	title, body, err := p.writer.WriteArticle(ctx, topic.RepresentativeTitle, materials)
	if err != nil {
		return err
	}

	html := render.ColumnHTML(title, body, topic.Count(), topic.SourceCount(), now)
	if _, err := render.SaveColumn(p.cfg.App.OutputDir, title, html, now); err != nil {
		return err
	}

	if publishToWeChat {
		if !p.wechat.Configured() {
			logger.Warn("wechat credentials not configured, skipping publish")
			return nil
		}
		wechatTitle := "AI专栏 | " + title
		if err := p.wechat.PublishColumn(ctx, wechatTitle, html); err != nil {
			return fmt.Errorf("publish column: %w", err)
		}
		logger.Info("column published", "title", wechatTitle)
	}
	return nil
}

// Auto discovers hot topics and generates the hottest one end to end.
func (p *Pipeline) Auto(ctx context.Context, publishToWeChat bool) error {
	if err := p.Discover(ctx); err != nil {
		return err
	}
	return p.Generate(ctx, 0, publishToWeChat)
}
