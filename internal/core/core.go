package core

import "time"

// Source types for ingested items.
const (
	SourceOfficial = "official" // vendor blogs, first-party announcements
	SourceEnMedia  = "en_media"
	SourceZhMedia  = "zh_media"
	SourceShared   = "shared" // upstream hourly-buzz archive
)

// Languages recognized by the pipeline.
const (
	LangZH = "zh"
	LangEN = "en"
)

// Category keys for the five digest buckets.
const (
	CategoryBigTech      = "big_tech"
	CategoryAIProducts   = "ai_products"
	CategoryAITech       = "ai_tech"
	CategoryAIGaming     = "ai_gaming"
	CategoryIndustryNews = "industry_news"
)

// CategoryOrder is the fixed render order of the digest sections.
var CategoryOrder = []string{
	CategoryBigTech,
	CategoryAIProducts,
	CategoryAITech,
	CategoryAIGaming,
	CategoryIndustryNews,
}

// CategoryNames maps category keys to their Chinese section titles.
var CategoryNames = map[string]string{
	CategoryBigTech:      "大厂动态",
	CategoryAIProducts:   "AI应用与产品",
	CategoryAITech:       "AI模型与技术",
	CategoryAIGaming:     "AI与游戏",
	CategoryIndustryNews: "行业新闻",
}

// RawItem is the ingestion unit produced by the fetcher and the shared
// loader. ID is the md5 of the canonical URL unless upstream supplies one.
type RawItem struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	SourceKey  string     `json:"source_key"`
	SourceName string     `json:"source_name"`
	SourceType string     `json:"source_type"`
	Language   string     `json:"language"`
	PubTime    *time.Time `json:"pub_time,omitempty"` // UTC; nil when the source carries no timestamp
	Summary    string     `json:"summary"`
	Content    string     `json:"content"`
}

// ScoredItem wraps a RawItem once it has passed the relevance filter.
// SummaryCN, TitleCN and Category are filled in by later stages.
type ScoredItem struct {
	Raw             RawItem  `json:"raw"`
	RelevanceScore  float64  `json:"relevance_score"`
	KeywordsMatched []string `json:"keywords_matched"`
	IsGamingRelated bool     `json:"is_gaming_related"`
	SummaryCN       string   `json:"summary_cn"`
	TitleCN         string   `json:"title_cn"`
	Category        string   `json:"category"`
}

// ArchiveRecord is the persisted superset of RawItem. FirstSeenAt is set
// once at insertion and never mutated; LastSeenAt updates on every
// sighting.
type ArchiveRecord struct {
	ID          string `json:"id"`
	SiteID      string `json:"site_id"`
	SiteName    string `json:"site_name"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	TitleZH     string `json:"title_zh,omitempty"`
	TitleEN     string `json:"title_en,omitempty"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at,omitempty"`
	FirstSeenAt string `json:"first_seen_at"`
	LastSeenAt  string `json:"last_seen_at"`
}

// SourceStatus records the outcome of fetching one source. Per-source
// failures never abort the pipeline; they are collected into
// source-status.json.
type SourceStatus struct {
	SiteID    string `json:"site_id"`
	SiteName  string `json:"site_name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ItemCount int    `json:"item_count"`
}

// Candidate is a hot topic cluster emitted for operator selection in the
// deep-column workflow.
type Candidate struct {
	TopicID      int      `json:"topic_id"`
	Title        string   `json:"title"`
	ArticleCount int      `json:"article_count"`
	SourceCount  int      `json:"source_count"`
	SampleTitles []string `json:"sample_titles"`
	Sources      []string `json:"sources"`
	Entities     []string `json:"entities"`
}
