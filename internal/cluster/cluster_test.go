package cluster

import (
	"path/filepath"
	"testing"
	"time"

	"aidaily/internal/core"
)

func newsItem(id, siteID, title string) NewsItem {
	return NewsItem{
		ID:       id,
		Title:    title,
		SiteID:   siteID,
		Entities: ExtractEntities(title),
	}
}

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"OpenAI launches GPT-5", []string{"openai", "gpt"}},
		{"谷歌发布Gemini更新", []string{"google", "gemini"}},
		{"Waymo expands robotaxi service", []string{"waymo", "autonomous"}},
		{"Hugging Face partners with AWS", []string{"huggingface"}},
		{"Local bakery opens", nil},
	}
	for _, tt := range tests {
		got := ExtractEntities(tt.text)
		for _, want := range tt.want {
			if !got[want] {
				t.Errorf("ExtractEntities(%q) missing %q (got %v)", tt.text, want, got)
			}
		}
		if tt.want == nil && len(got) != 0 {
			t.Errorf("ExtractEntities(%q) = %v, want none", tt.text, got)
		}
	}
}

func TestTryAddTitleSimilarity(t *testing.T) {
	c := NewTopicCluster(newsItem("1", "siteA", "OpenAI launches GPT-5 model today"))
	ok := c.TryAdd(newsItem("2", "siteB", "OpenAI launches GPT-5 model"), 0.58)
	if !ok {
		t.Fatal("similar title not clustered")
	}
	if c.Count() != 2 || c.SourceCount() != 2 {
		t.Errorf("count=%d sources=%d, want 2/2", c.Count(), c.SourceCount())
	}
}

func TestTryAddEntityOverlapNeedsConcrete(t *testing.T) {
	// Shared entities: safety + policy, both generic. Must not merge.
	c := NewTopicCluster(newsItem("1", "siteA", "New safety policy debate continues worldwide"))
	ok := c.TryAdd(newsItem("2", "siteB", "Regulators weigh safety policy impact statement"), 0.99)
	if ok {
		t.Error("generic-only entity overlap merged clusters")
	}

	// openai (concrete) + safety (generic) should merge.
	c2 := NewTopicCluster(newsItem("3", "siteA", "OpenAI publishes updated safety framework today"))
	ok = c2.TryAdd(newsItem("4", "siteB", "Researchers respond to OpenAI safety commitments"), 0.99)
	if !ok {
		t.Error("concrete entity overlap did not merge")
	}
}

func TestTryAddShortTitleRejected(t *testing.T) {
	c := NewTopicCluster(newsItem("1", "siteA", "OpenAI launches GPT-5 model today"))
	if c.TryAdd(newsItem("2", "siteB", "GPT-5"), 0.1) {
		t.Error("short title joined cluster")
	}
}

func TestClusterHotnessFilter(t *testing.T) {
	s := NewSelector(Options{
		SimilarityThreshold: 0.58,
		MinArticles:         4,
		TimeWindowHours:     28,
		MaxCandidates:       8,
	})

	var items []NewsItem
	// Hot topic: 4 near-identical titles from 2 sites.
	items = append(items,
		newsItem("1", "siteA", "OpenAI launches GPT-5 flagship model"),
		newsItem("2", "siteB", "OpenAI launches GPT-5 flagship model today"),
		newsItem("3", "siteA", "OpenAI launches the GPT-5 flagship model"),
		newsItem("4", "siteB", "OpenAI launches GPT-5 flagship models"),
		// Cold topic: only 2 members.
		newsItem("5", "siteA", "Anthropic updates enterprise pricing plans"),
		newsItem("6", "siteB", "Anthropic updates enterprise pricing plan"),
	)

	hot := s.Cluster(items)
	if len(hot) != 1 {
		t.Fatalf("hot clusters = %d, want 1", len(hot))
	}
	if hot[0].Count() < 4 || hot[0].SourceCount() < 2 {
		t.Errorf("hot cluster %d articles / %d sources", hot[0].Count(), hot[0].SourceCount())
	}

	cands := s.Candidates()
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}
	if cands[0].TopicID != 0 {
		t.Errorf("topic_id = %d, want 0", cands[0].TopicID)
	}
}

func TestClusterRepoOnlyTopicsDropped(t *testing.T) {
	s := NewSelector(Options{
		SimilarityThreshold: 0.58,
		MinArticles:         2,
		TimeWindowHours:     28,
		MaxCandidates:       8,
	})
	items := []NewsItem{
		newsItem("1", "siteA", "awesome-org / llama-factory"),
		newsItem("2", "siteB", "awesome-org / llama-factory2"),
		newsItem("3", "siteC", "awesome-org / llama-factory3"),
	}
	hot := s.Cluster(items)
	if len(hot) != 0 {
		t.Errorf("repo-name cluster survived: %d", len(hot))
	}
}

func TestRepresentativeTitlePrefersChinese(t *testing.T) {
	seed := NewsItem{ID: "1", SiteID: "a", Title: "OpenAI launches GPT-5 flagship model", Entities: ExtractEntities("OpenAI launches GPT-5")}
	c := NewTopicCluster(seed)
	zh := NewsItem{
		ID: "2", SiteID: "b",
		Title:    "OpenAI launches GPT-5 flagship model today",
		TitleZH:  "OpenAI正式发布GPT-5旗舰模型，性能大幅提升",
		Entities: ExtractEntities("OpenAI launches GPT-5"),
	}
	if !c.TryAdd(zh, 0.58) {
		t.Fatal("zh variant not clustered")
	}
	if c.RepresentativeTitle != zh.TitleZH {
		t.Errorf("representative = %q, want the Chinese title", c.RepresentativeTitle)
	}
}

func TestIsAIRelated(t *testing.T) {
	rec := func(siteID, source, title string) core.ArchiveRecord {
		return core.ArchiveRecord{SiteID: siteID, Source: source, Title: title, URL: "https://example.com/x"}
	}
	tests := []struct {
		name string
		rec  core.ArchiveRecord
		want bool
	}{
		{"ai keyword passes", rec("hackernews", "Hacker News", "OpenAI releases new model"), true},
		{"commerce blocked", rec("hackernews", "Hacker News", "大模型手机 京东 券后价999"), false},
		{"ai site always passes", rec("aibase", "AIBase", "今日资讯汇总"), true},
		{"tophub blocked source", rec("tophub", "微博热搜", "AI话题上榜"), false},
		{"tophub allowed source", rec("tophub", "机器之心", "大模型进展"), true},
		{"tech without ai passes", rec("hackernews", "Hacker News", "New semiconductor fab opens"), true},
		{"noise with tech only blocked", rec("hackernews", "Hacker News", "明星八卦 全新机器人舞蹈"), false},
		{"plain noise blocked", rec("hackernews", "Hacker News", "足球比赛结果汇总"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAIRelated(tt.rec); got != tt.want {
				t.Errorf("IsAIRelated = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCandidateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	in := []core.Candidate{{
		TopicID:      0,
		Title:        "OpenAI正式发布GPT-5",
		ArticleCount: 5,
		SourceCount:  3,
		SampleTitles: []string{"OpenAI launches GPT-5"},
		Sources:      []string{"siteA", "siteB"},
		Entities:     []string{"gpt", "openai"},
	}}
	if err := SaveCandidates(path, in, time.Now()); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := LoadCandidates(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 1 || out[0].Title != in[0].Title || out[0].ArticleCount != 5 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}
