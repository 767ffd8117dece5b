package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"aidaily/internal/core"
)

func scored(title, url, sourceType string, score float64) core.ScoredItem {
	return core.ScoredItem{
		Raw:            core.RawItem{Title: title, URL: url, SourceType: sourceType},
		RelevanceScore: score,
	}
}

func TestApplyOfficialReplacesMedia(t *testing.T) {
	d := New(0.8, "")
	items := []core.ScoredItem{
		scored("OpenAI launches GPT-5 for developers", "https://a.example/1", core.SourceEnMedia, 9.0),
		scored("OpenAI launches GPT-5 for developers!", "https://b.example/2", core.SourceOfficial, 7.0),
	}
	out := d.Apply(items)
	if len(out) != 1 {
		t.Fatalf("got %d items, want 1", len(out))
	}
	if out[0].Raw.SourceType != core.SourceOfficial {
		t.Errorf("survivor is %s, want official", out[0].Raw.SourceType)
	}
}

func TestApplyKeepsDistinctTitles(t *testing.T) {
	d := New(0.8, "")
	items := []core.ScoredItem{
		scored("OpenAI launches GPT-5", "https://a.example/1", core.SourceEnMedia, 9.0),
		scored("Anthropic raises new funding round", "https://b.example/2", core.SourceEnMedia, 7.0),
	}
	out := d.Apply(items)
	if len(out) != 2 {
		t.Fatalf("got %d items, want 2", len(out))
	}
	if out[0].RelevanceScore < out[1].RelevanceScore {
		t.Error("output not sorted by score descending")
	}
}

func TestApplyIgnoresMarkerWords(t *testing.T) {
	d := New(0.8, "")
	items := []core.ScoredItem{
		scored("重磅：OpenAI发布GPT-5大模型", "https://a.example/1", core.SourceZhMedia, 9.0),
		scored("快讯：OpenAI发布GPT-5大模型", "https://b.example/2", core.SourceZhMedia, 8.0),
	}
	out := d.Apply(items)
	if len(out) != 1 {
		t.Fatalf("got %d items, want 1 (marker prefixes should not defeat dedup)", len(out))
	}
}

func TestApplyMediaDoesNotReplaceOfficial(t *testing.T) {
	d := New(0.8, "")
	items := []core.ScoredItem{
		scored("Gemini 3 is now generally available", "https://a.example/1", core.SourceOfficial, 9.0),
		scored("Gemini 3 is now generally available.", "https://b.example/2", core.SourceEnMedia, 8.0),
	}
	out := d.Apply(items)
	if len(out) != 1 {
		t.Fatalf("got %d items, want 1", len(out))
	}
	if out[0].Raw.URL != "https://a.example/1" {
		t.Errorf("incumbent replaced by %s", out[0].Raw.URL)
	}
}

func TestURLCachePersistsAcrossRuns(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "news_cache.json")
	item := scored("OpenAI launches GPT-5", "https://a.example/1", core.SourceEnMedia, 9.0)

	first := New(0.8, cachePath)
	if out := first.Apply([]core.ScoredItem{item}); len(out) != 1 {
		t.Fatalf("first run: got %d items, want 1", len(out))
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache not written: %v", err)
	}

	second := New(0.8, cachePath)
	if out := second.Apply([]core.ScoredItem{item}); len(out) != 0 {
		t.Fatalf("second run: got %d items, want 0", len(out))
	}
}

func TestCorruptCacheStartsEmpty(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "news_cache.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := New(0.8, cachePath)
	out := d.Apply([]core.ScoredItem{
		scored("OpenAI launches GPT-5", "https://a.example/1", core.SourceEnMedia, 9.0),
	})
	if len(out) != 1 {
		t.Fatalf("got %d items, want 1", len(out))
	}
}
