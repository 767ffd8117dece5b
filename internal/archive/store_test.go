package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"aidaily/internal/core"
	"aidaily/internal/normalize"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed := normalize.ParseTime(s)
	if parsed == nil {
		t.Fatalf("bad test time %q", s)
	}
	return *parsed
}

func TestUpsertFirstSeenImmutable(t *testing.T) {
	s := &Store{records: make(map[string]core.ArchiveRecord)}
	t1 := mustTime(t, "2026-08-01T10:00:00Z")
	t2 := mustTime(t, "2026-08-02T10:00:00Z")

	s.Upsert("techmeme", "Techmeme", "Techmeme", "OpenAI ships a thing", "https://example.com/a", nil, t1)
	s.Upsert("techmeme", "Techmeme", "Techmeme", "OpenAI ships a thing (updated)", "https://example.com/a", nil, t2)

	rec, ok := s.Get(normalize.ItemID("https://example.com/a"))
	if !ok {
		t.Fatal("record not found after upsert")
	}
	if rec.FirstSeenAt != "2026-08-01T10:00:00Z" {
		t.Errorf("first_seen_at mutated: %s", rec.FirstSeenAt)
	}
	if rec.LastSeenAt != "2026-08-02T10:00:00Z" {
		t.Errorf("last_seen_at not advanced: %s", rec.LastSeenAt)
	}
	if rec.Title != "OpenAI ships a thing (updated)" {
		t.Errorf("title not refreshed: %s", rec.Title)
	}
}

func TestUpsertPublishedAtRules(t *testing.T) {
	now := mustTime(t, "2026-08-02T10:00:00Z")
	p1 := mustTime(t, "2026-08-01T00:00:00Z")
	p2 := mustTime(t, "2026-08-01T12:00:00Z")

	tests := []struct {
		name   string
		siteID string
		want   string
	}{
		{"non-stream source keeps first published_at", "techmeme", "2026-08-01T00:00:00Z"},
		{"stream source overwrites published_at", StreamSourceID, "2026-08-01T12:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{records: make(map[string]core.ArchiveRecord)}
			s.Upsert(tt.siteID, "n", "n", "title", "https://example.com/x", &p1, now)
			s.Upsert(tt.siteID, "n", "n", "title", "https://example.com/x", &p2, now)
			rec, _ := s.Get(normalize.ItemID("https://example.com/x"))
			if rec.PublishedAt != tt.want {
				t.Errorf("published_at = %s, want %s", rec.PublishedAt, tt.want)
			}
		})
	}
}

func TestUpsertFillsMissingPublishedAt(t *testing.T) {
	s := &Store{records: make(map[string]core.ArchiveRecord)}
	now := mustTime(t, "2026-08-02T10:00:00Z")
	p := mustTime(t, "2026-08-01T00:00:00Z")

	s.Upsert("techmeme", "n", "n", "title", "https://example.com/y", nil, now)
	s.Upsert("techmeme", "n", "n", "title", "https://example.com/y", &p, now)

	rec, _ := s.Get(normalize.ItemID("https://example.com/y"))
	if rec.PublishedAt != "2026-08-01T00:00:00Z" {
		t.Errorf("published_at not filled: %q", rec.PublishedAt)
	}
}

func TestPruneKeepsByNewestTimestamp(t *testing.T) {
	now := mustTime(t, "2026-08-20T00:00:00Z")
	s := &Store{records: map[string]core.ArchiveRecord{
		"old": {
			ID:          "old",
			FirstSeenAt: "2026-06-01T00:00:00Z",
			LastSeenAt:  "2026-06-02T00:00:00Z",
		},
		"resighted": {
			ID:          "resighted",
			FirstSeenAt: "2026-06-01T00:00:00Z",
			LastSeenAt:  "2026-08-19T00:00:00Z",
		},
		"fresh": {
			ID:          "fresh",
			FirstSeenAt: "2026-08-18T00:00:00Z",
			LastSeenAt:  "2026-08-18T00:00:00Z",
		},
	}}

	dropped := s.Prune(45, now)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if _, ok := s.Get("old"); ok {
		t.Error("stale record survived prune")
	}
	if _, ok := s.Get("resighted"); !ok {
		t.Error("recently re-sighted record was pruned")
	}
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := mustTime(t, "2026-08-02T10:00:00Z")

	s := &Store{path: filepath.Join(dir, "archive.json"), records: make(map[string]core.ArchiveRecord)}
	s.Upsert("techmeme", "Techmeme", "Techmeme", "hello", "https://example.com/a", nil, now)
	if err := s.Save(now); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "archive.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("reopened %d records, want 1", reopened.Len())
	}
}

func TestBuildLatestWindowAndSubsets(t *testing.T) {
	now := mustTime(t, "2026-08-02T12:00:00Z")
	s := &Store{records: map[string]core.ArchiveRecord{
		"ai": {
			ID: "ai", SiteID: "hackernews", SiteName: "Hacker News",
			Title: "OpenAI releases new model", URL: "https://example.com/ai",
			FirstSeenAt: "2026-08-02T10:00:00Z", LastSeenAt: "2026-08-02T10:00:00Z",
		},
		"other": {
			ID: "other", SiteID: "hackernews", SiteName: "Hacker News",
			Title: "Rust 2.0 released", URL: "https://example.com/rust",
			FirstSeenAt: "2026-08-02T09:00:00Z", LastSeenAt: "2026-08-02T09:00:00Z",
		},
		"stale": {
			ID: "stale", SiteID: "hackernews", SiteName: "Hacker News",
			Title: "OpenAI did something last week", URL: "https://example.com/old",
			FirstSeenAt: "2026-07-20T00:00:00Z", LastSeenAt: "2026-07-20T00:00:00Z",
		},
		"placeholder": {
			ID: "placeholder", SiteID: "aihubtoday", SiteName: "AI Hub",
			Title: "每日AI资讯", URL: "https://example.com/ph",
			FirstSeenAt: "2026-08-02T11:00:00Z", LastSeenAt: "2026-08-02T11:00:00Z",
		},
	}}

	payload := BuildLatest(s, 24, now)
	if payload.WindowHours != 24 {
		t.Errorf("window_hours = %d", payload.WindowHours)
	}
	if len(payload.ItemsAllRaw) != 3 {
		t.Errorf("items_all_raw = %d, want 3 (stale excluded)", len(payload.ItemsAllRaw))
	}
	if len(payload.ItemsAll) != 2 {
		t.Errorf("items_all = %d, want 2 (placeholder dropped)", len(payload.ItemsAll))
	}
	if len(payload.ItemsAI) != 1 || payload.ItemsAI[0].ID != "ai" {
		t.Errorf("items_ai = %+v, want only the OpenAI item", payload.ItemsAI)
	}
	if payload.TotalItems != 1 {
		t.Errorf("total_items = %d, want 1", payload.TotalItems)
	}
	if st := payload.SiteStats["hackernews"]; st.Count != 2 {
		t.Errorf("site_stats[hackernews] = %+v, want count 2", st)
	}
}

func TestIsAIRelated(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"OpenAI releases new model", true},
		{"腾讯发布大模型升级", true},
		{"New AI chip from Nvidia", true},
		{"Maintainers complain about burnout", false},
		{"Rust 2.0 released", false},
		{"特斯拉推进自动驾驶落地", true},
	}
	for _, tt := range tests {
		if got := IsAIRelated(tt.title); got != tt.want {
			t.Errorf("IsAIRelated(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestSharedLoaderPrefix(t *testing.T) {
	dir := t.TempDir()
	now := mustTime(t, "2026-08-02T12:00:00Z")
	doc := `{
		"generated_at": "2026-08-02T11:00:00Z",
		"window_hours": 24,
		"total_items": 1,
		"items_all": [{
			"id": "abc",
			"site_id": "hackernews",
			"site_name": "Hacker News",
			"source": "Hacker News",
			"title": "Anthropic ships a model",
			"url": "https://example.com/a",
			"published_at": "2026-08-02T08:00:00Z",
			"first_seen_at": "2026-08-02T08:30:00Z",
			"last_seen_at": "2026-08-02T09:00:00Z"
		}]
	}`
	if err := os.WriteFile(filepath.Join(dir, "latest-24h.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewSharedLoader(dir)
	if !loader.Available() {
		t.Fatal("loader should see latest-24h.json")
	}
	items, err := loader.Load(28, now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("loaded %d items, want 1", len(items))
	}
	item := items[0]
	if item.SourceKey != "shared_hackernews" {
		t.Errorf("source_key = %s", item.SourceKey)
	}
	if item.SourceType != core.SourceShared {
		t.Errorf("source_type = %s", item.SourceType)
	}
	if item.PubTime == nil || !item.PubTime.Equal(mustTime(t, "2026-08-02T08:00:00Z")) {
		t.Errorf("pub_time = %v", item.PubTime)
	}
}
