package pipeline

import (
	"strings"
	"testing"
	"time"

	"aidaily/internal/core"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestFilterByTime(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	items := []core.RawItem{
		{Title: "fresh", PubTime: ptrTime(now.Add(-2 * time.Hour))},
		{Title: "edge", PubTime: ptrTime(now.Add(-27 * time.Hour))},
		{Title: "stale", PubTime: ptrTime(now.Add(-40 * time.Hour))},
		{Title: "undated"},
	}

	got := filterByTime(items, 28, now)
	if len(got) != 3 {
		t.Fatalf("kept %d items, want 3", len(got))
	}
	titles := make(map[string]bool)
	for _, item := range got {
		titles[item.Title] = true
	}
	if !titles["fresh"] || !titles["edge"] || !titles["undated"] {
		t.Errorf("kept = %v", titles)
	}
	if titles["stale"] {
		t.Error("stale item survived the window")
	}
}

func TestLeadTitles(t *testing.T) {
	categorized := map[string][]core.ScoredItem{
		core.CategoryBigTech: {
			{TitleCN: "OpenAI发布GPT-5"},
			{Raw: core.RawItem{Title: "Google ships Gemini update"}},
			{TitleCN: "第三条不该出现"},
		},
		core.CategoryAITech: {
			{TitleCN: strings.Repeat("长", 60)},
		},
	}

	titles := leadTitles(categorized)
	if len(titles) != 3 {
		t.Fatalf("got %d titles, want 3", len(titles))
	}
	// Two per category, in render order, untranslated titles fall back.
	if titles[0] != "OpenAI发布GPT-5" || titles[1] != "Google ships Gemini update" {
		t.Errorf("titles = %v", titles[:2])
	}
	if got := len([]rune(titles[2])); got != 50 {
		t.Errorf("long title truncated to %d runes, want 50", got)
	}
}

func TestLeadTitlesCapsAtEight(t *testing.T) {
	categorized := make(map[string][]core.ScoredItem)
	for _, cat := range core.CategoryOrder {
		categorized[cat] = []core.ScoredItem{
			{TitleCN: cat + "-1"}, {TitleCN: cat + "-2"}, {TitleCN: cat + "-3"},
		}
	}
	if got := len(leadTitles(categorized)); got != 8 {
		t.Errorf("got %d titles, want 8", got)
	}
}
