package relevance

import (
	"testing"

	"aidaily/internal/core"
)

func TestCheckKeywordsAdmission(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang string
		want bool
	}{
		{"core keyword admits", "OpenAI ships a new reasoning model", "en", true},
		{"aux only is rejected", "Microsoft reports quarterly earnings beat", "en", false},
		{"exclude beats core", "opinion: why chatgpt is overrated", "en", false},
		{"zh core admits", "百度发布新一代大模型", "zh", true},
		{"zh exclude rejects", "AI课程培训报名开启", "zh", false},
		{"no keywords rejected", "Local bakery opens second location", "en", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CheckKeywords(tt.text, tt.lang)
			got := m.Pass() && !m.HasExclude
			if got != tt.want {
				t.Errorf("admission(%q) = %v, want %v (match %+v)", tt.text, got, tt.want, m)
			}
		})
	}
}

func TestApplyScoring(t *testing.T) {
	f := NewFilter()
	items := []core.RawItem{
		{
			Title:     "OpenAI launches GPT-5",
			SourceKey: "techmeme",
			Language:  "en",
		},
	}
	scored := f.Apply(items)
	if len(scored) != 1 {
		t.Fatalf("got %d scored items, want 1", len(scored))
	}
	// high: \blaunch, GPT-5 (+6.0); core: \bgpt\b, openai (+2.0);
	// source techmeme priority 2 (+1.5)
	if got := scored[0].RelevanceScore; got != 9.5 {
		t.Errorf("score = %v, want 9.5", got)
	}
}

func TestApplySharedPrefixBonus(t *testing.T) {
	direct := NewFilter().Apply([]core.RawItem{
		{Title: "Anthropic expands Claude 4 availability", SourceKey: "techmeme", Language: "en"},
	})
	shared := NewFilter().Apply([]core.RawItem{
		{Title: "Anthropic expands Claude 4 availability", SourceKey: "shared_techmeme", Language: "en"},
	})
	if len(direct) != 1 || len(shared) != 1 {
		t.Fatalf("expected both items to pass, got %d/%d", len(direct), len(shared))
	}
	if direct[0].RelevanceScore != shared[0].RelevanceScore {
		t.Errorf("shared prefix changed score: %v vs %v",
			direct[0].RelevanceScore, shared[0].RelevanceScore)
	}
}

func TestApplyScoreFloor(t *testing.T) {
	f := NewFilter()
	// Core hit but several low-value signals and no source bonus.
	scored := f.Apply([]core.RawItem{
		{Title: "为什么大模型入门教程是否值得看", SourceKey: "unknown_blog", Language: "zh"},
	})
	if len(scored) != 1 {
		t.Fatalf("got %d scored items, want 1", len(scored))
	}
	if scored[0].RelevanceScore != 0.1 {
		t.Errorf("score = %v, want floor 0.1", scored[0].RelevanceScore)
	}
}

func TestApplySortsDescending(t *testing.T) {
	f := NewFilter()
	scored := f.Apply([]core.RawItem{
		{Title: "large language model weekly notes", SourceKey: "unknown", Language: "en"},
		{Title: "OpenAI launches GPT-5", SourceKey: "claude_anthropic", Language: "en"},
	})
	if len(scored) != 2 {
		t.Fatalf("got %d scored items, want 2", len(scored))
	}
	if scored[0].RelevanceScore < scored[1].RelevanceScore {
		t.Errorf("not sorted descending: %v then %v",
			scored[0].RelevanceScore, scored[1].RelevanceScore)
	}
	if scored[0].Raw.Title != "OpenAI launches GPT-5" {
		t.Errorf("unexpected top item %q", scored[0].Raw.Title)
	}
}

func TestGamingSignal(t *testing.T) {
	f := NewFilter()
	scored := f.Apply([]core.RawItem{
		{Title: "Ubisoft adds generative AI NPC dialogue", SourceKey: "theverge", Language: "en"},
		{Title: "OpenAI launches GPT-5", SourceKey: "theverge", Language: "en"},
	})
	if len(scored) != 2 {
		t.Fatalf("got %d scored items, want 2", len(scored))
	}
	byTitle := map[string]bool{}
	for _, s := range scored {
		byTitle[s.Raw.Title] = s.IsGamingRelated
	}
	if !byTitle["Ubisoft adds generative AI NPC dialogue"] {
		t.Error("NPC title not flagged gaming")
	}
	if byTitle["OpenAI launches GPT-5"] {
		t.Error("plain launch title flagged gaming")
	}
}
