package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aidaily/internal/config"
	"aidaily/internal/core"
	"aidaily/internal/llm"
)

func TestRule(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		summary   string
		sourceKey string
		want      string
	}{
		{"official vendor source pinned", "Anything at all", "", "claude_anthropic", core.CategoryBigTech},
		{"shared prefix stripped for pin", "Anything", "", "shared_google_blog", core.CategoryBigTech},
		{"producthunt pinned", "New tool of the day", "", "producthunt", core.CategoryAIProducts},
		{"hackernews pinned", "Show HN: my model", "", "hackernews", core.CategoryAITech},
		{"gaming keyword wins", "AI NPC dialogue in new game", "", "theverge", core.CategoryAIGaming},
		{"company plus action", "OpenAI funding round closes", "", "theverge", core.CategoryBigTech},
		{"company without action falls through", "OpenAI researcher interview", "关于模型的讨论", "theverge", core.CategoryAITech},
		{"product keyword", "Startup launches writing service", "", "theverge", core.CategoryAIProducts},
		{"tech keyword", "New transformer architecture benchmark", "", "theverge", core.CategoryAITech},
		{"catch-all", "Industry regulation roundup", "", "theverge", core.CategoryIndustryNews},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rule(tt.title, tt.summary, tt.sourceKey); got != tt.want {
				t.Errorf("Rule = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestApplyRulePathTotality(t *testing.T) {
	c := New(nil)
	items := []core.ScoredItem{
		{Raw: core.RawItem{Title: "OpenAI acquisition talks", SourceKey: "theverge"}},
		{Raw: core.RawItem{Title: "随便什么新闻", SourceKey: "unknown"}},
		{Raw: core.RawItem{Title: "Game studio adopts AI NPCs", SourceKey: "theverge"}},
	}
	result := c.Apply(context.Background(), items, false)

	total := 0
	for _, cat := range core.CategoryOrder {
		total += len(result[cat])
	}
	if total != len(items) {
		t.Errorf("categorized %d of %d items", total, len(items))
	}
	for i := range items {
		if items[i].Category == "" {
			t.Errorf("item %d has no category", i)
		}
	}
}

func TestApplyAIPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"role": "assistant", "content": "```json\n{\"0\": \"ai_tech\", \"1\": \"big_tech\"}\n```"},
			}},
			"usage": map[string]any{"total_tokens": 30},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	gw := llm.New(config.API{
		Key: "k", BaseURL: srv.URL, Model: "deepseek-chat",
		MaxRetries: 1, RetryDelay: time.Millisecond, Timeout: 5 * time.Second,
	})
	c := New(gw)

	items := []core.ScoredItem{
		{Raw: core.RawItem{Title: "A", SourceKey: "x"}},
		{Raw: core.RawItem{Title: "B", SourceKey: "x"}},
	}
	result := c.Apply(context.Background(), items, true)
	if len(result[core.CategoryAITech]) != 1 || len(result[core.CategoryBigTech]) != 1 {
		t.Errorf("ai categories not applied: tech=%d big=%d",
			len(result[core.CategoryAITech]), len(result[core.CategoryBigTech]))
	}
	if items[0].Category != core.CategoryAITech || items[1].Category != core.CategoryBigTech {
		t.Errorf("item categories = %s / %s", items[0].Category, items[1].Category)
	}
}

func TestApplyAIFailureFallsBackToRules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := llm.New(config.API{
		Key: "k", BaseURL: srv.URL, Model: "deepseek-chat",
		MaxRetries: 1, RetryDelay: time.Millisecond, Timeout: 5 * time.Second,
	})
	c := New(gw)

	items := []core.ScoredItem{
		{Raw: core.RawItem{Title: "AI NPC dialogue in new game", SourceKey: "theverge"}},
	}
	result := c.Apply(context.Background(), items, true)
	if len(result[core.CategoryAIGaming]) != 1 {
		t.Errorf("rule fallback not applied: %+v", result)
	}
}
