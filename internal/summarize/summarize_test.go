package summarize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aidaily/internal/config"
	"aidaily/internal/core"
	"aidaily/internal/llm"
)

func TestParseBatchResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			"plain array",
			`["摘要一", "摘要二"]`,
			[]string{"摘要一", "摘要二"},
		},
		{
			"fenced array",
			"```json\n[\"摘要一\", \"摘要二\"]\n```",
			[]string{"摘要一", "摘要二"},
		},
		{
			"array with surrounding prose",
			"好的，以下是摘要：\n[\"摘要一\", \"摘要二\"]\n希望对你有帮助",
			[]string{"摘要一", "摘要二"},
		},
		{
			"object elements flattened",
			`[{"content": "摘要一"}, {"summary": "摘要二"}]`,
			[]string{"摘要一", "摘要二"},
		},
		{
			"not json",
			"抱歉，我无法完成这个任务",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseBatchResponse(tt.response)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		summary string
		want    bool
	}{
		{"", true},
		{"正文内容为空，无法生成摘要。", true},
		{"The provided content is empty.", true},
		{"OpenAI发布GPT-5，推理能力显著提升，定价维持不变。", false},
	}
	for _, tt := range tests {
		if got := IsInvalid(tt.summary); got != tt.want {
			t.Errorf("IsInvalid(%q) = %v, want %v", tt.summary, got, tt.want)
		}
	}
}

func TestDrop(t *testing.T) {
	items := []core.ScoredItem{
		{SummaryCN: "有效摘要内容"},
		{SummaryCN: "无法生成有效摘要"},
		{SummaryCN: ""},
	}
	kept := Drop(items)
	if len(kept) != 1 || kept[0].SummaryCN != "有效摘要内容" {
		t.Errorf("kept = %+v", kept)
	}
}

func newGateway(t *testing.T, handler http.HandlerFunc) *llm.Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return llm.New(config.API{
		Key:        "test-key",
		BaseURL:    srv.URL,
		Model:      "deepseek-chat",
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	})
}

func writeChat(w http.ResponseWriter, content string) {
	body := map[string]any{
		"choices": []map[string]any{{
			"index":   0,
			"message": map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"total_tokens": 50},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func TestApplyBatchPath(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeChat(w, `["第一条摘要", "第二条摘要"]`)
	})
	s := New(gw, 2)

	items := []core.ScoredItem{
		{Raw: core.RawItem{Title: "OpenAI launches GPT-5", Content: "body one", Language: "en"}},
		{Raw: core.RawItem{Title: "Anthropic updates Claude", Content: "body two", Language: "en"}},
	}
	s.Apply(context.Background(), items)

	if items[0].SummaryCN != "第一条摘要" || items[1].SummaryCN != "第二条摘要" {
		t.Errorf("summaries = %q / %q", items[0].SummaryCN, items[1].SummaryCN)
	}
}

func TestApplyFallsBackToPerItemCalls(t *testing.T) {
	singleCalls := 0
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode chat request: %v", err)
		}
		user := req.Messages[len(req.Messages)-1].Content

		// The batch request carries numbered entries; answer it with
		// prose instead of the requested array.
		if strings.Contains(user, "【新闻1】") {
			writeChat(w, "抱歉，我无法按要求的格式输出这些内容。")
			return
		}
		singleCalls++
		if strings.Contains(user, "GPT-5") {
			writeChat(w, "OpenAI正式发布GPT-5，推理能力大幅提升。")
		} else {
			writeChat(w, "Anthropic更新Claude，上下文窗口翻倍。")
		}
	})
	s := New(gw, 2)

	items := []core.ScoredItem{
		{Raw: core.RawItem{Title: "OpenAI launches GPT-5", Content: "body one", Language: "en"}},
		{Raw: core.RawItem{Title: "Anthropic updates Claude", Content: "body two", Language: "en"}},
	}
	s.Apply(context.Background(), items)

	if singleCalls != 2 {
		t.Errorf("single calls = %d, want 2", singleCalls)
	}
	if items[0].SummaryCN != "OpenAI正式发布GPT-5，推理能力大幅提升。" {
		t.Errorf("first summary = %q", items[0].SummaryCN)
	}
	if items[1].SummaryCN != "Anthropic更新Claude，上下文窗口翻倍。" {
		t.Errorf("second summary = %q", items[1].SummaryCN)
	}
}

func TestApplyFallsBackToFeedSummary(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
	})
	s := New(gw, 2)

	items := []core.ScoredItem{
		{Raw: core.RawItem{Title: "t", Summary: "feed summary text", Language: "en"}},
	}
	s.Apply(context.Background(), items)
	if items[0].SummaryCN != "feed summary text" {
		t.Errorf("summary = %q, want feed fallback", items[0].SummaryCN)
	}
}
