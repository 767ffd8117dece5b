package column

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aidaily/internal/cluster"
	"aidaily/internal/fetch"
)

func TestParseArticle(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTitle string
		wantBody  string
	}{
		{
			name:      "title line",
			raw:       "TITLE: 大模型竞赛白热化\n\n## 背景\n\n正文内容。",
			wantTitle: "大模型竞赛白热化",
			wantBody:  "## 背景\n\n正文内容。",
		},
		{
			name:      "title line with brackets",
			raw:       "TITLE: 《AI安全承诺的幕后》\n正文。",
			wantTitle: "AI安全承诺的幕后",
			wantBody:  "正文。",
		},
		{
			name:      "heading fallback",
			raw:       "# 开源模型的逆袭\n\n正文第一段。",
			wantTitle: "开源模型的逆袭",
			wantBody:  "正文第一段。",
		},
		{
			name:      "no title at all",
			raw:       "直接就是正文。",
			wantTitle: "AI深度专栏",
			wantBody:  "直接就是正文。",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := parseArticle(tt.raw)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestCollectorCollect(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte(`<html><head><meta name="description" content="这是一段足够长的页面描述，超过三十个字符以便被素材收集器采用作为摘要内容。"></head><body></body></html>`))
	}))
	defer srv.Close()

	client := fetch.NewClient(5*time.Second, "test-agent", 0)
	c := NewCollector(client)

	topic := cluster.NewTopicCluster(cluster.NewsItem{
		Title: "OpenAI launches GPT-5 with new safety pledge", TitleZH: "OpenAI发布GPT-5并作出安全承诺",
		URL: srv.URL + "/1", Source: "TechCrunch", SiteID: "techcrunch",
	})
	for i := 2; i <= 5; i++ {
		topic.Articles = append(topic.Articles, cluster.NewsItem{
			Title:  "GPT-5 coverage",
			URL:    srv.URL + "/more",
			SiteID: "hackernews",
		})
	}

	materials := c.Collect(context.Background(), topic)

	for _, want := range []string{
		"话题: OpenAI发布GPT-5并作出安全承诺",
		"报道数量: 5 篇",
		"### 报道 1（来源: TechCrunch）",
		"### 报道 4（来源: hackernews）",
		"摘要: 这是一段足够长的页面描述",
	} {
		if !strings.Contains(materials, want) {
			t.Errorf("materials missing %q:\n%s", want, materials)
		}
	}
	// Page excerpts are only fetched for the leading articles.
	if fetches != 3 {
		t.Errorf("fetched %d pages, want 3", fetches)
	}
}

func TestCollectorExcerptPriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/og":
			w.Write([]byte(`<html><head><meta property="og:description" content="OG描述同样超过三十个字符才会被素材收集器接受，用于兜底场景。"></head><body></body></html>`))
		case "/body":
			w.Write([]byte(`<html><body><script>ignored()</script><p>` + strings.Repeat("正文内容很长。", 30) + `</p></body></html>`))
		default:
			w.Write([]byte(`<html><body>短</body></html>`))
		}
	}))
	defer srv.Close()

	client := fetch.NewClient(5*time.Second, "test-agent", 0)
	c := NewCollector(client)

	if got := c.fetchExcerpt(context.Background(), srv.URL+"/og"); !strings.Contains(got, "OG描述") {
		t.Errorf("og excerpt = %q", got)
	}
	body := c.fetchExcerpt(context.Background(), srv.URL+"/body")
	if !strings.Contains(body, "正文内容很长") || strings.Contains(body, "ignored") {
		t.Errorf("body excerpt = %q", body)
	}
	if got := c.fetchExcerpt(context.Background(), srv.URL+"/thin"); got != "" {
		t.Errorf("thin page excerpt = %q, want empty", got)
	}
}
