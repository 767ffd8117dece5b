package publish

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

// WeCom sends markdown messages to a group-bot webhook. Without a
// webhook URL the candidate push degrades to a console printout so the
// workflow stays usable locally.
type WeCom struct {
	webhookURL string
	http       *http.Client
}

// NewWeCom creates a group-bot sender. webhookURL may be empty.
func NewWeCom(webhookURL string) *WeCom {
	return &WeCom{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether a webhook URL is set.
func (w *WeCom) Configured() bool { return w.webhookURL != "" }

// SendMarkdown posts one markdown message to the webhook.
func (w *WeCom) SendMarkdown(ctx context.Context, content string) error {
	if w.webhookURL == "" {
		return fmt.Errorf("wecom webhook not configured")
	}

	payload := map[string]any{
		"msgtype":  "markdown",
		"markdown": map[string]string{"content": content},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode wecom message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build wecom request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to wecom: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode wecom response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("wecom push rejected: errcode=%d %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}

// SendCandidates pushes the deep-column candidate topics to the group,
// or prints them to the console when no webhook is configured.
func (w *WeCom) SendCandidates(ctx context.Context, candidates []core.Candidate, now time.Time) error {
	if !w.Configured() {
		logger.Warn("wecom webhook not configured, printing candidates to console")
		printCandidates(candidates, now)
		return nil
	}

	local := normalize.ToShanghai(now)
	content := fmt.Sprintf(`## 📊 AI专栏候选话题（%d月%d日）

%s

---
回复话题编号生成专栏（如 1），回复 0 跳过`,
		int(local.Month()), local.Day(), formatTopics(candidates))

	if err := w.SendMarkdown(ctx, content); err != nil {
		return err
	}
	logger.Info("candidates pushed to wecom", "topics", len(candidates))
	return nil
}

func formatTopics(candidates []core.Candidate) string {
	var blocks []string
	for _, c := range candidates {
		title := truncateRunes(c.Title, 50)
		sample := ""
		if len(c.SampleTitles) > 0 {
			sample = c.SampleTitles[0]
			if len([]rune(sample)) > 40 {
				sample = truncateRunes(sample, 40) + "..."
			}
		}
		blocks = append(blocks, fmt.Sprintf("**%d. %s**\n   > %d篇报道 · %d个来源\n   > 样例: %s",
			c.TopicID+1, title, c.ArticleCount, c.SourceCount, sample))
	}
	return strings.Join(blocks, "\n\n")
}

func printCandidates(candidates []core.Candidate, now time.Time) {
	local := normalize.ToShanghai(now)
	divider := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n", divider)
	fmt.Printf("📊 AI专栏候选话题 (%d月%d日)\n", int(local.Month()), local.Day())
	fmt.Println(divider)
	for _, c := range candidates {
		fmt.Printf("\n  %d. 【%s】\n", c.TopicID+1, c.Title)
		fmt.Printf("     📰 %d篇报道 · %d个来源\n", c.ArticleCount, c.SourceCount)
		for i, st := range c.SampleTitles {
			if i >= 3 {
				break
			}
			fmt.Printf("     - %s\n", truncateRunes(st, 60))
		}
	}
	fmt.Printf("\n%s\n", divider)
	fmt.Println("输入话题编号选择（如 1），输入 0 跳过")
}

// SelectTop picks at most n records, round-robin across sites so a
// single busy site cannot crowd out the rest.
func SelectTop(items []core.ArchiveRecord, n int) []core.ArchiveRecord {
	if len(items) <= n {
		return items
	}

	bySite := make(map[string][]core.ArchiveRecord)
	var siteOrder []string
	for _, item := range items {
		sid := item.SiteID
		if sid == "" {
			sid = "unknown"
		}
		if _, ok := bySite[sid]; !ok {
			siteOrder = append(siteOrder, sid)
		}
		bySite[sid] = append(bySite[sid], item)
	}

	var selected []core.ArchiveRecord
	seen := make(map[string]bool)
	for len(selected) < n {
		progressed := false
		for _, sid := range siteOrder {
			if len(selected) >= n {
				break
			}
			queue := bySite[sid]
			if len(queue) == 0 {
				continue
			}
			item := queue[0]
			bySite[sid] = queue[1:]
			progressed = true
			if item.URL != "" && seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			selected = append(selected, item)
		}
		if !progressed {
			break
		}
	}
	return selected
}

// FormatNews renders hourly-buzz records as a WeCom markdown digest.
func FormatNews(items []core.ArchiveRecord, now time.Time) string {
	local := normalize.ToShanghai(now)
	timeStr := fmt.Sprintf("%02d月%02d日 %02d:%02d", int(local.Month()), local.Day(), local.Hour(), local.Minute())

	lines := []string{fmt.Sprintf("## AI 热讯 | %s\n", timeStr)}
	for i, item := range items {
		title := item.TitleZH
		if title == "" {
			title = item.Title
		}
		if title == "" {
			title = item.TitleEN
		}
		if len([]rune(title)) > 60 {
			title = truncateRunes(title, 57) + "..."
		}

		sourceTag := ""
		if item.SiteName != "" {
			sourceTag = "`" + item.SiteName + "`"
		}
		if item.Source != "" && item.Source != item.SiteName {
			sourceTag = strings.TrimSpace(sourceTag + " " + item.Source)
		}

		lines = append(lines, fmt.Sprintf("**%d.** [%s](%s)", i+1, title, item.URL))
		if sourceTag != "" {
			lines = append(lines, fmt.Sprintf("> %s\n", sourceTag))
		} else {
			lines = append(lines, "")
		}
	}
	lines = append(lines, fmt.Sprintf("\n---\n> 数据更新: %s | 共 %d 条", timeStr, len(items)))
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
