package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

// sectionTitles are the numbered digest section headers.
var sectionTitles = map[string]string{
	core.CategoryBigTech:      "01 大厂动态",
	core.CategoryAIProducts:   "02 应用与产品",
	core.CategoryAITech:       "03 模型与技术",
	core.CategoryAIGaming:     "04 AI与游戏",
	core.CategoryIndustryNews: "05 行业新闻",
}

// Report renders the daily digest for the WeChat draft box and the
// local output directory.
type Report struct {
	outputDir string
}

// NewReport creates a digest renderer writing into outputDir.
func NewReport(outputDir string) *Report {
	return &Report{outputDir: outputDir}
}

// DefaultLead builds the static lead paragraph used when the LLM one is
// unavailable.
func DefaultLead(categorized map[string][]core.ScoredItem) string {
	total := 0
	var parts []string
	for _, cat := range core.CategoryOrder {
		items := categorized[cat]
		total += len(items)
		if len(items) > 0 {
			parts = append(parts, fmt.Sprintf("%s%d条", core.CategoryNames[cat], len(items)))
		}
	}
	if total == 0 {
		return "今日AI行业暂无重大动态更新。"
	}
	return fmt.Sprintf("今日AI领域共有%d条动态：%s。", total, strings.Join(parts, "、"))
}

// HTML renders the inline-styled digest body accepted by the WeChat
// draft editor.
func (r *Report) HTML(categorized map[string][]core.ScoredItem, lead string) string {
	if lead == "" {
		lead = DefaultLead(categorized)
	}

	var b strings.Builder
	b.WriteString(`<div style="max-width:100%;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,'Helvetica Neue',Arial,sans-serif;">` + "\n")
	b.WriteString(fmt.Sprintf(`<div style="padding:12px 0;margin:16px 0;color:#7a4fd6;font-size:16px;font-weight:bold;line-height:1.6;">%s</div>`+"\n", lead))

	for _, cat := range core.CategoryOrder {
		items := categorized[cat]
		if len(items) == 0 {
			continue
		}
		b.WriteString(`<p style="margin:0;">&nbsp;</p>` + "\n")
		b.WriteString(fmt.Sprintf(`<p style="color:#000000;font-weight:bold;font-size:24px;font-style:italic;margin:0 0 16px 0;">%s</p>`+"\n", sectionTitles[cat]))

		for i, item := range items {
			title := displayTitle(item)
			summary := displaySummary(item)
			b.WriteString(`<div style="margin-bottom:20px;">` + "\n")
			b.WriteString(fmt.Sprintf(`<p style="color:#7a4fd6;font-weight:bold;font-size:18px;margin:0 0 12px 0;line-height:1.5;">%d. %s</p>`+"\n", i+1, title))
			b.WriteString(fmt.Sprintf(`<p style="color:#000000;font-size:16px;line-height:1.7;margin:0 0 10px 0;text-align:justify;">%s</p>`+"\n", summary))
			b.WriteString(fmt.Sprintf(`<p style="color:#d6d6d6;font-size:14px;font-weight:bold;margin:0 0 6px 0;">来源: %s</p>`+"\n", item.Raw.SourceName))
			b.WriteString(fmt.Sprintf(`<p style="font-size:14px;font-weight:bold;margin:0;word-break:break-all;"><a href="%s" style="color:#d6d6d6;text-decoration:none;">%s</a></p>`+"\n", item.Raw.URL, item.Raw.URL))
			b.WriteString(`</div>` + "\n")
			if i < len(items)-1 {
				b.WriteString(`<p style="margin:0;">&nbsp;</p>` + "\n")
			}
		}
	}
	b.WriteString(`</div>`)
	return b.String()
}

// Markdown renders the digest as a local markdown report. Empty
// categories still get their section with a placeholder line.
func (r *Report) Markdown(categorized map[string][]core.ScoredItem, lead string, now time.Time) string {
	dateStr := normalize.ToShanghai(now).Format("2006-01-02")

	var lines []string
	lines = append(lines, fmt.Sprintf("# AI资讯日报-%s", dateStr), "")
	lines = append(lines, "## AI导语", "")
	if lead == "" {
		total := 0
		for _, items := range categorized {
			total += len(items)
		}
		lead = fmt.Sprintf("今日AI领域共有%d条动态值得关注。", total)
	}
	lines = append(lines, lead, "", "---", "")

	for _, cat := range core.CategoryOrder {
		lines = append(lines, "", fmt.Sprintf("## %s", sectionTitles[cat]), "")
		items := categorized[cat]
		if len(items) == 0 {
			lines = append(lines, "暂无新闻", "")
			continue
		}
		for i, item := range items {
			lines = append(lines, fmt.Sprintf("### %d. %s", i+1, displayTitle(item)), "")
			if summary := displaySummary(item); summary != "" {
				lines = append(lines, summary, "")
			}
			lines = append(lines, fmt.Sprintf("来源: %s", item.Raw.SourceName), "")
			lines = append(lines, item.Raw.URL, "")
		}
	}
	lines = append(lines, "*本日报由AI自动生成*")
	return strings.Join(lines, "\n")
}

// SaveHTML wraps the body in a full document and writes
// AI资讯日报_{M月D日}.html.
func (r *Report) SaveHTML(body string, now time.Time) (string, error) {
	dateStr := normalize.ReportDate(now)
	full := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI资讯日报_%s</title>
</head>
<body>
%s
</body>
</html>`, dateStr, body)

	path := filepath.Join(r.outputDir, fmt.Sprintf("AI资讯日报_%s.html", dateStr))
	if err := writeFile(path, full); err != nil {
		return "", err
	}
	logger.Info("daily report html saved", "path", path)
	return path, nil
}

// SaveMarkdown writes report_{date}_{time}.md.
func (r *Report) SaveMarkdown(content string, now time.Time) (string, error) {
	local := normalize.ToShanghai(now)
	path := filepath.Join(r.outputDir,
		fmt.Sprintf("report_%s_%s.md", local.Format("2006-01-02"), local.Format("150405")))
	if err := writeFile(path, content); err != nil {
		return "", err
	}
	logger.Info("daily report markdown saved", "path", path)
	return path, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func displayTitle(item core.ScoredItem) string {
	if item.TitleCN != "" {
		return item.TitleCN
	}
	return item.Raw.Title
}

func displaySummary(item core.ScoredItem) string {
	if item.SummaryCN != "" {
		return item.SummaryCN
	}
	return item.Raw.Summary
}
