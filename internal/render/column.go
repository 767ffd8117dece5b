package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

var (
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe  = regexp.MustCompile(`\*(.+?)\*`)
	codeRe    = regexp.MustCompile("`(.+?)`")
	orderedRe = regexp.MustCompile(`^(\d+)\.\s+(.+)`)
	unsafeRe  = regexp.MustCompile(`[^\w\p{Han}]`)
)

// ColumnHTML wraps a generated column article in the WeChat-compatible
// inline-styled shell.
func ColumnHTML(title, bodyMarkdown string, articleCount, sourceCount int, now time.Time) string {
	body := MarkdownToHTML(bodyMarkdown)
	dateStr := normalize.ToShanghai(now).Format("2006年01月02日")

	stats := ""
	if articleCount > 0 {
		stats = fmt.Sprintf(`<p style="font-size:12px;color:#999;margin:0 0 15px 0;">📊 综合 %d 个来源 %d 篇报道</p>`, sourceCount, articleCount)
	}

	return fmt.Sprintf(`<div style="max-width:100%%;margin:0 auto;padding:15px;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI','PingFang SC','Hiragino Sans GB','Microsoft YaHei',sans-serif;color:#333;line-height:1.8;font-size:15px;">

  <div style="text-align:center;margin-bottom:25px;">
    <h1 style="font-size:22px;font-weight:bold;color:#1a1a1a;margin:0 0 10px 0;line-height:1.4;">%s</h1>
    <p style="font-size:12px;color:#999;margin:0;">AI深度专栏 | %s</p>
    %s
  </div>

  <div style="border-top:2px solid #7a4fd6;margin:0 0 20px 0;"></div>

  <div style="font-size:15px;color:#333;line-height:1.9;">
    %s
  </div>

  <div style="border-top:1px solid #eee;margin-top:30px;padding-top:15px;text-align:center;">
    <p style="font-size:12px;color:#999;margin:0;">本文由 AI 基于多源新闻素材自动生成，仅供参考</p>
    <p style="font-size:12px;color:#999;margin:5px 0 0 0;">AI深度专栏 · 每日热点深度解读</p>
  </div>

</div>`, title, dateStr, stats, body)
}

// MarkdownToHTML converts the writer's markdown to inline-styled HTML.
// Only the constructs the article prompt produces are handled: headings,
// lists, quotes, bold, italics and inline code.
func MarkdownToHTML(md string) string {
	var parts []string
	inList := false
	closeList := func() {
		if inList {
			parts = append(parts, "</ul>")
			inList = false
		}
	}

	for _, line := range strings.Split(md, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			closeList()
			parts = append(parts, "")
			continue
		}

		if strings.HasPrefix(stripped, "## ") {
			closeList()
			text := strings.TrimSpace(stripped[3:])
			parts = append(parts, fmt.Sprintf(`<h2 style="font-size:18px;font-weight:bold;color:#7a4fd6;margin:25px 0 12px 0;padding-left:10px;border-left:3px solid #7a4fd6;">%s</h2>`, text))
			continue
		}
		if strings.HasPrefix(stripped, "### ") {
			closeList()
			text := strings.TrimSpace(stripped[4:])
			parts = append(parts, fmt.Sprintf(`<h3 style="font-size:16px;font-weight:bold;color:#444;margin:20px 0 8px 0;">%s</h3>`, text))
			continue
		}
		if strings.HasPrefix(stripped, "- ") || strings.HasPrefix(stripped, "* ") {
			if !inList {
				parts = append(parts, `<ul style="padding-left:20px;margin:8px 0;">`)
				inList = true
			}
			parts = append(parts, fmt.Sprintf(`<li style="margin:5px 0;color:#333;">%s</li>`, inlineFormat(stripped[2:])))
			continue
		}
		if m := orderedRe.FindStringSubmatch(stripped); m != nil {
			if !inList {
				parts = append(parts, `<ul style="padding-left:20px;margin:8px 0;list-style-type:decimal;">`)
				inList = true
			}
			parts = append(parts, fmt.Sprintf(`<li style="margin:5px 0;color:#333;">%s</li>`, inlineFormat(m[2])))
			continue
		}
		if strings.HasPrefix(stripped, "> ") {
			closeList()
			parts = append(parts, fmt.Sprintf(`<blockquote style="border-left:3px solid #ddd;padding:8px 15px;margin:10px 0;color:#666;background:#f9f9f9;font-size:14px;">%s</blockquote>`, inlineFormat(stripped[2:])))
			continue
		}

		closeList()
		parts = append(parts, fmt.Sprintf(`<p style="margin:10px 0;text-indent:0;">%s</p>`, inlineFormat(stripped)))
	}
	closeList()
	return strings.Join(parts, "\n")
}

func inlineFormat(text string) string {
	text = boldRe.ReplaceAllString(text, `<strong style="color:#1a1a1a;">$1</strong>`)
	text = italicRe.ReplaceAllString(text, `<em>$1</em>`)
	text = codeRe.ReplaceAllString(text, `<code style="background:#f5f5f5;padding:2px 5px;border-radius:3px;font-size:13px;color:#c7254e;">$1</code>`)
	return text
}

// SaveColumn writes the column HTML with a sanitized title filename.
func SaveColumn(outputDir, title, html string, now time.Time) (string, error) {
	safe := unsafeRe.ReplaceAllString(title, "_")
	if runes := []rune(safe); len(runes) > 30 {
		safe = string(runes[:30])
	}
	local := normalize.ToShanghai(now)
	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.html", safe, local.Format("20060102")))
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", outputDir, err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("column html saved", "path", path)
	return path, nil
}
