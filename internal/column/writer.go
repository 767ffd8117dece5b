package column

import (
	"context"
	"fmt"
	"strings"

	"aidaily/internal/llm"
	"aidaily/internal/logger"
)

const writerSystem = "你是一位资深的AI行业专栏作家，文风深入浅出，擅长把多家媒体的报道整合成有观点的深度文章。"

const fallbackTitle = "AI深度专栏"

// Writer drafts long-form column articles from collected material.
type Writer struct {
	gw        *llm.Gateway
	wordCount string
}

// NewWriter creates an article writer. wordCount is the target range,
// e.g. "800-1500".
func NewWriter(gw *llm.Gateway, wordCount string) *Writer {
	return &Writer{gw: gw, wordCount: wordCount}
}

// WriteArticle generates the column for one topic and returns its title
// and markdown body.
func (w *Writer) WriteArticle(ctx context.Context, topicTitle, materials string) (string, string, error) {
	prompt := fmt.Sprintf(`请基于以下素材，撰写一篇关于「%s」的深度专栏文章。

素材：
%s

要求：
1. 字数 %s 字
2. 正文用 Markdown 组织，使用 ## 小标题分段
3. 开头交代背景，中间分析各方动态，结尾给出观点或展望
4. 只依据素材中的事实，不要编造细节
5. 第一行以 TITLE: 开头给出文章标题，之后输出正文`,
		topicTitle, materials, w.wordCount)

	response, err := w.gw.Chat(ctx, writerSystem, prompt, 0.6, 4000)
	if err != nil {
		return "", "", fmt.Errorf("generate article: %w", err)
	}

	title, body := parseArticle(response)
	if body == "" {
		return "", "", fmt.Errorf("empty article body")
	}
	logger.Info("article generated", "title", title, "chars", len([]rune(body)))
	return title, body, nil
}

// parseArticle splits the model output into title and body. The title
// comes from a TITLE: line, else the first "# " heading, else a fixed
// fallback.
func parseArticle(raw string) (string, string) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	title := ""
	bodyStart := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToUpper(stripped), "TITLE:") {
			title = strings.Trim(strings.TrimSpace(stripped[6:]), "《》「」【】")
			continue
		}
		if stripped == "---" || stripped == "" {
			continue
		}
		bodyStart = i
		break
	}
	body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))

	if title == "" {
		for _, line := range lines {
			stripped := strings.TrimSpace(line)
			if strings.HasPrefix(stripped, "# ") {
				title = strings.TrimSpace(strings.TrimLeft(stripped, "# "))
				body = strings.TrimSpace(strings.Replace(body, line, "", 1))
				break
			}
		}
	}
	if title == "" {
		title = fallbackTitle
	}
	return title, body
}
