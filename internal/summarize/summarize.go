package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"aidaily/internal/core"
	"aidaily/internal/llm"
	"aidaily/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	maxContentPerItem = 600  // runes per item in a batch prompt
	maxTotalChars     = 2500 // runes across one batch prompt
	maxSingleContent  = 1200 // runes for a single-item prompt

	batchSystem  = "你是科技新闻编辑，按JSON数组格式输出摘要。"
	singleSystem = "你是科技新闻编辑，生成简洁中文摘要。"
)

// invalidKeywords mark a summary where the model claimed it had nothing
// to work with. Such items are dropped from the digest.
var invalidKeywords = []string{
	"正文内容为空", "正文内容缺失", "正文缺失", "内容为空", "内容缺失",
	"无法生成有效摘要", "无法生成摘要", "未能获取", "无法获取",
	"没有提供正文", "缺少正文", "正文为空", "无正文", "无法提取",
	"content is empty", "no content", "content missing",
}

// IsInvalid reports whether a generated summary is unusable.
func IsInvalid(summary string) bool {
	if summary == "" {
		return true
	}
	lower := strings.ToLower(summary)
	for _, kw := range invalidKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Summarizer generates Chinese summaries through the LLM gateway,
// batching items to cut call volume and falling back to per-item calls
// when a batch response cannot be used.
type Summarizer struct {
	gw        *llm.Gateway
	batchSize int
}

// New creates a summarizer.
func New(gw *llm.Gateway, batchSize int) *Summarizer {
	if batchSize < 1 {
		batchSize = 2
	}
	return &Summarizer{gw: gw, batchSize: batchSize}
}

// Apply fills SummaryCN for every item in place. Items the model could
// not summarize keep their feed summary as a last resort.
func (s *Summarizer) Apply(ctx context.Context, items []core.ScoredItem) {
	logger.Info("summarizing", "items", len(items), "batch_size", s.batchSize)

	for start := 0; start < len(items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		if len(batch) > 1 {
			if summaries := s.summarizeBatch(ctx, batch); summaries != nil {
				for i := range batch {
					if i < len(summaries) {
						batch[i].SummaryCN = strings.TrimSpace(summaries[i])
					}
				}
				continue
			}
		}
		for i := range batch {
			if batch[i].SummaryCN != "" {
				continue
			}
			if summary := s.summarizeSingle(ctx, &batch[i]); summary != "" {
				batch[i].SummaryCN = summary
			}
		}
	}

	missing := 0
	for i := range items {
		if items[i].SummaryCN == "" {
			items[i].SummaryCN = items[i].Raw.Summary
			missing++
		}
	}
	if missing > 0 {
		logger.Warn("items without generated summary", "count", missing)
	}
	logger.Info("summaries done", "tokens_used", s.gw.TokensUsed())
}

// Drop removes items whose summary is invalid and returns the rest.
func Drop(items []core.ScoredItem) []core.ScoredItem {
	kept := items[:0]
	for _, item := range items {
		if IsInvalid(item.SummaryCN) {
			continue
		}
		kept = append(kept, item)
	}
	if dropped := len(items) - len(kept); dropped > 0 {
		logger.Info("invalid summaries dropped", "dropped", dropped, "kept", len(kept))
	}
	return kept
}

// summarizeBatch asks for one JSON array covering the whole batch.
// Returns nil when the prompt would be too long or the response cannot
// be parsed into exactly len(batch) entries.
func (s *Summarizer) summarizeBatch(ctx context.Context, batch []core.ScoredItem) []string {
	var entries []string
	totalChars := 0
	for i, item := range batch {
		content := itemContent(item)
		content = truncate(content, maxContentPerItem)

		langLabel := "中文"
		if item.Raw.Language == core.LangEN {
			langLabel = "英文"
		}
		entry := fmt.Sprintf("【新闻%d】(%s)\n标题: %s\n正文: %s", i+1, langLabel, item.Raw.Title, content)
		entries = append(entries, entry)

		totalChars += len([]rune(entry))
		if totalChars > maxTotalChars {
			logger.Warn("batch prompt too long, falling back to single calls", "chars", totalChars)
			return nil
		}
	}

	prompt := fmt.Sprintf(
		"为以下%d条新闻各生成50-80字中文摘要，英文新闻先翻译再总结，正文不足时根据标题推断，按JSON数组输出[\"摘要1\",\"摘要2\"]，只输出数组：\n\n%s",
		len(batch), strings.Join(entries, "\n"))

	response, err := s.gw.Chat(ctx, batchSystem, prompt, 0.3, 1500)
	if err != nil {
		logger.Warn("batch summarize call failed", "error", err.Error())
		return nil
	}

	summaries := parseBatchResponse(response)
	if len(summaries) != len(batch) {
		if len(summaries) > 0 {
			logger.Warn("batch summary count mismatch", "want", len(batch), "got", len(summaries))
		}
		return nil
	}
	return summaries
}

var fenceOpenRe = regexp.MustCompile("^```\\w*\\n?")
var fenceCloseRe = regexp.MustCompile("\\n?```$")
var arrayRe = regexp.MustCompile(`\[[\s\S]*\]`)

// parseBatchResponse tolerates code fences, surrounding prose, and
// array elements that come back as objects instead of strings.
func parseBatchResponse(response string) []string {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = fenceOpenRe.ReplaceAllString(cleaned, "")
		cleaned = fenceCloseRe.ReplaceAllString(cleaned, "")
	}
	if match := arrayRe.FindString(cleaned); match != "" {
		cleaned = match
	}

	var raw []any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		logger.Warn("batch summary parse failed", "error", err.Error())
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case map[string]any:
			if s, ok := t["content"].(string); ok {
				out = append(out, s)
			} else if s, ok := t["summary"].(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", t))
			}
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

func (s *Summarizer) summarizeSingle(ctx context.Context, item *core.ScoredItem) string {
	content := itemContent(*item)
	if content == "" {
		content = item.Raw.Title
	}
	content = truncate(content, maxSingleContent)

	var prompt string
	if item.Raw.Language == core.LangZH {
		prompt = fmt.Sprintf(
			"为以下新闻生成100-150字中文摘要，提取核心事件，保持客观，保留公司名原名，正文不足时根据标题推断，直接输出摘要：\n\n标题：%s\n正文：%s",
			item.Raw.Title, content)
	} else {
		prompt = fmt.Sprintf(
			"将以下英文新闻翻译并总结成100-150字中文摘要，提取核心事件，保持客观，保留公司名原名，正文不足时根据标题推断，直接输出摘要：\n\nTitle: %s\nContent: %s",
			item.Raw.Title, content)
	}

	response, err := s.gw.Chat(ctx, singleSystem, prompt, 0.3, 500)
	if err != nil {
		logger.Warn("single summarize call failed", "title", item.Raw.Title, "error", err.Error())
		return ""
	}
	return strings.Trim(strings.TrimSpace(response), `"'`)
}

func itemContent(item core.ScoredItem) string {
	if item.Raw.Content != "" {
		return item.Raw.Content
	}
	return item.Raw.Summary
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
