package classify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"aidaily/internal/core"
	"aidaily/internal/llm"
	"aidaily/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source keys whose category is fixed regardless of content.
var bigTechSources = map[string]bool{
	"claude_anthropic": true, "google_blog": true, "google_workspace": true,
	"google_deepmind": true, "google_research": true,
}

var techSources = map[string]bool{"hackernews": true, "v2ex": true}

var gamingKeywords = []string{
	"游戏", "game", "gaming", "npc", "手游", "端游",
	"电竞", "esport", "玩家", "player", "买量", "获客",
	"游戏发行", "app store", "google play", "游戏公司",
	"游戏开发", "虚拟人", "数字人", "ugc", "unity", "unreal",
}

var bigTechCompanies = []string{
	"openai", "google", "meta", "microsoft", "anthropic", "deepmind", "facebook",
}

var bigTechActions = []string{
	"收购", "并购", "merger", "acquisition", "战略", "策略", "投资", "融资",
	"funding", "ipo", "上市", "估值", "valuation",
}

var productKeywords = []string{
	"发布", "launch", "推出", "release", "上线", "工具", "tool",
	"平台", "platform", "产品", "product", "应用", "app", "application",
	"功能", "feature", "服务", "service", "api", "插件", "plugin",
	"更新", "update", "升级", "upgrade",
}

var techKeywords = []string{
	"模型", "model", "gpt", "llm", "大模型", "算法", "algorithm",
	"训练", "training", "推理", "inference", "参数", "parameter",
	"transformer", "diffusion", "gan", "技术突破", "breakthrough",
	"benchmark", "性能", "performance", "架构", "architecture",
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Rule classifies one item by source and keyword rules. The chain is
// ordered: source pins, gaming, big-tech company+action, product, tech,
// then the industry-news catch-all, so every item lands somewhere.
func Rule(title, summary, sourceKey string) string {
	if sourceKey != "" {
		key := strings.TrimPrefix(sourceKey, "shared_")
		if bigTechSources[key] {
			return core.CategoryBigTech
		}
		if key == "producthunt" {
			return core.CategoryAIProducts
		}
		if techSources[key] {
			return core.CategoryAITech
		}
	}

	text := strings.ToLower(title + " " + summary)

	if containsAny(text, gamingKeywords) {
		return core.CategoryAIGaming
	}
	if containsAny(text, bigTechCompanies) && containsAny(text, bigTechActions) {
		return core.CategoryBigTech
	}
	if containsAny(text, productKeywords) {
		return core.CategoryAIProducts
	}
	if containsAny(text, techKeywords) {
		return core.CategoryAITech
	}
	return core.CategoryIndustryNews
}

// Classifier buckets scored items into the five digest categories.
type Classifier struct {
	gw *llm.Gateway
}

// New creates a classifier. gw may be nil for rule-only operation.
func New(gw *llm.Gateway) *Classifier {
	return &Classifier{gw: gw}
}

// Apply assigns a category to every item and returns the items grouped
// by category. With useAI the LLM refines the ruling in batches of 10,
// falling back to rules per failed batch.
func (c *Classifier) Apply(ctx context.Context, items []core.ScoredItem, useAI bool) map[string][]core.ScoredItem {
	categories := make(map[string]string, len(items))

	if useAI && c.gw != nil && c.gw.Configured() {
		c.classifyWithAI(ctx, items, categories)
	}

	result := make(map[string][]core.ScoredItem, len(core.CategoryOrder))
	for _, cat := range core.CategoryOrder {
		result[cat] = nil
	}
	for i := range items {
		cat, ok := categories[itemKey(i)]
		if !ok || !validCategory(cat) {
			summary := items[i].SummaryCN
			if summary == "" {
				summary = items[i].Raw.Summary
			}
			cat = Rule(items[i].Raw.Title, summary, items[i].Raw.SourceKey)
		}
		items[i].Category = cat
		result[cat] = append(result[cat], items[i])
	}

	for _, cat := range core.CategoryOrder {
		logger.Info("category sized", "category", core.CategoryNames[cat], "items", len(result[cat]))
	}
	return result
}

func itemKey(i int) string { return strconv.Itoa(i) }

func validCategory(cat string) bool {
	_, ok := core.CategoryNames[cat]
	return ok
}

const aiBatchSize = 10

var fenceOpenRe = regexp.MustCompile("^```\\w*\\n?")
var fenceCloseRe = regexp.MustCompile("\\n?```$")

// classifyWithAI fills categories keyed by global item index. Failed
// batches are simply left unfilled; the rule path covers them.
func (c *Classifier) classifyWithAI(ctx context.Context, items []core.ScoredItem, categories map[string]string) {
	for start := 0; start < len(items); start += aiBatchSize {
		end := start + aiBatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		type entry struct {
			Index   int    `json:"index"`
			Title   string `json:"title"`
			Summary string `json:"summary"`
		}
		entries := make([]entry, len(batch))
		for i, item := range batch {
			title := item.TitleCN
			if title == "" {
				title = item.Raw.Title
			}
			summary := item.SummaryCN
			if summary == "" {
				summary = item.Raw.Summary
			}
			entries[i] = entry{Index: i, Title: title, Summary: truncateRunes(summary, 200)}
		}
		payload, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			continue
		}

		prompt := fmt.Sprintf(`请对以下新闻进行分类，从五个类别中选择一个最合适的：

1. big_tech - 大厂动态：OpenAI、Google、Meta、Microsoft等外部公司的重大动作
2. ai_products - AI应用与产品：AI工具、平台、商业化产品发布
3. ai_tech - AI模型与技术：模型、算法、技术进展、基础能力提升
4. ai_gaming - AI与游戏：AI在游戏开发、发行、运营中的应用
5. industry_news - 行业新闻：不属于以上四类，但仍具行业意义

新闻列表：
%s

请按JSON格式输出，如: {"0": "big_tech", "1": "ai_products", ...}
只输出JSON，不要其他内容。`, string(payload))

		response, err := c.gw.Chat(ctx, "你是科技新闻编辑，擅长对新闻进行准确分类。", prompt, 0.1, 500)
		if err != nil {
			logger.Warn("ai classify batch failed", "start", start, "error", err.Error())
			continue
		}

		cleaned := strings.TrimSpace(response)
		if strings.HasPrefix(cleaned, "```") {
			cleaned = fenceOpenRe.ReplaceAllString(cleaned, "")
			cleaned = fenceCloseRe.ReplaceAllString(cleaned, "")
		}
		var parsed map[string]string
		if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
			logger.Warn("ai classify parse failed", "start", start, "error", err.Error())
			continue
		}
		for key, cat := range parsed {
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(batch) {
				continue
			}
			categories[itemKey(start+idx)] = strings.TrimSpace(cat)
		}
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
