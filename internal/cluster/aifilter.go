package cluster

import (
	"regexp"
	"strings"

	"aidaily/internal/core"
)

// Topic-level AI relevance for the archive fallback path. Stricter than
// a keyword grep: commerce listings and entertainment noise are cut even
// when they mention a model name.

var aiKeywords = []string{
	"aigc", "llm", "gpt", "claude", "gemini", "deepseek", "openai",
	"anthropic", "hugging face", "huggingface", "transformer", "diffusion",
	"agent", "多模态", "大模型", "大语言模型", "人工智能", "机器学习",
	"深度学习", "智能体", "算力", "微调", "chatgpt", "copilot",
	"midjourney", "stable diffusion", "sora", "mistral", "llama",
	"qwen", "通义", "文心", "kimi", "moonshot", "百川", "智谱",
	"coze", "dify", "langchain", "rag",
}

var techKeywords = []string{
	"robot", "robotics", "embodied", "autonomous", "chip", "semiconductor",
	"cuda", "npu", "gpu", "开源", "芯片", "机器人", "具身", "自动驾驶",
}

var noiseKeywords = []string{
	"娱乐", "明星", "八卦", "足球", "篮球", "彩票", "情感", "旅游", "美食",
}

var commerceKeywords = []string{
	"淘宝", "天猫", "京东", "拼多多", "券后", "热销", "促销", "优惠",
	"补贴", "下单", "首发价", "原价", "到手", "任选",
}

var enSignalRe = regexp.MustCompile(
	`(?:^|[^a-z0-9])` +
		`(ai|aigc|llm|gpt|openai|anthropic|deepseek|gemini|claude|` +
		`robot|robotics|machine learning|artificial intelligence|` +
		`transformer|diffusion|neural|copilot|chatgpt|midjourney|sora|` +
		`llama|mistral|stable diffusion|langchain|rag)` +
		`(?:[^a-z0-9]|$)`)

// aiSiteIDs always pass: the upstream site itself is AI-only.
var aiSiteIDs = map[string]bool{"aibase": true, "aihot": true, "aihubtoday": true}

var tophubAllow = []string{
	"readhub", "hacker news", "github", "product hunt", "v2ex",
	"少数派", "infoq", "36氪", "机器之心", "量子位", "科技", "人工智能",
}

var tophubBlock = []string{
	"热销总榜", "淘宝", "天猫", "京东", "拼多多", "抖音", "快手", "微博", "小红书",
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// IsAIRelated reports whether an archived record belongs in the
// clustering input.
func IsAIRelated(rec core.ArchiveRecord) bool {
	siteID := strings.ToLower(rec.SiteID)
	source := rec.Source
	if source == "" {
		source = rec.SiteName
	}
	text := strings.ToLower(rec.Title + " " + source + " " + rec.URL)

	if containsAny(text, commerceKeywords) {
		return false
	}
	if siteID == "zeli" {
		return strings.Contains(strings.ToLower(source), "24h")
	}
	if siteID == "tophub" {
		src := strings.ToLower(source)
		if containsAny(src, tophubBlock) {
			return false
		}
		if !containsAny(src, tophubAllow) {
			return false
		}
	}
	if aiSiteIDs[siteID] {
		return true
	}

	hasAI := containsAny(text, aiKeywords) || enSignalRe.MatchString(text)
	hasTech := containsAny(text, techKeywords)
	if !hasAI && !hasTech {
		return false
	}
	if containsAny(text, noiseKeywords) && !hasAI {
		return false
	}
	return true
}
