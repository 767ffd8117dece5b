package sources

import "strings"

// Extraction methods describing how much content a source yields.
const (
	MethodReadability = "readability" // full body reachable via extraction
	MethodRSSContent  = "rss_content" // feed carries the full body
	MethodRSSHTML     = "rss_html"    // feed carries body as HTML
	MethodSummaryOnly = "summary_only"
	MethodWebScrape   = "web_scrape"
)

// Source describes one configured ingestion source.
type Source struct {
	Key        string
	Name       string
	URL        string
	SourceType string // official / en_media / zh_media
	Language   string // zh / en
	Method     string
}

// Registry is the static source table used when the shared upstream feed
// is unavailable or too thin.
var Registry = []Source{
	{Key: "google_research", Name: "Google Research Blog", URL: "https://research.google/blog/rss/", SourceType: "official", Language: "en", Method: MethodReadability},
	{Key: "techcrunch_ai", Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", SourceType: "en_media", Language: "en", Method: MethodReadability},
	{Key: "theverge", Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", SourceType: "en_media", Language: "en", Method: MethodReadability},
	{Key: "github_blog", Name: "GitHub Blog", URL: "https://github.blog/feed/", SourceType: "official", Language: "en", Method: MethodReadability},
	{Key: "google_workspace", Name: "Google Workspace Updates", URL: "https://feeds.feedburner.com/GoogleAppsUpdates", SourceType: "official", Language: "en", Method: MethodRSSContent},
	{Key: "google_deepmind", Name: "Google DeepMind Blog", URL: "https://deepmind.google/blog/rss.xml", SourceType: "official", Language: "en", Method: MethodSummaryOnly},
	{Key: "google_blog", Name: "Google Blog", URL: "https://blog.google/rss/", SourceType: "official", Language: "en", Method: MethodSummaryOnly},
	{Key: "claude_anthropic", Name: "Claude (Anthropic)", URL: "https://www.anthropic.com/rss.xml", SourceType: "official", Language: "en", Method: MethodSummaryOnly},
	{Key: "xin_zhiyuan", Name: "新智元", URL: "https://wechat2rss.bestblogs.dev/feed/xinzhiyuan.xml", SourceType: "zh_media", Language: "zh", Method: MethodSummaryOnly},
	{Key: "jiqizhixin", Name: "机器之心", URL: "https://www.jiqizhixin.com/rss", SourceType: "zh_media", Language: "zh", Method: MethodRSSHTML},
	{Key: "36kr_ai", Name: "36氪AI频道", URL: "https://36kr.com/information/AI", SourceType: "zh_media", Language: "zh", Method: MethodWebScrape},
	{Key: "techmeme", Name: "Techmeme", URL: "https://techmeme.com", SourceType: "en_media", Language: "en", Method: MethodWebScrape},
}

// RSSSources returns the registry entries fetched through the RSS parser.
func RSSSources() []Source {
	out := make([]Source, 0, len(Registry))
	for _, s := range Registry {
		if s.Method != MethodWebScrape {
			out = append(out, s)
		}
	}
	return out
}

// ScrapeSources returns the registry entries fetched by HTML scraping.
func ScrapeSources() []Source {
	out := make([]Source, 0, 2)
	for _, s := range Registry {
		if s.Method == MethodWebScrape {
			out = append(out, s)
		}
	}
	return out
}

// priorityTable ranks sources for the scoring bonus: 1 is highest.
var priorityTable = map[string]int{
	"openai":           1,
	"google_blog":      1,
	"google_research":  1,
	"google_workspace": 1,
	"google_deepmind":  1,
	"anthropic":        1,
	"claude_anthropic": 1,
	"github":           1,
	"github_blog":      1,
	"techcrunch":       2,
	"techcrunch_ai":    2,
	"theverge":         2,
	"techmeme":         2,
	"36kr":             3,
	"36kr_ai":          3,
	"qbitai":           3,
	"jiqizhixin":       3,
	"xin_zhiyuan":      3,
}

// Priority returns the priority tier for a source key, default 4. Shared
// items carry a "shared_" prefix that is stripped before lookup; a bare
// "shared" key has no suffix and falls through to the default.
func Priority(sourceKey string) int {
	key := strings.ToLower(strings.TrimPrefix(sourceKey, "shared_"))
	if p, ok := priorityTable[key]; ok {
		return p
	}
	return 4
}

// Bonus maps a priority tier to its score bonus.
func Bonus(priority int) float64 {
	switch priority {
	case 1:
		return 2.0
	case 2:
		return 1.5
	case 3:
		return 1.0
	default:
		return 0
	}
}
