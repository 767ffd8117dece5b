package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// titleMarkers are leading editorial markers stripped before comparing
// titles for similarity.
var titleMarkers = []string{"ai ", "人工智能 ", "突发 ", "快讯 ", "重磅 ", "独家 "}

// NormalizeTitle lowercases a title, strips punctuation, and removes
// leading marker words, producing the form used for similarity checks.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	for _, marker := range titleMarkers {
		if strings.HasPrefix(out, marker) {
			out = out[len(marker):]
			break
		}
	}
	return strings.TrimSpace(out)
}

// Similarity returns the longest-common-subsequence ratio between two
// strings: 2*LCS / (len(a)+len(b)), over runes. 1.0 means identical.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	ra, rb := []rune(a), []rune(b)
	lcs := lcsLength(ra, rb)
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// repoTitleRe matches GitHub-style "org/repo" titles, which carry no
// editorial signal for clustering.
var repoTitleRe = regexp.MustCompile(`^[\w.-]+\s*/\s*[\w.-]+$`)

// IsRepoTitle reports whether a title is of the bare org/repo form.
func IsRepoTitle(title string) bool {
	return repoTitleRe.MatchString(strings.TrimSpace(title))
}

// sourceDisplayNames maps (site_id, raw source) pairs to display names.
// Raw source strings from aggregator sites are inconsistent across runs.
var sourceDisplayNames = map[string]map[string]string{
	"aihubtoday": {
		"":         "AI Hub Today",
		"aihub":    "AI Hub Today",
		"AI数字人":    "AI Hub Today",
		"hubtoday": "AI Hub Today",
	},
	"tophub": {
		"36kr":  "36氪",
		"qbit":  "量子位",
		"jiqi":  "机器之心",
		"v2ex":  "V2EX",
		"ifeng": "凤凰网科技",
	},
	"zeli": {
		"hn": "Hacker News 24h",
	},
}

// SourceDisplayName normalizes a raw source string to its display name.
// Unknown pairs return the raw source unchanged.
func SourceDisplayName(siteID, rawSource string) string {
	if m, ok := sourceDisplayNames[strings.ToLower(siteID)]; ok {
		if name, ok := m[rawSource]; ok {
			return name
		}
		if name, ok := m[strings.ToLower(rawSource)]; ok {
			return name
		}
	}
	return rawSource
}

// placeholderTitles are known filler rows emitted by aggregator sites
// while their own pipelines are still populating.
var placeholderTitles = []string{
	"今日AI资讯", "资讯加载中", "loading", "暂无内容", "更新中",
}

// IsPlaceholderTitle reports whether a title from a known site is a
// placeholder row rather than a real article.
func IsPlaceholderTitle(siteID, title string) bool {
	if strings.ToLower(siteID) != "aihubtoday" {
		return false
	}
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return true
	}
	for _, p := range placeholderTitles {
		if strings.Contains(t, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
