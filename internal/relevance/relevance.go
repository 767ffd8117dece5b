package relevance

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/sources"
)

//go:embed keywords.json
var keywordsJSON []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tier is one keyword tier, split by language. Entries are regular
// expressions compiled case-insensitively.
type tier struct {
	ZH []string `json:"zh"`
	EN []string `json:"en"`
}

type keywordFile struct {
	High      tier `json:"high"`
	Core      tier `json:"core"`
	Aux       tier `json:"aux"`
	Exclude   tier `json:"exclude"`
	LowSignal tier `json:"low_signal"`
}

type compiledTier struct {
	zh []*regexp.Regexp
	en []*regexp.Regexp
	// original patterns, for reporting matched keywords
	zhRaw []string
	enRaw []string
}

func (t compiledTier) forLanguage(lang string) ([]*regexp.Regexp, []string) {
	if lang == core.LangZH {
		return t.zh, t.zhRaw
	}
	return t.en, t.enRaw
}

var (
	highTier      compiledTier
	coreTier      compiledTier
	auxTier       compiledTier
	excludeTier   compiledTier
	lowSignalTier compiledTier
)

func init() {
	var file keywordFile
	if err := json.Unmarshal(keywordsJSON, &file); err != nil {
		panic(fmt.Sprintf("relevance: bad keywords.json: %v", err))
	}
	highTier = compileTier(file.High)
	coreTier = compileTier(file.Core)
	auxTier = compileTier(file.Aux)
	excludeTier = compileTier(file.Exclude)
	lowSignalTier = compileTier(file.LowSignal)
}

func compileTier(t tier) compiledTier {
	return compiledTier{
		zh:    compileAll(t.ZH),
		en:    compileAll(t.EN),
		zhRaw: t.ZH,
		enRaw: t.EN,
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

// Match is the tiered keyword result for one item's text.
type Match struct {
	High           []string
	Core           []string
	Aux            []string
	HasExclude     bool
	LowSignalCount int
}

// Pass reports whether the item clears admission: at least one core
// keyword and no exclusion hit.
func (m Match) Pass() bool {
	return len(m.Core) >= 1 && !m.HasExclude
}

// CheckKeywords runs all tiers against text in the given language.
func CheckKeywords(text, language string) Match {
	m := Match{
		High: matchTier(highTier, text, language),
		Core: matchTier(coreTier, text, language),
		Aux:  matchTier(auxTier, text, language),
	}
	exPatterns, _ := excludeTier.forLanguage(language)
	for _, re := range exPatterns {
		if re.MatchString(text) {
			m.HasExclude = true
			break
		}
	}
	lowPatterns, _ := lowSignalTier.forLanguage(language)
	for _, re := range lowPatterns {
		if re.MatchString(text) {
			m.LowSignalCount++
		}
	}
	return m
}

func matchTier(t compiledTier, text, language string) []string {
	patterns, raw := t.forLanguage(language)
	var hits []string
	for i, re := range patterns {
		if re.MatchString(text) {
			hits = append(hits, raw[i])
		}
	}
	return hits
}

var gamingKeywords = []string{"游戏", "game", "gaming", "npc", "手游", "电竞"}

// Filter scores raw items and keeps those that clear admission.
type Filter struct {
	Total     int
	Passed    int
	Excluded  int
	NoKeyword int
}

// NewFilter creates a relevance filter.
func NewFilter() *Filter {
	return &Filter{}
}

// Apply scores every item and returns the survivors sorted by relevance
// score descending. Score layers: high hits +3.0 each, core hits +1.0
// each capped at 5.0, aux hits +0.5 each capped at 2.0, source-priority
// bonus, minus 1.5 per low-value signal, floored at 0.1.
func (f *Filter) Apply(items []core.RawItem) []core.ScoredItem {
	f.Total = len(items)
	var results []core.ScoredItem

	for _, item := range items {
		lang := item.Language
		if lang == "" {
			lang = core.LangEN
		}
		text := item.Title + " " + item.Summary + " " + item.Content
		m := CheckKeywords(text, lang)

		if m.HasExclude {
			f.Excluded++
			continue
		}
		if !m.Pass() {
			f.NoKeyword++
			continue
		}
		f.Passed++

		score := float64(len(m.High)) * 3.0
		score += min(float64(len(m.Core))*1.0, 5.0)
		score += min(float64(len(m.Aux))*0.5, 2.0)
		score += sources.Bonus(sources.Priority(item.SourceKey))
		score -= float64(m.LowSignalCount) * 1.5
		if score < 0.1 {
			score = 0.1
		}

		matched := make([]string, 0, len(m.High)+len(m.Core)+len(m.Aux))
		matched = append(matched, m.High...)
		matched = append(matched, m.Core...)
		matched = append(matched, m.Aux...)

		results = append(results, core.ScoredItem{
			Raw:             item,
			RelevanceScore:  round2(score),
			KeywordsMatched: matched,
			IsGamingRelated: isGaming(text),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	logger.Info("relevance filter done",
		"total", f.Total, "passed", f.Passed,
		"excluded", f.Excluded, "no_keywords", f.NoKeyword)
	return results
}

func isGaming(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range gamingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	if v >= 0 {
		return float64(int(v*100+0.5)) / 100
	}
	return float64(int(v*100-0.5)) / 100
}
