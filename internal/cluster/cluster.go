package cluster

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"aidaily/internal/normalize"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed entities.json
var entitiesJSON []byte

type entityPattern struct {
	Pattern string `json:"pattern"`
	Name    string `json:"name"`
}

type compiledEntity struct {
	re   *regexp.Regexp
	name string
}

var entityPatterns []compiledEntity

func init() {
	var raw []entityPattern
	if err := json.Unmarshal(entitiesJSON, &raw); err != nil {
		panic(fmt.Sprintf("cluster: bad entities.json: %v", err))
	}
	entityPatterns = make([]compiledEntity, len(raw))
	for i, p := range raw {
		entityPatterns[i] = compiledEntity{re: regexp.MustCompile(p.Pattern), name: p.Name}
	}
}

// ExtractEntities pulls normalized company/product/concept names out of
// free text.
func ExtractEntities(text string) map[string]bool {
	out := make(map[string]bool)
	for _, ep := range entityPatterns {
		if ep.re.MatchString(text) {
			out[ep.name] = true
		}
	}
	return out
}

// genericEntities are concept entities that alone must not glue two
// clusters together; overlap needs at least one concrete name besides.
var genericEntities = map[string]bool{
	"safety": true, "pledge": true, "policy": true, "fundraise": true,
	"acquisition": true, "agent": true, "autonomous": true, "gpt": true,
}

// minTitleLen is the minimum normalized title length (runes) for a title
// to participate in clustering.
const minTitleLen = 8

// NewsItem is the lightweight view clustered by the topic selector.
type NewsItem struct {
	ID          string
	Title       string
	TitleZH     string
	TitleEN     string
	URL         string
	Source      string
	SiteID      string
	PublishedAt string
	Entities    map[string]bool
}

// bestTitle prefers the Chinese title when it is substantial.
func (n NewsItem) bestTitle() string {
	if n.TitleZH != "" && utf8.RuneCountInString(n.TitleZH) > 8 {
		return n.TitleZH
	}
	if n.Title != "" {
		return n.Title
	}
	return n.TitleZH
}

// clusterTitle is the title used for similarity comparison.
func (n NewsItem) clusterTitle() string {
	if n.TitleZH != "" {
		return n.TitleZH
	}
	return n.Title
}

// TopicCluster is one candidate hot topic: articles about the same event
// from possibly many sources.
type TopicCluster struct {
	Articles            []NewsItem
	Sources             map[string]bool
	Entities            map[string]bool
	RepresentativeTitle string
}

// NewTopicCluster seeds a cluster with one article.
func NewTopicCluster(seed NewsItem) *TopicCluster {
	c := &TopicCluster{
		Sources:  map[string]bool{seed.SiteID: true},
		Entities: make(map[string]bool),
	}
	for e := range seed.Entities {
		c.Entities[e] = true
	}
	c.Articles = []NewsItem{seed}
	c.RepresentativeTitle = pickTitle(seed)
	return c
}

// Count is the number of clustered articles.
func (c *TopicCluster) Count() int { return len(c.Articles) }

// SourceCount is the number of distinct sites reporting the topic.
func (c *TopicCluster) SourceCount() int { return len(c.Sources) }

// TryAdd attaches an article when either its title is similar to an
// existing member or its entities overlap enough. Comparison stops at
// the first 10 members to bound cost on large clusters.
func (c *TopicCluster) TryAdd(item NewsItem, threshold float64) bool {
	itemTitle := normalize.NormalizeTitle(item.clusterTitle())
	if utf8.RuneCountInString(itemTitle) < minTitleLen {
		return false
	}

	limit := len(c.Articles)
	if limit > 10 {
		limit = 10
	}
	for _, existing := range c.Articles[:limit] {
		existingTitle := normalize.NormalizeTitle(existing.clusterTitle())
		if utf8.RuneCountInString(existingTitle) < minTitleLen {
			continue
		}
		if normalize.Similarity(itemTitle, existingTitle) >= threshold {
			c.add(item)
			return true
		}
	}

	// Entity overlap: at least 2 shared entities of which at least one
	// is a concrete name, so concept words alone never merge topics.
	if len(item.Entities) > 0 && len(c.Entities) > 0 {
		overlap := 0
		concrete := 0
		for e := range item.Entities {
			if !c.Entities[e] {
				continue
			}
			overlap++
			if !genericEntities[e] {
				concrete++
			}
		}
		if concrete >= 1 && overlap >= 2 {
			c.add(item)
			return true
		}
	}
	return false
}

func (c *TopicCluster) add(item NewsItem) {
	c.Articles = append(c.Articles, item)
	c.Sources[item.SiteID] = true
	for e := range item.Entities {
		c.Entities[e] = true
	}
	if title := pickTitle(item); titleScore(title) > titleScore(c.RepresentativeTitle) {
		c.RepresentativeTitle = title
	}
}

// pickTitle chooses an article's display title, skipping repo-name
// formats like "owner/repo".
func pickTitle(item NewsItem) string {
	zh := item.TitleZH
	en := item.Title
	if zh != "" && utf8.RuneCountInString(zh) > 8 && !normalize.IsRepoTitle(zh) {
		return zh
	}
	if en != "" && !normalize.IsRepoTitle(en) {
		return en
	}
	if zh != "" {
		return zh
	}
	return en
}

// titleScore prefers Chinese titles of moderate length.
func titleScore(title string) int {
	score := 0
	if normalize.HanRatio(title) > 0 {
		score += 10
	}
	n := utf8.RuneCountInString(title)
	switch {
	case n >= 15 && n <= 50:
		score += 5
	case n >= 10 && n <= 60:
		score += 2
	}
	return score
}

// SampleTitles returns up to maxN distinct member titles, skipping short
// and repo-format ones.
func (c *TopicCluster) SampleTitles(maxN int) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, a := range c.Articles {
		t := a.bestTitle()
		normalized := normalize.NormalizeTitle(t)
		if utf8.RuneCountInString(normalized) < minTitleLen {
			continue
		}
		if normalize.IsRepoTitle(t) {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		titles = append(titles, t)
		if len(titles) >= maxN {
			break
		}
	}
	return titles
}

// EntityList returns up to maxN entity names, sorted for determinism.
func (c *TopicCluster) EntityList(maxN int) []string {
	out := make([]string, 0, len(c.Entities))
	for e := range c.Entities {
		out = append(out, e)
	}
	sort.Strings(out)
	if len(out) > maxN {
		out = out[:maxN]
	}
	return out
}

// SourceList returns the distinct reporting sites, sorted.
func (c *TopicCluster) SourceList() []string {
	out := make([]string, 0, len(c.Sources))
	for s := range c.Sources {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
