package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"aidaily/internal/archive"
	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

// Options are the clustering tunables.
type Options struct {
	SimilarityThreshold float64
	MinArticles         int
	TimeWindowHours     int
	MaxCandidates       int
}

// Selector finds hot topics: events reported by several sources inside
// the time window.
type Selector struct {
	opts     Options
	clusters []*TopicCluster
}

// NewSelector creates a topic selector.
func NewSelector(opts Options) *Selector {
	return &Selector{opts: opts}
}

// LoadNews reads clustering input from the shared data directory,
// preferring the prefiltered items_ai of latest-24h.json and falling
// back to the full archive with our own AI filter.
func (s *Selector) LoadNews(sharedDir string, now time.Time) ([]NewsItem, error) {
	records, fromLatest, err := loadAIRecords(sharedDir)
	if err != nil {
		return nil, err
	}

	cutoff := now.UTC().Add(-time.Duration(s.opts.TimeWindowHours) * time.Hour)
	var items []NewsItem
	for _, rec := range records {
		if t := recordEventTime(rec); t != nil && t.Before(cutoff) {
			continue
		}
		if utf8.RuneCountInString(rec.Title) < 5 {
			continue
		}
		id := rec.ID
		if id == "" {
			id = normalize.ItemID(rec.URL)
		}
		items = append(items, NewsItem{
			ID:          id,
			Title:       rec.Title,
			TitleZH:     rec.TitleZH,
			TitleEN:     rec.TitleEN,
			URL:         rec.URL,
			Source:      firstNonEmpty(rec.Source, rec.SiteName),
			SiteID:      rec.SiteID,
			PublishedAt: rec.PublishedAt,
			Entities:    ExtractEntities(rec.Title + " " + rec.TitleZH),
		})
	}
	logger.Info("cluster input loaded",
		"records", len(records), "in_window", len(items), "from_latest", fromLatest)
	return items, nil
}

func loadAIRecords(sharedDir string) ([]core.ArchiveRecord, bool, error) {
	latestPath := filepath.Join(sharedDir, "latest-24h.json")
	if data, err := os.ReadFile(latestPath); err == nil {
		var payload archive.LatestPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, false, fmt.Errorf("parse %s: %w", latestPath, err)
		}
		return payload.ItemsAI, true, nil
	}

	archivePath := filepath.Join(sharedDir, "archive.json")
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, false, fmt.Errorf("no cluster input in %s: %w", sharedDir, err)
	}
	var doc archive.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", archivePath, err)
	}
	var filtered []core.ArchiveRecord
	for _, rec := range doc.Items {
		if IsAIRelated(rec) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, false, nil
}

func recordEventTime(rec core.ArchiveRecord) *time.Time {
	for _, raw := range []string{rec.PublishedAt, rec.FirstSeenAt, rec.LastSeenAt} {
		if t := normalize.ParseTime(raw); t != nil {
			return t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Cluster groups items greedily: each item joins the first cluster that
// accepts it, otherwise seeds a new one. Hot clusters need MinArticles
// members from at least 2 sites and at least 2 non-repo-format titles.
func (s *Selector) Cluster(items []NewsItem) []*TopicCluster {
	var clusters []*TopicCluster
	for _, item := range items {
		title := normalize.NormalizeTitle(item.clusterTitle())
		if utf8.RuneCountInString(title) < minTitleLen {
			continue
		}
		added := false
		for _, c := range clusters {
			if c.TryAdd(item, s.opts.SimilarityThreshold) {
				added = true
				break
			}
		}
		if !added {
			clusters = append(clusters, NewTopicCluster(item))
		}
	}

	var hot []*TopicCluster
	for _, c := range clusters {
		if c.Count() < s.opts.MinArticles || c.SourceCount() < 2 {
			continue
		}
		realTitles := 0
		for _, a := range c.Articles {
			if !normalize.IsRepoTitle(a.clusterTitle()) {
				realTitles++
			}
		}
		if realTitles >= 2 {
			hot = append(hot, c)
		}
	}

	sort.SliceStable(hot, func(i, j int) bool {
		return hot[i].Count()*hot[i].SourceCount() > hot[j].Count()*hot[j].SourceCount()
	})
	if len(hot) > s.opts.MaxCandidates {
		hot = hot[:s.opts.MaxCandidates]
	}
	s.clusters = hot

	logger.Info("clustering done",
		"clusters", len(clusters), "hot", len(hot), "min_articles", s.opts.MinArticles)
	return hot
}

// Candidates returns the hot clusters as operator-facing candidates.
func (s *Selector) Candidates() []core.Candidate {
	out := make([]core.Candidate, 0, len(s.clusters))
	for i, c := range s.clusters {
		out = append(out, core.Candidate{
			TopicID:      i,
			Title:        c.RepresentativeTitle,
			ArticleCount: c.Count(),
			SourceCount:  c.SourceCount(),
			SampleTitles: c.SampleTitles(5),
			Sources:      c.SourceList(),
			Entities:     c.EntityList(10),
		})
	}
	return out
}

// ClusterByID returns the hot cluster at a zero-based topic index.
func (s *Selector) ClusterByID(topicID int) (*TopicCluster, bool) {
	if topicID < 0 || topicID >= len(s.clusters) {
		return nil, false
	}
	return s.clusters[topicID], true
}

// candidateFile is the on-disk shape of candidates.json, bridging the
// discover and generate steps of the column workflow.
type candidateFile struct {
	GeneratedAt string           `json:"generated_at"`
	Candidates  []core.Candidate `json:"candidates"`
}

// SaveCandidates writes candidates.json for a later generate run.
func SaveCandidates(path string, candidates []core.Candidate, now time.Time) error {
	data, err := json.MarshalIndent(candidateFile{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Candidates:  candidates,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadCandidates reads a previously saved candidates.json.
func LoadCandidates(path string) ([]core.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file candidateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Candidates, nil
}
