package dedup

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// cacheFile is the on-disk shape of news_cache.json: URLs already
// published in earlier runs.
type cacheFile struct {
	ProcessedURLs []string `json:"processed_urls"`
	LastUpdate    string   `json:"last_update"`
}

// New creates a deduplicator with the title-similarity threshold and the
// cache path. An empty path disables the cross-run URL cache.
func New(threshold float64, cachePath string) *Dedup {
	d := &Dedup{
		threshold: threshold,
		cachePath: cachePath,
		seen:      make(map[string]struct{}),
	}
	d.loadCache()
	return d
}

// Dedup drops items already published (URL cache across runs) and
// near-duplicate titles within one run. Among title duplicates, an
// official source replaces a non-official incumbent.
type Dedup struct {
	threshold float64
	cachePath string
	seen      map[string]struct{}
}

func (d *Dedup) loadCache() {
	if d.cachePath == "" {
		return
	}
	data, err := os.ReadFile(d.cachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("dedup cache unreadable", "path", d.cachePath, "error", err.Error())
		}
		return
	}
	var cache cacheFile
	if err := json.Unmarshal(data, &cache); err != nil {
		logger.Warn("dedup cache corrupt, starting empty", "path", d.cachePath, "error", err.Error())
		return
	}
	for _, url := range cache.ProcessedURLs {
		d.seen[url] = struct{}{}
	}
	logger.Info("dedup cache loaded", "urls", len(d.seen))
}

func (d *Dedup) saveCache() {
	if d.cachePath == "" {
		return
	}
	urls := make([]string, 0, len(d.seen))
	for url := range d.seen {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	data, err := json.Marshal(cacheFile{
		ProcessedURLs: urls,
		LastUpdate:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Warn("dedup cache marshal failed", "error", err.Error())
		return
	}
	if err := os.MkdirAll(filepath.Dir(d.cachePath), 0o755); err != nil {
		logger.Warn("dedup cache dir failed", "error", err.Error())
		return
	}
	if err := os.WriteFile(d.cachePath, data, 0o644); err != nil {
		logger.Warn("dedup cache write failed", "error", err.Error())
	}
}

// Apply returns the unique items in score-descending order and records
// the survivors' URLs in the cross-run cache.
func (d *Dedup) Apply(items []core.ScoredItem) []core.ScoredItem {
	if len(items) == 0 {
		return nil
	}

	ordered := make([]core.ScoredItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RelevanceScore > ordered[j].RelevanceScore
	})

	var unique []core.ScoredItem
	type seenEntry struct {
		title string
		index int // position in unique
	}
	var seenTitles []seenEntry

	for _, item := range ordered {
		if _, dup := d.seen[item.Raw.URL]; dup {
			continue
		}
		title := normalize.NormalizeTitle(item.Raw.Title)

		isDup := false
		for i, entry := range seenTitles {
			if normalize.Similarity(title, entry.title) >= d.threshold {
				isDup = true
				incumbent := unique[entry.index]
				if item.Raw.SourceType == core.SourceOfficial && incumbent.Raw.SourceType != core.SourceOfficial {
					unique[entry.index] = item
					seenTitles[i].title = title
				}
				break
			}
		}
		if !isDup {
			seenTitles = append(seenTitles, seenEntry{title: title, index: len(unique)})
			unique = append(unique, item)
		}
	}

	for _, item := range unique {
		d.seen[item.Raw.URL] = struct{}{}
	}
	d.saveCache()

	logger.Info("dedup done", "in", len(items), "out", len(unique))
	return unique
}
