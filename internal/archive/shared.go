package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

// latestDocument is the on-disk shape of latest-24h.json. Older writers
// put the window items under "items", newer ones under "items_ai".
type latestDocument struct {
	GeneratedAt string               `json:"generated_at"`
	WindowHours int                  `json:"window_hours"`
	TotalItems  int                  `json:"total_items"`
	Items       []core.ArchiveRecord `json:"items"`
	ItemsAI     []core.ArchiveRecord `json:"items_ai"`
	ItemsAll    []core.ArchiveRecord `json:"items_all"`
}

// SharedLoader reads the upstream hourly-buzz data directory so the daily
// pipeline can reuse its collected items instead of refetching sources.
type SharedLoader struct {
	dir string
}

// NewSharedLoader points at the upstream data directory.
func NewSharedLoader(dir string) *SharedLoader {
	return &SharedLoader{dir: dir}
}

// Available reports whether the shared directory has any usable file.
func (l *SharedLoader) Available() bool {
	for _, name := range []string{"latest-24h.json", "archive.json"} {
		if _, err := os.Stat(filepath.Join(l.dir, name)); err == nil {
			return true
		}
	}
	return false
}

// Load returns shared items newer than windowHours, preferring
// latest-24h.json and falling back to the full archive. Source keys are
// prefixed "shared_" so scoring can still resolve the upstream site's
// priority.
func (l *SharedLoader) Load(windowHours int, now time.Time) ([]core.RawItem, error) {
	records, err := l.loadRecords()
	if err != nil {
		return nil, err
	}

	cutoff := now.UTC().Add(-time.Duration(windowHours) * time.Hour)
	var items []core.RawItem
	for _, rec := range records {
		t := EventTime(rec)
		if t == nil || t.Before(cutoff) {
			continue
		}
		item, ok := recordToItem(rec, t)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	logger.Info("shared data loaded", "dir", l.dir, "records", len(records), "in_window", len(items))
	return items, nil
}

func (l *SharedLoader) loadRecords() ([]core.ArchiveRecord, error) {
	latestPath := filepath.Join(l.dir, "latest-24h.json")
	if data, err := os.ReadFile(latestPath); err == nil {
		var doc latestDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", latestPath, err)
		}
		if len(doc.ItemsAll) > 0 {
			return doc.ItemsAll, nil
		}
		if len(doc.ItemsAI) > 0 {
			return doc.ItemsAI, nil
		}
		return doc.Items, nil
	}

	archivePath := filepath.Join(l.dir, "archive.json")
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("no shared data in %s: %w", l.dir, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", archivePath, err)
	}
	return doc.Items, nil
}

func recordToItem(rec core.ArchiveRecord, pubTime *time.Time) (core.RawItem, bool) {
	title := normalize.FixMojibake(rec.Title)
	url := normalize.CanonicalURL(rec.URL)
	if title == "" || url == "" {
		return core.RawItem{}, false
	}
	if normalize.IsPlaceholderTitle(rec.SiteID, title) {
		return core.RawItem{}, false
	}

	id := rec.ID
	if id == "" {
		id = normalize.ItemID(url)
	}
	summary := ""
	if rec.TitleEN != "" && rec.TitleEN != title {
		summary = rec.TitleEN
	}
	return core.RawItem{
		ID:         id,
		Title:      title,
		URL:        url,
		SourceKey:  "shared_" + rec.SiteID,
		SourceName: normalize.SourceDisplayName(rec.SiteID, rec.SiteName),
		SourceType: core.SourceShared,
		Language:   normalize.DetectLanguage(title),
		PubTime:    pubTime,
		Summary:    summary,
	}, true
}
