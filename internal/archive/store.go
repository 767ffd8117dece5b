package archive

import (
	"fmt"
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

// StreamSourceID is the one site whose feed carries canonical publication
// timestamps; its sightings may overwrite an existing published_at.
const StreamSourceID = "opmlrss"

// Document is the on-disk shape of archive.json.
type Document struct {
	GeneratedAt string               `json:"generated_at"`
	TotalItems  int                  `json:"total_items"`
	Items       []core.ArchiveRecord `json:"items"`
}

// Store is the persistent archive of every item ever seen, keyed by item
// ID. Read once at pipeline start, written once at the end.
type Store struct {
	path    string
	records map[string]core.ArchiveRecord
}

// Open reads archive.json from dir. A missing file yields an empty store.
func Open(dir string) (*Store, error) {
	s := &Store{
		path:    filepath.Join(dir, "archive.json"),
		records: make(map[string]core.ArchiveRecord),
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read archive %s: %w", s.path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse archive %s: %w", s.path, err)
	}
	for _, rec := range doc.Items {
		if rec.ID != "" {
			s.records[rec.ID] = rec
		}
	}
	logger.Info("archive loaded", "items", len(s.records))
	return s, nil
}

// Len returns the number of archived records.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns the record for an ID.
func (s *Store) Get(id string) (core.ArchiveRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Records returns all archived records, unordered.
func (s *Store) Records() []core.ArchiveRecord {
	out := make([]core.ArchiveRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

// Upsert folds one sighting into the archive. New IDs are inserted with
// first_seen_at == last_seen_at == now; existing records refresh their
// mutable fields and last_seen_at. published_at is overwritten only for
// the stream source, or when the record has none yet.
func (s *Store) Upsert(siteID, siteName, source, title, url string, publishedAt *time.Time, now time.Time) {
	url = normalize.CanonicalURL(url)
	if title == "" || url == "" {
		return
	}
	id := normalize.ItemID(url)
	nowISO := now.UTC().Format(time.RFC3339)

	rec, ok := s.records[id]
	if !ok {
		rec = core.ArchiveRecord{
			ID:          id,
			FirstSeenAt: nowISO,
		}
	}
	rec.SiteID = siteID
	rec.SiteName = siteName
	rec.Source = source
	rec.Title = title
	rec.URL = url
	rec.LastSeenAt = nowISO
	if publishedAt != nil && (siteID == StreamSourceID || rec.PublishedAt == "") {
		rec.PublishedAt = publishedAt.UTC().Format(time.RFC3339)
	}
	s.records[id] = rec
}

// UpsertItem folds a RawItem sighting into the archive.
func (s *Store) UpsertItem(item core.RawItem, now time.Time) {
	s.Upsert(item.SourceKey, item.SourceName, item.SourceName, item.Title, item.URL, item.PubTime, now)
}

// Prune drops records whose newest timestamp (max of last_seen_at,
// published_at, first_seen_at) is older than retainDays. Called once at
// end of run, never during ingestion.
func (s *Store) Prune(retainDays int, now time.Time) int {
	cutoff := now.UTC().AddDate(0, 0, -retainDays)
	dropped := 0
	for id, rec := range s.records {
		if recordTime(rec, now).Before(cutoff) {
			delete(s.records, id)
			dropped++
		}
	}
	if dropped > 0 {
		logger.Info("archive pruned", "dropped", dropped, "remaining", len(s.records))
	}
	return dropped
}

// recordTime is the newest of the record's three timestamps.
func recordTime(rec core.ArchiveRecord, fallback time.Time) time.Time {
	newest := time.Time{}
	for _, raw := range []string{rec.LastSeenAt, rec.PublishedAt, rec.FirstSeenAt} {
		if t := normalize.ParseTime(raw); t != nil && t.After(newest) {
			newest = *t
		}
	}
	if newest.IsZero() {
		return fallback
	}
	return newest
}

// EventTime is the display timestamp of a record: published_at when
// present, else first_seen_at.
func EventTime(rec core.ArchiveRecord) *time.Time {
	if t := normalize.ParseTime(rec.PublishedAt); t != nil {
		return t
	}
	return normalize.ParseTime(rec.FirstSeenAt)
}

// Save writes archive.json atomically (write-then-rename), items sorted
// by last_seen_at descending.
func (s *Store) Save(now time.Time) error {
	items := s.Records()
	sort.Slice(items, func(i, j int) bool {
		return items[i].LastSeenAt > items[j].LastSeenAt
	})
	doc := Document{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		TotalItems:  len(items),
		Items:       items,
	}
	return writeJSONAtomic(s.path, doc)
}

// writeJSONAtomic marshals v pretty-printed and renames it into place.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
