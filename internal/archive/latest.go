package archive

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"aidaily/internal/core"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

// SiteStat summarizes one site's contribution to the current window.
type SiteStat struct {
	SiteName string `json:"site_name"`
	Count    int    `json:"count"`
}

// LatestPayload is the on-disk shape of latest-24h.json as written by us.
// items_all_raw keeps the window items exactly as archived; items_all is
// the cleaned view and items_ai its AI-related subset. items aliases
// items_ai for older readers.
type LatestPayload struct {
	GeneratedAt string               `json:"generated_at"`
	WindowHours int                  `json:"window_hours"`
	TotalItems  int                  `json:"total_items"`
	Items       []core.ArchiveRecord `json:"items"`
	ItemsAI     []core.ArchiveRecord `json:"items_ai"`
	ItemsAll    []core.ArchiveRecord `json:"items_all"`
	ItemsAllRaw []core.ArchiveRecord `json:"items_all_raw"`
	SiteStats   map[string]SiteStat  `json:"site_stats"`
}

// BuildLatest assembles the rolling-window payload from the archive.
func BuildLatest(s *Store, windowHours int, now time.Time) LatestPayload {
	cutoff := now.UTC().Add(-time.Duration(windowHours) * time.Hour)

	var raw []core.ArchiveRecord
	for _, rec := range s.Records() {
		t := EventTime(rec)
		if t != nil && !t.Before(cutoff) {
			raw = append(raw, rec)
		}
	}
	sort.Slice(raw, func(i, j int) bool {
		return raw[i].LastSeenAt > raw[j].LastSeenAt
	})

	var all []core.ArchiveRecord
	stats := make(map[string]SiteStat)
	for _, rec := range raw {
		cleaned, ok := cleanRecord(rec)
		if !ok {
			continue
		}
		all = append(all, cleaned)
		st := stats[cleaned.SiteID]
		st.SiteName = cleaned.SiteName
		st.Count++
		stats[cleaned.SiteID] = st
	}

	var ai []core.ArchiveRecord
	for _, rec := range all {
		if IsAIRelated(rec.Title) {
			ai = append(ai, rec)
		}
	}

	return LatestPayload{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		WindowHours: windowHours,
		TotalItems:  len(ai),
		Items:       ai,
		ItemsAI:     ai,
		ItemsAll:    all,
		ItemsAllRaw: raw,
		SiteStats:   stats,
	}
}

// WriteLatest writes latest-24h.json atomically into dir.
func WriteLatest(dir string, payload LatestPayload) error {
	return writeJSONAtomic(filepath.Join(dir, "latest-24h.json"), payload)
}

// cleanRecord fixes mojibake titles and source display names, dropping
// placeholder entries entirely.
func cleanRecord(rec core.ArchiveRecord) (core.ArchiveRecord, bool) {
	rec.Title = normalize.FixMojibake(rec.Title)
	if rec.Title == "" || normalize.IsPlaceholderTitle(rec.SiteID, rec.Title) {
		return core.ArchiveRecord{}, false
	}
	rec.SiteName = normalize.SourceDisplayName(rec.SiteID, rec.SiteName)
	rec.Source = normalize.SourceDisplayName(rec.SiteID, rec.Source)
	return rec, true
}

// StatusReport is the on-disk shape of source-status.json.
type StatusReport struct {
	RunID       string              `json:"run_id"`
	GeneratedAt string              `json:"generated_at"`
	Sources     []core.SourceStatus `json:"sources"`
}

// WriteStatus writes source-status.json with a fresh run ID.
func WriteStatus(dir string, statuses []core.SourceStatus, now time.Time) error {
	report := StatusReport{
		RunID:       uuid.NewString(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Sources:     statuses,
	}
	failed := 0
	for _, st := range statuses {
		if !st.OK {
			failed++
		}
	}
	if failed > 0 {
		logger.Warn("source failures this run", "failed", failed, "total", len(statuses))
	}
	return writeJSONAtomic(filepath.Join(dir, "source-status.json"), report)
}

// aiSignals marks a title as AI-related for the rolling-window subset.
// Matching is case-insensitive substring; the list errs permissive since
// the daily pipeline re-scores everything anyway.
var aiSignals = []string{
	"ai", "人工智能", "大模型", "llm", "gpt", "chatgpt", "openai", "anthropic",
	"claude", "gemini", "deepseek", "copilot", "midjourney", "stable diffusion",
	"机器学习", "machine learning", "deep learning", "深度学习", "神经网络",
	"neural", "transformer", "智能体", "agent", "agentic", "diffusion",
	"多模态", "multimodal", "语言模型", "language model", "推理模型", "文生图",
	"文生视频", "大语言", "生成式", "generative", "rag", "fine-tun", "微调",
	"robotaxi", "自动驾驶", "autonomous driving", "具身智能", "embodied",
	"算力", "芯片", "英伟达", "nvidia", "tpu", "cuda", "llama", "qwen", "通义",
	"mistral", "grok", "sora", "hugging face", "huggingface",
}

// IsAIRelated reports whether a title mentions any AI signal. "ai" only
// counts on word boundaries to avoid matching words like "maintain".
func IsAIRelated(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range aiSignals {
		if kw == "ai" {
			if hasWordAI(lower) {
				return true
			}
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hasWordAI(lower string) bool {
	for i := 0; i+2 <= len(lower); i++ {
		if lower[i] != 'a' || lower[i+1] != 'i' {
			continue
		}
		beforeOK := i == 0 || !isWordByte(lower[i-1])
		afterOK := i+2 == len(lower) || !isWordByte(lower[i+2])
		if beforeOK && afterOK {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
