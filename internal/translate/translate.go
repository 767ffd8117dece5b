package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"aidaily/internal/config"
	"aidaily/internal/llm"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

const (
	maxTitleRunes = 150 // input cap before translation
	maxZHRunes    = 80  // output cap for translated titles

	// Titles with at least this much Han content are already Chinese.
	hanThreshold = 0.3
)

// Translator renders English titles into Chinese. The free web endpoint
// is tried first; whatever it cannot handle goes to the LLM in small
// positional batches. Results persist in an LRU cache across runs.
type Translator struct {
	gw        *llm.Gateway
	http      *http.Client
	endpoint  string
	batchSize int
	cache     *Cache
}

// New creates a translator. cachePath may be empty to disable caching.
func New(gw *llm.Gateway, cfg config.Translate, cachePath string) *Translator {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 5
	}
	return &Translator{
		gw:        gw,
		http:      &http.Client{Timeout: cfg.FreeTimeout},
		endpoint:  cfg.FreeEndpoint,
		batchSize: batchSize,
		cache:     OpenCache(cachePath, cfg.CacheSize),
	}
}

// Close persists the cache.
func (t *Translator) Close() {
	t.cache.Save()
}

// NeedsTranslation reports whether a title reads as English.
func NeedsTranslation(title string) bool {
	return title != "" && normalize.HanRatio(title) < hanThreshold
}

// Titles translates a slice of titles, preserving positions. Chinese
// titles pass through unchanged; failures fall back to the original.
func (t *Translator) Titles(ctx context.Context, titles []string) []string {
	out := make([]string, len(titles))
	copy(out, titles)

	var needLLM []pending

	for i, title := range titles {
		if !NeedsTranslation(title) {
			continue
		}
		title = truncateRunes(title, maxTitleRunes)

		if zh, ok := t.cache.Get(title); ok {
			out[i] = zh
			continue
		}
		if zh := t.Free(ctx, title); zh != "" {
			zh = truncateRunes(zh, maxZHRunes)
			out[i] = zh
			t.cache.Put(title, zh)
			continue
		}
		needLLM = append(needLLM, pending{index: i, title: title})
	}

	for start := 0; start < len(needLLM); start += t.batchSize {
		end := start + t.batchSize
		if end > len(needLLM) {
			end = len(needLLM)
		}
		batch := needLLM[start:end]

		lines := t.llmBatch(ctx, batch)
		for j, p := range batch {
			if j < len(lines) && lines[j] != "" {
				zh := truncateRunes(lines[j], maxZHRunes)
				out[p.index] = zh
				t.cache.Put(p.title, zh)
			}
		}
	}
	return out
}

// pending is a title the free endpoint could not translate, with its
// position in the caller's slice.
type pending struct {
	index int
	title string
}

func (t *Translator) llmBatch(ctx context.Context, batch []pending) []string {
	if t.gw == nil || !t.gw.Configured() {
		return nil
	}
	numbered := make([]string, len(batch))
	for i, p := range batch {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, p.title)
	}
	prompt := fmt.Sprintf("将以下%d条英文新闻标题译成中文，每行一条，只输出译文：\n\n%s",
		len(batch), strings.Join(numbered, "\n"))

	response, err := t.gw.Chat(ctx, "", prompt, 0.2, 400)
	if err != nil {
		logger.Warn("llm title batch failed", "error", err.Error())
		return nil
	}
	var lines []string
	for _, line := range strings.Split(response, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Title translates a single title through the LLM, returning the input
// on failure or when it is already Chinese.
func (t *Translator) Title(ctx context.Context, title string) string {
	if !NeedsTranslation(title) {
		return title
	}
	title = truncateRunes(title, maxTitleRunes)

	if zh, ok := t.cache.Get(title); ok {
		return zh
	}
	if zh := t.Free(ctx, title); zh != "" {
		zh = truncateRunes(zh, maxZHRunes)
		t.cache.Put(title, zh)
		return zh
	}
	if t.gw == nil || !t.gw.Configured() {
		return title
	}
	prompt := fmt.Sprintf("请将以下英文新闻标题翻译成中文，只输出译文：\n\n%s", title)
	response, err := t.gw.Chat(ctx, "你是新闻编辑，擅长翻译新闻标题。", prompt, 0.2, 80)
	if err != nil {
		return title
	}
	zh := truncateRunes(strings.Trim(strings.TrimSpace(response), `"'`), maxZHRunes)
	if zh == "" {
		return title
	}
	t.cache.Put(title, zh)
	return zh
}

// Free calls the unauthenticated web translate endpoint. Returns ""
// when the endpoint is unusable or echoes the input back.
func (t *Translator) Free(ctx context.Context, text string) string {
	if t.endpoint == "" {
		return ""
	}
	zh, err := t.freeTranslate(ctx, text)
	if err != nil {
		logger.Debug("free translate failed", "error", err.Error())
		return ""
	}
	return zh
}

func (t *Translator) freeTranslate(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", "zh-CN")
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return parseFreeResponse(body, text)
}

// parseFreeResponse joins the first element of each segment of the
// endpoint's nested-array payload.
func parseFreeResponse(body []byte, input string) (string, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", errors.New("empty translate payload")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", errors.New("unexpected translate payload shape")
	}
	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	result := strings.TrimSpace(b.String())
	if result == "" || result == input {
		return "", errors.New("translate produced no change")
	}
	return result, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
