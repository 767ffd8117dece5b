package publish

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"aidaily/internal/archive"
	"aidaily/internal/config"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

const (
	feishuBaseURL = "https://open.feishu.cn"

	// Cap the written-ID ledger so it cannot grow without bound.
	feishuLedgerCap = 5000

	feishuBatchSize = 500
)

// Feishu appends new hourly-buzz items to a Bitable sheet. A ledger of
// written record IDs keeps repeated runs from duplicating rows.
type Feishu struct {
	cfg     config.Feishu
	baseURL string
	http    *http.Client

	token          string
	tokenExpiresAt time.Time
	now            func() time.Time
}

// NewFeishu creates a Bitable writer from cfg.
func NewFeishu(cfg config.Feishu) *Feishu {
	return &Feishu{
		cfg:     cfg,
		baseURL: feishuBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

// Configured reports whether all four Bitable credentials are present.
func (f *Feishu) Configured() bool {
	return f.cfg.AppID != "" && f.cfg.AppSecret != "" &&
		f.cfg.BitableToken != "" && f.cfg.TableID != ""
}

func (f *Feishu) tenantToken(ctx context.Context) (string, error) {
	now := f.now()
	if f.token != "" && f.tokenExpiresAt.After(now.Add(time.Minute)) {
		return f.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"app_id":     f.cfg.AppID,
		"app_secret": f.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("encode auth payload: %w", err)
	}

	endpoint := f.baseURL + "/open-apis/auth/v3/tenant_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request tenant token: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int64  `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if data.Code != 0 {
		return "", fmt.Errorf("feishu auth failed: code=%d %s", data.Code, data.Msg)
	}

	expire := data.Expire
	if expire == 0 {
		expire = 7200
	}
	f.token = data.TenantAccessToken
	f.tokenExpiresAt = now.Add(time.Duration(expire) * time.Second)
	return f.token, nil
}

// Sync appends the items from latestPath that are not yet in the ledger
// at ledgerPath, and returns the number of rows written. Missing
// configuration or a missing latest file skips quietly with zero.
func (f *Feishu) Sync(ctx context.Context, latestPath, ledgerPath string, now time.Time) (int, error) {
	if !f.Configured() {
		logger.Warn("feishu credentials not configured, skipping bitable sync")
		return 0, nil
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		logger.Warn("latest window file missing, skipping bitable sync", "path", latestPath)
		return 0, nil
	}
	var payload archive.LatestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("parse %s: %w", latestPath, err)
	}
	items := payload.ItemsAI
	if len(items) == 0 {
		items = payload.Items
	}

	written := loadWrittenIDs(ledgerPath)
	var newItems []struct {
		id     string
		fields map[string]any
	}
	collectedAt := normalize.ToShanghai(now).Format("2006-01-02 15:04")
	for _, item := range items {
		if item.ID == "" || written[item.ID] {
			continue
		}

		displayTitle := item.TitleZH
		if displayTitle == "" {
			displayTitle = item.Title
		}
		titleEN := item.TitleEN
		if titleEN == "" {
			titleEN = item.Title
		}
		source := item.Source
		if source == "" {
			source = item.SiteName
		}

		publishedStr := item.PublishedAt
		if publishedStr == "" {
			publishedStr = item.FirstSeenAt
		}
		if t := normalize.ParseTime(publishedStr); t != nil {
			publishedStr = normalize.ToShanghai(*t).Format("2006-01-02 15:04")
		}

		newItems = append(newItems, struct {
			id     string
			fields map[string]any
		}{
			id: item.ID,
			fields: map[string]any{
				"标题":   displayTitle,
				"英文标题": titleEN,
				"链接":   item.URL,
				"来源":   source,
				"发布时间": publishedStr,
				"采集时间": collectedAt,
			},
		})
	}

	if len(newItems) == 0 {
		logger.Info("no new items for bitable, skipping")
		return 0, nil
	}

	count := 0
	for start := 0; start < len(newItems); start += feishuBatchSize {
		end := start + feishuBatchSize
		if end > len(newItems) {
			end = len(newItems)
		}
		batch := newItems[start:end]
		records := make([]map[string]any, len(batch))
		for i, it := range batch {
			records[i] = map[string]any{"fields": it.fields}
		}
		if err := f.appendRecords(ctx, records); err != nil {
			return count, err
		}
		count += len(batch)
	}

	for _, it := range newItems {
		written[it.id] = true
	}
	saveWrittenIDs(ledgerPath, written)

	logger.Info("bitable rows written", "count", count)
	return count, nil
}

func (f *Feishu) appendRecords(ctx context.Context, records []map[string]any) error {
	token, err := f.tenantToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{"records": records})
	if err != nil {
		return fmt.Errorf("encode bitable batch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records/batch_create",
		f.baseURL, f.cfg.BitableToken, f.cfg.TableID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build bitable request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("post bitable batch: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode bitable response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("bitable write failed: code=%d %s", result.Code, result.Msg)
	}
	return nil
}

func loadWrittenIDs(path string) map[string]bool {
	ids := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return ids
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return ids
	}
	for _, id := range list {
		ids[id] = true
	}
	return ids
}

func saveWrittenIDs(path string, ids map[string]bool) {
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Strings(list)
	if len(list) > feishuLedgerCap {
		list = list[len(list)-feishuLedgerCap:]
	}
	data, err := json.Marshal(list)
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		logger.Warn("bitable ledger save failed", "error", err.Error())
	}
}
