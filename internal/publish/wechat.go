// Package publish delivers rendered output to its destinations: the
// WeChat Official Account draft box, the WeCom group bot webhook, and a
// Feishu Bitable sheet.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"aidaily/internal/config"
	"aidaily/internal/logger"
	"aidaily/internal/normalize"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	tokenCacheFile   = "wechat_token.json"
	historyFile      = "publish_history.json"
	defaultCoverFile = "default_cover.jpg"

	// Refresh the access token a minute before it actually expires.
	tokenExpiryMargin = time.Minute
)

// WeChat publishes articles to the Official Account draft box. The
// access token is cached in memory and on disk so consecutive runs
// within its lifetime share one grant.
type WeChat struct {
	cfg     config.WeChat
	dataDir string
	http    *http.Client

	token          string
	tokenExpiresAt time.Time
	now            func() time.Time
}

// NewWeChat creates a draft-box publisher using credentials from cfg
// and dataDir for the token cache, publish history and default cover.
func NewWeChat(cfg config.WeChat, dataDir string) *WeChat {
	return &WeChat{
		cfg:     cfg,
		dataDir: dataDir,
		http:    &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
}

// Configured reports whether Official Account credentials are present.
func (w *WeChat) Configured() bool {
	return w.cfg.AppID != "" && w.cfg.AppSecret != ""
}

type tokenDocument struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix seconds
}

func (w *WeChat) accessToken(ctx context.Context) (string, error) {
	now := w.now()
	if w.token != "" && now.Before(w.tokenExpiresAt.Add(-tokenExpiryMargin)) {
		return w.token, nil
	}
	if w.loadTokenCache(now) {
		return w.token, nil
	}

	endpoint := fmt.Sprintf("%s/token?grant_type=client_credential&appid=%s&secret=%s",
		w.cfg.APIBase, url.QueryEscape(w.cfg.AppID), url.QueryEscape(w.cfg.AppSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		ErrCode     int    `json:"errcode"`
		ErrMsg      string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("access token denied: errcode=%d %s", data.ErrCode, data.ErrMsg)
	}

	expiresIn := data.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 7200
	}
	w.token = data.AccessToken
	w.tokenExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	w.saveTokenCache()
	logger.Info("wechat access token acquired")
	return w.token, nil
}

func (w *WeChat) loadTokenCache(now time.Time) bool {
	data, err := os.ReadFile(filepath.Join(w.dataDir, tokenCacheFile))
	if err != nil {
		return false
	}
	var doc tokenDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.AccessToken == "" {
		return false
	}
	expiresAt := time.Unix(doc.ExpiresAt, 0)
	if !expiresAt.After(now.Add(tokenExpiryMargin)) {
		return false
	}
	w.token = doc.AccessToken
	w.tokenExpiresAt = expiresAt
	return true
}

func (w *WeChat) saveTokenCache() {
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		logger.Warn("wechat token cache mkdir failed", "error", err.Error())
		return
	}
	doc := tokenDocument{AccessToken: w.token, ExpiresAt: w.tokenExpiresAt.Unix()}
	data, err := json.Marshal(doc)
	if err == nil {
		err = os.WriteFile(filepath.Join(w.dataDir, tokenCacheFile), data, 0o600)
	}
	if err != nil {
		logger.Warn("wechat token cache save failed", "error", err.Error())
	}
}

// UploadImage uploads a permanent image material and returns its
// media_id, used for draft cover thumbnails.
func (w *WeChat) UploadImage(ctx context.Context, imagePath string) (string, error) {
	token, err := w.accessToken(ctx)
	if err != nil {
		return "", err
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open cover image: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("media", filepath.Base(imagePath))
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read cover image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/material/add_material?access_token=%s&type=image",
		w.cfg.APIBase, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		MediaID string `json:"media_id"`
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.MediaID == "" {
		return "", fmt.Errorf("image upload rejected: errcode=%d %s", result.ErrCode, result.ErrMsg)
	}
	logger.Info("cover image uploaded", "media_id", result.MediaID)
	return result.MediaID, nil
}

// AddDraft creates a draft-box article and returns its media_id. With
// an empty thumbMediaID the default cover under the data dir is
// uploaded and used.
func (w *WeChat) AddDraft(ctx context.Context, title, content, thumbMediaID string) (string, error) {
	token, err := w.accessToken(ctx)
	if err != nil {
		return "", err
	}

	if thumbMediaID == "" {
		coverPath := filepath.Join(w.dataDir, defaultCoverFile)
		if _, err := os.Stat(coverPath); err != nil {
			return "", fmt.Errorf("default cover missing: %s", coverPath)
		}
		thumbMediaID, err = w.UploadImage(ctx, coverPath)
		if err != nil {
			return "", fmt.Errorf("upload default cover: %w", err)
		}
	}

	payload := map[string]any{
		"articles": []map[string]any{{
			"title":                title,
			"author":               "AI日报",
			"thumb_media_id":       thumbMediaID,
			"digest":               "",
			"content":              content,
			"content_source_url":   "",
			"need_open_comment":    0,
			"only_fans_can_comment": 0,
		}},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}

	endpoint := fmt.Sprintf("%s/draft/add?access_token=%s", w.cfg.APIBase, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build draft request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit draft: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		MediaID string `json:"media_id"`
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode draft response: %w", err)
	}
	if result.MediaID == "" {
		return "", fmt.Errorf("draft rejected: errcode=%d %s", result.ErrCode, result.ErrMsg)
	}
	logger.Info("draft created", "media_id", result.MediaID, "title", title)
	return result.MediaID, nil
}

// PublishDailyReport pushes the rendered daily digest into the draft
// box under the dated title.
func (w *WeChat) PublishDailyReport(ctx context.Context, htmlContent string, now time.Time) error {
	local := normalize.ToShanghai(now)
	title := fmt.Sprintf("AI资讯日报 %d年%d月%d日", local.Year(), int(local.Month()), local.Day())
	return w.publish(ctx, title, htmlContent)
}

// PublishColumn pushes a deep-column article into the draft box.
func (w *WeChat) PublishColumn(ctx context.Context, title, htmlContent string) error {
	return w.publish(ctx, title, htmlContent)
}

func (w *WeChat) publish(ctx context.Context, title, content string) error {
	mediaID, err := w.AddDraft(ctx, title, content, "")
	if err != nil {
		return err
	}
	w.appendHistory(title, mediaID)
	logger.Info("published to draft box", "title", title)
	return nil
}

type historyEntry struct {
	Date        string `json:"date"`
	MediaID     string `json:"media_id"`
	PublishTime string `json:"publish_time"`
}

type historyDocument struct {
	History     []historyEntry `json:"history"`
	LastPublish string         `json:"last_publish"`
}

// appendHistory is best-effort; a failed history write never fails the
// publish itself.
func (w *WeChat) appendHistory(title, mediaID string) {
	path := filepath.Join(w.dataDir, historyFile)

	var doc historyDocument
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &doc)
	}

	nowStr := normalize.ToShanghai(w.now()).Format(time.RFC3339)
	doc.History = append(doc.History, historyEntry{Date: title, MediaID: mediaID, PublishTime: nowStr})
	doc.LastPublish = nowStr

	data, err := json.MarshalIndent(doc, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		logger.Warn("publish history save failed", "error", err.Error())
	}
}
