package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.BaseURL != "https://api.deepseek.com" || cfg.API.Model != "deepseek-chat" {
		t.Errorf("api defaults = %s / %s", cfg.API.BaseURL, cfg.API.Model)
	}
	if cfg.API.MaxRetries != 3 || cfg.API.RetryDelay != 2*time.Second {
		t.Errorf("retry defaults = %d / %s", cfg.API.MaxRetries, cfg.API.RetryDelay)
	}
	if cfg.Pipeline.WindowHours != 24 || cfg.Pipeline.FilterWindowHours != 28 {
		t.Errorf("window defaults = %d / %d", cfg.Pipeline.WindowHours, cfg.Pipeline.FilterWindowHours)
	}
	if cfg.Pipeline.ArchiveRetainDays != 45 || cfg.Pipeline.DedupTitleThreshold != 0.8 {
		t.Errorf("archive defaults = %d / %f", cfg.Pipeline.ArchiveRetainDays, cfg.Pipeline.DedupTitleThreshold)
	}
	if cfg.Cluster.SimilarityThreshold != 0.58 || cfg.Cluster.MinArticles != 4 {
		t.Errorf("cluster defaults = %f / %d", cfg.Cluster.SimilarityThreshold, cfg.Cluster.MinArticles)
	}
	if cfg.WeChat.APIBase != "https://api.weixin.qq.com/cgi-bin" {
		t.Errorf("wechat api base = %s", cfg.WeChat.APIBase)
	}
	if cfg.App.SharedDataDir == "" {
		t.Error("shared data dir fallback not applied")
	}
}

func TestLoadBindsEnvironment(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("WECOM_WEBHOOK_URL", "https://qyapi.weixin.qq.com/hook")
	t.Setenv("FEISHU_TABLE_ID", "tblX")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Key != "sk-test" {
		t.Errorf("api key = %q", cfg.API.Key)
	}
	if cfg.WeCom.WebhookURL != "https://qyapi.weixin.qq.com/hook" {
		t.Errorf("wecom webhook = %q", cfg.WeCom.WebhookURL)
	}
	if cfg.Feishu.TableID != "tblX" {
		t.Errorf("feishu table = %q", cfg.Feishu.TableID)
	}
}

func TestLoadCaches(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := Load("")
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if first != second {
		t.Error("Load did not return the cached config")
	}
}
