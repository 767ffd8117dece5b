package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       App       `mapstructure:"app"`
	API       API       `mapstructure:"api"`
	Crawler   Crawler   `mapstructure:"crawler"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Cluster   Cluster   `mapstructure:"cluster"`
	Translate Translate `mapstructure:"translate"`
	WeChat    WeChat    `mapstructure:"wechat"`
	WeCom     WeCom     `mapstructure:"wecom"`
	Feishu    Feishu    `mapstructure:"feishu"`
}

// App holds general application configuration.
type App struct {
	DataDir       string `mapstructure:"data_dir"`
	OutputDir     string `mapstructure:"output_dir"`
	SharedDataDir string `mapstructure:"shared_data_dir"`
	LogLevel      string `mapstructure:"log_level"`
	Timezone      string `mapstructure:"timezone"`
}

// API holds DeepSeek chat API configuration.
type API struct {
	Key        string        `mapstructure:"key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Crawler holds HTTP fetch configuration.
type Crawler struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RequestDelay     time.Duration `mapstructure:"request_delay"`
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	MaxContentLength int           `mapstructure:"max_content_length"`
	UserAgent        string        `mapstructure:"user_agent"`
}

// Pipeline holds daily-report stage tunables.
type Pipeline struct {
	WindowHours              int     `mapstructure:"window_hours"`        // 24h window for latest-24h.json
	FilterWindowHours        int     `mapstructure:"filter_window_hours"` // 28h ingest window (skew buffer)
	ArchiveRetainDays        int     `mapstructure:"archive_retain_days"`
	MaxTotalNews             int     `mapstructure:"max_total_news"`
	MaxNewsPerCategory       int     `mapstructure:"max_news_per_category"`
	DedupTitleThreshold      float64 `mapstructure:"dedup_title_threshold"`
	TitleSimilarityThreshold float64 `mapstructure:"title_similarity_threshold"`
	SummarizeBatchSize       int     `mapstructure:"summarize_batch_size"`
}

// Cluster holds topic-clustering tunables for the deep column.
type Cluster struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MinArticles         int     `mapstructure:"min_articles"`
	TimeWindowHours     int     `mapstructure:"time_window_hours"`
	MaxCandidateTopics  int     `mapstructure:"max_candidate_topics"`
	ArticleWordCount    string  `mapstructure:"article_word_count"`
}

// Translate holds title-translation configuration.
type Translate struct {
	FreeEndpoint string        `mapstructure:"free_endpoint"`
	FreeTimeout  time.Duration `mapstructure:"free_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	CacheSize    int           `mapstructure:"cache_size"`
}

// WeChat holds Official Account draft-box credentials.
type WeChat struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	APIBase   string `mapstructure:"api_base"`
}

// WeCom holds the group-bot webhook configuration.
type WeCom struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// Feishu holds Bitable sync credentials.
type Feishu struct {
	AppID        string `mapstructure:"app_id"`
	AppSecret    string `mapstructure:"app_secret"`
	BitableToken string `mapstructure:"bitable_token"`
	TableID      string `mapstructure:"table_id"`
}

var globalConfig *Config

// Load loads the configuration from .env, an optional config file, and
// environment variables, in that order of increasing precedence.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".aidaily")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.App.SharedDataDir == "" {
		cfg.App.SharedDataDir = filepath.Join("..", "ai-hourly-buzz", "data")
	}

	globalConfig = cfg
	return cfg, nil
}

// Reset clears the cached config. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.data_dir", "data")
	viper.SetDefault("app.output_dir", "output")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.timezone", "Asia/Shanghai")

	viper.SetDefault("api.base_url", "https://api.deepseek.com")
	viper.SetDefault("api.model", "deepseek-chat")
	viper.SetDefault("api.max_retries", 3)
	viper.SetDefault("api.retry_delay", 2*time.Second)
	viper.SetDefault("api.timeout", 60*time.Second)

	viper.SetDefault("crawler.request_timeout", 30*time.Second)
	viper.SetDefault("crawler.request_delay", time.Second)
	viper.SetDefault("crawler.max_concurrency", 8)
	viper.SetDefault("crawler.max_content_length", 3000)
	viper.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	viper.SetDefault("pipeline.window_hours", 24)
	viper.SetDefault("pipeline.filter_window_hours", 28)
	viper.SetDefault("pipeline.archive_retain_days", 45)
	viper.SetDefault("pipeline.max_total_news", 50)
	viper.SetDefault("pipeline.max_news_per_category", 10)
	viper.SetDefault("pipeline.dedup_title_threshold", 0.8)
	viper.SetDefault("pipeline.title_similarity_threshold", 0.8)
	viper.SetDefault("pipeline.summarize_batch_size", 2)

	viper.SetDefault("cluster.similarity_threshold", 0.58)
	viper.SetDefault("cluster.min_articles", 4)
	viper.SetDefault("cluster.time_window_hours", 28)
	viper.SetDefault("cluster.max_candidate_topics", 8)
	viper.SetDefault("cluster.article_word_count", "800-1500")

	viper.SetDefault("translate.free_endpoint", "https://translate.googleapis.com/translate_a/single")
	viper.SetDefault("translate.free_timeout", 8*time.Second)
	viper.SetDefault("translate.batch_size", 5)
	viper.SetDefault("translate.cache_size", 5000)

	viper.SetDefault("wechat.api_base", "https://api.weixin.qq.com/cgi-bin")
}

func bindEnvironmentVariables() {
	bindings := map[string]string{
		"api.key":              "DEEPSEEK_API_KEY",
		"api.base_url":         "DEEPSEEK_BASE_URL",
		"api.model":            "DEEPSEEK_MODEL",
		"wechat.app_id":        "WECHAT_APP_ID",
		"wechat.app_secret":    "WECHAT_APP_SECRET",
		"wecom.webhook_url":    "WECOM_WEBHOOK_URL",
		"feishu.app_id":        "FEISHU_APP_ID",
		"feishu.app_secret":    "FEISHU_APP_SECRET",
		"feishu.bitable_token": "FEISHU_BITABLE_TOKEN",
		"feishu.table_id":      "FEISHU_TABLE_ID",
		"app.shared_data_dir":  "SHARED_DATA_DIR",
		"app.log_level":        "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s: %v\n", env, err)
		}
	}
}
