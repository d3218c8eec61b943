// Package config 负责加载服务配置：默认值 -> 配置文件 -> 环境变量
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar 可覆盖配置文件路径
const PathEnvVar = "CONFIG_PATH"

var defaultPaths = []string{"config.yaml", "config.yml", "/etc/reelnotes/config.yaml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Comments  CommentsConfig  `koanf:"comments"`
	Refresh   RefreshConfig   `koanf:"refresh"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Images    ImagesConfig    `koanf:"images"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	SessionSecret   string        `koanf:"session_secret"`
	// IdentityHeader 非空时从该请求头读取调用者身份（部署在认证网关之后）
	IdentityHeader string   `koanf:"identity_header"`
	CORSOrigins    []string `koanf:"cors_origins"`
	Mode           string   `koanf:"mode"`
	// AdminIDs 可访问缓存管理接口的调用者
	AdminIDs []string `koanf:"admin_ids"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type CacheConfig struct {
	Capacity          int           `koanf:"capacity"`
	ArticleTTL        time.Duration `koanf:"article_ttl"`
	CollectionTTL     time.Duration `koanf:"collection_ttl"`
	TopPicksTTL       time.Duration `koanf:"top_picks_ttl"`
	LatestReviewsTTL  time.Duration `koanf:"latest_reviews_ttl"`
	TrendingMoviesTTL time.Duration `koanf:"trending_movies_ttl"`
	TrendingNewsTTL   time.Duration `koanf:"trending_news_ttl"`
}

type CommentsConfig struct {
	MaxDepth        int           `koanf:"max_depth"`
	EditWindow      time.Duration `koanf:"edit_window"`
	Fanout          int           `koanf:"fanout"`
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
}

type RefreshConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"`
	MaxItems   int           `koanf:"max_items"`
	StaleAfter time.Duration `koanf:"stale_after"`
	Keywords   []string      `koanf:"keywords"`
}

type UpstreamConfig struct {
	Timeout    time.Duration `koanf:"timeout"`
	NewsAPIURL string        `koanf:"news_api_url"`
	NewsAPIKey string        `koanf:"news_api_key"`
	NewsFeeds  []string      `koanf:"news_feeds"`
	TMDBURL    string        `koanf:"tmdb_url"`
	TMDBKey    string        `koanf:"tmdb_key"`
	MovieFeeds []string      `koanf:"movie_feeds"`
}

type ImagesConfig struct {
	ImgurClientID string `koanf:"imgur_client_id"`
	ImgurURL      string `koanf:"imgur_url"`
}

type RateLimitConfig struct {
	PerMinute int `koanf:"per_minute"`
	Burst     int `koanf:"burst"`
	Capacity  int `koanf:"capacity"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default 返回全部默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			SessionSecret:   "secret_key_change_me",
			CORSOrigins:     []string{"*"},
			Mode:            "release",
			AdminIDs:        []string{},
		},
		Database: DatabaseConfig{
			DSN: "host=localhost user=postgres password=postgres dbname=reelnotes port=5432 sslmode=disable TimeZone=UTC",
		},
		Cache: CacheConfig{
			Capacity:          1000,
			ArticleTTL:        1800 * time.Second,
			CollectionTTL:     300 * time.Second,
			TopPicksTTL:       600 * time.Second,
			LatestReviewsTTL:  600 * time.Second,
			TrendingMoviesTTL: 480 * time.Second,
			TrendingNewsTTL:   600 * time.Second,
		},
		Comments: CommentsConfig{
			MaxDepth:        50,
			EditWindow:      24 * time.Hour,
			Fanout:          8,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Refresh: RefreshConfig{
			Enabled:    true,
			Interval:   6 * time.Hour,
			MaxItems:   50,
			StaleAfter: 15 * time.Minute,
			Keywords:   []string{"box office", "premiere", "trailer", "oscar", "festival"},
		},
		Upstream: UpstreamConfig{
			Timeout:    30 * time.Second,
			NewsAPIURL: "https://newsapi.org/v2/top-headlines?category=entertainment&language=en&pageSize=50",
			NewsFeeds:  []string{"https://variety.com/feed/", "https://deadline.com/feed/"},
			TMDBURL:    "https://api.themoviedb.org/3/trending/movie/week",
			MovieFeeds: []string{"https://www.indiewire.com/c/film/feed/"},
		},
		Images: ImagesConfig{
			ImgurURL: "https://api.imgur.com/3/image",
		},
		RateLimit: RateLimitConfig{
			PerMinute: 10,
			Burst:     5,
			Capacity:  10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// envAliases 兼容部署时常用的环境变量名
var envAliases = map[string]string{
	"port":            "server.port",
	"session_secret":  "server.session_secret",
	"identity_header": "server.identity_header",
	"cors_origins":    "server.cors_origins",
	"admin_ids":       "server.admin_ids",
	"gin_mode":        "server.mode",
	"database_url":    "database.dsn",
	"imgur_client_id": "images.imgur_client_id",
	"news_api_key":    "upstream.news_api_key",
	"tmdb_api_key":    "upstream.tmdb_key",
	"log_level":       "log.level",
	"log_format":      "log.format",
}

var sliceKeys = []string{
	"server.cors_origins",
	"server.admin_ids",
	"refresh.keywords",
	"upstream.news_feeds",
	"upstream.movie_feeds",
}

// envKey 把 REELNOTES_CACHE_ARTICLE_TTL 映射为 cache.article_ttl，其余变量忽略
func envKey(key string) string {
	key = strings.ToLower(key)
	if path, ok := envAliases[key]; ok {
		return path
	}
	if !strings.HasPrefix(key, "reelnotes_") {
		return ""
	}
	key = strings.TrimPrefix(key, "reelnotes_")
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return ""
	}
	return section + "." + rest
}

// Load 加载配置。.env 文件不存在时直接读取系统环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("加载默认配置失败: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("加载配置文件 %s 失败: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("加载环境变量失败: %w", err)
	}

	for _, path := range sliceKeys {
		if s, ok := k.Get(path).(string); ok {
			if err := k.Set(path, splitList(s)); err != nil {
				return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range defaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate 检查配置的取值范围
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port 不能为空")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn 不能为空")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity 必须大于 0")
	}
	if c.Comments.MaxDepth <= 0 {
		return fmt.Errorf("comments.max_depth 必须大于 0")
	}
	if c.Comments.DefaultPageSize <= 0 || c.Comments.MaxPageSize < c.Comments.DefaultPageSize {
		return fmt.Errorf("comments 分页配置无效")
	}
	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval 必须大于 0")
	}
	if c.Refresh.MaxItems <= 0 {
		return fmt.Errorf("refresh.max_items 必须大于 0")
	}
	return nil
}
