package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelnotes/internal/logging"
	"reelnotes/internal/metrics"
	"reelnotes/internal/utils"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

// ContentItem 上游条目的统一结构
type ContentItem struct {
	ExternalID  string
	Title       string
	Description string
	Content     string
	URL         string
	SourceName  string
	Author      string
	ImageURL    string
	Category    string
	PublishedAt time.Time
}

// FetchResult 一次抓取的结果，Source 记录实际提供数据的来源
type FetchResult struct {
	Items  []ContentItem
	Source string
}

// ContentSource 外部内容来源
type ContentSource interface {
	Name() string
	Fetch(ctx context.Context) (*FetchResult, error)
}

const userAgent = "reelnotes/1.0 (+https://github.com/reelnotes)"

func getJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP 状态码: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
}

// NewsAPISource newsapi.org 的 top-headlines 接口
type NewsAPISource struct {
	url    string
	apiKey string
	client *http.Client
}

func NewNewsAPISource(endpoint, apiKey string, timeout time.Duration) *NewsAPISource {
	return &NewsAPISource{url: endpoint, apiKey: apiKey, client: newHTTPClient(timeout)}
}

func (s *NewsAPISource) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Author      string    `json:"author"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		URLToImage  string    `json:"urlToImage"`
		PublishedAt time.Time `json:"publishedAt"`
		Content     string    `json:"content"`
	} `json:"articles"`
}

func (s *NewsAPISource) Fetch(ctx context.Context) (*FetchResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("NEWS_API_KEY 未配置")
	}

	var resp newsAPIResponse
	header := http.Header{"X-Api-Key": []string{s.apiKey}}
	if err := getJSON(ctx, s.client, s.url, header, &resp); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi: %s %s", resp.Code, resp.Message)
	}

	items := make([]ContentItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.URL == "" || a.Title == "[Removed]" {
			continue
		}
		items = append(items, ContentItem{
			ExternalID:  a.URL,
			Title:       strings.TrimSpace(a.Title),
			Description: utils.Truncate(utils.StripHTML(a.Description), 500),
			Content:     a.Content,
			URL:         a.URL,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			ImageURL:    a.URLToImage,
			Category:    "news",
			PublishedAt: a.PublishedAt,
		})
	}
	return &FetchResult{Items: items, Source: s.Name()}, nil
}

// TMDBSource TMDB 每周热门电影
type TMDBSource struct {
	url    string
	apiKey string
	client *http.Client
}

func NewTMDBSource(endpoint, apiKey string, timeout time.Duration) *TMDBSource {
	return &TMDBSource{url: endpoint, apiKey: apiKey, client: newHTTPClient(timeout)}
}

func (s *TMDBSource) Name() string { return "tmdb" }

type tmdbResponse struct {
	Results []struct {
		ID          int64   `json:"id"`
		Title       string  `json:"title"`
		Overview    string  `json:"overview"`
		PosterPath  string  `json:"poster_path"`
		ReleaseDate string  `json:"release_date"`
		Popularity  float64 `json:"popularity"`
	} `json:"results"`
}

func (s *TMDBSource) Fetch(ctx context.Context) (*FetchResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY 未配置")
	}

	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("tmdb: 无效的地址: %w", err)
	}
	q := u.Query()
	q.Set("api_key", s.apiKey)
	u.RawQuery = q.Encode()

	var resp tmdbResponse
	if err := getJSON(ctx, s.client, u.String(), nil, &resp); err != nil {
		return nil, fmt.Errorf("tmdb: %w", err)
	}

	items := make([]ContentItem, 0, len(resp.Results))
	for _, m := range resp.Results {
		if m.Title == "" {
			continue
		}
		id := strconv.FormatInt(m.ID, 10)
		item := ContentItem{
			ExternalID:  id,
			Title:       m.Title,
			Description: utils.Truncate(m.Overview, 500),
			URL:         "https://www.themoviedb.org/movie/" + id,
			SourceName:  "TMDB",
			Category:    "movie",
		}
		if m.PosterPath != "" {
			item.ImageURL = "https://image.tmdb.org/t/p/w500" + m.PosterPath
		}
		if t, err := time.Parse("2006-01-02", m.ReleaseDate); err == nil {
			item.PublishedAt = t
		}
		items = append(items, item)
	}
	return &FetchResult{Items: items, Source: s.Name()}, nil
}

// FallbackSource 主来源出错时才改用备用来源。主来源走熔断器，
// 连续失败后直接跳过。空结果原样返回，由调用方决定如何处理
type FallbackSource struct {
	primary  ContentSource
	fallback ContentSource
	breaker  *gobreaker.CircuitBreaker[[]ContentItem]
}

func NewFallbackSource(primary, fallback ContentSource) *FallbackSource {
	name := primary.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).
				Msg("upstream circuit breaker state changed")
		},
	}
	return &FallbackSource{
		primary:  primary,
		fallback: fallback,
		breaker:  gobreaker.NewCircuitBreaker[[]ContentItem](settings),
	}
}

func (f *FallbackSource) Name() string {
	return f.primary.Name() + "+" + f.fallback.Name()
}

func (f *FallbackSource) Fetch(ctx context.Context) (*FetchResult, error) {
	items, err := f.breaker.Execute(func() ([]ContentItem, error) {
		res, err := f.primary.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
	if err == nil {
		return &FetchResult{Items: items, Source: f.primary.Name()}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	logging.Warn().Err(err).Str("primary", f.primary.Name()).Str("fallback", f.fallback.Name()).
		Msg("primary content source failed, trying fallback")
	metrics.UpstreamFallbacks.WithLabelValues(f.fallback.Name()).Inc()

	res, ferr := f.fallback.Fetch(ctx)
	if ferr != nil {
		return nil, fmt.Errorf("主来源: %v; 备用来源: %v: %w", err, ferr, ErrUpstreamFailure)
	}
	return res, nil
}
