package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reelnotes/internal/config"
	"reelnotes/internal/db"
	"reelnotes/internal/logging"
	"reelnotes/internal/models"
	"reelnotes/internal/router"
	"reelnotes/internal/services"
	"reelnotes/internal/store"
	"reelnotes/internal/supervisor"
	"reelnotes/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("加载配置失败")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(cfg.Server.Mode)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		logging.Error().Err(err).Msg("数据库初始化失败")
		os.Exit(1)
	}
	st := store.New(conn)

	backend, err := utils.NewLRUBackend(cfg.Cache.Capacity)
	if err != nil {
		logging.Error().Err(err).Msg("缓存初始化失败")
		os.Exit(1)
	}
	cache := utils.NewCache(backend)

	var images services.ImageStore
	if cfg.Images.ImgurClientID != "" {
		images = services.NewImgurStore(cfg.Images.ImgurClientID, cfg.Images.ImgurURL, cfg.Upstream.Timeout)
	} else {
		logging.Warn().Msg("未配置 IMGUR_CLIENT_ID，图片上传不可用")
	}

	comments := services.NewCommentService(st, services.CommentConfig{
		MaxDepth:        cfg.Comments.MaxDepth,
		EditWindow:      cfg.Comments.EditWindow,
		Fanout:          cfg.Comments.Fanout,
		DefaultPageSize: cfg.Comments.DefaultPageSize,
		MaxPageSize:     cfg.Comments.MaxPageSize,
	})
	content := services.NewContentService(st, cache, images, services.ContentConfig{
		ArticleTTL:       cfg.Cache.ArticleTTL,
		CollectionTTL:    cfg.Cache.CollectionTTL,
		TopPicksTTL:      cfg.Cache.TopPicksTTL,
		LatestReviewsTTL: cfg.Cache.LatestReviewsTTL,
	})
	likes := services.NewLikeService(st)

	up := cfg.Upstream
	sources := map[models.Section]services.ContentSource{
		models.SectionTrendingNews: services.NewFallbackSource(
			services.NewNewsAPISource(up.NewsAPIURL, up.NewsAPIKey, up.Timeout),
			services.NewRSSSource("rss-news", "news", up.NewsFeeds, up.Timeout),
		),
		models.SectionTrendingMovies: services.NewFallbackSource(
			services.NewTMDBSource(up.TMDBURL, up.TMDBKey, up.Timeout),
			services.NewRSSSource("rss-movies", "movies", up.MovieFeeds, up.Timeout),
		),
	}
	ranker := services.NewRanker(utils.DefaultConfig, cfg.Refresh.Keywords, cfg.Refresh.MaxItems)
	refresh := services.NewRefreshService(st, cache, ranker, sources, services.RefreshConfig{
		StaleAfter: cfg.Refresh.StaleAfter,
		TTLs: map[models.Section]time.Duration{
			models.SectionTrendingMovies: cfg.Cache.TrendingMoviesTTL,
			models.SectionTrendingNews:   cfg.Cache.TrendingNewsTTL,
		},
	})

	engine := router.New(router.Deps{
		Comments:       comments,
		Content:        content,
		Likes:          likes,
		Refresh:        refresh,
		Cache:          cache,
		Limiter:        services.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, cfg.RateLimit.Capacity),
		SessionSecret:  cfg.Server.SessionSecret,
		IdentityHeader: cfg.Server.IdentityHeader,
		CORSOrigins:    cfg.Server.CORSOrigins,
		AdminIDs:       cfg.Server.AdminIDs,
	})

	tree := supervisor.New(supervisor.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	server := &http.Server{Addr: ":" + cfg.Server.Port, Handler: engine}
	tree.AddAPI(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	if cfg.Refresh.Enabled {
		tree.AddJob(services.NewRefreshScheduler(refresh, cfg.Refresh.Interval, true))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("port", cfg.Server.Port).Msg("reelnotes server starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
	logging.Info().Msg("reelnotes server stopped")
}
