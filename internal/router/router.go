package router

import (
	"net/http"

	"reelnotes/internal/handlers"
	"reelnotes/internal/middleware"
	"reelnotes/internal/services"
	"reelnotes/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 路由依赖的服务
type Deps struct {
	Comments *services.CommentService
	Content  *services.ContentService
	Likes    *services.LikeService
	Refresh  *services.RefreshService
	Cache    *utils.Cache
	Limiter  middleware.Limiter

	SessionSecret  string
	IdentityHeader string
	CORSOrigins    []string
	AdminIDs       []string
}

// New 创建 gin 引擎并注册全部路由
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	corsCfg := cors.DefaultConfig()
	if len(d.CORSOrigins) == 0 || (len(d.CORSOrigins) == 1 && d.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	if d.IdentityHeader != "" {
		corsCfg.AddAllowHeaders(d.IdentityHeader)
	}
	r.Use(cors.New(corsCfg))

	store := cookie.NewStore([]byte(d.SessionSecret))
	r.Use(sessions.Sessions("reelnotes_session", store))
	r.Use(middleware.LoadUser())
	if d.IdentityHeader != "" {
		r.Use(middleware.HeaderIdentity(d.IdentityHeader))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	articleHandler := handlers.NewArticleHandler(d.Content)
	postHandler := handlers.NewPostHandler(d.Content)
	commentHandler := handlers.NewCommentHandler(d.Comments, d.Content)
	likeHandler := handlers.NewLikeHandler(d.Likes)
	trendingHandler := handlers.NewTrendingHandler(d.Refresh)
	cacheHandler := handlers.NewCacheAdminHandler(d.Cache)

	auth := middleware.AuthRequired()
	admin := middleware.AdminRequired(d.AdminIDs)
	limit := func(action string) gin.HandlerFunc {
		if d.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(d.Limiter, action)
	}

	api := r.Group("/api")

	// 公共路由
	api.GET("/articles", articleHandler.List)
	api.GET("/articles/:slug", articleHandler.Get)
	api.GET("/articles/:slug/comments", commentHandler.ListTopLevel)
	api.GET("/posts", postHandler.List)
	api.GET("/posts/:id", postHandler.Get)
	api.GET("/posts/:id/comments", commentHandler.ListTopLevel)
	api.GET("/reviews/latest", postHandler.LatestReviews)
	api.GET("/top-picks", postHandler.TopPicks)
	api.GET("/comments/:id/replies", commentHandler.ListReplies)
	api.GET("/comments/:id/thread", commentHandler.Thread)
	api.GET("/likes/:kind/:id", likeHandler.Status)
	api.GET("/trending/:section", trendingHandler.List)
	api.GET("/trending/:section/status", trendingHandler.Status)

	// 需要登录
	authorized := api.Group("")
	authorized.Use(auth)
	{
		authorized.POST("/articles", articleHandler.Create)
		authorized.PUT("/articles/:slug", articleHandler.Update)
		authorized.DELETE("/articles/:slug", articleHandler.Delete)

		authorized.POST("/posts", postHandler.Create)
		authorized.PUT("/posts/:id", postHandler.Update)
		authorized.DELETE("/posts/:id", postHandler.Delete)
		authorized.POST("/posts/:id/images", postHandler.UploadImage)
		authorized.DELETE("/posts/:id/images/:imageId", postHandler.DeleteImage)

		authorized.POST("/articles/:slug/comments", limit("comment"), commentHandler.CreateRoot)
		authorized.POST("/posts/:id/comments", limit("comment"), commentHandler.CreateRoot)
		authorized.POST("/comments/:id/replies", limit("reply"), commentHandler.CreateReply)
		authorized.PUT("/comments/:id", commentHandler.Update)
		authorized.DELETE("/comments/:id", commentHandler.Delete)

		authorized.POST("/likes/:kind/:id", limit("like"), likeHandler.Toggle)
	}

	// 管理员
	adminGroup := api.Group("")
	adminGroup.Use(admin)
	{
		adminGroup.POST("/top-picks", postHandler.CreateTopPick)
		adminGroup.POST("/trending/:section/refresh", trendingHandler.Refresh)
		adminGroup.PUT("/trending/:section/:itemId/rank", trendingHandler.UpdateRank)

		adminGroup.GET("/admin/cache/keys", cacheHandler.Keys)
		adminGroup.GET("/admin/cache/keys/:key", cacheHandler.Info)
		adminGroup.DELETE("/admin/cache", cacheHandler.DeletePattern)
		adminGroup.DELETE("/admin/cache/all", cacheHandler.ClearAll)
	}

	return r
}
