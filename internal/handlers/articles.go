package handlers

import (
	"net/http"

	"reelnotes/internal/services"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	content *services.ContentService
}

func NewArticleHandler(content *services.ContentService) *ArticleHandler {
	return &ArticleHandler{content: content}
}

// List GET /api/articles
func (h *ArticleHandler) List(c *gin.Context) {
	articles, err := h.content.ListArticles(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// Get GET /api/articles/:slug，每次读取都计一次浏览
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.content.GetArticleBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *ArticleHandler) Create(c *gin.Context) {
	var in services.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	article, err := h.content.CreateArticle(c.Request.Context(), caller(c), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

func (h *ArticleHandler) Update(c *gin.Context) {
	var in services.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	article, err := h.content.UpdateArticle(c.Request.Context(), c.Param("slug"), caller(c), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.content.DeleteArticle(c.Request.Context(), c.Param("slug"), caller(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
