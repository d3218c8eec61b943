package handlers

import (
	"net/http"

	"reelnotes/internal/services"

	"github.com/gin-gonic/gin"
)

// PostHandler 影评、图片、精选
type PostHandler struct {
	content *services.ContentService
}

func NewPostHandler(content *services.ContentService) *PostHandler {
	return &PostHandler{content: content}
}

// List GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.content.ListPosts(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// LatestReviews GET /api/posts/latest
func (h *PostHandler) LatestReviews(c *gin.Context) {
	posts, err := h.content.LatestReviews(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.content.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Create(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	post, err := h.content.CreatePost(c.Request.Context(), caller(c), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	post, err := h.content.UpdatePost(c.Request.Context(), c.Param("id"), caller(c), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.content.DeletePost(c.Request.Context(), c.Param("id"), caller(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TopPicks GET /api/top-picks
func (h *PostHandler) TopPicks(c *gin.Context) {
	picks, err := h.content.ListTopPicks(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_picks": picks})
}

// CreateTopPick POST /api/top-picks，仅管理员
func (h *PostHandler) CreateTopPick(c *gin.Context) {
	var in services.TopPickInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	pick, err := h.content.CreateTopPick(c.Request.Context(), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pick)
}
