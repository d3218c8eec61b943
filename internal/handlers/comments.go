package handlers

import (
	"net/http"

	"reelnotes/internal/services"
	"reelnotes/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
	content  *services.ContentService
}

func NewCommentHandler(comments *services.CommentService, content *services.ContentService) *CommentHandler {
	return &CommentHandler{comments: comments, content: content}
}

// contentID 文章路由用 :slug，帖子路由用 :id
func (h *CommentHandler) contentID(c *gin.Context) (string, error) {
	ref := c.Param("slug")
	if ref == "" {
		ref = c.Param("id")
	}
	return h.content.ContentID(c.Request.Context(), ref)
}

// ListTopLevel GET /api/articles/:slug/comments
func (h *CommentHandler) ListTopLevel(c *gin.Context) {
	id, err := h.contentID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, size := pageParams(c)
	result, err := h.comments.FetchTopLevelComments(c.Request.Context(), id, page, size)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateRoot POST /api/articles/:slug/comments
func (h *CommentHandler) CreateRoot(c *gin.Context) {
	var body contentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	id, err := h.contentID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	comment, err := h.comments.CreateRootComment(c.Request.Context(), id, caller(c), body.Content)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListReplies GET /api/comments/:id/replies?nested=true
func (h *CommentHandler) ListReplies(c *gin.Context) {
	page, size := pageParams(c)
	nested := utils.ParseBool(c.Query("nested"), false)
	result, err := h.comments.FetchReplies(c.Request.Context(), c.Param("id"), page, size, nested)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateReply POST /api/comments/:id/replies
func (h *CommentHandler) CreateReply(c *gin.Context) {
	var body contentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	reply, err := h.comments.CreateReply(c.Request.Context(), c.Param("id"), caller(c), body.Content)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// Thread GET /api/comments/:id/thread
func (h *CommentHandler) Thread(c *gin.Context) {
	root, err := h.comments.FetchCommentThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, root)
}

// Update PUT /api/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	var body contentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	comment, err := h.comments.UpdateComment(c.Request.Context(), c.Param("id"), caller(c), body.Content)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Delete DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	result, err := h.comments.DeleteComment(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
