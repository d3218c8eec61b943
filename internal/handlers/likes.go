package handlers

import (
	"net/http"

	"reelnotes/internal/models"
	"reelnotes/internal/services"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	likes *services.LikeService
}

func NewLikeHandler(likes *services.LikeService) *LikeHandler {
	return &LikeHandler{likes: likes}
}

// Toggle POST /api/likes/:kind/:id
func (h *LikeHandler) Toggle(c *gin.Context) {
	kind := models.LikeTarget(c.Param("kind"))
	state, err := h.likes.ToggleLike(c.Request.Context(), caller(c), c.Param("id"), kind)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Status GET /api/likes/:kind/:id，匿名可访问
func (h *LikeHandler) Status(c *gin.Context) {
	kind := models.LikeTarget(c.Param("kind"))
	state, err := h.likes.GetLikeStatus(c.Request.Context(), caller(c), c.Param("id"), kind)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
