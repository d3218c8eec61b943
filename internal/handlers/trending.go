package handlers

import (
	"net/http"

	"reelnotes/internal/models"
	"reelnotes/internal/services"
	"reelnotes/internal/utils"

	"github.com/gin-gonic/gin"
)

type TrendingHandler struct {
	refresh *services.RefreshService
}

func NewTrendingHandler(refresh *services.RefreshService) *TrendingHandler {
	return &TrendingHandler{refresh: refresh}
}

func section(c *gin.Context) models.Section {
	return models.Section(c.Param("section"))
}

// List GET /api/trending/:section?limit=
func (h *TrendingHandler) List(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"), 0)
	items, err := h.refresh.ListRanked(c.Request.Context(), section(c), limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section(c), "items": items})
}

// Refresh POST /api/trending/:section/refresh
func (h *TrendingHandler) Refresh(c *gin.Context) {
	entry, err := h.refresh.Refresh(c.Request.Context(), section(c))
	if err != nil {
		status, code := errorStatus(err)
		if entry == nil || status == http.StatusInternalServerError {
			RespondError(c, err)
			return
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error(), "code": code, "log": entry})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Status GET /api/trending/:section/status
func (h *TrendingHandler) Status(c *gin.Context) {
	entry, err := h.refresh.LatestRefresh(c.Request.Context(), section(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

type rankBody struct {
	Rank int `json:"rank"`
}

// UpdateRank PUT /api/trending/:section/:itemId/rank
func (h *TrendingHandler) UpdateRank(c *gin.Context) {
	var body rankBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "请求格式错误")
		return
	}
	items, err := h.refresh.UpdateRank(c.Request.Context(), section(c), c.Param("itemId"), body.Rank)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section(c), "items": items})
}
