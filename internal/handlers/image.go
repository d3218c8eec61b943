package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 * 1024 * 1024

// UploadImage 上传帖子图片 (POST /api/posts/:id/images)
// 表单字段 image 为文件，kind 可选 gallery / poster / review_poster
func (h *PostHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		badRequest(c, "请选择要上传的图片")
		return
	}
	defer file.Close()

	// 验证文件类型
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		badRequest(c, "只允许上传图片文件")
		return
	}
	// 验证文件大小（限制 10MB）
	if header.Size > maxImageSize {
		badRequest(c, "图片大小不能超过 10MB")
		return
	}

	img, err := h.content.AddPostImage(c.Request.Context(), c.Param("id"), caller(c), c.PostForm("kind"), header.Filename, file)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

// DeleteImage DELETE /api/posts/:id/images/:imageId
func (h *PostHandler) DeleteImage(c *gin.Context) {
	if err := h.content.DeletePostImage(c.Request.Context(), c.Param("id"), c.Param("imageId"), caller(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
