package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/service"
)

type pageRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Format   string  `json:"format"`
	IsBlog   *bool   `json:"is_blog"`
	Featured *bool   `json:"featured"`
	Excerpt  *string `json:"excerpt"`
}

func (r pageRequest) empty() bool {
	return r.Title == nil && r.Content == nil && r.IsBlog == nil && r.Featured == nil && r.Excerpt == nil
}

func (r pageRequest) toInput() service.PageInput {
	input := service.PageInput{Format: r.Format, Excerpt: r.Excerpt}
	if r.Title != nil {
		input.Title = *r.Title
	}
	if r.Content != nil {
		input.Content = *r.Content
	}
	if r.IsBlog != nil {
		input.IsBlog = *r.IsBlog
	}
	if r.Featured != nil {
		input.Featured = *r.Featured
	}
	return input
}

func (r pageRequest) toUpdate() service.PageUpdate {
	return service.PageUpdate{
		Title:    r.Title,
		Content:  r.Content,
		Format:   r.Format,
		IsBlog:   r.IsBlog,
		Featured: r.Featured,
		Excerpt:  r.Excerpt,
	}
}

// ListPages 返回普通页面，或在 type=blog 时返回文章列表。
func (a *API) ListPages(c *gin.Context) {
	filter := service.PageFilter{
		IsBlog:       c.Query("type") == "blog",
		FeaturedOnly: c.Query("featured") == "true",
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		// 非法的 limit 会被忽略
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	pages, err := a.pages.List(c.Request.Context(), filter)
	if err != nil {
		a.respondServiceError(c, err, "Failed to load pages")
		return
	}
	c.JSON(http.StatusOK, pages)
}

// GetPage 按 slug 返回页面。
func (a *API) GetPage(c *gin.Context) {
	page, err := a.pages.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "Failed to load page")
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreatePage 创建页面或文章。
func (a *API) CreatePage(c *gin.Context) {
	var req pageRequest
	if !bindJSON(c, &req, "Missing JSON in request") {
		return
	}
	if req.Title == nil {
		respondError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	page, err := a.pages.Create(c.Request.Context(), editorFrom(c), req.toInput())
	if err != nil {
		a.respondServiceError(c, err, "Failed to create page")
		return
	}
	c.JSON(http.StatusCreated, page)
}

// UpdatePage 局部更新页面，未提供的字段保持不变。
func (a *API) UpdatePage(c *gin.Context) {
	var req pageRequest
	if !bindJSON(c, &req, "Missing JSON in request") {
		return
	}
	if req.empty() {
		respondError(c, http.StatusBadRequest, "No update data provided")
		return
	}

	page, err := a.pages.Update(c.Request.Context(), editorFrom(c), c.Param("slug"), req.toUpdate())
	if err != nil {
		a.respondServiceError(c, err, "Failed to update page")
		return
	}
	c.JSON(http.StatusOK, page)
}

// DeletePage 删除页面。
func (a *API) DeletePage(c *gin.Context) {
	if err := a.pages.Delete(c.Request.Context(), editorFrom(c), c.Param("slug")); err != nil {
		a.respondServiceError(c, err, "Failed to delete page")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Page deleted successfully"})
}

// ToggleFeatured 切换文章的精选状态。
func (a *API) ToggleFeatured(c *gin.Context) {
	page, err := a.pages.ToggleFeatured(c.Request.Context(), editorFrom(c), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "Failed to update page")
		return
	}
	c.JSON(http.StatusOK, page)
}
