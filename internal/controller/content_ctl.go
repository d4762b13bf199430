package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/service"
)

// ==================== SettingController 站点设置 ====================

type SettingController struct {
	settingSvc *service.SettingService
}

func NewSettingController(settingSvc *service.SettingService) *SettingController {
	return &SettingController{settingSvc: settingSvc}
}

// List 全部公开设置
// @Router /settings/ [get]
func (c *SettingController) List(ctx *gin.Context) {
	settings, err := c.settingSvc.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, settings)
}

// Get 读取单个设置，exchange_rate 缺省为 40.0
// @Router /settings/{key} [get]
func (c *SettingController) Get(ctx *gin.Context) {
	setting, err := c.settingSvc.Get(ctx.Request.Context(), ctx.Param("key"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, setting)
}

// Set 写入设置
// @Param request body dto.SettingUpdateRequest true "值"
// @Router /settings/{key} [post]
func (c *SettingController) Set(ctx *gin.Context) {
	var req dto.SettingUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	setting, err := c.settingSvc.Set(ctx.Request.Context(), ctx.Param("key"), req.Value)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, setting)
}

// GetSocialLinks 社交链接
// @Router /settings/social-links [get]
func (c *SettingController) GetSocialLinks(ctx *gin.Context) {
	links, err := c.settingSvc.SocialLinks(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, links)
}

// SetSocialLinks 整体覆盖社交链接
// @Router /settings/social-links [post]
func (c *SettingController) SetSocialLinks(ctx *gin.Context) {
	var links dto.SocialLinks
	if err := ctx.ShouldBindJSON(&links); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	saved, err := c.settingSvc.SetSocialLinks(ctx.Request.Context(), links)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, saved)
}

// ==================== PageController 内容页 ====================

type PageController struct {
	pageSvc *service.PageService
}

func NewPageController(pageSvc *service.PageService) *PageController {
	return &PageController{pageSvc: pageSvc}
}

// List 分页列表
// @Param offset query int false "偏移"
// @Param limit query int false "数量，最大 100"
// @Router /pages/ [get]
func (c *PageController) List(ctx *gin.Context) {
	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		badRequest(ctx, "offset must be a non-negative integer")
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(service.DefaultPageLimit)))
	if err != nil || limit < 0 {
		badRequest(ctx, "limit must be a non-negative integer")
		return
	}
	pages, err := c.pageSvc.List(ctx.Request.Context(), offset, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, pages)
}

// Get 按 ID 或 slug 读取
// @Router /pages/{slug_or_id} [get]
func (c *PageController) Get(ctx *gin.Context) {
	page, err := c.pageSvc.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, page)
}

// BySlugs 批量读取，保持请求顺序
// @Router /pages/by-slugs [post]
func (c *PageController) BySlugs(ctx *gin.Context) {
	var req dto.PagesBySlugsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	pages, err := c.pageSvc.BySlugs(ctx.Request.Context(), req.Slugs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, pages)
}

// Create 新建内容页
// @Router /pages/ [post]
func (c *PageController) Create(ctx *gin.Context) {
	var req dto.PageCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	page, err := c.pageSvc.Create(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, page)
}

// Update 部分更新
// @Router /pages/{id} [put]
func (c *PageController) Update(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	var req dto.PageUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	page, err := c.pageSvc.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, page)
}

// Delete 删除内容页
// @Router /pages/{id} [delete]
func (c *PageController) Delete(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	if err := c.pageSvc.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, dto.OKResponse{OK: true})
}

// ==================== SEOController 静态页 SEO ====================

type SEOController struct {
	seoSvc *service.SEOService
}

func NewSEOController(seoSvc *service.SEOService) *SEOController {
	return &SEOController{seoSvc: seoSvc}
}

// @Router /seo/static [get]
func (c *SEOController) List(ctx *gin.Context) {
	items, err := c.seoSvc.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, items)
}

// @Router /seo/static/{slug} [get]
func (c *SEOController) Get(ctx *gin.Context) {
	item, err := c.seoSvc.Get(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, item)
}

// Update 仅更新已存在的记录
// @Router /seo/static/{slug} [put]
func (c *SEOController) Update(ctx *gin.Context) {
	var req dto.SEOUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	item, err := c.seoSvc.Update(ctx.Request.Context(), ctx.Param("slug"), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, item)
}

// ==================== SitemapController ====================

type SitemapController struct {
	sitemapSvc *service.SitemapService
}

func NewSitemapController(sitemapSvc *service.SitemapService) *SitemapController {
	return &SitemapController{sitemapSvc: sitemapSvc}
}

// Sitemap 输出 XML，不走统一响应
// @Produce xml
// @Router /sitemap.xml [get]
func (c *SitemapController) Sitemap(ctx *gin.Context) {
	body, err := c.sitemapSvc.Build(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}
