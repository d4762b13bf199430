package controller

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/service"
)

// ==================== CatalogController 分类树 ====================

type CatalogController struct {
	catalogSvc *service.CatalogService
}

func NewCatalogController(catalogSvc *service.CatalogService) *CatalogController {
	return &CatalogController{catalogSvc: catalogSvc}
}

// GetTree 分类树
// @Summary 获取分类树
// @Description 分类 -> 子分类（递归）-> 商品，价格按当前汇率换算
// @Tags Category
// @Produce json
// @Success 200 {object} Response
// @Router /categories/ [get]
func (c *CatalogController) GetTree(ctx *gin.Context) {
	tree, err := c.catalogSvc.GetTree(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, tree)
}

// CreateCategory 新建分类（multipart）
// @Summary 新建分类
// @Tags Category
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "名称"
// @Param image formData string false "图片 URL"
// @Param file formData file false "图片文件"
// @Success 200 {object} Response
// @Router /categories/ [post]
func (c *CatalogController) CreateCategory(ctx *gin.Context) {
	in, ok := c.bindCategory(ctx)
	if !ok {
		return
	}
	resp, err := c.catalogSvc.CreateCategory(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// UpdateCategory 更新分类，未提交的字段不修改
// @Router /categories/{id} [put]
func (c *CatalogController) UpdateCategory(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	in, ok := c.bindCategory(ctx)
	if !ok {
		return
	}
	resp, err := c.catalogSvc.UpdateCategory(ctx.Request.Context(), id, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// DeleteCategory 删除分类及其子分类
// @Router /categories/{id} [delete]
func (c *CatalogController) DeleteCategory(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	if err := c.catalogSvc.DeleteCategory(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, dto.OKResponse{OK: true})
}

// ReorderCategories 按数组顺序重排
// @Router /categories/reorder [put]
func (c *CatalogController) ReorderCategories(ctx *gin.Context) {
	var req dto.ReorderCategoriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	if err := c.catalogSvc.ReorderCategories(ctx.Request.Context(), req.IDs); err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, dto.OKResponse{OK: true})
}

// ==================== 子分类 ====================

// CreateSubcategory 在分类下新建子分类
// @Router /categories/{id}/subcategories/ [post]
func (c *CatalogController) CreateSubcategory(ctx *gin.Context) {
	categoryID, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	in, ok := c.bindSubcategory(ctx)
	if !ok {
		return
	}
	resp, err := c.catalogSvc.CreateSubcategory(ctx.Request.Context(), categoryID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// UpdateSubcategory parent_id 为空串或 null 时移到分类根部
// @Router /categories/subcategories/{id} [put]
func (c *CatalogController) UpdateSubcategory(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	in, ok := c.bindSubcategory(ctx)
	if !ok {
		return
	}
	resp, err := c.catalogSvc.UpdateSubcategory(ctx.Request.Context(), id, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// DeleteSubcategory 删除子分类及其整棵子树
// @Router /categories/subcategories/{id} [delete]
func (c *CatalogController) DeleteSubcategory(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	if err := c.catalogSvc.DeleteSubcategory(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, dto.OKResponse{OK: true})
}

// MoveSubcategory 移动子树
// @Router /categories/subcategories/{id}/move [post]
func (c *CatalogController) MoveSubcategory(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	var req dto.PlacementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	resp, err := c.catalogSvc.MoveSubcategory(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// CopySubcategory 深拷贝子树，商品只追加挂载
// @Router /categories/subcategories/{id}/copy [post]
func (c *CatalogController) CopySubcategory(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	var req dto.PlacementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	resp, err := c.catalogSvc.CopySubcategory(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// ==================== 表单绑定 ====================

func (c *CatalogController) bindCategory(ctx *gin.Context) (dto.CategoryInput, bool) {
	form, err := multipartForm(ctx)
	if err != nil {
		badRequest(ctx, "invalid form: "+err.Error())
		return dto.CategoryInput{}, false
	}
	file, err := formFile(form, "file")
	if err != nil {
		badRequest(ctx, err.Error())
		return dto.CategoryInput{}, false
	}
	in := dto.CategoryInput{
		Image:           formOptString(form, "image"),
		MetaTitle:       formOptString(form, "meta_title"),
		MetaDescription: formOptString(form, "meta_description"),
		File:            file,
	}
	in.Name, _ = formValue(form, "name")
	if v, ok := formValue(form, "sort_order"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(ctx, "sort_order must be an integer")
			return dto.CategoryInput{}, false
		}
		in.SortOrder = &n
	}
	return in, true
}

func (c *CatalogController) bindSubcategory(ctx *gin.Context) (dto.SubcategoryInput, bool) {
	form, err := multipartForm(ctx)
	if err != nil {
		badRequest(ctx, "invalid form: "+err.Error())
		return dto.SubcategoryInput{}, false
	}
	file, err := formFile(form, "file")
	if err != nil {
		badRequest(ctx, err.Error())
		return dto.SubcategoryInput{}, false
	}
	in := dto.SubcategoryInput{
		Code:  formOptString(form, "code"),
		Image: formOptString(form, "image"),
		File:  file,
	}
	in.Name, _ = formValue(form, "name")
	parentID, toRoot, err := parseParentID(form)
	if err != nil {
		badRequest(ctx, err.Error())
		return dto.SubcategoryInput{}, false
	}
	in.ParentID, in.ToRoot = parentID, toRoot
	return in, true
}

// parseParentID 缺省不修改；空串、null、0 表示根部
func parseParentID(form *multipart.Form) (*int64, bool, error) {
	v, ok := formValue(form, "parent_id")
	if !ok {
		return nil, false, nil
	}
	switch strings.ToLower(v) {
	case "", "null", "none", "0":
		return nil, true, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false, errInvalidField("parent_id")
	}
	return &id, false, nil
}
