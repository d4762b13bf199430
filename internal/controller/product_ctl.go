package controller

import (
	"github.com/gin-gonic/gin"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/service"
)

// ==================== ProductController 商品 ====================

type ProductController struct {
	productSvc *service.ProductService
}

func NewProductController(productSvc *service.ProductService) *ProductController {
	return &ProductController{productSvc: productSvc}
}

// GetProducts 商品列表
// @Summary 获取商品列表
// @Description 支持按分类标签、子分类筛选，search 匹配名称、零件号、交叉编号
// @Tags Product
// @Produce json
// @Param category query string false "分类标签"
// @Param subcategory_id query int false "子分类ID"
// @Param search query string false "关键词"
// @Param offset query int false "偏移"
// @Param limit query int false "数量"
// @Success 200 {object} Response
// @Router /products/ [get]
func (c *ProductController) GetProducts(ctx *gin.Context) {
	var q dto.ProductListQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, "invalid query: "+err.Error())
		return
	}
	products, err := c.productSvc.List(ctx.Request.Context(), q)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, products)
}

// GetLabels 当前使用中的分类标签
// @Router /products/labels [get]
func (c *ProductController) GetLabels(ctx *gin.Context) {
	labels, err := c.productSvc.Labels(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, labels)
}

// GetProduct 商品详情
// @Router /products/{id} [get]
func (c *ProductController) GetProduct(ctx *gin.Context) {
	product, err := c.productSvc.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, product)
}

// CreateProduct 新建商品（multipart）
// @Summary 新建商品
// @Tags Product
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "名称"
// @Param priceUSD formData number false "美元价格"
// @Param subcategory_ids formData string false "子分类ID，第一个为主分类"
// @Param file formData file false "主图"
// @Param files formData file false "图集"
// @Success 200 {object} Response
// @Router /products/ [post]
func (c *ProductController) CreateProduct(ctx *gin.Context) {
	in, ok := bindProduct(ctx, false)
	if !ok {
		return
	}
	product, err := c.productSvc.Create(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, product)
}

// UpdateProduct 更新商品；kept_images 缺省时不调整图集
// @Router /products/{id} [put]
func (c *ProductController) UpdateProduct(ctx *gin.Context) {
	in, ok := bindProduct(ctx, true)
	if !ok {
		return
	}
	product, err := c.productSvc.Update(ctx.Request.Context(), ctx.Param("id"), in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, product)
}

// DeleteProduct 删除商品
// @Router /products/{id} [delete]
func (c *ProductController) DeleteProduct(ctx *gin.Context) {
	if err := c.productSvc.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, dto.OKResponse{OK: true})
}

// BulkDelete 批量删除
// @Router /products/bulk-delete [post]
func (c *ProductController) BulkDelete(ctx *gin.Context) {
	var req dto.BulkDeleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	deleted, err := c.productSvc.BulkDelete(ctx.Request.Context(), req.ProductIDs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, dto.BulkDeleteResp{Deleted: deleted})
}

// bindProduct 解析商品表单，update 时识别 kept_images
func bindProduct(ctx *gin.Context, update bool) (dto.ProductInput, bool) {
	form, err := multipartForm(ctx)
	if err != nil {
		badRequest(ctx, "invalid form: "+err.Error())
		return dto.ProductInput{}, false
	}

	var in dto.ProductInput
	in.ID, _ = formValue(form, "id")
	in.Name, _ = formValue(form, "name")
	in.Description, _ = formValue(form, "description")
	in.CrossNumber, _ = formValue(form, "cross_number")
	in.Image, _ = formValue(form, "image")
	in.DetailNumber = formOptString(form, "detail_number")
	in.InStock = formBool(form, "inStock")

	if in.PriceUSD, err = formFloat(form, "priceUSD"); err != nil {
		badRequest(ctx, err.Error())
		return dto.ProductInput{}, false
	}
	if in.PriceUAH, err = formFloat(form, "priceUAH"); err != nil {
		badRequest(ctx, err.Error())
		return dto.ProductInput{}, false
	}
	if in.SubcategoryIDs, err = formInt64List(form, "subcategory_ids"); err != nil {
		badRequest(ctx, err.Error())
		return dto.ProductInput{}, false
	}
	if in.File, err = formFile(form, "file"); err != nil {
		badRequest(ctx, err.Error())
		return dto.ProductInput{}, false
	}
	if in.Files, err = formFiles(form, "files"); err != nil {
		badRequest(ctx, err.Error())
		return dto.ProductInput{}, false
	}
	if update {
		in.KeptImages = formList(form, "kept_images")
	}
	return in, true
}
