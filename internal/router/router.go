package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tesla_parts_api/internal/controller"
	"tesla_parts_api/internal/middleware"
)

// Handlers 路由依赖的全部控制器
type Handlers struct {
	Auth    *controller.AuthController
	Catalog *controller.CatalogController
	Product *controller.ProductController
	Order   *controller.OrderController
	Setting *controller.SettingController
	Page    *controller.PageController
	SEO     *controller.SEOController
	Sitemap *controller.SitemapController
}

// Options 引擎级配置
type Options struct {
	CORSOrigins []string
	// StaticDir 本地上传目录，挂载到 /static
	StaticDir string
}

// NewEngine 创建带通用中间件的 gin 引擎
func NewEngine(log *zap.Logger, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(middleware.AuditLog(log))

	if opts.StaticDir != "" {
		r.Static("/static", opts.StaticDir)
	}
	return r
}

// InitRoutes 注册所有路由
// requireAdmin 统一挂在所有写操作与后台查询上
func InitRoutes(r *gin.Engine, h Handlers, requireAdmin gin.HandlerFunc) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Tesla Parts API is running"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/sitemap.xml", h.Sitemap.Sitemap)

	// auth 鉴权组
	auth := r.Group("/auth")
	{
		auth.POST("/token", h.Auth.Login)
		auth.POST("/refresh-token", h.Auth.RefreshToken)
		// 需要旧密码，不要求登录
		auth.POST("/reset-password", h.Auth.ResetPassword)
		auth.GET("/me", requireAdmin, h.Auth.Me)
	}

	// 分类树
	categories := r.Group("/categories")
	{
		categories.GET("/", h.Catalog.GetTree)

		admin := categories.Group("", requireAdmin)
		admin.POST("/", h.Catalog.CreateCategory)
		admin.PUT("/reorder", h.Catalog.ReorderCategories)
		admin.PUT("/:id", h.Catalog.UpdateCategory)
		admin.DELETE("/:id", h.Catalog.DeleteCategory)
		admin.POST("/:id/subcategories/", h.Catalog.CreateSubcategory)
		admin.PUT("/subcategories/:id", h.Catalog.UpdateSubcategory)
		admin.DELETE("/subcategories/:id", h.Catalog.DeleteSubcategory)
		admin.POST("/subcategories/:id/move", h.Catalog.MoveSubcategory)
		admin.POST("/subcategories/:id/copy", h.Catalog.CopySubcategory)
	}

	// 商品
	products := r.Group("/products")
	{
		products.GET("/", h.Product.GetProducts)
		products.GET("/labels", h.Product.GetLabels)
		products.GET("/:id", h.Product.GetProduct)

		admin := products.Group("", requireAdmin)
		admin.POST("/", h.Product.CreateProduct)
		admin.POST("/bulk-delete", h.Product.BulkDelete)
		admin.PUT("/:id", h.Product.UpdateProduct)
		admin.DELETE("/:id", h.Product.DeleteProduct)
	}

	// 订单：下单公开，其余仅后台
	orders := r.Group("/orders")
	{
		orders.POST("/", h.Order.Create)

		admin := orders.Group("", requireAdmin)
		admin.GET("/", h.Order.List)
		admin.GET("/:id", h.Order.GetByID)
		admin.PUT("/:id/ttn", h.Order.UpdateTTN)
		admin.PUT("/:id/status", h.Order.UpdateStatus)
	}

	// 站点设置
	settings := r.Group("/settings")
	{
		settings.GET("/", h.Setting.List)
		settings.GET("/social-links", h.Setting.GetSocialLinks)
		settings.GET("/:key", h.Setting.Get)

		admin := settings.Group("", requireAdmin)
		admin.POST("/social-links", h.Setting.SetSocialLinks)
		admin.POST("/:key", h.Setting.Set)
	}

	// 内容页
	pages := r.Group("/pages")
	{
		pages.GET("/", h.Page.List)
		pages.POST("/by-slugs", h.Page.BySlugs)
		pages.GET("/:id", h.Page.Get)

		admin := pages.Group("", requireAdmin)
		admin.POST("/", h.Page.Create)
		admin.PUT("/:id", h.Page.Update)
		admin.DELETE("/:id", h.Page.Delete)
	}

	// 静态页 SEO
	seo := r.Group("/seo")
	{
		seo.GET("/static", h.SEO.List)
		seo.GET("/static/:slug", h.SEO.Get)
		seo.PUT("/static/:slug", requireAdmin, h.SEO.Update)
	}
}
