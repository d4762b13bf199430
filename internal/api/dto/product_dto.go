package dto

// ==================== 请求 DTO ====================

// ProductInput 创建 / 更新商品（multipart）
type ProductInput struct {
	ID             string
	Name           string
	Description    string
	PriceUSD       float64
	PriceUAH       float64
	InStock        bool
	DetailNumber   *string
	CrossNumber    string
	SubcategoryIDs []int64 // 第一个为主分类
	Image          string  // 显式主图 URL
	File           *UploadFile
	Files          []*UploadFile
	// KeptImages 仅更新时有效：保留的图集 URL，nil 表示不调整图集
	KeptImages []string
}

// ProductListQuery 商品列表查询
type ProductListQuery struct {
	Category      string `form:"category"`
	SubcategoryID int64  `form:"subcategory_id"`
	Search        string `form:"search"`
	Offset        int    `form:"offset"`
	Limit         int    `form:"limit"`
}

// BulkDeleteRequest 批量删除
type BulkDeleteRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required,min=1"`
}

// ==================== 响应 DTO ====================

// ProductResp 商品，价格已按当前汇率解析
type ProductResp struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	SubcategoryID  *int64   `json:"subcategory_id"`
	SubcategoryIDs []int64  `json:"subcategory_ids"`
	PriceUSD       float64  `json:"priceUSD"`
	PriceUAH       float64  `json:"priceUAH"`
	Image          string   `json:"image"`
	Images         []string `json:"images"`
	Description    string   `json:"description"`
	InStock        bool     `json:"inStock"`
	DetailNumber   *string  `json:"detail_number"`
	CrossNumber    string   `json:"cross_number"`
}

// BulkDeleteResp 批量删除结果
type BulkDeleteResp struct {
	Deleted int64 `json:"deleted"`
}
