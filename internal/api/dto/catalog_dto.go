package dto

// ==================== 请求 DTO ====================

// CategoryInput 创建 / 更新分类（multipart）
type CategoryInput struct {
	Name            string
	Image           *string
	SortOrder       *int
	MetaTitle       *string
	MetaDescription *string
	File            *UploadFile
}

// SubcategoryInput 创建 / 更新子分类（multipart）
// 更新时 ParentID 为空表示不修改父节点，ToRoot 为 true 时移到分类根部
type SubcategoryInput struct {
	Name     string
	Code     *string
	Image    *string
	ParentID *int64
	ToRoot   bool
	File     *UploadFile
}

// PlacementRequest 移动 / 复制子分类
type PlacementRequest struct {
	TargetCategoryID int64  `json:"target_category_id" binding:"required"`
	TargetParentID   *int64 `json:"target_parent_id"`
}

// ReorderCategoriesRequest 按数组顺序重排分类
type ReorderCategoriesRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

// ==================== 响应 DTO ====================

// CategoryResp 分类树节点
type CategoryResp struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	Image           string             `json:"image"`
	SortOrder       int                `json:"sort_order"`
	MetaTitle       *string            `json:"meta_title"`
	MetaDescription *string            `json:"meta_description"`
	Subcategories   []*SubcategoryResp `json:"subcategories"`
}

// SubcategoryResp 子分类节点，Products 为直属与附加挂载的并集
type SubcategoryResp struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Code          *string            `json:"code"`
	Image         *string            `json:"image"`
	CategoryID    int64              `json:"category_id"`
	ParentID      *int64             `json:"parent_id"`
	Products      []*ProductResp     `json:"products"`
	Subcategories []*SubcategoryResp `json:"subcategories"`
}

// CopyResult 复制结果
type CopyResult struct {
	Root          *SubcategoryResp `json:"root"`
	Subcategories int              `json:"subcategories"`
	LinksCreated  int              `json:"links_created"`
}
