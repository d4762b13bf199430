package model

// ==================== Category 顶级分类 ====================

// Category 顶级分类（车型），按 SortOrder 展示
type Category struct {
	BaseModel
	Name            string  `gorm:"size:255;not null"`
	Image           string  `gorm:"size:512"`
	SortOrder       int     `gorm:"default:0;index"`
	MetaTitle       *string `gorm:"size:255"`
	MetaDescription *string `gorm:"size:1024"`

	Subcategories []Subcategory `gorm:"foreignKey:CategoryID"`
}

func (Category) TableName() string {
	return "categories"
}

// ==================== Subcategory 子分类树 ====================

// Subcategory 子分类，ParentID 为空表示该分类下的根节点
// 父节点必须属于同一个 CategoryID
type Subcategory struct {
	BaseModel
	Name       string  `gorm:"size:255;not null"`
	Code       *string `gorm:"size:100"`
	Image      *string `gorm:"size:512"`
	CategoryID int64   `gorm:"index;not null"`
	ParentID   *int64  `gorm:"index"`
}

func (Subcategory) TableName() string {
	return "subcategories"
}

// IsRoot 是否为分类下的根节点
func (s *Subcategory) IsRoot() bool {
	return s.ParentID == nil
}
