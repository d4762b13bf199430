package model

import (
	"time"
)

// PlaceholderImage 没有任何图片时的占位图
const PlaceholderImage = "https://placehold.co/600x400?text=No+Image"

// ==================== Product 商品 ====================

// Product 商品
// PriceUSD 为权威价格，PriceUAH 由汇率派生
// Category 为旧版逗号分隔的分类名称，由分类树派生，不作为数据来源
type Product struct {
	ID        string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name          string `gorm:"size:255;not null"`
	Category      string `gorm:"column:category;size:1024;index"`
	SubcategoryID *int64 `gorm:"index"`

	PriceUSD float64 `gorm:"column:price_usd;default:0"`
	PriceUAH float64 `gorm:"column:price_uah;default:0"`

	Image        string  `gorm:"size:512"`
	Description  string  `gorm:"type:text"`
	InStock      bool    `gorm:"column:in_stock"`
	DetailNumber *string `gorm:"size:255;index"`
	CrossNumber  string  `gorm:"size:1024;default:''"`

	Images []ProductImage `gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string {
	return "products"
}

// HasPlacement 是否挂载在任何子分类下（包括已失效的主分类）
func (p *Product) HasPlacement(links []ProductSubcategoryLink) bool {
	return p.SubcategoryID != nil || len(links) > 0
}

// GalleryURLs 图集 URL，保持上传顺序
func (p *Product) GalleryURLs() []string {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, img.URL)
	}
	return urls
}

// ==================== ProductImage 商品图集 ====================

type ProductImage struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ProductID string `gorm:"size:64;index;not null"`
	URL       string `gorm:"column:url;size:512;not null"`
}

func (ProductImage) TableName() string {
	return "product_images"
}

// ==================== ProductSubcategoryLink 多分类挂载 ====================

// ProductSubcategoryLink 商品在主分类之外的附加挂载
type ProductSubcategoryLink struct {
	ProductID     string `gorm:"primaryKey;size:64"`
	SubcategoryID int64  `gorm:"primaryKey;index"`
}

func (ProductSubcategoryLink) TableName() string {
	return "product_subcategory_links"
}
