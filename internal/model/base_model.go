package model

import (
	"time"
)

// BaseModel 自增主键 + 时间戳
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllModels 需要自动建表的模型
func AllModels() []interface{} {
	return []interface{}{
		&Category{}, &Subcategory{},
		&Product{}, &ProductImage{}, &ProductSubcategoryLink{},
		&Order{}, &OrderItem{},
		&Setting{}, &Page{}, &StaticPageSEO{},
		&AdminUser{},
	}
}
