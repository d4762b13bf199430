package model

import "time"

// AdminUser 后台管理员
type AdminUser struct {
	BaseModel
	Username     string  `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string  `gorm:"size:255;not null"`
	RefreshToken *string `gorm:"size:64;uniqueIndex"`
	IsActive     bool    `gorm:"default:true"`
	LastLoginAt  *time.Time
}

func (AdminUser) TableName() string {
	return "admin_users"
}
