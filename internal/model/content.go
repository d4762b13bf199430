package model

// ==================== Setting 键值配置 ====================

// 常用配置键
const (
	SettingExchangeRate     = "exchange_rate"
	SettingSocialLinks      = "social_links"
	SettingTelegramBotToken = "telegram_bot_token"
	SettingTelegramChatID   = "telegram_chat_id"
)

// Setting 键值配置
type Setting struct {
	Key   string `gorm:"primaryKey;size:128"`
	Value string `gorm:"type:text"`
}

func (Setting) TableName() string {
	return "settings"
}

// IsSecret 机器人凭证不对外暴露
func (s *Setting) IsSecret() bool {
	return s.Key == SettingTelegramBotToken || s.Key == SettingTelegramChatID
}

// ==================== Page 静态页面 ====================

// 页面展示位置
const (
	PageLocationHeader = "header"
	PageLocationFooter = "footer"
	PageLocationBoth   = "both"
	PageLocationNone   = "none"
)

type Page struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Slug        string `gorm:"size:255;uniqueIndex;not null"`
	Title       string `gorm:"size:255;not null"`
	Content     string `gorm:"type:text"`
	IsPublished bool   `gorm:"not null"`
	Location    string `gorm:"size:16;default:footer"`
}

func (Page) TableName() string {
	return "pages"
}

// ==================== StaticPageSEO 前台静态路由 SEO ====================

type StaticPageSEO struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Slug            string `gorm:"size:128;uniqueIndex;not null"`
	MetaTitle       string `gorm:"size:255"`
	MetaDescription string `gorm:"size:1024"`
}

func (StaticPageSEO) TableName() string {
	return "static_page_seo"
}
