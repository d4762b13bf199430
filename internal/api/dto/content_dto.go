package dto

// ==================== Setting ====================

type SettingResp struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type SettingUpdateRequest struct {
	Value string `json:"value"`
}

// SocialLinks 社交网络 -> 链接
type SocialLinks map[string]string

// ==================== Page ====================

type PageCreateRequest struct {
	Slug        string `json:"slug" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content"`
	IsPublished *bool  `json:"is_published"`
	Location    string `json:"location" binding:"omitempty,oneof=header footer both none"`
}

// PageUpdateRequest 部分更新，nil 字段不修改
type PageUpdateRequest struct {
	Slug        *string `json:"slug"`
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	IsPublished *bool   `json:"is_published"`
	Location    *string `json:"location" binding:"omitempty,oneof=header footer both none"`
}

type PagesBySlugsRequest struct {
	Slugs []string `json:"slugs"`
}

type PageResp struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsPublished bool   `json:"is_published"`
	Location    string `json:"location"`
}

// ==================== SEO ====================

type SEOResp struct {
	ID              int64  `json:"id"`
	Slug            string `json:"slug"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

type SEOUpdateRequest struct {
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
}
