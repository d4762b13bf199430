package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tesla_parts_api/internal/model"
)

// ==================== SettingRepository 键值配置 ====================

type SettingRepository interface {
	Get(ctx context.Context, key string) (*model.Setting, error)
	List(ctx context.Context) ([]model.Setting, error)
	Upsert(ctx context.Context, key, value string) error
}

type settingRepo struct {
	db *gorm.DB
}

// NewSettingRepository 创建配置仓库
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepo{db: db}
}

// Get 不存在时返回 nil, nil
func (r *settingRepo) Get(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	err := r.db.WithContext(ctx).Where(&model.Setting{Key: key}).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepo) List(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	// key 在 MySQL 中是保留字，交给 clause 转义
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&settings).Error
	return settings, err
}

func (r *settingRepo) Upsert(ctx context.Context, key, value string) error {
	setting := model.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&setting).Error
}

// ==================== PageRepository 静态页面 ====================

type PageRepository interface {
	Create(ctx context.Context, page *model.Page) error
	GetByID(ctx context.Context, id int64) (*model.Page, error)
	GetBySlug(ctx context.Context, slug string) (*model.Page, error)
	GetBySlugs(ctx context.Context, slugs []string) ([]model.Page, error)
	List(ctx context.Context, offset, limit int) ([]model.Page, error)
	ListPublished(ctx context.Context) ([]model.Page, error)
	Update(ctx context.Context, page *model.Page) error
	Delete(ctx context.Context, id int64) error
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

type pageRepo struct {
	db *gorm.DB
}

// NewPageRepository 创建页面仓库
func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepo{db: db}
}

func (r *pageRepo) Create(ctx context.Context, page *model.Page) error {
	return r.db.WithContext(ctx).Create(page).Error
}

func (r *pageRepo) GetByID(ctx context.Context, id int64) (*model.Page, error) {
	var page model.Page
	err := r.db.WithContext(ctx).First(&page, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *pageRepo) GetBySlug(ctx context.Context, slug string) (*model.Page, error) {
	var page model.Page
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBySlugs 顺序由调用方决定
func (r *pageRepo) GetBySlugs(ctx context.Context, slugs []string) ([]model.Page, error) {
	var pages []model.Page
	if len(slugs) == 0 {
		return pages, nil
	}
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&pages).Error
	return pages, err
}

func (r *pageRepo) List(ctx context.Context, offset, limit int) ([]model.Page, error) {
	var pages []model.Page
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&pages).Error
	return pages, err
}

func (r *pageRepo) ListPublished(ctx context.Context) ([]model.Page, error) {
	var pages []model.Page
	err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("id ASC").
		Find(&pages).Error
	return pages, err
}

func (r *pageRepo) Update(ctx context.Context, page *model.Page) error {
	return r.db.WithContext(ctx).Save(page).Error
}

func (r *pageRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Page{}, id).Error
}

func (r *pageRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Page{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// ==================== SEORepository 静态路由 SEO ====================

type SEORepository interface {
	List(ctx context.Context) ([]model.StaticPageSEO, error)
	GetBySlug(ctx context.Context, slug string) (*model.StaticPageSEO, error)
	Update(ctx context.Context, seo *model.StaticPageSEO) error
	// EnsureDefaults 只插入缺失的 slug，已有记录保持不变
	EnsureDefaults(ctx context.Context, defaults []model.StaticPageSEO) error
}

type seoRepo struct {
	db *gorm.DB
}

// NewSEORepository 创建 SEO 仓库
func NewSEORepository(db *gorm.DB) SEORepository {
	return &seoRepo{db: db}
}

func (r *seoRepo) List(ctx context.Context) ([]model.StaticPageSEO, error) {
	var items []model.StaticPageSEO
	err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *seoRepo) GetBySlug(ctx context.Context, slug string) (*model.StaticPageSEO, error) {
	var item model.StaticPageSEO
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *seoRepo) Update(ctx context.Context, seo *model.StaticPageSEO) error {
	return r.db.WithContext(ctx).Save(seo).Error
}

func (r *seoRepo) EnsureDefaults(ctx context.Context, defaults []model.StaticPageSEO) error {
	if len(defaults) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).
		Create(&defaults).Error
}
