package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tesla_parts_api/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateLabel(ctx context.Context, id string, label string) error
	Delete(ctx context.Context, ids ...string) (int64, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	ListBySubcategories(ctx context.Context, subcategoryIDs []int64) ([]model.Product, error)
	DistinctLabels(ctx context.Context) ([]string, error)

	// 多分类挂载
	ListLinks(ctx context.Context, productIDs []string) ([]model.ProductSubcategoryLink, error)
	ListLinksBySubcategories(ctx context.Context, subcategoryIDs []int64) ([]model.ProductSubcategoryLink, error)
	ReplaceLinks(ctx context.Context, productID string, subcategoryIDs []int64) error
	CreateLinks(ctx context.Context, links []model.ProductSubcategoryLink) error
	DeleteLinksBySubcategories(ctx context.Context, subcategoryIDs []int64) error

	// 图集
	CreateImages(ctx context.Context, images []model.ProductImage) error
	ListImages(ctx context.Context, productID string) ([]model.ProductImage, error)
	DeleteImages(ctx context.Context, ids []int64) error

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error
}

// ==================== 过滤条件 ====================

// ProductFilter 商品过滤条件
type ProductFilter struct {
	Category      string // 旧版分类标签（包含匹配）
	SubcategoryID int64  // 直属或附加挂载
	Keyword       string // 名称 / 配件号 / 交叉号
	Offset        int
	Limit         int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// GetByID 预加载图集，不存在时返回 nil, nil
func (r *productRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Images", orderByID).
		Where("id = ?", id).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Images", orderByID).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&products).Error
	return products, err
}

// Update 只更新商品本身，图集由 CreateImages / DeleteImages 维护
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

func (r *productRepo) UpdateLabel(ctx context.Context, id string, label string) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("category", label).Error
}

// Delete 删除商品及其图集和挂载，返回删除的商品数
func (r *productRepo) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id IN ?", ids).Delete(&model.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id IN ?", ids).Delete(&model.ProductSubcategoryLink{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&model.Product{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.Category != "" {
		query = query.Where("category LIKE ?", "%"+filter.Category+"%")
	}

	if filter.SubcategoryID > 0 {
		linked := r.db.Model(&model.ProductSubcategoryLink{}).
			Select("product_id").
			Where("subcategory_id = ?", filter.SubcategoryID)
		query = query.Where("subcategory_id = ? OR id IN (?)", filter.SubcategoryID, linked)
	}

	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		query = query.Where("name LIKE ? OR detail_number LIKE ? OR cross_number LIKE ?", keyword, keyword, keyword)
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var products []model.Product
	err := query.
		Preload("Images", orderByID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&products).Error
	return products, err
}

// ListBySubcategories 直属于给定子分类的商品
func (r *productRepo) ListBySubcategories(ctx context.Context, subcategoryIDs []int64) ([]model.Product, error) {
	var products []model.Product
	if len(subcategoryIDs) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Images", orderByID).
		Where("subcategory_id IN ?", subcategoryIDs).
		Order("created_at ASC").
		Find(&products).Error
	return products, err
}

// DistinctLabels 当前使用中的旧版分类标签（未拆分）
func (r *productRepo) DistinctLabels(ctx context.Context) ([]string, error) {
	var labels []string
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("category <> ''").
		Distinct().
		Order("category ASC").
		Pluck("category", &labels).Error
	return labels, err
}

// ==================== 挂载 ====================

func (r *productRepo) ListLinks(ctx context.Context, productIDs []string) ([]model.ProductSubcategoryLink, error) {
	var links []model.ProductSubcategoryLink
	if len(productIDs) == 0 {
		return links, nil
	}
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("product_id ASC").
		Order("subcategory_id ASC").
		Find(&links).Error
	return links, err
}

func (r *productRepo) ListLinksBySubcategories(ctx context.Context, subcategoryIDs []int64) ([]model.ProductSubcategoryLink, error) {
	var links []model.ProductSubcategoryLink
	if len(subcategoryIDs) == 0 {
		return links, nil
	}
	err := r.db.WithContext(ctx).
		Where("subcategory_id IN ?", subcategoryIDs).
		Order("subcategory_id ASC").
		Order("product_id ASC").
		Find(&links).Error
	return links, err
}

// ReplaceLinks 全量重建商品的附加挂载
func (r *productRepo) ReplaceLinks(ctx context.Context, productID string, subcategoryIDs []int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&model.ProductSubcategoryLink{}).Error; err != nil {
		return err
	}
	if len(subcategoryIDs) == 0 {
		return nil
	}
	links := make([]model.ProductSubcategoryLink, 0, len(subcategoryIDs))
	for _, subID := range subcategoryIDs {
		links = append(links, model.ProductSubcategoryLink{ProductID: productID, SubcategoryID: subID})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

// CreateLinks 已存在的挂载忽略
func (r *productRepo) CreateLinks(ctx context.Context, links []model.ProductSubcategoryLink) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
}

func (r *productRepo) DeleteLinksBySubcategories(ctx context.Context, subcategoryIDs []int64) error {
	if len(subcategoryIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("subcategory_id IN ?", subcategoryIDs).
		Delete(&model.ProductSubcategoryLink{}).Error
}

// ==================== 图集 ====================

func (r *productRepo) CreateImages(ctx context.Context, images []model.ProductImage) error {
	if len(images) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&images).Error
}

func (r *productRepo) ListImages(ctx context.Context, productID string) ([]model.ProductImage, error) {
	var images []model.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&images).Error
	return images, err
}

func (r *productRepo) DeleteImages(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.ProductImage{}).Error
}

// 图集保持上传顺序
func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
