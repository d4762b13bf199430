package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tesla_parts_api/internal/model"
)

// ==================== CategoryRepository 分类仓库 ====================

// CategoryRepository 顶级分类仓库接口
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	UpdateSortOrder(ctx context.Context, id int64, sortOrder int) error
	Delete(ctx context.Context, id int64) error
	MaxSortOrder(ctx context.Context) (int, bool, error)

	WithTx(tx *gorm.DB) CategoryRepository
}

type categoryRepo struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓库
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) WithTx(tx *gorm.DB) CategoryRepository {
	return &categoryRepo{db: tx}
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Omit("Subcategories").Create(category).Error
}

// GetByID 不存在时返回 nil, nil
func (r *categoryRepo) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.Category, error) {
	var categories []model.Category
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error
	return categories, err
}

// List 按 (sort_order, id) 排序
func (r *categoryRepo) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) Update(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Omit("Subcategories").Save(category).Error
}

func (r *categoryRepo) UpdateSortOrder(ctx context.Context, id int64, sortOrder int) error {
	return r.db.WithContext(ctx).
		Model(&model.Category{}).
		Where("id = ?", id).
		Update("sort_order", sortOrder).Error
}

func (r *categoryRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Category{}, id).Error
}

// MaxSortOrder 返回当前最大排序值，没有分类时 ok=false
func (r *categoryRepo) MaxSortOrder(ctx context.Context) (int, bool, error) {
	var result struct {
		Max   int
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Category{}).
		Select("COALESCE(MAX(sort_order), 0) AS max, COUNT(*) AS count").
		Scan(&result).Error
	if err != nil {
		return 0, false, err
	}
	return result.Max, result.Count > 0, nil
}

// ==================== SubcategoryRepository 子分类仓库 ====================

// SubcategoryRepository 子分类仓库接口
type SubcategoryRepository interface {
	Create(ctx context.Context, sub *model.Subcategory) error
	GetByID(ctx context.Context, id int64) (*model.Subcategory, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Subcategory, error)
	ListAll(ctx context.Context) ([]model.Subcategory, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]model.Subcategory, error)
	Update(ctx context.Context, sub *model.Subcategory) error
	UpdatePlacement(ctx context.Context, id int64, categoryID int64, parentID *int64) error
	SetCategory(ctx context.Context, ids []int64, categoryID int64) error
	DeleteByIDs(ctx context.Context, ids []int64) error

	WithTx(tx *gorm.DB) SubcategoryRepository
}

type subcategoryRepo struct {
	db *gorm.DB
}

// NewSubcategoryRepository 创建子分类仓库
func NewSubcategoryRepository(db *gorm.DB) SubcategoryRepository {
	return &subcategoryRepo{db: db}
}

func (r *subcategoryRepo) WithTx(tx *gorm.DB) SubcategoryRepository {
	return &subcategoryRepo{db: tx}
}

func (r *subcategoryRepo) Create(ctx context.Context, sub *model.Subcategory) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// GetByID 不存在时返回 nil, nil
func (r *subcategoryRepo) GetByID(ctx context.Context, id int64) (*model.Subcategory, error) {
	var sub model.Subcategory
	err := r.db.WithContext(ctx).First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subcategoryRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.Subcategory, error) {
	var subs []model.Subcategory
	if len(ids) == 0 {
		return subs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&subs).Error
	return subs, err
}

func (r *subcategoryRepo) ListAll(ctx context.Context) ([]model.Subcategory, error) {
	var subs []model.Subcategory
	err := r.db.WithContext(ctx).Order("id ASC").Find(&subs).Error
	return subs, err
}

func (r *subcategoryRepo) ListByCategory(ctx context.Context, categoryID int64) ([]model.Subcategory, error) {
	var subs []model.Subcategory
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *subcategoryRepo) Update(ctx context.Context, sub *model.Subcategory) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// UpdatePlacement 更新单个节点的分类与父节点
func (r *subcategoryRepo) UpdatePlacement(ctx context.Context, id int64, categoryID int64, parentID *int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Subcategory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"category_id": categoryID,
			"parent_id":   parentID,
		}).Error
}

// SetCategory 批量修改子树的分类
func (r *subcategoryRepo) SetCategory(ctx context.Context, ids []int64, categoryID int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Subcategory{}).
		Where("id IN ?", ids).
		Update("category_id", categoryID).Error
}

func (r *subcategoryRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Subcategory{}).Error
}

// ==================== CatalogUnitOfWork 分类树工作单元 ====================

// CatalogUnitOfWork 分类树 + 商品的事务单元
// 移动、复制、级联删除都必须在同一个事务内完成
type CatalogUnitOfWork struct {
	db            *gorm.DB
	Categories    CategoryRepository
	Subcategories SubcategoryRepository
	Products      ProductRepository
}

// NewCatalogUnitOfWork 创建工作单元
func NewCatalogUnitOfWork(db *gorm.DB) *CatalogUnitOfWork {
	return &CatalogUnitOfWork{
		db:            db,
		Categories:    NewCategoryRepository(db),
		Subcategories: NewSubcategoryRepository(db),
		Products:      NewProductRepository(db),
	}
}

// Transaction 执行事务，fn 返回错误时整体回滚
func (u *CatalogUnitOfWork) Transaction(ctx context.Context, fn func(uow *CatalogUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUow := &CatalogUnitOfWork{
			db:            tx,
			Categories:    NewCategoryRepository(tx),
			Subcategories: NewSubcategoryRepository(tx),
			Products:      NewProductRepository(tx),
		}
		return fn(txUow)
	})
}
