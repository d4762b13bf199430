package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// ==================== ProductService 商品与图集 ====================

// ProductService 商品服务
// 图片上传在事务外进行，失败只记日志；事务失败时清理本次上传的文件
type ProductService struct {
	uow         *repository.CatalogUnitOfWork
	pricing     *PricingService
	images      ImageStore
	placeholder string
	log         *zap.Logger
}

// NewProductService 创建商品服务，placeholder 为空时使用内置占位图
func NewProductService(uow *repository.CatalogUnitOfWork, pricing *PricingService, images ImageStore, placeholder string, log *zap.Logger) *ProductService {
	if placeholder == "" {
		placeholder = model.PlaceholderImage
	}
	return &ProductService{
		uow:         uow,
		pricing:     pricing,
		images:      images,
		placeholder: placeholder,
		log:         log,
	}
}

// ==================== 创建 ====================

// Create 创建商品
// 主图：显式 URL > 第一张上传图 > 占位图；图集按上传顺序保存（file 在前，files 在后）
func (s *ProductService) Create(ctx context.Context, in dto.ProductInput) (*dto.ProductResp, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Validation("product name is required")
	}
	subIDs := uniqueInt64s(in.SubcategoryIDs)
	if err := s.checkSubcategories(ctx, subIDs); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	}

	gallery := s.uploadAll(ctx, in.File, in.Files)
	rate := s.pricing.ResolveExchangeRate(ctx)
	usd, uah := ComputePriceFields(in.PriceUSD, in.PriceUAH, rate)

	product := &model.Product{
		ID:           id,
		Name:         name,
		PriceUSD:     usd,
		PriceUAH:     uah,
		Description:  in.Description,
		InStock:      in.InStock,
		DetailNumber: emptyToNil(in.DetailNumber),
		CrossNumber:  strings.TrimSpace(in.CrossNumber),
	}
	switch {
	case strings.TrimSpace(in.Image) != "":
		product.Image = strings.TrimSpace(in.Image)
	case len(gallery) > 0:
		product.Image = gallery[0]
	default:
		product.Image = s.placeholder
	}
	if len(subIDs) > 0 {
		product.SubcategoryID = &subIDs[0]
	}

	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		if err := tx.Products.Create(ctx, product); err != nil {
			return err
		}
		if err := tx.Products.CreateImages(ctx, galleryRows(id, gallery)); err != nil {
			return err
		}
		if err := tx.Products.ReplaceLinks(ctx, id, extraSubcategories(subIDs)); err != nil {
			return err
		}
		return projectorFor(tx).Refresh(ctx, []string{id})
	})
	if err != nil {
		s.discard(ctx, gallery)
		return nil, translateStoreError("Product", err)
	}

	s.log.Info("product created", zap.String("product_id", id), zap.Int("images", len(gallery)))
	return s.Get(ctx, id)
}

// ==================== 更新 ====================

// Update 覆盖基础字段并对账图集
// KeptImages 之外的图集删除，新上传追加；主图被删或为空时取图集第一张，图集为空则用占位图
func (s *ProductService) Update(ctx context.Context, id string, in dto.ProductInput) (*dto.ProductResp, error) {
	existing, err := s.uow.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NotFound("Product")
	}

	var subIDs []int64
	if in.SubcategoryIDs != nil {
		subIDs = uniqueInt64s(in.SubcategoryIDs)
		if err := s.checkSubcategories(ctx, subIDs); err != nil {
			return nil, err
		}
	}

	var primaryUpload string
	if in.File.HasContent() {
		if url, err := s.images.UploadImage(ctx, in.File, FolderProducts); err == nil {
			primaryUpload = url
		}
	}
	uploaded := s.uploadAll(ctx, nil, in.Files)
	if primaryUpload != "" {
		uploaded = append([]string{primaryUpload}, uploaded...)
	}
	rate := s.pricing.ResolveExchangeRate(ctx)

	var removed []string
	err = s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		product, err := tx.Products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return NotFound("Product")
		}

		if name := strings.TrimSpace(in.Name); name != "" {
			product.Name = name
		}
		product.Description = in.Description
		product.PriceUSD, product.PriceUAH = ComputePriceFields(in.PriceUSD, in.PriceUAH, rate)
		product.InStock = in.InStock
		product.DetailNumber = emptyToNil(in.DetailNumber)
		product.CrossNumber = strings.TrimSpace(in.CrossNumber)

		// 图集对账
		var gallery []string
		var dropIDs []int64
		if in.KeptImages != nil {
			kept := make(map[string]struct{}, len(in.KeptImages))
			for _, u := range in.KeptImages {
				kept[strings.TrimSpace(u)] = struct{}{}
			}
			for _, img := range product.Images {
				if _, ok := kept[img.URL]; ok {
					gallery = append(gallery, img.URL)
					continue
				}
				dropIDs = append(dropIDs, img.ID)
				removed = append(removed, img.URL)
			}
		} else {
			gallery = product.GalleryURLs()
		}
		if err := tx.Products.DeleteImages(ctx, dropIDs); err != nil {
			return err
		}
		if err := tx.Products.CreateImages(ctx, galleryRows(id, uploaded)); err != nil {
			return err
		}
		gallery = append(gallery, uploaded...)

		// 主图
		if explicit := strings.TrimSpace(in.Image); explicit != "" {
			product.Image = explicit
		}
		if primaryUpload != "" {
			product.Image = primaryUpload
		}
		if product.Image == "" || product.Image == s.placeholder || containsString(removed, product.Image) {
			if len(gallery) > 0 {
				product.Image = gallery[0]
			} else {
				product.Image = s.placeholder
			}
		}

		if in.SubcategoryIDs != nil {
			product.SubcategoryID = nil
			if len(subIDs) > 0 {
				product.SubcategoryID = &subIDs[0]
			}
			if err := tx.Products.ReplaceLinks(ctx, id, extraSubcategories(subIDs)); err != nil {
				return err
			}
		}

		if err := tx.Products.Update(ctx, product); err != nil {
			return err
		}
		return projectorFor(tx).Refresh(ctx, []string{id})
	})
	if err != nil {
		s.discard(ctx, uploaded)
		return nil, translateStoreError("Product", err)
	}

	// 提交后再删除存储中的文件
	s.discard(ctx, removed)
	return s.Get(ctx, id)
}

// ==================== 读取 ====================

// Get 单个商品，价格与标签按当前状态解析
func (s *ProductService) Get(ctx context.Context, id string) (*dto.ProductResp, error) {
	product, err := s.uow.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, NotFound("Product")
	}
	list, err := s.present(ctx, []model.Product{*product})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// List 商品列表
func (s *ProductService) List(ctx context.Context, q dto.ProductListQuery) ([]*dto.ProductResp, error) {
	products, err := s.uow.Products.List(ctx, repository.ProductFilter{
		Category:      strings.TrimSpace(q.Category),
		SubcategoryID: q.SubcategoryID,
		Keyword:       strings.TrimSpace(q.Search),
		Offset:        q.Offset,
		Limit:         q.Limit,
	})
	if err != nil {
		return nil, err
	}
	return s.present(ctx, products)
}

// Labels 当前使用中的分类名称，去重排序
func (s *ProductService) Labels(ctx context.Context) ([]string, error) {
	raw, err := s.uow.Products.DistinctLabels(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(raw))
	for _, label := range raw {
		for _, name := range SplitLabel(label) {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ==================== 删除 ====================

// Delete 删除商品及其图集、挂载
func (s *ProductService) Delete(ctx context.Context, id string) error {
	deleted, err := s.BulkDelete(ctx, []string{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return NotFound("Product")
	}
	return nil
}

// BulkDelete 批量删除，返回实际删除数量
func (s *ProductService) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	products, err := s.uow.Products.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	deleted, err := s.uow.Products.Delete(ctx, ids...)
	if err != nil {
		return 0, err
	}

	var urls []string
	for _, p := range products {
		urls = append(urls, p.GalleryURLs()...)
		if p.Image != "" && !containsString(urls, p.Image) {
			urls = append(urls, p.Image)
		}
	}
	s.discard(ctx, urls)

	s.log.Info("products deleted", zap.Int64("count", deleted))
	return deleted, nil
}

// ==================== 辅助方法 ====================

// present 批量转换为响应，补齐价格、标签与挂载
func (s *ProductService) present(ctx context.Context, products []model.Product) ([]*dto.ProductResp, error) {
	out := make([]*dto.ProductResp, 0, len(products))
	if len(products) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	labels, err := projectorFor(s.uow).Labels(ctx, products)
	if err != nil {
		return nil, err
	}
	links, err := s.uow.Products.ListLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	byProduct := groupLinksByProduct(links)
	rate := s.pricing.ResolveExchangeRate(ctx)

	for i := range products {
		p := &products[i]
		out = append(out, toProductResp(p, labels[p.ID], byProduct[p.ID], rate))
	}
	return out, nil
}

func (s *ProductService) checkSubcategories(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	subs, err := s.uow.Subcategories.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[int64]struct{}, len(subs))
	for _, sub := range subs {
		found[sub.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return Validation("subcategory %d not found", id)
		}
	}
	return nil
}

// uploadAll 依次上传，失败的文件跳过
func (s *ProductService) uploadAll(ctx context.Context, first *dto.UploadFile, rest []*dto.UploadFile) []string {
	files := make([]*dto.UploadFile, 0, len(rest)+1)
	if first.HasContent() {
		files = append(files, first)
	}
	files = append(files, rest...)

	var urls []string
	for _, f := range files {
		if !f.HasContent() {
			continue
		}
		url, err := s.images.UploadImage(ctx, f, FolderProducts)
		if err != nil {
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

func (s *ProductService) discard(ctx context.Context, urls []string) {
	for _, u := range urls {
		if u == s.placeholder {
			continue
		}
		s.images.DeleteImage(ctx, u)
	}
}

func toProductResp(p *model.Product, label string, links []model.ProductSubcategoryLink, rate float64) *dto.ProductResp {
	usd, uah := ComputePriceFields(p.PriceUSD, p.PriceUAH, rate)

	subIDs := make([]int64, 0, len(links)+1)
	if p.SubcategoryID != nil {
		subIDs = append(subIDs, *p.SubcategoryID)
	}
	for _, l := range links {
		if p.SubcategoryID != nil && l.SubcategoryID == *p.SubcategoryID {
			continue
		}
		subIDs = append(subIDs, l.SubcategoryID)
	}

	return &dto.ProductResp{
		ID:             p.ID,
		Name:           p.Name,
		Category:       label,
		SubcategoryID:  p.SubcategoryID,
		SubcategoryIDs: subIDs,
		PriceUSD:       usd,
		PriceUAH:       uah,
		Image:          p.Image,
		Images:         p.GalleryURLs(),
		Description:    p.Description,
		InStock:        p.InStock,
		DetailNumber:   p.DetailNumber,
		CrossNumber:    p.CrossNumber,
	}
}

func galleryRows(productID string, urls []string) []model.ProductImage {
	rows := make([]model.ProductImage, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, model.ProductImage{ProductID: productID, URL: u})
	}
	return rows
}

// extraSubcategories 除主分类外的挂载
func extraSubcategories(ids []int64) []int64 {
	if len(ids) <= 1 {
		return nil
	}
	return ids[1:]
}

func uniqueInt64s(in []int64) []int64 {
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if v <= 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
