package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// ==================== CatalogService 分类树 ====================

// CatalogService 分类、子分类的增删改、移动与复制
// 所有多行修改都在同一个事务内完成，并在事务内重算受影响商品的旧版标签
type CatalogService struct {
	uow     *repository.CatalogUnitOfWork
	pricing *PricingService
	images  ImageStore
	log     *zap.Logger
}

// NewCatalogService 创建分类服务
func NewCatalogService(uow *repository.CatalogUnitOfWork, pricing *PricingService, images ImageStore, log *zap.Logger) *CatalogService {
	return &CatalogService{
		uow:     uow,
		pricing: pricing,
		images:  images,
		log:     log,
	}
}

// ==================== 读取 ====================

// GetTree 分类 -> 子分类树 -> 商品
// 子分类的商品为直属商品与附加挂载商品的并集，按 id 去重，直属优先
func (s *CatalogService) GetTree(ctx context.Context) ([]*dto.CategoryResp, error) {
	cats, err := s.uow.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.uow.Subcategories.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tree := newCatalogTree(subs)

	subIDs := make([]int64, 0, len(subs))
	for _, sub := range subs {
		subIDs = append(subIDs, sub.ID)
	}

	direct, err := s.uow.Products.ListBySubcategories(ctx, subIDs)
	if err != nil {
		return nil, err
	}
	subLinks, err := s.uow.Products.ListLinksBySubcategories(ctx, subIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Product, len(direct))
	var all []model.Product
	all = append(all, direct...)
	var missing []string
	for i := range direct {
		byID[direct[i].ID] = &direct[i]
	}
	for _, l := range subLinks {
		if _, ok := byID[l.ProductID]; !ok {
			missing = append(missing, l.ProductID)
		}
	}
	if len(missing) > 0 {
		linked, err := s.uow.Products.GetByIDs(ctx, uniqueStrings(missing))
		if err != nil {
			return nil, err
		}
		all = append(all, linked...)
	}
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	productIDs := make([]string, 0, len(all))
	for _, p := range all {
		productIDs = append(productIDs, p.ID)
	}
	labels, err := projectorFor(s.uow).Labels(ctx, all)
	if err != nil {
		return nil, err
	}
	productLinks, err := s.uow.Products.ListLinks(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	linksByProduct := groupLinksByProduct(productLinks)
	rate := s.pricing.ResolveExchangeRate(ctx)

	// 子分类 -> 商品 id，直属在前
	members := make(map[int64][]string)
	memberSeen := make(map[int64]map[string]struct{})
	addMember := func(subID int64, productID string) {
		seen, ok := memberSeen[subID]
		if !ok {
			seen = make(map[string]struct{})
			memberSeen[subID] = seen
		}
		if _, dup := seen[productID]; dup {
			return
		}
		seen[productID] = struct{}{}
		members[subID] = append(members[subID], productID)
	}
	for _, p := range direct {
		addMember(*p.SubcategoryID, p.ID)
	}
	for _, l := range subLinks {
		if _, ok := byID[l.ProductID]; ok {
			addMember(l.SubcategoryID, l.ProductID)
		}
	}

	var build func(id int64) *dto.SubcategoryResp
	build = func(id int64) *dto.SubcategoryResp {
		node, _ := tree.Get(id)
		resp := toSubcategoryResp(node)
		for _, pid := range members[id] {
			p := byID[pid]
			resp.Products = append(resp.Products, toProductResp(p, labels[pid], linksByProduct[pid], rate))
		}
		for _, child := range tree.Children(id) {
			resp.Subcategories = append(resp.Subcategories, build(child))
		}
		return resp
	}

	result := make([]*dto.CategoryResp, 0, len(cats))
	for i := range cats {
		resp := toCategoryResp(&cats[i])
		for _, rootID := range tree.Roots(cats[i].ID) {
			resp.Subcategories = append(resp.Subcategories, build(rootID))
		}
		result = append(result, resp)
	}
	return result, nil
}

// ==================== 分类 ====================

// CreateCategory 创建分类，未指定排序时排在最后
func (s *CatalogService) CreateCategory(ctx context.Context, in dto.CategoryInput) (*dto.CategoryResp, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Validation("category name is required")
	}

	category := &model.Category{
		Name:            name,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
	}
	if url := s.resolveImage(ctx, in.File, in.Image, FolderCategories); url != nil {
		category.Image = *url
	}

	if in.SortOrder != nil {
		category.SortOrder = *in.SortOrder
	} else {
		max, ok, err := s.uow.Categories.MaxSortOrder(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			category.SortOrder = max + 1
		}
	}

	if err := s.uow.Categories.Create(ctx, category); err != nil {
		return nil, translateStoreError("Category", err)
	}
	return toCategoryResp(category), nil
}

// UpdateCategory 更新分类；改名时重算该分类下所有商品的标签
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in dto.CategoryInput) (*dto.CategoryResp, error) {
	imageURL := s.resolveImage(ctx, in.File, in.Image, FolderCategories)

	var updated *model.Category
	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		category, err := tx.Categories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return NotFound("Category")
		}

		renamed := false
		if name := strings.TrimSpace(in.Name); name != "" && name != category.Name {
			category.Name = name
			renamed = true
		}
		if imageURL != nil {
			category.Image = *imageURL
		}
		if in.SortOrder != nil {
			category.SortOrder = *in.SortOrder
		}
		if in.MetaTitle != nil {
			category.MetaTitle = in.MetaTitle
		}
		if in.MetaDescription != nil {
			category.MetaDescription = in.MetaDescription
		}

		if err := tx.Categories.Update(ctx, category); err != nil {
			return err
		}

		if renamed {
			subs, err := tx.Subcategories.ListByCategory(ctx, id)
			if err != nil {
				return err
			}
			affected, err := attachedProductIDs(ctx, tx, subcategoryIDs(subs))
			if err != nil {
				return err
			}
			if err := projectorFor(tx).Refresh(ctx, affected); err != nil {
				return err
			}
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, translateStoreError("Category", err)
	}
	return toCategoryResp(updated), nil
}

// DeleteCategory 级联删除子分类及其挂载，直属商品保留（主分类失效）
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		category, err := tx.Categories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return NotFound("Category")
		}

		subs, err := tx.Subcategories.ListByCategory(ctx, id)
		if err != nil {
			return err
		}
		ids := subcategoryIDs(subs)
		affected, err := attachedProductIDs(ctx, tx, ids)
		if err != nil {
			return err
		}

		if err := tx.Products.DeleteLinksBySubcategories(ctx, ids); err != nil {
			return err
		}
		if err := tx.Subcategories.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		if err := tx.Categories.Delete(ctx, id); err != nil {
			return err
		}
		return projectorFor(tx).Refresh(ctx, affected)
	})
	if err != nil {
		return translateStoreError("Category", err)
	}
	s.log.Info("category deleted", zap.Int64("category_id", id))
	return nil
}

// ReorderCategories 按 ids 顺序重写 sort_order
func (s *CatalogService) ReorderCategories(ctx context.Context, ids []int64) error {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return Validation("duplicate category id %d", id)
		}
		seen[id] = struct{}{}
	}

	return s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		existing, err := tx.Categories.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(existing) != len(ids) {
			return NotFound("Category")
		}
		for i, id := range ids {
			if err := tx.Categories.UpdateSortOrder(ctx, id, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// ==================== 子分类 ====================

// CreateSubcategory 在分类下创建子分类，父节点必须属于同一分类
func (s *CatalogService) CreateSubcategory(ctx context.Context, categoryID int64, in dto.SubcategoryInput) (*dto.SubcategoryResp, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Validation("subcategory name is required")
	}

	category, err := s.uow.Categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, NotFound("Category")
	}

	if in.ParentID != nil {
		all, err := s.uow.Subcategories.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		if err := newCatalogTree(all).validatePlacement(0, categoryID, in.ParentID); err != nil {
			return nil, err
		}
	}

	sub := &model.Subcategory{
		Name:       name,
		Code:       emptyToNil(in.Code),
		CategoryID: categoryID,
		ParentID:   in.ParentID,
		Image:      s.resolveImage(ctx, in.File, in.Image, FolderSubcategories),
	}
	if err := s.uow.Subcategories.Create(ctx, sub); err != nil {
		return nil, translateStoreError("Subcategory", err)
	}
	return toSubcategoryResp(sub), nil
}

// UpdateSubcategory 更新子分类；修改父节点时走与移动相同的校验
func (s *CatalogService) UpdateSubcategory(ctx context.Context, id int64, in dto.SubcategoryInput) (*dto.SubcategoryResp, error) {
	imageURL := s.resolveImage(ctx, in.File, in.Image, FolderSubcategories)

	var updated *model.Subcategory
	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		sub, err := tx.Subcategories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sub == nil {
			return NotFound("Subcategory")
		}

		if name := strings.TrimSpace(in.Name); name != "" {
			sub.Name = name
		}
		if in.Code != nil {
			sub.Code = emptyToNil(in.Code)
		}
		if imageURL != nil {
			sub.Image = imageURL
		}

		switch {
		case in.ToRoot:
			sub.ParentID = nil
		case in.ParentID != nil:
			all, err := tx.Subcategories.ListAll(ctx)
			if err != nil {
				return err
			}
			if err := newCatalogTree(all).validatePlacement(sub.ID, sub.CategoryID, in.ParentID); err != nil {
				return err
			}
			sub.ParentID = in.ParentID
		}

		if err := tx.Subcategories.Update(ctx, sub); err != nil {
			return err
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, translateStoreError("Subcategory", err)
	}
	return toSubcategoryResp(updated), nil
}

// DeleteSubcategory 删除整棵子树及其挂载，直属商品保留（主分类失效）
func (s *CatalogService) DeleteSubcategory(ctx context.Context, id int64) error {
	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		sub, err := tx.Subcategories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sub == nil {
			return NotFound("Subcategory")
		}

		siblings, err := tx.Subcategories.ListByCategory(ctx, sub.CategoryID)
		if err != nil {
			return err
		}
		ids := newCatalogTree(siblings).Subtree(id)
		affected, err := attachedProductIDs(ctx, tx, ids)
		if err != nil {
			return err
		}

		if err := tx.Products.DeleteLinksBySubcategories(ctx, ids); err != nil {
			return err
		}
		if err := tx.Subcategories.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		return projectorFor(tx).Refresh(ctx, affected)
	})
	if err != nil {
		return translateStoreError("Subcategory", err)
	}
	return nil
}

// MoveSubcategory 把子树移动到目标分类 / 父节点下
// 子树内所有节点的 category_id 一并修改，挂载商品的标签随之重算
func (s *CatalogService) MoveSubcategory(ctx context.Context, id int64, req dto.PlacementRequest) (*dto.SubcategoryResp, error) {
	var moved *model.Subcategory
	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		tree, err := s.loadPlacementTree(ctx, tx, id, req.TargetCategoryID)
		if err != nil {
			return err
		}
		if err := tree.validatePlacement(id, req.TargetCategoryID, req.TargetParentID); err != nil {
			return err
		}

		subtree := tree.Subtree(id)
		affected, err := attachedProductIDs(ctx, tx, subtree)
		if err != nil {
			return err
		}

		if err := tx.Subcategories.UpdatePlacement(ctx, id, req.TargetCategoryID, req.TargetParentID); err != nil {
			return err
		}
		if err := tx.Subcategories.SetCategory(ctx, subtree, req.TargetCategoryID); err != nil {
			return err
		}
		if err := projectorFor(tx).Refresh(ctx, affected); err != nil {
			return err
		}

		moved, err = tx.Subcategories.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, translateStoreError("Subcategory", err)
	}

	s.log.Info("subcategory moved",
		zap.Int64("subcategory_id", id),
		zap.Int64("target_category_id", req.TargetCategoryID))
	return toSubcategoryResp(moved), nil
}

// CopySubcategory 深拷贝子树到目标分类 / 父节点下
// 商品不复制，克隆出的每个节点挂载源节点的全部商品（直属 + 附加）
func (s *CatalogService) CopySubcategory(ctx context.Context, id int64, req dto.PlacementRequest) (*dto.CopyResult, error) {
	var result *dto.CopyResult
	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		tree, err := s.loadPlacementTree(ctx, tx, id, req.TargetCategoryID)
		if err != nil {
			return err
		}
		if err := tree.validatePlacement(id, req.TargetCategoryID, req.TargetParentID); err != nil {
			return err
		}

		subtree := tree.Subtree(id)
		cloneOf := make(map[int64]int64, len(subtree))
		var root *model.Subcategory
		for _, srcID := range subtree {
			src, _ := tree.Get(srcID)
			clone := &model.Subcategory{
				Name:       src.Name,
				Code:       src.Code,
				Image:      src.Image,
				CategoryID: req.TargetCategoryID,
			}
			if srcID == id {
				clone.ParentID = req.TargetParentID
			} else {
				parent := cloneOf[*src.ParentID]
				clone.ParentID = &parent
			}
			if err := tx.Subcategories.Create(ctx, clone); err != nil {
				return err
			}
			cloneOf[srcID] = clone.ID
			if srcID == id {
				root = clone
			}
		}

		members, err := membersBySubcategory(ctx, tx, subtree)
		if err != nil {
			return err
		}
		var links []model.ProductSubcategoryLink
		var affected []string
		for _, srcID := range subtree {
			for _, pid := range members[srcID] {
				links = append(links, model.ProductSubcategoryLink{ProductID: pid, SubcategoryID: cloneOf[srcID]})
				affected = append(affected, pid)
			}
		}
		if err := tx.Products.CreateLinks(ctx, links); err != nil {
			return err
		}
		if err := projectorFor(tx).Refresh(ctx, affected); err != nil {
			return err
		}

		result = &dto.CopyResult{
			Root:          toSubcategoryResp(root),
			Subcategories: len(subtree),
			LinksCreated:  len(links),
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreError("Subcategory", err)
	}

	s.log.Info("subcategory copied",
		zap.Int64("subcategory_id", id),
		zap.Int64("target_category_id", req.TargetCategoryID),
		zap.Int("links_created", result.LinksCreated))
	return result, nil
}

// ==================== 辅助方法 ====================

// loadPlacementTree 校验源节点与目标分类存在，并返回整棵树
func (s *CatalogService) loadPlacementTree(ctx context.Context, tx *repository.CatalogUnitOfWork, id, targetCategoryID int64) (*catalogTree, error) {
	sub, err := tx.Subcategories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, NotFound("Subcategory")
	}
	target, err := tx.Categories.GetByID(ctx, targetCategoryID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NotFound("Category")
	}
	all, err := tx.Subcategories.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return newCatalogTree(all), nil
}

// resolveImage 上传文件优先，失败时忽略；否则使用表单里的 URL
func (s *CatalogService) resolveImage(ctx context.Context, file *dto.UploadFile, image *string, folder string) *string {
	if file.HasContent() {
		if url, err := s.images.UploadImage(ctx, file, folder); err == nil {
			return &url
		}
	}
	if image != nil && strings.TrimSpace(*image) != "" {
		v := strings.TrimSpace(*image)
		return &v
	}
	return nil
}

// membersBySubcategory 子分类 -> 商品 id（直属在前，附加在后，去重）
func membersBySubcategory(ctx context.Context, tx *repository.CatalogUnitOfWork, subIDs []int64) (map[int64][]string, error) {
	direct, err := tx.Products.ListBySubcategories(ctx, subIDs)
	if err != nil {
		return nil, err
	}
	links, err := tx.Products.ListLinksBySubcategories(ctx, subIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]string)
	seen := make(map[int64]map[string]struct{})
	add := func(subID int64, pid string) {
		if seen[subID] == nil {
			seen[subID] = make(map[string]struct{})
		}
		if _, dup := seen[subID][pid]; dup {
			return
		}
		seen[subID][pid] = struct{}{}
		out[subID] = append(out[subID], pid)
	}
	for _, p := range direct {
		add(*p.SubcategoryID, p.ID)
	}
	for _, l := range links {
		add(l.SubcategoryID, l.ProductID)
	}
	return out, nil
}

// attachedProductIDs 挂在给定子分类下的全部商品 id
func attachedProductIDs(ctx context.Context, tx *repository.CatalogUnitOfWork, subIDs []int64) ([]string, error) {
	members, err := membersBySubcategory(ctx, tx, subIDs)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, subID := range subIDs {
		ids = append(ids, members[subID]...)
	}
	return uniqueStrings(ids), nil
}

func subcategoryIDs(subs []model.Subcategory) []int64 {
	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	return ids
}

func groupLinksByProduct(links []model.ProductSubcategoryLink) map[string][]model.ProductSubcategoryLink {
	out := make(map[string][]model.ProductSubcategoryLink)
	for _, l := range links {
		out[l.ProductID] = append(out[l.ProductID], l)
	}
	return out
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func toCategoryResp(c *model.Category) *dto.CategoryResp {
	return &dto.CategoryResp{
		ID:              c.ID,
		Name:            c.Name,
		Image:           c.Image,
		SortOrder:       c.SortOrder,
		MetaTitle:       c.MetaTitle,
		MetaDescription: c.MetaDescription,
		Subcategories:   []*dto.SubcategoryResp{},
	}
}

func toSubcategoryResp(s *model.Subcategory) *dto.SubcategoryResp {
	return &dto.SubcategoryResp{
		ID:            s.ID,
		Name:          s.Name,
		Code:          s.Code,
		Image:         s.Image,
		CategoryID:    s.CategoryID,
		ParentID:      s.ParentID,
		Products:      []*dto.ProductResp{},
		Subcategories: []*dto.SubcategoryResp{},
	}
}
