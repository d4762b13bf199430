package service

import (
	"context"
	"strings"

	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// LabelSeparator 旧版分类标签的分隔符
const LabelSeparator = ", "

// ==================== labelProjector 旧版分类标签 ====================

// labelProjector 从分类树派生商品的旧版分类标签
// 顺序：主分类所属分类在前，其余按附加挂载的子分类 id 排列，去重
// 没有任何挂载的商品保留原有文本
type labelProjector struct {
	categories    repository.CategoryRepository
	subcategories repository.SubcategoryRepository
	products      repository.ProductRepository
}

func projectorFor(uow *repository.CatalogUnitOfWork) labelProjector {
	return labelProjector{
		categories:    uow.Categories,
		subcategories: uow.Subcategories,
		products:      uow.Products,
	}
}

// Labels 计算商品标签，不写库
func (p labelProjector) Labels(ctx context.Context, products []model.Product) (map[string]string, error) {
	out := make(map[string]string, len(products))
	if len(products) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(products))
	for _, prod := range products {
		ids = append(ids, prod.ID)
	}
	links, err := p.products.ListLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	linksByProduct := make(map[string][]model.ProductSubcategoryLink)
	for _, l := range links {
		linksByProduct[l.ProductID] = append(linksByProduct[l.ProductID], l)
	}

	subIDs := make([]int64, 0)
	seenSub := make(map[int64]struct{})
	addSub := func(id int64) {
		if _, ok := seenSub[id]; !ok {
			seenSub[id] = struct{}{}
			subIDs = append(subIDs, id)
		}
	}
	for _, prod := range products {
		if prod.SubcategoryID != nil {
			addSub(*prod.SubcategoryID)
		}
	}
	for _, l := range links {
		addSub(l.SubcategoryID)
	}

	subs, err := p.subcategories.GetByIDs(ctx, subIDs)
	if err != nil {
		return nil, err
	}
	categoryOf := make(map[int64]int64, len(subs))
	catIDs := make([]int64, 0, len(subs))
	for _, s := range subs {
		categoryOf[s.ID] = s.CategoryID
		catIDs = append(catIDs, s.CategoryID)
	}
	cats, err := p.categories.GetByIDs(ctx, catIDs)
	if err != nil {
		return nil, err
	}
	nameOf := make(map[int64]string, len(cats))
	for _, c := range cats {
		nameOf[c.ID] = c.Name
	}

	for _, prod := range products {
		prodLinks := linksByProduct[prod.ID]
		if !prod.HasPlacement(prodLinks) {
			out[prod.ID] = prod.Category
			continue
		}
		var names []string
		seen := make(map[string]struct{})
		add := func(subID int64) {
			catID, ok := categoryOf[subID]
			if !ok {
				return
			}
			name, ok := nameOf[catID]
			if !ok {
				return
			}
			if _, dup := seen[name]; dup {
				return
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
		if prod.SubcategoryID != nil {
			add(*prod.SubcategoryID)
		}
		for _, l := range prodLinks {
			add(l.SubcategoryID)
		}
		out[prod.ID] = strings.Join(names, LabelSeparator)
	}
	return out, nil
}

// Refresh 重新计算并写回给定商品的标签，只写有变化的行
func (p labelProjector) Refresh(ctx context.Context, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	products, err := p.products.GetByIDs(ctx, uniqueStrings(productIDs))
	if err != nil {
		return err
	}
	labels, err := p.Labels(ctx, products)
	if err != nil {
		return err
	}
	for _, prod := range products {
		if label := labels[prod.ID]; label != prod.Category {
			if err := p.products.UpdateLabel(ctx, prod.ID, label); err != nil {
				return err
			}
		}
	}
	return nil
}

// SplitLabel 拆分旧版标签
func SplitLabel(label string) []string {
	var out []string
	for _, part := range strings.Split(label, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
