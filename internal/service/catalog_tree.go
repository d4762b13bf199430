package service

import (
	"sort"

	"tesla_parts_api/internal/model"
)

// ==================== catalogTree 子分类树 ====================

// catalogTree 由子分类行构建的内存树
// 移动、复制、更新、删除共用同一套祖先校验与子树遍历
type catalogTree struct {
	nodes    map[int64]*model.Subcategory
	children map[int64][]int64
	roots    map[int64][]int64 // category_id -> 根节点
}

func newCatalogTree(subs []model.Subcategory) *catalogTree {
	t := &catalogTree{
		nodes:    make(map[int64]*model.Subcategory, len(subs)),
		children: make(map[int64][]int64),
		roots:    make(map[int64][]int64),
	}
	for i := range subs {
		s := &subs[i]
		t.nodes[s.ID] = s
	}
	for i := range subs {
		s := &subs[i]
		// 父节点缺失的孤儿节点按根节点处理
		if s.ParentID != nil {
			if _, ok := t.nodes[*s.ParentID]; ok {
				t.children[*s.ParentID] = append(t.children[*s.ParentID], s.ID)
				continue
			}
		}
		t.roots[s.CategoryID] = append(t.roots[s.CategoryID], s.ID)
	}
	for k := range t.children {
		sortIDs(t.children[k])
	}
	for k := range t.roots {
		sortIDs(t.roots[k])
	}
	return t
}

func (t *catalogTree) Get(id int64) (*model.Subcategory, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Roots 分类下的根节点，按 id 排序
func (t *catalogTree) Roots(categoryID int64) []int64 {
	return t.roots[categoryID]
}

// Children 直接子节点，按 id 排序
func (t *catalogTree) Children(id int64) []int64 {
	return t.children[id]
}

// IsAncestor ancestor 是否位于 id 的祖先链上（含自身），O(depth)
func (t *catalogTree) IsAncestor(ancestor, id int64) bool {
	seen := make(map[int64]struct{})
	cur, ok := t.nodes[id]
	for ok {
		if cur.ID == ancestor {
			return true
		}
		if _, dup := seen[cur.ID]; dup || cur.ParentID == nil {
			return false
		}
		seen[cur.ID] = struct{}{}
		cur, ok = t.nodes[*cur.ParentID]
	}
	return false
}

// Subtree 以 rootID 为根的子树，广度优先，父节点总在子节点之前
func (t *catalogTree) Subtree(rootID int64) []int64 {
	if _, ok := t.nodes[rootID]; !ok {
		return nil
	}
	out := []int64{rootID}
	seen := map[int64]struct{}{rootID: {}}
	for i := 0; i < len(out); i++ {
		for _, child := range t.children[out[i]] {
			if _, dup := seen[child]; dup {
				continue
			}
			seen[child] = struct{}{}
			out = append(out, child)
		}
	}
	return out
}

// validatePlacement 校验把 subID 挂到 targetCategoryID / targetParentID 下是否合法
// 顺序：不能以自身为父 -> 父节点存在 -> 父节点属于目标分类 -> 父节点不在自身子树内
// subID 为 0 表示新建节点，只校验父节点存在与分类一致
func (t *catalogTree) validatePlacement(subID, targetCategoryID int64, targetParentID *int64) error {
	if targetParentID == nil {
		return nil
	}
	parentID := *targetParentID
	if subID != 0 && parentID == subID {
		return Validation("subcategory cannot be its own parent")
	}
	parent, ok := t.nodes[parentID]
	if !ok {
		return Validation("target parent subcategory %d not found", parentID)
	}
	if parent.CategoryID != targetCategoryID {
		return Validation("target parent subcategory %d does not belong to category %d", parentID, targetCategoryID)
	}
	if subID != 0 && t.IsAncestor(subID, parentID) {
		return Validation("cannot move subcategory into its own descendant")
	}
	return nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
