package main

import (
	"context"

	"go.uber.org/zap"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/service"
)

type seedCategory struct {
	Name  string
	Image string
}

var seedCategories = []seedCategory{
	{"Model 3", "https://digitalassets.tesla.com/tesla-contents/image/upload/f_auto,q_auto/Model-3-Main-Hero-Desktop-LHD.jpg"},
	{"Model S", "https://digitalassets.tesla.com/tesla-contents/image/upload/f_auto,q_auto/Model-S-Main-Hero-Desktop-LHD.jpg"},
	{"Model X", "https://digitalassets.tesla.com/tesla-contents/image/upload/f_auto,q_auto/Model-X-Main-Hero-Desktop-LHD.jpg"},
}

var seedSubcategories = []string{"Body", "Interior", "Electronics", "Wheels", "Suspension"}

var seedPages = []dto.PageCreateRequest{
	{Slug: "delivery", Title: "Доставка та оплата", Location: model.PageLocationBoth},
	{Slug: "contacts", Title: "Контакти", Location: model.PageLocationHeader},
	{Slug: "warranty", Title: "Гарантія"},
	{Slug: "privacy-policy", Title: "Політика конфіденційності"},
	{Slug: "terms-of-service", Title: "Умови використання"},
}

// Seed 写入初始数据；已有分类时跳过分类，已有 slug 的页面跳过
func (a *App) Seed(ctx context.Context) error {
	if err := a.seedCatalog(ctx); err != nil {
		return err
	}

	for i := range seedPages {
		page := seedPages[i]
		if _, err := a.Services.Page.Create(ctx, &page); err != nil {
			if service.KindOf(err) == service.KindConflict {
				continue
			}
			return err
		}
		a.Log.Info("page seeded", zap.String("slug", page.Slug))
	}

	if err := a.Services.SEO.EnsureDefaults(ctx); err != nil {
		return err
	}
	a.Log.Info("seeding complete")
	return nil
}

func (a *App) seedCatalog(ctx context.Context) error {
	existing, err := a.Repos.Catalog.Categories.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		a.Log.Info("categories already exist, skipping catalog seed")
		return nil
	}

	for _, c := range seedCategories {
		image := c.Image
		category, err := a.Services.Catalog.CreateCategory(ctx, dto.CategoryInput{Name: c.Name, Image: &image})
		if err != nil {
			return err
		}
		for _, name := range seedSubcategories {
			if _, err := a.Services.Catalog.CreateSubcategory(ctx, category.ID, dto.SubcategoryInput{Name: name}); err != nil {
				return err
			}
		}
		a.Log.Info("category seeded", zap.String("name", c.Name))
	}
	return nil
}
