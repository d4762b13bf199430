package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// ==================== SettingService 键值配置 ====================

type SettingService struct {
	settingRepo repository.SettingRepository
	log         *zap.Logger
}

func NewSettingService(settingRepo repository.SettingRepository, log *zap.Logger) *SettingService {
	return &SettingService{settingRepo: settingRepo, log: log}
}

// List 全部配置，机器人凭证不返回
func (s *SettingService) List(ctx context.Context) ([]dto.SettingResp, error) {
	settings, err := s.settingRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SettingResp, 0, len(settings))
	for i := range settings {
		if settings[i].IsSecret() {
			continue
		}
		out = append(out, dto.SettingResp{Key: settings[i].Key, Value: settings[i].Value})
	}
	return out, nil
}

// Get 单个配置；exchange_rate 缺失时返回默认汇率
func (s *SettingService) Get(ctx context.Context, key string) (*dto.SettingResp, error) {
	setting, err := s.settingRepo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting == nil || setting.IsSecret() {
		if key == model.SettingExchangeRate {
			return &dto.SettingResp{Key: key, Value: strconv.FormatFloat(DefaultExchangeRate, 'f', 1, 64)}, nil
		}
		return nil, NotFound("Setting")
	}
	return &dto.SettingResp{Key: setting.Key, Value: setting.Value}, nil
}

// Set 写入配置；exchange_rate 必须为正数
func (s *SettingService) Set(ctx context.Context, key, value string) (*dto.SettingResp, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, Validation("setting key is required")
	}
	if key == model.SettingExchangeRate {
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || rate <= 0 {
			return nil, Validation("exchange_rate must be a positive number")
		}
		value = strings.TrimSpace(value)
	}
	if err := s.settingRepo.Upsert(ctx, key, value); err != nil {
		return nil, err
	}
	s.log.Info("setting updated", zap.String("key", key))
	return &dto.SettingResp{Key: key, Value: value}, nil
}

// SocialLinks 社交链接，未配置或内容损坏时返回空
func (s *SettingService) SocialLinks(ctx context.Context) (dto.SocialLinks, error) {
	links := dto.SocialLinks{}
	setting, err := s.settingRepo.Get(ctx, model.SettingSocialLinks)
	if err != nil {
		return nil, err
	}
	if setting == nil || setting.Value == "" {
		return links, nil
	}
	if err := json.Unmarshal([]byte(setting.Value), &links); err != nil {
		s.log.Warn("social links setting is not valid JSON", zap.Error(err))
		return dto.SocialLinks{}, nil
	}
	return links, nil
}

// SetSocialLinks 覆盖写入，空链接丢弃
func (s *SettingService) SetSocialLinks(ctx context.Context, links dto.SocialLinks) (dto.SocialLinks, error) {
	clean := dto.SocialLinks{}
	for network, url := range links {
		network, url = strings.TrimSpace(network), strings.TrimSpace(url)
		if network == "" || url == "" {
			continue
		}
		clean[network] = url
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	if err := s.settingRepo.Upsert(ctx, model.SettingSocialLinks, string(raw)); err != nil {
		return nil, err
	}
	return clean, nil
}

// ==================== PageService 静态页面 ====================

// 页面列表分页上限
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

type PageService struct {
	pageRepo repository.PageRepository
	log      *zap.Logger
}

func NewPageService(pageRepo repository.PageRepository, log *zap.Logger) *PageService {
	return &PageService{pageRepo: pageRepo, log: log}
}

// List 分页列表，limit 最大 100
func (s *PageService) List(ctx context.Context, offset, limit int) ([]*dto.PageResp, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return nil, Validation("limit must be less than or equal to %d", MaxPageLimit)
	}
	pages, err := s.pageRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return toPageResps(pages), nil
}

// Get 纯数字先按 ID 查，未命中再按 slug 查
func (s *PageService) Get(ctx context.Context, slugOrID string) (*dto.PageResp, error) {
	if id, err := strconv.ParseInt(slugOrID, 10, 64); err == nil {
		page, err := s.pageRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if page != nil {
			return toPageResp(page), nil
		}
	}
	page, err := s.pageRepo.GetBySlug(ctx, slugOrID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, NotFound("Page")
	}
	return toPageResp(page), nil
}

// BySlugs 按请求顺序返回存在的页面
func (s *PageService) BySlugs(ctx context.Context, slugs []string) ([]*dto.PageResp, error) {
	out := make([]*dto.PageResp, 0, len(slugs))
	if len(slugs) == 0 {
		return out, nil
	}
	pages, err := s.pageRepo.GetBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]*model.Page, len(pages))
	for i := range pages {
		bySlug[pages[i].Slug] = &pages[i]
	}
	for _, sl := range slugs {
		if p, ok := bySlug[sl]; ok {
			out = append(out, toPageResp(p))
		}
	}
	return out, nil
}

// Create 创建页面，slug 规范化后必须唯一
func (s *PageService) Create(ctx context.Context, req *dto.PageCreateRequest) (*dto.PageResp, error) {
	pageSlug, err := normalizeSlug(req.Slug)
	if err != nil {
		return nil, err
	}
	exists, err := s.pageRepo.ExistsBySlug(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, Conflict("Page", "page with this slug already exists")
	}

	page := &model.Page{
		Slug:        pageSlug,
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		IsPublished: true,
		Location:    model.PageLocationFooter,
	}
	if req.IsPublished != nil {
		page.IsPublished = *req.IsPublished
	}
	if req.Location != "" {
		page.Location = req.Location
	}
	if err := s.pageRepo.Create(ctx, page); err != nil {
		return nil, translateStoreError("Page", err)
	}
	s.log.Info("page created", zap.String("slug", page.Slug))
	return toPageResp(page), nil
}

// Update 部分更新
func (s *PageService) Update(ctx context.Context, id int64, req *dto.PageUpdateRequest) (*dto.PageResp, error) {
	page, err := s.pageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, NotFound("Page")
	}

	if req.Slug != nil {
		pageSlug, err := normalizeSlug(*req.Slug)
		if err != nil {
			return nil, err
		}
		if pageSlug != page.Slug {
			exists, err := s.pageRepo.ExistsBySlug(ctx, pageSlug)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, Conflict("Page", "page with this slug already exists")
			}
			page.Slug = pageSlug
		}
	}
	if req.Title != nil {
		page.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		page.Content = *req.Content
	}
	if req.IsPublished != nil {
		page.IsPublished = *req.IsPublished
	}
	if req.Location != nil {
		page.Location = *req.Location
	}

	if err := s.pageRepo.Update(ctx, page); err != nil {
		return nil, translateStoreError("Page", err)
	}
	return toPageResp(page), nil
}

// Delete 删除页面
func (s *PageService) Delete(ctx context.Context, id int64) error {
	page, err := s.pageRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if page == nil {
		return NotFound("Page")
	}
	return s.pageRepo.Delete(ctx, id)
}

func normalizeSlug(raw string) (string, error) {
	out := slug.Make(strings.TrimSpace(raw))
	if out == "" {
		return "", Validation("slug must contain at least one letter or digit")
	}
	return out, nil
}

func toPageResp(p *model.Page) *dto.PageResp {
	return &dto.PageResp{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Content:     p.Content,
		IsPublished: p.IsPublished,
		Location:    p.Location,
	}
}

func toPageResps(pages []model.Page) []*dto.PageResp {
	out := make([]*dto.PageResp, 0, len(pages))
	for i := range pages {
		out = append(out, toPageResp(&pages[i]))
	}
	return out
}

// ==================== SEOService 前台静态路由 SEO ====================

// DefaultStaticSEO 前台固定路由的默认 SEO
var DefaultStaticSEO = []model.StaticPageSEO{
	{Slug: "home", MetaTitle: "Tesla Parts Center | Магазин запчастин для Tesla", MetaDescription: "Купуйте оригінальні та перевірені запчастини для Tesla з доставкою по Україні."},
	{Slug: "about", MetaTitle: "Про Tesla Parts Center", MetaDescription: "Дізнайтеся більше про команду Tesla Parts Center та наш підхід до сервісу."},
	{Slug: "delivery", MetaTitle: "Доставка та оплата | Tesla Parts Center", MetaDescription: "Дізнайтеся про варіанти доставки та оплати в Tesla Parts Center."},
	{Slug: "returns", MetaTitle: "Повернення та гарантія | Tesla Parts Center", MetaDescription: "Умови повернення товарів та гарантії інтернет-магазину Tesla Parts Center."},
	{Slug: "faq", MetaTitle: "Часті питання | Tesla Parts Center", MetaDescription: "Відповіді на найпоширеніші запитання клієнтів Tesla Parts Center."},
	{Slug: "contacts", MetaTitle: "Контакти Tesla Parts Center", MetaDescription: "Зв’яжіться з нами для консультації або замовлення запчастин."},
}

type SEOService struct {
	seoRepo repository.SEORepository
	log     *zap.Logger
}

func NewSEOService(seoRepo repository.SEORepository, log *zap.Logger) *SEOService {
	return &SEOService{seoRepo: seoRepo, log: log}
}

func (s *SEOService) List(ctx context.Context) ([]*dto.SEOResp, error) {
	records, err := s.seoRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.SEOResp, 0, len(records))
	for i := range records {
		out = append(out, toSEOResp(&records[i]))
	}
	return out, nil
}

func (s *SEOService) Get(ctx context.Context, pageSlug string) (*dto.SEOResp, error) {
	record, err := s.seoRepo.GetBySlug(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, NotFound("Page SEO")
	}
	return toSEOResp(record), nil
}

// Update 部分更新，记录不存在时返回 404，不自动创建
func (s *SEOService) Update(ctx context.Context, pageSlug string, req *dto.SEOUpdateRequest) (*dto.SEOResp, error) {
	record, err := s.seoRepo.GetBySlug(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, NotFound("Page SEO")
	}
	if req.MetaTitle != nil {
		record.MetaTitle = *req.MetaTitle
	}
	if req.MetaDescription != nil {
		record.MetaDescription = *req.MetaDescription
	}
	if err := s.seoRepo.Update(ctx, record); err != nil {
		return nil, err
	}
	return toSEOResp(record), nil
}

// EnsureDefaults 补齐默认记录，已有记录不覆盖
func (s *SEOService) EnsureDefaults(ctx context.Context) error {
	defaults := make([]model.StaticPageSEO, len(DefaultStaticSEO))
	copy(defaults, DefaultStaticSEO)
	return s.seoRepo.EnsureDefaults(ctx, defaults)
}

func toSEOResp(r *model.StaticPageSEO) *dto.SEOResp {
	return &dto.SEOResp{
		ID:              r.ID,
		Slug:            r.Slug,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
	}
}
