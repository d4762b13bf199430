package service

import (
	"context"
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tesla_parts_api/internal/repository"
)

// ==================== SitemapService 站点地图 ====================

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// SitemapService 生成前台 sitemap.xml
// 路由：/ 与静态 SEO 路由、/page/{slug}、/category/{id}、/product/{id}
type SitemapService struct {
	siteURL      string
	seoRepo      repository.SEORepository
	pageRepo     repository.PageRepository
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
}

func NewSitemapService(siteURL string, seoRepo repository.SEORepository, pageRepo repository.PageRepository, categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository) *SitemapService {
	return &SitemapService{
		siteURL:      strings.TrimRight(siteURL, "/"),
		seoRepo:      seoRepo,
		pageRepo:     pageRepo,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

// Build 生成 XML 文本
func (s *SitemapService) Build(ctx context.Context) ([]byte, error) {
	set := sitemapURLSet{XMLNS: sitemapNS}
	add := func(path, lastMod, freq, priority string) {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.siteURL + path,
			LastMod:    lastMod,
			ChangeFreq: freq,
			Priority:   priority,
		})
	}

	add("/", "", "daily", "1.0")

	seo, err := s.seoRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range seo {
		if r.Slug == "home" {
			continue
		}
		add("/"+url.PathEscape(r.Slug), "", "monthly", "0.5")
	}

	pages, err := s.pageRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		add("/page/"+url.PathEscape(p.Slug), "", "monthly", "0.4")
	}

	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		add("/category/"+strconv.FormatInt(c.ID, 10), lastMod(c.UpdatedAt), "weekly", "0.8")
	}

	products, err := s.productRepo.List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		add("/product/"+url.PathEscape(p.ID), lastMod(p.UpdatedAt), "weekly", "0.7")
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
