package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tesla_parts_api/internal/controller"
	"tesla_parts_api/internal/middleware"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
	"tesla_parts_api/internal/router"
	"tesla_parts_api/internal/service"
)

const testAdminSecret = "s3cret"

// ==================== 测试辅助 ====================

type apiEnv struct {
	db     *gorm.DB
	engine *gin.Engine
	users  *service.UserService
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	t.Cleanup(func() { sqlDB.Close() })

	log := zap.NewNop()
	dir := t.TempDir()
	storage, err := service.NewStorageService(service.StorageConfig{
		Provider:   "local",
		LocalDir:   dir,
		BackendURL: "http://api.test",
	}, log)
	require.NoError(t, err)

	uow := repository.NewCatalogUnitOfWork(db)
	settingRepo := repository.NewSettingRepository(db)
	pageRepo := repository.NewPageRepository(db)
	seoRepo := repository.NewSEORepository(db)
	pricing := service.NewPricingService(settingRepo, log)
	users := service.NewUserService(repository.NewUserRepository(db), log)

	_, err = users.CreateAdmin(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	h := router.Handlers{
		Auth:    controller.NewAuthController(users),
		Catalog: controller.NewCatalogController(service.NewCatalogService(uow, pricing, storage, log)),
		Product: controller.NewProductController(service.NewProductService(uow, pricing, storage, "", log)),
		Order:   controller.NewOrderController(service.NewOrderService(repository.NewOrderRepository(db), pricing, nil, nil, log)),
		Setting: controller.NewSettingController(service.NewSettingService(settingRepo, log)),
		Page:    controller.NewPageController(service.NewPageService(pageRepo, log)),
		SEO:     controller.NewSEOController(service.NewSEOService(seoRepo, log)),
		Sitemap: controller.NewSitemapController(service.NewSitemapService("https://shop.test", seoRepo, pageRepo, uow.Categories, uow.Products)),
	}
	engine := router.NewEngine(log, router.Options{CORSOrigins: []string{"*"}, StaticDir: dir})
	router.InitRoutes(engine, h, middleware.RequireAdmin(users, testAdminSecret))

	return &apiEnv{db: db, engine: engine, users: users}
}

func (e *apiEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set(middleware.HeaderAdminSecret, testAdminSecret)
	return req
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string][]string, files ...formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (e *apiEnv) createCategory(t *testing.T, name string) int64 {
	t.Helper()
	w, env := e.do(t, asAdmin(multipartRequest(t, http.MethodPost, "/categories/", map[string][]string{"name": {name}})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct{ ID int64 }](t, env.Data).ID
}

func (e *apiEnv) createSubcategory(t *testing.T, categoryID int64, name string) int64 {
	t.Helper()
	target := "/categories/" + strconv.FormatInt(categoryID, 10) + "/subcategories/"
	w, env := e.do(t, asAdmin(multipartRequest(t, http.MethodPost, target, map[string][]string{"name": {name}})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct{ ID int64 }](t, env.Data).ID
}

// ==================== 基础 ====================

func TestHealthAndRoot(t *testing.T) {
	api := setupAPI(t)

	w, _ := api.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), "Tesla Parts API is running")
}

func TestCORSPreflight(t *testing.T) {
	api := setupAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/products/", nil)
	req.Header.Set("Origin", "https://shop.test")
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.test", w.Header().Get("Access-Control-Allow-Origin"))
}

// ==================== 鉴权 ====================

func TestAdminGate(t *testing.T) {
	api := setupAPI(t)

	w, env := api.do(t, multipartRequest(t, http.MethodPost, "/categories/", map[string][]string{"name": {"Model 3"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 401, env.Code)

	req := multipartRequest(t, http.MethodPost, "/categories/", map[string][]string{"name": {"Model 3"}})
	req.Header.Set(middleware.HeaderAdminSecret, "wrong")
	w, _ = api.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(t, asAdmin(multipartRequest(t, http.MethodPost, "/categories/", map[string][]string{"name": {"Model 3"}})))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, httptest.NewRequest(http.MethodGet, "/orders/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWithFormAndBearer(t *testing.T) {
	api := setupAPI(t)

	form := url.Values{"username": {"admin"}, "password": {"admin123"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, env := api.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tokens := decode[struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}](t, env.Data)
	assert.Equal(t, "bearer", tokens.TokenType)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w, env = api.do(t, me)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"admin"`)
	assert.Contains(t, string(env.Data), `"via":"bearer"`)

	w, _ = api.do(t, jsonRequest(http.MethodPost, "/auth/token", map[string]string{"username": "admin", "password": "nope"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(t, jsonRequest(http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": tokens.RefreshToken}))
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, jsonRequest(http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": tokens.RefreshToken}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResetPassword(t *testing.T) {
	api := setupAPI(t)

	w, _ := api.do(t, jsonRequest(http.MethodPost, "/auth/reset-password", map[string]string{"old_password": "bad", "new_password": "newpass1"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(t, jsonRequest(http.MethodPost, "/auth/reset-password", map[string]string{"old_password": "admin123", "new_password": "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, jsonRequest(http.MethodPost, "/auth/reset-password", map[string]string{"old_password": "admin123", "new_password": "newpass1"}))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, jsonRequest(http.MethodPost, "/auth/token", map[string]string{"username": "admin", "password": "newpass1"}))
	assert.Equal(t, http.StatusOK, w.Code)
}

// ==================== 分类与商品 ====================

func TestCatalogAndProductFlow(t *testing.T) {
	api := setupAPI(t)

	m3 := api.createCategory(t, "Model 3")
	ms := api.createCategory(t, "Model S")
	body := api.createSubcategory(t, m3, "Body")
	lights := api.createSubcategory(t, ms, "Lights")

	req := multipartRequest(t, http.MethodPost, "/products/", map[string][]string{
		"id":              {"door-handle"},
		"name":            {"Door handle"},
		"priceUSD":        {"25"},
		"inStock":         {"true"},
		"subcategory_ids": {strconv.FormatInt(body, 10) + "," + strconv.FormatInt(lights, 10)},
	}, formFile{field: "files", name: "side.jpg", data: []byte("jpeg")})
	w, env := api.do(t, asAdmin(req))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	type product struct {
		ID       string   `json:"id"`
		Category string   `json:"category"`
		PriceUAH float64  `json:"priceUAH"`
		Image    string   `json:"image"`
		Images   []string `json:"images"`
		InStock  bool     `json:"inStock"`
	}
	created := decode[product](t, env.Data)
	assert.Equal(t, "Model 3, Model S", created.Category)
	assert.Equal(t, 1000.0, created.PriceUAH)
	assert.True(t, created.InStock)
	require.Len(t, created.Images, 1)
	assert.Equal(t, created.Images[0], created.Image)
	assert.True(t, strings.HasPrefix(created.Image, "http://api.test/static/images/products/"))

	// 上传的文件可通过 /static 访问
	w, _ = api.do(t, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(created.Image, "http://api.test"), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, httptest.NewRequest(http.MethodGet, "/products/?category="+url.QueryEscape("Model S"), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]product](t, env.Data), 1)

	w, env = api.do(t, httptest.NewRequest(http.MethodGet, "/products/labels", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Model 3", "Model S"}, decode[[]string](t, env.Data))

	w, env = api.do(t, httptest.NewRequest(http.MethodGet, "/categories/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"door-handle"`)

	// 清空图集回到占位图
	w, env = api.do(t, asAdmin(multipartRequest(t, http.MethodPut, "/products/door-handle", map[string][]string{
		"name":        {"Door handle"},
		"priceUSD":    {"25"},
		"kept_images": {""},
	})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[product](t, env.Data)
	assert.Empty(t, updated.Images)
	assert.Equal(t, model.PlaceholderImage, updated.Image)
	// 未提交 subcategory_ids 时保持原挂载
	assert.Equal(t, "Model 3, Model S", updated.Category)

	w, env = api.do(t, asAdmin(jsonRequest(http.MethodPost, "/products/bulk-delete", map[string][]string{"product_ids": {"door-handle", "ghost"}})))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))

	w, env = api.do(t, httptest.NewRequest(http.MethodGet, "/products/door-handle", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, env.Code)
}

func TestProductValidationErrors(t *testing.T) {
	api := setupAPI(t)

	w, _ := api.do(t, asAdmin(multipartRequest(t, http.MethodPost, "/products/", map[string][]string{"name": {"X"}, "priceUSD": {"abc"}})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, asAdmin(multipartRequest(t, http.MethodPost, "/products/", map[string][]string{"name": {"X"}, "subcategory_ids": {"99"}})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, asAdmin(multipartRequest(t, http.MethodPost, "/products/", map[string][]string{"id": {"dup"}, "name": {"X"}})))
	require.Equal(t, http.StatusOK, w.Code)
	w, env := api.do(t, asAdmin(multipartRequest(t, http.MethodPost, "/products/", map[string][]string{"id": {"dup"}, "name": {"Y"}})))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 409, env.Code)
}

func TestMoveSubcategoryIntoDescendantRejected(t *testing.T) {
	api := setupAPI(t)

	m3 := api.createCategory(t, "Model 3")
	parent := api.createSubcategory(t, m3, "Body")
	target := "/categories/" + strconv.FormatInt(m3, 10) + "/subcategories/"
	w, env := api.do(t, asAdmin(multipartRequest(t, http.MethodPost, target, map[string][]string{
		"name":      {"Doors"},
		"parent_id": {strconv.FormatInt(parent, 10)},
	})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	child := decode[struct{ ID int64 }](t, env.Data).ID

	move := "/categories/subcategories/" + strconv.FormatInt(parent, 10) + "/move"
	w, _ = api.do(t, asAdmin(jsonRequest(http.MethodPost, move, map[string]interface{}{
		"target_category_id": m3,
		"target_parent_id":   child,
	})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ms := api.createCategory(t, "Model S")
	w, env = api.do(t, asAdmin(jsonRequest(http.MethodPost, move, map[string]interface{}{"target_category_id": ms})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"category_id":`+strconv.FormatInt(ms, 10))
}

func TestReorderCategories(t *testing.T) {
	api := setupAPI(t)

	a := api.createCategory(t, "A")
	b := api.createCategory(t, "B")

	w, _ := api.do(t, asAdmin(jsonRequest(http.MethodPut, "/categories/reorder", map[string][]int64{"ids": {b, a}})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := api.do(t, httptest.NewRequest(http.MethodGet, "/categories/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	tree := decode[[]struct{ Name string }](t, env.Data)
	require.Len(t, tree, 2)
	assert.Equal(t, "B", tree[0].Name)
}

// ==================== 订单 ====================

func TestOrderFlow(t *testing.T) {
	api := setupAPI(t)

	w, _ := api.do(t, jsonRequest(http.MethodPost, "/orders/", map[string]interface{}{"items": []interface{}{}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := api.do(t, jsonRequest(http.MethodPost, "/orders/", map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "p1", "name": "Handle", "priceUSD": 12.5, "quantity": 2},
		},
		"customer":      map[string]string{"firstName": "Ivan", "phone": "+380"},
		"delivery":      map[string]string{"city": "Kyiv", "branch": "1"},
		"paymentMethod": "cod",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := decode[struct{ ID int64 }](t, env.Data).ID

	path := "/orders/" + strconv.FormatInt(id, 10)
	w, env = api.do(t, asAdmin(httptest.NewRequest(http.MethodGet, path, nil)))
	require.Equal(t, http.StatusOK, w.Code)
	order := decode[struct {
		TotalUSD float64 `json:"totalUSD"`
		TotalUAH float64 `json:"totalUAH"`
	}](t, env.Data)
	assert.Equal(t, 25.0, order.TotalUSD)
	assert.Equal(t, 1000.0, order.TotalUAH)

	w, env = api.do(t, asAdmin(jsonRequest(http.MethodPut, path+"/status", map[string]string{"status": "shipped"})))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"shipped"`)

	w, env = api.do(t, asAdmin(jsonRequest(http.MethodPut, path+"/ttn", map[string]string{"ttn": "2045"})))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"ttn":"2045"`)

	w, _ = api.do(t, asAdmin(httptest.NewRequest(http.MethodGet, "/orders/999", nil)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = api.do(t, asAdmin(httptest.NewRequest(http.MethodGet, "/orders/abc", nil)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== 设置、内容页、SEO ====================

func TestSettingsEndpoints(t *testing.T) {
	api := setupAPI(t)

	w, env := api.do(t, httptest.NewRequest(http.MethodGet, "/settings/exchange_rate", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"key":"exchange_rate","value":"40.0"}`, string(env.Data))

	w, _ = api.do(t, asAdmin(jsonRequest(http.MethodPost, "/settings/exchange_rate", map[string]string{"value": "-1"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, jsonRequest(http.MethodPost, "/settings/exchange_rate", map[string]string{"value": "41"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(t, asAdmin(jsonRequest(http.MethodPost, "/settings/social-links", map[string]string{"instagram": "https://ig.test/tp"})))
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, httptest.NewRequest(http.MethodGet, "/settings/social-links", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"instagram":"https://ig.test/tp"}`, string(env.Data))

	w, _ = api.do(t, httptest.NewRequest(http.MethodGet, "/settings/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPagesAndSEOEndpoints(t *testing.T) {
	api := setupAPI(t)

	w, env := api.do(t, asAdmin(jsonRequest(http.MethodPost, "/pages/", map[string]string{"slug": "Delivery Info", "title": "Delivery"})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"slug":"delivery-info"`)

	w, _ = api.do(t, asAdmin(jsonRequest(http.MethodPost, "/pages/", map[string]string{"slug": "delivery-info", "title": "Again"})))
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(t, asAdmin(jsonRequest(http.MethodPost, "/pages/", map[string]string{"slug": "x", "title": "X", "location": "sidebar"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, httptest.NewRequest(http.MethodGet, "/pages/delivery-info", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, httptest.NewRequest(http.MethodGet, "/pages/?limit=101", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(t, jsonRequest(http.MethodPost, "/pages/by-slugs", map[string][]string{"slugs": {"missing", "delivery-info"}}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)

	w, _ = api.do(t, httptest.NewRequest(http.MethodGet, "/seo/static/home", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = api.do(t, asAdmin(jsonRequest(http.MethodPut, "/seo/static/home", map[string]string{"meta_title": "Home"})))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSitemapEndpoint(t *testing.T) {
	api := setupAPI(t)
	api.createCategory(t, "Model 3")

	w, _ := api.do(t, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml"))
	assert.Contains(t, w.Body.String(), "<loc>https://shop.test/</loc>")
	assert.Contains(t, w.Body.String(), "https://shop.test/category/")
}
