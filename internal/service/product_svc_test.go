package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
)

func TestProduct_CreateGalleryAndPlacement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m3 := env.category(t, "Model 3")
	ms := env.category(t, "Model S")
	body := env.sub(t, m3.ID, nil, "Body")
	lights := env.sub(t, ms.ID, nil, "Lights")

	resp, err := env.products.Create(ctx, dto.ProductInput{
		Name:           "Door handle",
		PriceUSD:       25,
		InStock:        true,
		DetailNumber:   ptr("1083371-00-E"),
		SubcategoryIDs: []int64{body.ID, lights.ID, body.ID},
		File:           upload("main.jpg"),
		Files:          []*dto.UploadFile{upload("bad.jpg"), upload("side.jpg")},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Model 3, Model S", resp.Category)
	assert.Equal(t, body.ID, *resp.SubcategoryID)
	assert.Equal(t, []int64{body.ID, lights.ID}, resp.SubcategoryIDs)
	assert.Equal(t, 1000.0, resp.PriceUAH)
	// 失败的上传被跳过
	assert.Equal(t, []string{"https://cdn.test/products/main.jpg", "https://cdn.test/products/side.jpg"}, resp.Images)
	assert.Equal(t, "https://cdn.test/products/main.jpg", resp.Image)
}

func TestProduct_CreatePrimaryRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	explicit, err := env.products.Create(ctx, dto.ProductInput{
		ID:    "explicit",
		Name:  "Explicit",
		Image: "https://example.com/p.jpg",
		Files: []*dto.UploadFile{upload("g1.jpg")},
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit", explicit.ID)
	assert.Equal(t, "https://example.com/p.jpg", explicit.Image)
	assert.Equal(t, []string{"https://cdn.test/products/g1.jpg"}, explicit.Images)

	bare, err := env.products.Create(ctx, dto.ProductInput{Name: "Bare", PriceUAH: 800})
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderImage, bare.Image)
	assert.Empty(t, bare.Images)
	assert.Equal(t, 20.0, bare.PriceUSD)
	assert.Equal(t, "", bare.Category)

	_, err = env.products.Create(ctx, dto.ProductInput{ID: "explicit", Name: "Again"})
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestProduct_CreateRejectsUnknownSubcategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.products.Create(context.Background(), dto.ProductInput{Name: "X", SubcategoryIDs: []int64{42}})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = env.products.Create(context.Background(), dto.ProductInput{Name: ""})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestProduct_UpdateKeptImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.products.Create(ctx, dto.ProductInput{
		ID:    "p1",
		Name:  "Mirror",
		Files: []*dto.UploadFile{upload("a.jpg"), upload("b.jpg"), upload("c.jpg")},
	})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/products/a.jpg", created.Image)

	// 删掉主图 a，追加 d
	updated, err := env.products.Update(ctx, "p1", dto.ProductInput{
		Name:       "Mirror",
		PriceUSD:   5,
		KeptImages: []string{"https://cdn.test/products/c.jpg", "https://cdn.test/products/b.jpg"},
		Files:      []*dto.UploadFile{upload("d.jpg")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.test/products/b.jpg",
		"https://cdn.test/products/c.jpg",
		"https://cdn.test/products/d.jpg",
	}, updated.Images)
	assert.Equal(t, "https://cdn.test/products/b.jpg", updated.Image)
	assert.Contains(t, env.images.deleted, "https://cdn.test/products/a.jpg")

	// 清空图集后回退到占位图
	emptied, err := env.products.Update(ctx, "p1", dto.ProductInput{Name: "Mirror", KeptImages: []string{}})
	require.NoError(t, err)
	assert.Empty(t, emptied.Images)
	assert.Equal(t, model.PlaceholderImage, emptied.Image)
}

func TestProduct_UpdateWithoutKeptImagesKeepsGallery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m3 := env.category(t, "Model 3")
	body := env.sub(t, m3.ID, nil, "Body")

	_, err := env.products.Create(ctx, dto.ProductInput{
		ID:             "p1",
		Name:           "Mirror",
		SubcategoryIDs: []int64{body.ID},
		Files:          []*dto.UploadFile{upload("a.jpg")},
	})
	require.NoError(t, err)

	updated, err := env.products.Update(ctx, "p1", dto.ProductInput{Name: "Mirror v2", PriceUSD: 7})
	require.NoError(t, err)
	assert.Equal(t, "Mirror v2", updated.Name)
	assert.Equal(t, []string{"https://cdn.test/products/a.jpg"}, updated.Images)
	// 未提交分类时保持原挂载
	assert.Equal(t, body.ID, *updated.SubcategoryID)
	assert.Equal(t, "Model 3", updated.Category)

	cleared, err := env.products.Update(ctx, "p1", dto.ProductInput{Name: "Mirror v2", SubcategoryIDs: []int64{}})
	require.NoError(t, err)
	assert.Nil(t, cleared.SubcategoryID)
	assert.Empty(t, cleared.SubcategoryIDs)

	_, err = env.products.Update(ctx, "missing", dto.ProductInput{Name: "x"})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestProduct_PriceFollowsExchangeRate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.products.Create(ctx, dto.ProductInput{ID: "p1", Name: "Wheel", PriceUSD: 10})
	require.NoError(t, err)

	got, err := env.products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 400.0, got.PriceUAH)

	env.setRate(t, "45")
	got, err = env.products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.PriceUSD)
	assert.Equal(t, 450.0, got.PriceUAH)
}

func TestProduct_ListFiltersAndLabels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m3 := env.category(t, "Model 3")
	ms := env.category(t, "Model S")
	body := env.sub(t, m3.ID, nil, "Body")
	lights := env.sub(t, ms.ID, nil, "Lights")

	env.product(t, "p1", &body.ID)
	env.product(t, "p2", &lights.ID, body.ID)
	env.product(t, "p3", &lights.ID)

	bySub, err := env.products.List(ctx, dto.ProductListQuery{SubcategoryID: body.ID})
	require.NoError(t, err)
	ids := []string{}
	for _, p := range bySub {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)

	byLabel, err := env.products.List(ctx, dto.ProductListQuery{Category: "Model S"})
	require.NoError(t, err)
	assert.Len(t, byLabel, 2)

	labels, err := env.products.Labels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Model 3", "Model S"}, labels)
}

func TestProduct_DeleteAndBulkDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := env.products.Create(ctx, dto.ProductInput{ID: id, Name: id, Files: []*dto.UploadFile{upload(id + ".jpg")}})
		require.NoError(t, err)
	}

	require.NoError(t, env.products.Delete(ctx, "p1"))
	assert.Equal(t, KindNotFound, KindOf(env.products.Delete(ctx, "p1")))
	assert.Contains(t, env.images.deleted, "https://cdn.test/products/p1.jpg")

	deleted, err := env.products.BulkDelete(ctx, []string{"p2", "p3", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var images int64
	require.NoError(t, env.db.Model(&model.ProductImage{}).Count(&images).Error)
	assert.Zero(t, images)
}
