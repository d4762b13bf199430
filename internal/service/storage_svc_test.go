package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
)

// ==================== 本地存储 ====================

func TestLocalStorage_UploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	cfg := StorageConfig{Provider: "local", LocalDir: dir, BackendURL: "http://api.test/", BasePath: "shop"}
	svc, err := NewStorageService(cfg, zap.NewNop())
	require.NoError(t, err)

	url, err := svc.UploadImage(context.Background(), &dto.UploadFile{Filename: "Door.PNG", Data: []byte("png")}, FolderProducts)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://api.test/static/images/shop/products/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	rel := strings.TrimPrefix(url, "http://api.test/static/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	svc.DeleteImage(context.Background(), url)
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	// 外部 URL 忽略
	svc.DeleteImage(context.Background(), "https://elsewhere.test/a.jpg")

	_, err = svc.UploadImage(context.Background(), &dto.UploadFile{Filename: "empty.jpg"}, FolderProducts)
	assert.Error(t, err)
}

func TestNewStorageProvider_Unknown(t *testing.T) {
	_, err := NewStorageProvider(StorageConfig{Provider: "ftp"})
	assert.Error(t, err)

	_, err = NewStorageProvider(StorageConfig{Provider: "cloudinary"})
	assert.Error(t, err)
}

// ==================== Cloudinary ====================

func TestCloudinaryStorage_UploadSigned(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1_1/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotForm = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotForm[k] = v[0]
		}
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "jpeg", string(body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.cloudinary.com/demo/image/upload/v1/tesla/products/abc.jpg",
			"public_id":  "tesla/products/abc",
		})
	}))
	defer srv.Close()

	storage, err := NewCloudinaryStorage(StorageConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"}, resty.New().SetBaseURL(srv.URL))
	require.NoError(t, err)

	url, err := storage.Upload(context.Background(), []byte("jpeg"), "tesla/products", "a.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/tesla/products/abc.jpg", url)

	assert.Equal(t, "key", gotForm["api_key"])
	assert.Equal(t, "tesla/products", gotForm["folder"])
	assert.Equal(t, storage.sign(map[string]string{"folder": gotForm["folder"], "timestamp": gotForm["timestamp"]}), gotForm["signature"])
}

func TestCloudinaryStorage_UploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	storage, err := NewCloudinaryStorage(StorageConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"}, resty.New().SetBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = storage.Upload(context.Background(), []byte("jpeg"), "f", "a.jpg", "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}

func TestCloudinaryStorage_PublicID(t *testing.T) {
	storage, err := NewCloudinaryStorage(StorageConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"}, resty.New())
	require.NoError(t, err)

	assert.Equal(t, "tesla/products/abc", storage.publicID("https://res.cloudinary.com/demo/image/upload/v1712/tesla/products/abc.jpg"))
	assert.Equal(t, "abc", storage.publicID("https://res.cloudinary.com/demo/image/upload/abc.png"))
	assert.Equal(t, "", storage.publicID("https://example.com/abc.png"))
}

func TestCloudinaryStorage_Sign(t *testing.T) {
	storage, err := NewCloudinaryStorage(StorageConfig{CloudName: "demo", APIKey: "key", APISecret: "abcd"}, resty.New())
	require.NoError(t, err)

	// sha1("public_id=sample&timestamp=1315060510abcd")
	assert.Equal(t, "c3470533147774275dd37996cc4d0e68fd03cd4f",
		storage.sign(map[string]string{"public_id": "sample", "timestamp": "1315060510", "empty": ""}))
}

// ==================== Telegram ====================

func TestTelegramNotifier_SendsMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.settings.Upsert(ctx, model.SettingTelegramChatID, "-100500"))

	n := NewTelegramNotifier(TelegramConfig{BotToken: "42:token", ChatID: "1", APIBase: srv.URL}, env.settings, nil, zap.NewNop())
	require.NoError(t, n.NotifyOrderCreated(ctx, &model.Order{BaseModel: model.BaseModel{ID: 9}}))

	assert.Equal(t, "/bot42:token/sendMessage", gotPath)
	assert.Equal(t, "-100500", gotBody["chat_id"])
	assert.Contains(t, gotBody["text"], "New Order #9")
}

func TestTelegramNotifier_SkipsWithoutCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{BotToken: "YOUR_BOT_TOKEN", ChatID: "1", APIBase: srv.URL}, nil, nil, zap.NewNop())
	require.NoError(t, n.NotifyOrderCreated(context.Background(), &model.Order{}))
	assert.False(t, called)
}

func TestTelegramNotifier_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{BotToken: "42:token", ChatID: "1", APIBase: srv.URL}, nil, nil, zap.NewNop())
	err := n.NotifyOrderCreated(context.Background(), &model.Order{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
