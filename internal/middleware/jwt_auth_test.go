package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	admins map[int64]string
}

func (f *fakeResolver) ResolveAdmin(_ context.Context, userID int64) (*AdminIdentity, error) {
	name, ok := f.admins[userID]
	if !ok {
		return nil, nil
	}
	return &AdminIdentity{UserID: userID, Username: name}, nil
}

func setupAdminRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	resolver := &fakeResolver{admins: map[int64]string{1: "admin"}}
	r.GET("/admin", RequireAdmin(resolver, secret), func(c *gin.Context) {
		admin := GetAdmin(c)
		c.JSON(http.StatusOK, gin.H{"code": 0, "via": admin.Via, "username": admin.Username})
	})
	return r
}

func TestRequireAdmin(t *testing.T) {
	SetJWTConfig(&JWTConfig{SecretKey: "test-secret", AccessTokenTTL: time.Minute, Issuer: "test"})
	defer SetJWTConfig(DefaultJWTConfig())

	valid, _, err := GenerateAccessToken(1, "admin")
	require.NoError(t, err)
	ghost, _, err := GenerateAccessToken(2, "ghost")
	require.NoError(t, err)

	tests := []struct {
		name       string
		secret     string
		headers    map[string]string
		wantStatus int
		wantVia    string
	}{
		{"无凭证", "", nil, http.StatusUnauthorized, ""},
		{"有效 Bearer", "", map[string]string{"Authorization": "Bearer " + valid}, http.StatusOK, "bearer"},
		{"小写 bearer", "", map[string]string{"Authorization": "bearer " + valid}, http.StatusOK, "bearer"},
		{"格式错误", "", map[string]string{"Authorization": valid}, http.StatusUnauthorized, ""},
		{"用户已不存在", "", map[string]string{"Authorization": "Bearer " + ghost}, http.StatusUnauthorized, ""},
		{"伪造 Token", "", map[string]string{"Authorization": "Bearer abc.def.ghi"}, http.StatusUnauthorized, ""},
		{"未启用共享密钥", "", map[string]string{HeaderAdminSecret: "s3cret"}, http.StatusUnauthorized, ""},
		{"共享密钥正确", "s3cret", map[string]string{HeaderAdminSecret: "s3cret"}, http.StatusOK, "secret"},
		{"共享密钥错误", "s3cret", map[string]string{HeaderAdminSecret: "nope"}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAdminRouter(tt.secret)
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantVia != "" {
				assert.Contains(t, w.Body.String(), `"via":"`+tt.wantVia+`"`)
			}
		})
	}
}

func TestParseToken_RejectsOtherSecret(t *testing.T) {
	SetJWTConfig(&JWTConfig{SecretKey: "one", AccessTokenTTL: time.Minute})
	token, _, err := GenerateAccessToken(1, "admin")
	require.NoError(t, err)

	SetJWTConfig(&JWTConfig{SecretKey: "two", AccessTokenTTL: time.Minute})
	defer SetJWTConfig(DefaultJWTConfig())

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	SetJWTConfig(&JWTConfig{SecretKey: "k", AccessTokenTTL: -time.Minute})
	defer SetJWTConfig(DefaultJWTConfig())

	token, _, err := GenerateAccessToken(1, "admin")
	require.NoError(t, err)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestCORS_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://shop.example"}))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://shop.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
