package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey      string        // 签名密钥
	AccessTokenTTL time.Duration // Access Token 有效期
	Issuer         string        // 签发者
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:      "tesla-parts-secret-change-in-production",
		AccessTokenTTL: 30 * time.Minute,
		Issuer:         "tesla-parts",
	}
}

// 全局配置
var jwtConfig = DefaultJWTConfig()

// SetJWTConfig 设置 JWT 配置
func SetJWTConfig(cfg *JWTConfig) {
	jwtConfig = cfg
}

// GetJWTConfig 获取 JWT 配置
func GetJWTConfig() *JWTConfig {
	return jwtConfig
}

// ==================== Claims 定义 ====================

// AdminClaims 管理员声明，sub 固定为 access
type AdminClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 生成 Access Token
// 刷新令牌是存库的随机串，不走 JWT
func GenerateAccessToken(userID int64, username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(jwtConfig.AccessTokenTTL)
	claims := &AdminClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			Subject:   "access",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtConfig.SecretKey))
	return signed, expiresAt, err
}

// ParseToken 解析 Token
func ParseToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(jwtConfig.SecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ==================== 管理员身份 ====================

// AdminIdentity 通过鉴权的管理员
type AdminIdentity struct {
	UserID   int64
	Username string
	// Via bearer 或 secret
	Via string
}

// AdminResolver 按 ID 查找仍然有效的管理员，不存在或已禁用时返回 nil
type AdminResolver interface {
	ResolveAdmin(ctx context.Context, userID int64) (*AdminIdentity, error)
}

// Context Keys
const (
	ContextKeyAdmin = "admin"
)

// HeaderAdminSecret 旧版共享密钥头
const HeaderAdminSecret = "X-Admin-Secret"

// ==================== Gin 中间件 ====================

// RequireAdmin 统一的管理员鉴权
// 优先校验 Bearer Token；配置了 adminSecret 时也接受 X-Admin-Secret 头
func RequireAdmin(resolver AdminResolver, adminSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticate(c, resolver, adminSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": err.Error(),
			})
			c.Abort()
			return
		}

		c.Set(ContextKeyAdmin, identity)
		c.Next()
	}
}

func authenticate(c *gin.Context, resolver AdminResolver, adminSecret string) (*AdminIdentity, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		secret := c.GetHeader(HeaderAdminSecret)
		if adminSecret != "" && secret != "" {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(adminSecret)) == 1 {
				return &AdminIdentity{Username: "secret", Via: "secret"}, nil
			}
			return nil, errors.New("invalid admin secret")
		}
		return nil, errors.New("could not validate credentials")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("authorization header must be Bearer {token}")
	}

	claims, err := ParseToken(parts[1])
	if err != nil || claims.Subject != "access" {
		return nil, errors.New("could not validate credentials")
	}

	identity, err := resolver.ResolveAdmin(c.Request.Context(), claims.UserID)
	if err != nil || identity == nil {
		return nil, errors.New("could not validate credentials")
	}
	identity.Via = "bearer"
	return identity, nil
}

// ==================== 辅助函数 ====================

// GetAdmin 从 Context 获取管理员身份
func GetAdmin(c *gin.Context) *AdminIdentity {
	if v, exists := c.Get(ContextKeyAdmin); exists {
		return v.(*AdminIdentity)
	}
	return nil
}
