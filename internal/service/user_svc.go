package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/middleware"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// DefaultAdminUsername 修改密码未指定用户名时的默认管理员
const DefaultAdminUsername = "admin"

// ==================== UserService 管理员认证 ====================

// UserService 管理员认证服务
type UserService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

// NewUserService 创建认证服务
func NewUserService(userRepo repository.UserRepository, log *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, log: log}
}

var _ middleware.AdminResolver = (*UserService)(nil)

// ==================== 认证相关 ====================

// Login 用户名密码登录，签发令牌对；每次登录轮换刷新令牌
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	// 更新最后登录时间
	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)
	s.log.Info("admin logged in", zap.String("username", user.Username))
	return resp, nil
}

// RefreshToken 用刷新令牌换新的令牌对，旧刷新令牌随即失效
func (s *UserService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByRefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return s.issueTokens(ctx, user)
}

// ResetPassword 校验旧密码后修改密码，同时作废刷新令牌
func (s *UserService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = DefaultAdminUsername
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return NotFound("Admin user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrInvalidOldPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return err
	}
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
		return err
	}
	s.log.Info("admin password reset", zap.String("username", user.Username))
	return nil
}

// ==================== 管理员维护 ====================

// CreateAdmin 创建管理员，用户名已存在时返回冲突
func (s *UserService) CreateAdmin(ctx context.Context, username, password string) (*model.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, Validation("username is required")
	}
	if len(password) < 6 {
		return nil, Validation("password must be at least 6 characters")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.AdminUser{
		Username:     username,
		PasswordHash: string(hashed),
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, translateStoreError("user", err)
	}
	return user, nil
}

// ResolveAdmin 供鉴权中间件使用，用户不存在或已禁用返回 nil
func (s *UserService) ResolveAdmin(ctx context.Context, userID int64) (*middleware.AdminIdentity, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	return &middleware.AdminIdentity{UserID: user.ID, Username: user.Username}, nil
}

func (s *UserService) issueTokens(ctx context.Context, user *model.AdminUser) (*dto.TokenResponse, error) {
	accessToken, expiresAt, err := middleware.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	refresh := uuid.New().String()
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
