package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/middleware"
	"tesla_parts_api/internal/service"
)

// ==================== AuthController 管理员认证 ====================

// AuthController 管理员认证
type AuthController struct {
	userSvc *service.UserService
}

// NewAuthController 创建认证控制器
func NewAuthController(userSvc *service.UserService) *AuthController {
	return &AuthController{userSvc: userSvc}
}

// Login 用户名密码换取令牌对
// @Summary 管理员登录
// @Description 兼容 OAuth2 password 表单与 JSON
// @Tags Auth
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /auth/token [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	b := binding.Default(ctx.Request.Method, ctx.ContentType())
	if err := ctx.ShouldBindWith(&req, b); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	resp, err := c.userSvc.Login(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// RefreshToken 刷新令牌，旧刷新令牌作废
// @Router /auth/refresh-token [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	resp, err := c.userSvc.RefreshToken(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// ResetPassword 校验旧密码后修改
// @Router /auth/reset-password [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	if err := c.userSvc.ResetPassword(ctx.Request.Context(), &req); err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, dto.OKResponse{OK: true})
}

// Me 当前管理员
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	admin := middleware.GetAdmin(ctx)
	if admin == nil {
		fail(ctx, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	success(ctx, gin.H{
		"user_id":  admin.UserID,
		"username": admin.Username,
		"via":      admin.Via,
	})
}
