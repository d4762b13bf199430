package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ==================== 错误分类 ====================

// ErrorKind 业务错误类别，由控制器映射为 HTTP 状态码
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindValidation
	KindConflict
)

// AppError 业务错误
type AppError struct {
	Kind    ErrorKind
	Entity  string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound 实体不存在
func NotFound(entity string) *AppError {
	return &AppError{Kind: KindNotFound, Entity: entity, Message: entity + " not found"}
}

// Unauthorized 凭证缺失或无效
func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// Validation 参数不合法
func Validation(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict 唯一键冲突
func Conflict(entity, message string) *AppError {
	return &AppError{Kind: KindConflict, Entity: entity, Message: message}
}

// KindOf 提取错误类别，非 AppError 视为内部错误
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// translateStoreError 将存储层错误映射为业务错误
func translateStoreError(entity string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &AppError{Kind: KindConflict, Entity: entity, Message: entity + " already exists", Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &AppError{Kind: KindValidation, Entity: entity, Message: entity + " references a missing record", Err: err}
	}
	return err
}

// ==================== 认证错误 ====================

var (
	ErrInvalidCredentials = Unauthorized("incorrect username or password")
	ErrInvalidToken       = Unauthorized("invalid refresh token")
	ErrUserDisabled       = Unauthorized("user is inactive")
	ErrInvalidOldPassword = Unauthorized("incorrect old password")
	ErrUsernameExists     = Conflict("user", "username already registered")
)
