package providers

import (
	"context"
	"time"
)

// Translator 抽象的翻译服务：单次调用、无状态、可能被限流
// 这是整个流水线唯一的网络依赖
type Translator interface {
	// Translate 翻译一段文本
	Translate(ctx context.Context, text string) (string, error)

	// Name 返回提供商名称
	Name() string
}

// BaseConfig 提供商基础配置
type BaseConfig struct {
	// API 配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时
	Timeout time.Duration `json:"timeout"`

	// 语言对
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// DefaultBaseConfig 返回默认基础配置
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Timeout:    2 * time.Minute,
		SourceLang: "English",
		TargetLang: "Chinese",
	}
}

// Error 提供商错误
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return "[" + e.Code + "] " + e.Message
}

// Unwrap 返回原因错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeTimeout, ErrCodeServerError, ErrCodeUnavailable:
		return true
	default:
		return false
	}
}

// 提供商错误代码
const (
	ErrCodeRateLimit   = "rate_limit"
	ErrCodeTimeout     = "timeout"
	ErrCodeServerError = "server_error"
	ErrCodeUnavailable = "unavailable"
	ErrCodeAuth        = "auth_error"
	ErrCodeInvalid     = "invalid_request"
)

// NewError 创建提供商错误
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
