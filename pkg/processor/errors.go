package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
)

// 预定义错误
var (
	// ErrEmptyTranslation 服务返回了空翻译
	ErrEmptyTranslation = errors.New("empty translation result")

	// ErrTimeout 批次处理超时
	ErrTimeout = errors.New("batch processing timeout")

	// ErrConcurrencyLimit 并发许可获取失败
	ErrConcurrencyLimit = errors.New("failed to acquire concurrency permit")

	// ErrLowSuccessRate 索引翻译命中率低于阈值
	ErrLowSuccessRate = errors.New("indexed translation success rate below threshold")
)

// ProcessError 批处理错误
type ProcessError struct {
	Code    string // 错误代码
	Message string // 错误消息
	Cause   error  // 原因
	BatchID uint64 // 关联的批次
	Retry   bool   // 是否可重试
}

// Error 实现 error 接口
func (e *ProcessError) Error() string {
	if e.BatchID != 0 {
		return fmt.Sprintf("[%s] %s (batch %d)", e.Code, e.Message, e.BatchID)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原因错误
func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// IsRetryable 是否可重试
func (e *ProcessError) IsRetryable() bool {
	return e.Retry
}

// 错误代码常量
const (
	ErrCodeConfig      = "CONFIG_ERROR"
	ErrCodeService     = "TRANSLATION_SERVICE_ERROR"
	ErrCodeTimeout     = "TIMEOUT_ERROR"
	ErrCodeConcurrency = "CONCURRENCY_ERROR"
	ErrCodeParse       = "PARSE_ERROR"
	ErrCodeInput       = "INVALID_INPUT"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// NewProcessError 创建批处理错误
func NewProcessError(code, message string, cause error, retry bool) *ProcessError {
	return &ProcessError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Retry:   retry,
	}
}

// WrapError 包装错误并推断可重试性
func WrapError(err error, code, message string) *ProcessError {
	if err == nil {
		return nil
	}

	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe
	}

	return &ProcessError{
		Code:    code,
		Message: message,
		Cause:   err,
		Retry:   isRetryableError(err),
	}
}

// isRetryableError 判断错误是否可重试
// 网络和超时类错误可重试，校验和鉴权类错误立即失败
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe.Retry
	}

	var perr *providers.Error
	if errors.As(err, &perr) {
		return perr.IsRetryable()
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrConcurrencyLimit),
		errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, context.Canceled):
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"temporary failure",
		"rate limit",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"429",
		"503",
		"504",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
