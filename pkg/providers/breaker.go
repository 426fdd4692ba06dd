package providers

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// MaxFailures 连续失败该次数后熔断
	MaxFailures uint32
	// OpenTimeout 熔断后经过该时长进入半开状态
	OpenTimeout time.Duration
}

// DefaultBreakerConfig 返回默认熔断器配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// Breaker 带熔断保护的翻译服务包装
// 连续失败触发熔断后快速失败，避免对已经不可用的服务继续压测；
// 熔断打开期间的错误归类为可重试的服务不可用
type Breaker struct {
	inner Translator
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker 给翻译服务加上熔断保护
func WithBreaker(inner Translator, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}

	return &Breaker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Translate 经熔断器执行翻译
func (b *Breaker) Translate(ctx context.Context, text string) (string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Translate(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", NewError(ErrCodeUnavailable, "translation service circuit open", err)
		}
		return "", err
	}
	return result.(string), nil
}

// Name 返回底层提供商名称
func (b *Breaker) Name() string {
	return b.inner.Name()
}
