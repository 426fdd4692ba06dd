package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyTranslator 可控失败的翻译器
type flakyTranslator struct {
	failing bool
	calls   int
}

func (f *flakyTranslator) Translate(ctx context.Context, text string) (string, error) {
	f.calls++
	if f.failing {
		return "", errors.New("service down")
	}
	return "translated: " + text, nil
}

func (f *flakyTranslator) Name() string { return "flaky" }

func TestBreaker_PassThrough(t *testing.T) {
	inner := &flakyTranslator{}
	b := WithBreaker(inner, DefaultBreakerConfig())

	got, err := b.Translate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "translated: hello", got)
	assert.Equal(t, "flaky", b.Name())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyTranslator{failing: true}
	b := WithBreaker(inner, BreakerConfig{MaxFailures: 3, OpenTimeout: 0})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := b.Translate(ctx, "text")
		require.Error(t, err)
	}

	callsBeforeOpen := inner.calls

	// 熔断打开后快速失败，不再调用底层服务
	_, err := b.Translate(ctx, "text")
	require.Error(t, err)
	assert.Equal(t, callsBeforeOpen, inner.calls)

	// 熔断错误归类为可重试的服务不可用
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCodeUnavailable, perr.Code)
	assert.True(t, perr.IsRetryable())
}

func TestError_Retryable(t *testing.T) {
	assert.True(t, NewError(ErrCodeRateLimit, "m", nil).IsRetryable())
	assert.True(t, NewError(ErrCodeTimeout, "m", nil).IsRetryable())
	assert.True(t, NewError(ErrCodeServerError, "m", nil).IsRetryable())
	assert.True(t, NewError(ErrCodeUnavailable, "m", nil).IsRetryable())
	assert.False(t, NewError(ErrCodeAuth, "m", nil).IsRetryable())
	assert.False(t, NewError(ErrCodeInvalid, "m", nil).IsRetryable())
}
