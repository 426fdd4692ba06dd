package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newLocalCache(t *testing.T, cfg Config) *TranslationCache {
	t.Helper()
	c, err := New(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestTranslationCache_GetSet(t *testing.T) {
	c := newLocalCache(t, DefaultConfig())
	ctx := context.Background()

	_, ok := c.Get(ctx, "Hello", "en", "zh")
	assert.False(t, ok)

	c.Set(ctx, "Hello", "en", "zh", "你好")

	got, ok := c.Get(ctx, "Hello", "en", "zh")
	assert.True(t, ok)
	assert.Equal(t, "你好", got)

	// 语言对不同则键不同
	_, ok = c.Get(ctx, "Hello", "en", "ja")
	assert.False(t, ok)
}

func TestTranslationCache_TTLExpiry(t *testing.T) {
	c := newLocalCache(t, Config{Capacity: 10, TTL: 20 * time.Millisecond})
	ctx := context.Background()

	c.Set(ctx, "text", "en", "zh", "文本")

	_, ok := c.Get(ctx, "text", "en", "zh")
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	// 过期条目在读取时被惰性删除
	_, ok = c.Get(ctx, "text", "en", "zh")
	assert.False(t, ok)
}

func TestTranslationCache_CleanupExpired(t *testing.T) {
	c := newLocalCache(t, Config{Capacity: 10, TTL: 10 * time.Millisecond})
	ctx := context.Background()

	c.Set(ctx, "one", "en", "zh", "一")
	c.Set(ctx, "two", "en", "zh", "二")
	c.Set(ctx, "three", "en", "zh", "三")

	time.Sleep(30 * time.Millisecond)

	removed := c.CleanupExpired()
	assert.Equal(t, 3, removed)
	assert.Zero(t, c.Stats().Size)
}

func TestTranslationCache_LRUEviction(t *testing.T) {
	c := newLocalCache(t, Config{Capacity: 2, TTL: time.Hour})
	ctx := context.Background()

	c.Set(ctx, "a", "en", "zh", "A")
	c.Set(ctx, "b", "en", "zh", "B")

	// 访问 a 把它提到最近使用位
	_, ok := c.Get(ctx, "a", "en", "zh")
	require.True(t, ok)

	// 插入 c 淘汰最久未用的 b
	c.Set(ctx, "c", "en", "zh", "C")

	_, ok = c.Get(ctx, "a", "en", "zh")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c", "en", "zh")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "b", "en", "zh")
	assert.False(t, ok)
}

func TestTranslationCache_RemoteTier(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	remote := NewRedisTierFromClient(client, "test:")

	c, err := New(Config{Capacity: 10, TTL: time.Hour}, remote, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("写入两级后命中", func(t *testing.T) {
		c.Set(ctx, "greeting", "en", "zh", "问候")
		got, ok := c.Get(ctx, "greeting", "en", "zh")
		assert.True(t, ok)
		assert.Equal(t, "问候", got)
	})

	t.Run("本地未命中时回源远端并回填", func(t *testing.T) {
		// 直接写远端，模拟其他进程写入的条目
		key := Key("shared", "en", "zh")
		require.NoError(t, remote.Set(ctx, key, "共享", time.Hour))

		got, ok := c.Get(ctx, "shared", "en", "zh")
		assert.True(t, ok)
		assert.Equal(t, "共享", got)
		assert.Positive(t, c.Stats().RemoteHits)

		// 回填后即使远端下线也能命中本地
		mr.Close()
		got, ok = c.Get(ctx, "shared", "en", "zh")
		assert.True(t, ok)
		assert.Equal(t, "共享", got)
	})
}

// failingTier 永远报错的远端层
type failingTier struct{}

func (failingTier) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("remote unavailable")
}

func (failingTier) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("remote unavailable")
}

func TestTranslationCache_RemoteErrorsAreMisses(t *testing.T) {
	c, err := New(Config{Capacity: 10, TTL: time.Hour}, failingTier{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	// 远端故障不阻断读写
	_, ok := c.Get(ctx, "text", "en", "zh")
	assert.False(t, ok)

	c.Set(ctx, "text", "en", "zh", "文本")
	got, ok := c.Get(ctx, "text", "en", "zh")
	assert.True(t, ok)
	assert.Equal(t, "文本", got)
}

func TestKey_Distinct(t *testing.T) {
	assert.NotEqual(t, Key("a", "en", "zh"), Key("a", "en", "ja"))
	assert.NotEqual(t, Key("a", "en", "zh"), Key("b", "en", "zh"))
	assert.Equal(t, Key("a", "en", "zh"), Key("a", "en", "zh"))
}

func TestTranslationCache_Stats(t *testing.T) {
	c := newLocalCache(t, DefaultConfig())
	ctx := context.Background()

	c.Get(ctx, "miss", "en", "zh")
	c.Set(ctx, "hit", "en", "zh", "命中")
	c.Get(ctx, "hit", "en", "zh")

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Size)
}
