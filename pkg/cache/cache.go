package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Config 翻译缓存配置
type Config struct {
	// Capacity 本地 LRU 容量
	Capacity int
	// TTL 条目有效期
	TTL time.Duration
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Capacity: 1000,
		TTL:      time.Hour,
	}
}

// Stats 缓存统计信息
type Stats struct {
	Hits       int64
	Misses     int64
	RemoteHits int64
	Size       int
}

// entry 本地缓存条目
type entry struct {
	Value     string
	CreatedAt time.Time
	TTL       time.Duration
}

// expired 判断条目在 now 时刻是否已过期
func (e entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// TranslationCache 多级翻译缓存
// 一级是进程内 LRU+TTL，二级是可选的远端 KV；远端故障一律按未命中处理，
// 缓存永远是尽力而为，不向调用方传播硬错误
type TranslationCache struct {
	cfg    Config
	local  *lru.Cache[string, entry]
	remote RemoteTier
	logger *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// New 创建翻译缓存，remote 可以为 nil（仅本地一级）
func New(cfg Config, remote RemoteTier, logger *zap.Logger) (*TranslationCache, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	local, err := lru.New[string, entry](cfg.Capacity)
	if err != nil {
		return nil, err
	}

	return &TranslationCache{
		cfg:    cfg,
		local:  local,
		remote: remote,
		logger: logger,
	}, nil
}

// Key 根据文本和语言对生成内容哈希键
func Key(text, sourceLang, targetLang string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(sourceLang))
	h.Write([]byte{0})
	h.Write([]byte(targetLang))
	return hex.EncodeToString(h.Sum(nil))
}

// Get 查询翻译缓存
// 本地命中但已过期的条目被惰性删除；本地未命中时查询远端并回填本地
func (c *TranslationCache) Get(ctx context.Context, text, sourceLang, targetLang string) (string, bool) {
	key := Key(text, sourceLang, targetLang)

	if e, ok := c.local.Get(key); ok {
		if !e.expired(time.Now()) {
			c.recordHit()
			return e.Value, true
		}
		c.local.Remove(key)
	}

	if c.remote != nil {
		value, ok, err := c.remote.Get(ctx, key)
		if err != nil {
			c.logger.Warn("remote cache lookup failed, treating as miss",
				zap.Error(err))
		} else if ok {
			// 回填本地一级
			c.local.Add(key, entry{Value: value, CreatedAt: time.Now(), TTL: c.cfg.TTL})
			c.recordRemoteHit()
			return value, true
		}
	}

	c.recordMiss()
	return "", false
}

// Set 写入翻译缓存，两级都写，远端失败只记日志
func (c *TranslationCache) Set(ctx context.Context, text, sourceLang, targetLang, translated string) {
	key := Key(text, sourceLang, targetLang)

	c.local.Add(key, entry{Value: translated, CreatedAt: time.Now(), TTL: c.cfg.TTL})

	if c.remote != nil {
		if err := c.remote.Set(ctx, key, translated, c.cfg.TTL); err != nil {
			c.logger.Warn("remote cache write failed", zap.Error(err))
		}
	}
}

// CleanupExpired 主动清扫本地过期条目，返回清除数量
func (c *TranslationCache) CleanupExpired() int {
	now := time.Now()
	removed := 0

	for _, key := range c.local.Keys() {
		if e, ok := c.local.Peek(key); ok && e.expired(now) {
			c.local.Remove(key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("expired cache entries swept", zap.Int("removed", removed))
	}
	return removed
}

// Stats 返回缓存统计信息快照
func (c *TranslationCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.stats
	snapshot.Size = c.local.Len()
	return snapshot
}

func (c *TranslationCache) recordHit() {
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
}

func (c *TranslationCache) recordRemoteHit() {
	c.mu.Lock()
	c.stats.Hits++
	c.stats.RemoteHits++
	c.mu.Unlock()
}

func (c *TranslationCache) recordMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}
