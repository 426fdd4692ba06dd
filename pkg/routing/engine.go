package routing

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CacheStatus 持久化翻译记录的状态
type CacheStatus int

const (
	StatusNotFound   CacheStatus = iota // 没有任何记录
	StatusComplete                      // 存在可用的成功记录
	StatusProcessing                    // 正在处理中
	StatusExpired                       // 记录已过期或语言对不匹配
	StatusFailed                        // 上次处理失败
)

// String 返回状态名称
func (s CacheStatus) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusProcessing:
		return "processing"
	case StatusExpired:
		return "expired"
	case StatusFailed:
		return "failed"
	default:
		return "not_found"
	}
}

// Strategy 请求路由策略
type Strategy int

const (
	StrategyFullReprocess      Strategy = iota // 完整重新处理
	StrategyUseCache                           // 直接使用缓存记录
	StrategyWaitForProcessing                  // 等待进行中的处理完成
	StrategyReprocessWithCheck                 // 重新处理，但保留旧记录校验
)

// String 返回策略名称
func (s Strategy) String() string {
	switch s {
	case StrategyUseCache:
		return "use_cache"
	case StrategyWaitForProcessing:
		return "wait_for_processing"
	case StrategyReprocessWithCheck:
		return "reprocess_with_check"
	default:
		return "full_reprocess"
	}
}

// strategyFor 状态到策略的确定性映射
func strategyFor(status CacheStatus) Strategy {
	switch status {
	case StatusComplete:
		return StrategyUseCache
	case StatusProcessing:
		return StrategyWaitForProcessing
	case StatusExpired:
		return StrategyReprocessWithCheck
	default:
		return StrategyFullReprocess
	}
}

// QueryResult 一次路由查询的结果
type QueryResult struct {
	// RecordID 命中的记录 ID，没有记录时为 0
	RecordID int64
	// Status 记录状态
	Status CacheStatus
	// Strategy 由 Status 唯一决定的路由策略
	Strategy Strategy
}

// 记录状态常量，与持久化存储中的 status 列对应
const (
	RecordStatusPending = "pending"
	RecordStatusSuccess = "success"
	RecordStatusError   = "error"
)

// Record 一条持久化翻译记录
type Record struct {
	ID         int64
	URL        string
	SourceLang string
	TargetLang string
	Status     string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}

// Expired 判断记录在 now 时刻是否已过期
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// RecordStore 持久化翻译记录存储
type RecordStore interface {
	// FindExact 按 (url, 源语言, 目标语言, 状态) 精确查找最新记录
	FindExact(ctx context.Context, url, sourceLang, targetLang, status string) (*Record, error)
	// FindByURL 按 (url, 状态) 查找任意语言对的最新记录
	FindByURL(ctx context.Context, url, status string) (*Record, error)
	// FindAny 查找该 url 的任意最新记录
	FindAny(ctx context.Context, url string) (*Record, error)
}

// EngineConfig 路由引擎配置
type EngineConfig struct {
	// CacheCapacity 决策缓存容量
	CacheCapacity int
	// CacheTTL 决策缓存有效期
	CacheTTL time.Duration
}

// DefaultEngineConfig 返回默认路由引擎配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CacheCapacity: 1000,
		CacheTTL:      5 * time.Minute,
	}
}

// Engine 路由决策引擎
// 在请求边界决定一个 URL/语言对 该走缓存、等待还是重新处理，
// 决策结果短暂缓存以吸收重复查询，避免每个请求都打到持久化存储
type Engine struct {
	store  RecordStore
	cache  *decisionLRU
	logger *zap.Logger
}

// NewEngine 创建路由决策引擎
func NewEngine(store RecordStore, cfg EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		cache:  newDecisionLRU(cfg.CacheCapacity, cfg.CacheTTL),
		logger: logger,
	}
}

// QueryStatus 查询一个 URL/语言对 的缓存状态和路由策略
// 四个过滤器按优先级依次匹配，第一个命中者决定结果
func (e *Engine) QueryStatus(ctx context.Context, url, sourceLang, targetLang string) (QueryResult, error) {
	key := cacheKey(url, sourceLang, targetLang)

	if result, ok := e.cache.get(key); ok {
		return result, nil
	}

	result, err := e.lookup(ctx, url, sourceLang, targetLang)
	if err != nil {
		return QueryResult{}, err
	}

	e.cache.put(key, result)

	e.logger.Debug("routing decision",
		zap.String("url", url),
		zap.String("status", result.Status.String()),
		zap.String("strategy", result.Strategy.String()))

	return result, nil
}

// Invalidate 使指定 URL/语言对 的缓存决策失效
// 翻译流水线完成一次处理后调用，让下一次查询看到新记录
func (e *Engine) Invalidate(url, sourceLang, targetLang string) {
	e.cache.invalidate(cacheKey(url, sourceLang, targetLang))
}

// lookup 按优先级执行四个过滤器
func (e *Engine) lookup(ctx context.Context, url, sourceLang, targetLang string) (QueryResult, error) {
	// (a) 精确三元组的成功记录
	record, err := e.store.FindExact(ctx, url, sourceLang, targetLang, RecordStatusSuccess)
	if err != nil {
		return QueryResult{}, err
	}
	if record != nil {
		status := StatusComplete
		if record.Expired(time.Now()) {
			status = StatusExpired
		}
		return resultFor(record.ID, status), nil
	}

	// (b) 同 url 任意语言对的成功记录：页面处理过但该语言对还没有
	record, err = e.store.FindByURL(ctx, url, RecordStatusSuccess)
	if err != nil {
		return QueryResult{}, err
	}
	if record != nil {
		return resultFor(record.ID, StatusExpired), nil
	}

	// (c) 精确三元组的处理中记录
	record, err = e.store.FindExact(ctx, url, sourceLang, targetLang, RecordStatusPending)
	if err != nil {
		return QueryResult{}, err
	}
	if record != nil {
		return resultFor(record.ID, StatusProcessing), nil
	}

	// (d) 该 url 的任意记录
	record, err = e.store.FindAny(ctx, url)
	if err != nil {
		return QueryResult{}, err
	}
	if record != nil {
		return resultFor(record.ID, StatusFailed), nil
	}

	return resultFor(0, StatusNotFound), nil
}

// resultFor 组装查询结果，策略始终由状态推导
func resultFor(recordID int64, status CacheStatus) QueryResult {
	return QueryResult{
		RecordID: recordID,
		Status:   status,
		Strategy: strategyFor(status),
	}
}

// cacheKey 组合决策缓存键
func cacheKey(url, sourceLang, targetLang string) string {
	return url + "\x00" + sourceLang + "\x00" + targetLang
}
