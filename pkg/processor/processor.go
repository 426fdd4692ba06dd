package processor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"

	"github.com/nerdneilsfield/go-page-translator/pkg/batch"
	"github.com/nerdneilsfield/go-page-translator/pkg/cache"
	"github.com/nerdneilsfield/go-page-translator/pkg/collector"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
)

// Config 批处理器配置
type Config struct {
	// SourceLang / TargetLang 语言对，用作缓存键的一部分
	SourceLang string
	TargetLang string

	// IndexedThreshold 条目数超过该值的批次走索引协议，否则逐条翻译
	IndexedThreshold int

	// MinSuccessRate 索引翻译的最低命中率，低于则整批走逐条回退
	MinSuccessRate float64

	// MaxRetries 每批次的最大重试次数
	MaxRetries int

	// RetryDelay 重试基准延迟，按指数退避放大
	RetryDelay time.Duration

	// BatchTimeout 单批次单次尝试的超时
	BatchTimeout time.Duration

	// MaxConcurrency 并发批次数上限，1 表示严格串行
	MaxConcurrency int64

	// ItemDelay 逐条翻译时条目间的间隔，缓解限流
	ItemDelay time.Duration
}

// DefaultConfig 返回默认批处理器配置
func DefaultConfig() Config {
	return Config{
		SourceLang:       "en",
		TargetLang:       "zh",
		IndexedThreshold: 2,
		MinSuccessRate:   0.8,
		MaxRetries:       3,
		RetryDelay:       time.Second,
		BatchTimeout:     30 * time.Second,
		MaxConcurrency:   5,
		ItemDelay:        100 * time.Millisecond,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.MinSuccessRate < 0 || c.MinSuccessRate > 1 {
		return NewProcessError(ErrCodeConfig, "min success rate must be in [0, 1]", nil, false)
	}
	if c.MaxRetries < 0 {
		return NewProcessError(ErrCodeConfig, "max retries must be non-negative", nil, false)
	}
	if c.BatchTimeout <= 0 {
		return NewProcessError(ErrCodeConfig, "batch timeout must be positive", nil, false)
	}
	if c.MaxConcurrency <= 0 {
		return NewProcessError(ErrCodeConfig, "max concurrency must be positive", nil, false)
	}
	return nil
}

// Result 一次处理的汇总结果
// 单条失败不会中断批次，单批失败不会中断整体，DOM 总是可用的，
// 只是可能只翻译了一部分
type Result struct {
	mu sync.Mutex

	BatchesAttempted int
	BatchesSucceeded int
	BatchesFailed    int

	ItemsTranslated     int
	ItemsFromCache      int
	ItemsSkipped        int
	MissingTranslations int

	Errors []error
}

// addError 记录一个批次级错误
func (r *Result) addError(err error) {
	r.mu.Lock()
	r.Errors = append(r.Errors, err)
	r.mu.Unlock()
}

// Processor 批处理器：流水线中唯一写 DOM 的组件
// 对每个批次依次做缓存查询、网络翻译和 DOM 回写；
// 网络调用绝不持有缓存锁
type Processor struct {
	cfg        Config
	translator providers.Translator
	cache      *cache.TranslationCache
	logger     *zap.Logger
}

// New 创建批处理器，cache 可以为 nil（不启用缓存）
func New(cfg Config, translator providers.Translator, translationCache *cache.TranslationCache, logger *zap.Logger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.IndexedThreshold <= 0 {
		cfg.IndexedThreshold = 2
	}

	return &Processor{
		cfg:        cfg,
		translator: translator,
		cache:      translationCache,
		logger:     logger,
	}, nil
}

// Process 处理全部批次并返回汇总结果
// MaxConcurrency 为 1 时严格串行，否则在信号量约束下并发；
// 整体被 batchTimeout*(N+1) 的全局超时兜底，防止个别卡死的任务拖住全局
func (p *Processor) Process(ctx context.Context, batches []*batch.Batch) *Result {
	result := &Result{}
	if len(batches) == 0 {
		return result
	}

	result.BatchesAttempted = len(batches)

	globalTimeout := p.cfg.BatchTimeout * time.Duration(len(batches)+1)
	ctx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	if p.cfg.MaxConcurrency <= 1 {
		for _, b := range batches {
			p.runBatch(ctx, b, result)
		}
		return result
	}

	sem := semaphore.NewWeighted(p.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for _, b := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			result.mu.Lock()
			result.BatchesFailed++
			result.ItemsSkipped += len(b.Items)
			result.mu.Unlock()
			result.addError(NewProcessError(ErrCodeConcurrency,
				"failed to acquire permit", err, true))
			continue
		}

		wg.Add(1)
		go func(b *batch.Batch) {
			defer wg.Done()
			defer sem.Release(1)
			p.runBatch(ctx, b, result)
		}(b)
	}

	wg.Wait()
	return result
}

// runBatch 带重试地处理一个批次并记录结果
// 缓存解析只做一次，在重试循环之外：失败批次重试时不会重复累计缓存命中，
// 批次最终失败时也只把仍未解决的条目计入跳过
func (p *Processor) runBatch(ctx context.Context, b *batch.Batch, result *Result) {
	pending := p.resolveFromCache(ctx, b, result)
	if len(pending) == 0 {
		result.mu.Lock()
		result.BatchesSucceeded++
		result.mu.Unlock()
		return
	}

	err := p.processBatchWithRetry(ctx, b, pending, result)

	result.mu.Lock()
	if err != nil {
		result.BatchesFailed++
		result.ItemsSkipped += len(pending)
	} else {
		result.BatchesSucceeded++
	}
	result.mu.Unlock()

	if err != nil {
		result.addError(err)
		p.logger.Warn("batch failed after retries",
			zap.Uint64("batchID", b.ID),
			zap.Int("items", len(pending)),
			zap.Error(err))
	}
}

// resolveFromCache 解析批次的缓存命中，命中的条目直接回写并计数
// 返回仍需走翻译服务的条目
func (p *Processor) resolveFromCache(ctx context.Context, b *batch.Batch, result *Result) []*collector.TextItem {
	if p.cache == nil {
		return b.Items
	}

	pending := make([]*collector.TextItem, 0, len(b.Items))
	for _, item := range b.Items {
		if translated, ok := p.cache.Get(ctx, item.Text, p.cfg.SourceLang, p.cfg.TargetLang); ok {
			p.applyTranslation(item, translated, result)
			result.mu.Lock()
			result.ItemsFromCache++
			result.mu.Unlock()
			continue
		}
		pending = append(pending, item)
	}
	return pending
}

// processBatchWithRetry 重试循环：指数退避，只重试可重试的错误
func (p *Processor) processBatchWithRetry(ctx context.Context, b *batch.Batch, pending []*collector.TextItem, result *Result) error {
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.cfg.RetryDelay * (1 << (attempt - 1))
			p.logger.Debug("retrying batch",
				zap.Uint64("batchID", b.ID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return WrapError(ctx.Err(), ErrCodeTimeout, "context done before retry")
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.BatchTimeout)
		err := p.processBatch(attemptCtx, b, pending, result)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return WrapError(err, ErrCodeService, "batch failed with non-retryable error")
		}
	}

	return WrapError(lastErr, ErrCodeService, "batch failed after all retries")
}

// processBatch 单次批处理尝试：翻译待处理条目并回写 DOM
// 失败的尝试不提交任何计数，成功路径各计数器对每个批次至多提交一次
func (p *Processor) processBatch(ctx context.Context, b *batch.Batch, pending []*collector.TextItem, result *Result) error {
	if len(pending) == 0 {
		return nil
	}

	if len(pending) > p.cfg.IndexedThreshold {
		if err := p.processIndexed(ctx, pending, result); err == nil {
			return nil
		} else if !isParseFailure(err) {
			return err
		}
		// 索引协议解析失败触发逐条回退，不算批次失败
		p.logger.Debug("indexed protocol failed, falling back to per-item translation",
			zap.Uint64("batchID", b.ID))
	}

	return p.processPerItem(ctx, pending, result)
}

// processIndexed 索引协议路径：合并、翻译、按索引还原
func (p *Processor) processIndexed(ctx context.Context, items []*collector.TextItem, result *Result) error {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}

	combined := CombineIndexed(texts)
	translated, err := p.translator.Translate(ctx, combined)
	if err != nil {
		return WrapError(err, ErrCodeService, "indexed translation call failed")
	}

	parsed := ParseIndexed(translated)

	matched := 0
	for i := range items {
		if parsed[i] != "" {
			matched++
		}
	}

	successRate := float64(matched) / float64(len(items))
	if successRate < p.cfg.MinSuccessRate {
		return NewProcessError(ErrCodeParse,
			"indexed translation success rate below threshold",
			ErrLowSuccessRate, false)
	}

	// 按索引回写，缺失的条目保持原文并计数
	for i, item := range items {
		text, ok := parsed[i]
		if !ok || text == "" {
			result.mu.Lock()
			result.MissingTranslations++
			result.mu.Unlock()
			p.logger.Debug("missing translation for indexed item",
				zap.Int("index", i),
				zap.String("text", truncate(item.Text, 40)))
			continue
		}
		p.applyTranslation(item, text, result)
		p.storeInCache(ctx, item.Text, text)
	}

	return nil
}

// processPerItem 逐条翻译路径：串行执行，条目间留出限流间隔
func (p *Processor) processPerItem(ctx context.Context, items []*collector.TextItem, result *Result) error {
	var lastErr error
	succeeded := 0
	skipped := 0

	for i, item := range items {
		if i > 0 && p.cfg.ItemDelay > 0 {
			select {
			case <-ctx.Done():
				return WrapError(ctx.Err(), ErrCodeTimeout, "context done during per-item translation")
			case <-time.After(p.cfg.ItemDelay):
			}
		}

		translated, err := p.translator.Translate(ctx, item.Text)
		if err != nil {
			lastErr = err
			skipped++
			p.logger.Warn("per-item translation failed",
				zap.String("text", truncate(item.Text, 40)),
				zap.Error(err))
			continue
		}

		if strings.TrimSpace(translated) == "" {
			lastErr = NewProcessError(ErrCodeInput, "translation service returned empty result",
				ErrEmptyTranslation, false)
			skipped++
			p.logger.Warn("empty translation result",
				zap.String("text", truncate(item.Text, 40)))
			continue
		}

		// 长文本原样返回通常意味着服务没有翻译，记录但仍然应用
		if translated == item.Text && item.CharCount() > 50 {
			p.logger.Debug("translation identical to source",
				zap.String("text", truncate(item.Text, 40)))
		}

		p.applyTranslation(item, translated, result)
		p.storeInCache(ctx, item.Text, translated)
		succeeded++
	}

	// 只要有条目成功就算批次成功；全部失败时把最后的错误上抛触发重试，
	// 跳过计数留给批次级统计避免重复累计
	if lastErr != nil && succeeded == 0 {
		return WrapError(lastErr, ErrCodeService, "all per-item translations failed")
	}

	result.mu.Lock()
	result.ItemsSkipped += skipped
	result.mu.Unlock()
	return nil
}

// applyTranslation 把翻译结果写回 DOM
// 内容项替换文本节点内容并保留首尾空白，属性项更新对应属性值；
// 每个节点只属于一个条目，并发批次间不会写同一节点
func (p *Processor) applyTranslation(item *collector.TextItem, translated string, result *Result) {
	if item.Node == nil {
		p.logger.Error("text item has no DOM node, skipping",
			zap.String("text", truncate(item.Text, 40)))
		result.mu.Lock()
		result.ItemsSkipped++
		result.mu.Unlock()
		return
	}

	if item.IsAttribute() {
		if item.Node.Type != html.ElementNode {
			p.logger.Error("attribute item references non-element node, skipping",
				zap.String("attr", item.AttrName))
			result.mu.Lock()
			result.ItemsSkipped++
			result.mu.Unlock()
			return
		}
		setAttr(item.Node, item.AttrName, translated)
	} else {
		if item.Node.Type != html.TextNode {
			p.logger.Error("content item references non-text node, skipping",
				zap.String("text", truncate(item.Text, 40)))
			result.mu.Lock()
			result.ItemsSkipped++
			result.mu.Unlock()
			return
		}
		item.Node.Data = item.LeadingWhitespace + translated + item.TrailingWhitespace
	}

	result.mu.Lock()
	result.ItemsTranslated++
	result.mu.Unlock()
}

// storeInCache 把翻译结果写入缓存
func (p *Processor) storeInCache(ctx context.Context, text, translated string) {
	if p.cache != nil {
		p.cache.Set(ctx, text, p.cfg.SourceLang, p.cfg.TargetLang, translated)
	}
}

// isParseFailure 判断错误是否是索引协议解析失败
func isParseFailure(err error) bool {
	var pe *ProcessError
	return errors.As(err, &pe) && pe.Code == ErrCodeParse
}

// setAttr 设置元素属性，存在则覆盖
func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if strings.EqualFold(n.Attr[i].Key, key) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// truncate 截断日志中的长文本
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
