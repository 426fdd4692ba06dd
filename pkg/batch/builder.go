package batch

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-page-translator/pkg/collector"
)

// largeBatchRatio 有效大小超过容量该比例的批次视为 Large，
// 同时也是提前封批的水位线
const largeBatchRatio = 0.8

// BuilderConfig 批次构建配置
type BuilderConfig struct {
	// MaxBatchSize 单批次字符数硬上限
	MaxBatchSize int
	// MinBatchChars 封批前要求的最小字符数
	MinBatchChars int
	// MaxEffectiveSize 单批次有效大小硬上限
	MaxEffectiveSize float64
	// MinEffectiveSize 封批前要求的最小有效大小
	MinEffectiveSize float64
	// SmallBatchThreshold 条目数不超过该值的批次视为 Small
	SmallBatchThreshold int
}

// DefaultBuilderConfig 返回默认批次构建配置
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MaxBatchSize:        9000,
		MinBatchChars:       2000,
		MaxEffectiveSize:    9000,
		MinEffectiveSize:    2000,
		SmallBatchThreshold: 2,
	}
}

// Builder 把收集到的文本单元组装成大小和优先级受控的批次
// 输入顺序和配置相同时输出是确定的
type Builder struct {
	cfg    BuilderConfig
	logger *zap.Logger
	nextID uint64
}

// NewBuilder 创建批次构建器
func NewBuilder(cfg BuilderConfig, logger *zap.Logger) *Builder {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 9000
	}
	if cfg.MaxEffectiveSize <= 0 {
		cfg.MaxEffectiveSize = float64(cfg.MaxBatchSize)
	}
	if cfg.SmallBatchThreshold <= 0 {
		cfg.SmallBatchThreshold = 2
	}

	return &Builder{
		cfg:    cfg,
		logger: logger,
	}
}

// Build 把条目组装成批次列表
// 按优先级分桶后从高到低贪心装填，最后对连续的小批次做合并优化
func (b *Builder) Build(items []*collector.TextItem) []*Batch {
	if len(items) == 0 {
		return nil
	}

	sorted := make([]*collector.TextItem, len(items))
	copy(sorted, items)
	sortForBatching(sorted)

	buckets := partitionByPriority(sorted)

	var batches []*Batch
	for _, priority := range []collector.Priority{
		collector.PriorityCritical,
		collector.PriorityHigh,
		collector.PriorityNormal,
		collector.PriorityLow,
	} {
		batches = append(batches, b.fillBucket(buckets[priority])...)
	}

	batches = b.mergeSmallBatches(batches)

	b.logger.Debug("batches built",
		zap.Int("items", len(items)),
		zap.Int("batches", len(batches)))

	return batches
}

// fillBucket 对单个优先级桶做贪心装填
func (b *Builder) fillBucket(items []*collector.TextItem) []*Batch {
	var batches []*Batch
	var current []*collector.TextItem
	currentChars := 0
	currentEffective := 0.0

	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, b.newBatch(current))
		current = nil
		currentChars = 0
		currentEffective = 0.0
	}

	for _, item := range items {
		chars := item.CharCount()
		effective := item.EffectiveSize()

		// 单条就超限的项独占一个批次，节点内文本不再拆分
		if chars > b.cfg.MaxBatchSize {
			flush()
			batches = append(batches, b.newBatch([]*collector.TextItem{item}))
			continue
		}

		fitsChars := currentChars+chars <= b.cfg.MaxBatchSize
		fitsEffective := currentEffective+effective <= b.cfg.MaxEffectiveSize

		switch {
		case !fitsChars:
			// 字符数是硬上限，无条件封批
			flush()
		case !fitsEffective:
			// 有效大小超限时只有批次够大才封批，避免产生病态的小尾批
			ready := currentChars >= b.cfg.MinBatchChars ||
				currentEffective >= b.cfg.MinEffectiveSize ||
				float64(currentChars) >= float64(b.cfg.MaxBatchSize)*largeBatchRatio
			if ready {
				flush()
			}
		}

		current = append(current, item)
		currentChars += chars
		currentEffective += effective
	}
	flush()

	return batches
}

// newBatch 创建批次并推导统计量
func (b *Builder) newBatch(items []*collector.TextItem) *Batch {
	b.nextID++
	batch := &Batch{
		ID:        b.nextID,
		Items:     items,
		CreatedAt: time.Now(),
	}
	batch.recalculate(b.cfg)
	return batch
}

// mergeSmallBatches 合并连续的小批次，减少细碎的网络调用
// 只在 CanMergeWith 成立时合并，不会突破任何大小上限
func (b *Builder) mergeSmallBatches(batches []*Batch) []*Batch {
	if len(batches) < 2 {
		return batches
	}

	var result []*Batch
	var queue []*Batch

	flushQueue := func() {
		if len(queue) == 0 {
			return
		}
		head := queue[0]
		for _, candidate := range queue[1:] {
			if head.CanMergeWith(candidate, b.cfg) {
				head.MergeWith(candidate, b.cfg)
			} else {
				result = append(result, head)
				head = candidate
			}
		}
		result = append(result, head)
		queue = nil
	}

	for _, batch := range batches {
		if batch.Type == TypeSmall {
			queue = append(queue, batch)
			continue
		}
		flushQueue()
		result = append(result, batch)
	}
	flushQueue()

	return result
}

// partitionByPriority 按优先级分桶，桶内保持输入顺序
func partitionByPriority(items []*collector.TextItem) map[collector.Priority][]*collector.TextItem {
	buckets := make(map[collector.Priority][]*collector.TextItem, 4)
	for _, item := range items {
		buckets[item.Priority] = append(buckets[item.Priority], item)
	}
	return buckets
}

// sortForBatching 与收集器相同的排序，重复执行是幂等的
func sortForBatching(items []*collector.TextItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		ci, cj := items[i].CharCount(), items[j].CharCount()
		if ci != cj {
			return ci < cj
		}
		return items[i].Depth < items[j].Depth
	})
}
