package batch

import (
	"time"

	"github.com/nerdneilsfield/go-page-translator/pkg/collector"
)

// Type 批次类型，按规模和优先级分档
type Type int

const (
	TypeSingle   Type = iota // 单条超大项，独占一个批次
	TypeSmall                // 条目数不超过小批次阈值
	TypeStandard             // 常规批次
	TypeLarge                // 有效大小超过容量的 80%
	TypePriority             // 关键优先级批次
)

// String 返回批次类型名称
func (t Type) String() string {
	switch t {
	case TypeSingle:
		return "single"
	case TypeSmall:
		return "small"
	case TypeStandard:
		return "standard"
	case TypeLarge:
		return "large"
	case TypePriority:
		return "priority"
	default:
		return "unknown"
	}
}

// Batch 一组作为单次网络请求提交的文本单元
type Batch struct {
	// ID 批次编号，构建时单调递增
	ID uint64

	// Items 批次内的文本单元
	Items []*collector.TextItem

	// Priority 批次优先级，取所有条目的最大值
	Priority collector.Priority

	// Type 批次类型，合并或拆分后重新推导
	Type Type

	// EstimatedChars 条目字符数之和
	EstimatedChars int

	// EstimatedEffectiveSize 复杂度加权后的有效大小之和
	EstimatedEffectiveSize float64

	// EstimatedDuration 预估翻译耗时
	EstimatedDuration time.Duration

	// CreatedAt 创建时间
	CreatedAt time.Time
}

// recalculate 重新推导批次的统计量、优先级和类型
// 任何合并或拆分之后都必须调用
func (b *Batch) recalculate(cfg BuilderConfig) {
	b.EstimatedChars = 0
	b.EstimatedEffectiveSize = 0
	b.Priority = collector.PriorityLow

	for _, item := range b.Items {
		b.EstimatedChars += item.CharCount()
		b.EstimatedEffectiveSize += item.EffectiveSize()
		if item.Priority > b.Priority {
			b.Priority = item.Priority
		}
	}

	b.EstimatedDuration = estimateDuration(b.EstimatedEffectiveSize)
	b.Type = classify(b, cfg)
}

// classify 推导批次类型
func classify(b *Batch, cfg BuilderConfig) Type {
	switch {
	case len(b.Items) == 1:
		return TypeSingle
	case b.Priority == collector.PriorityCritical:
		return TypePriority
	case len(b.Items) <= cfg.SmallBatchThreshold:
		return TypeSmall
	case b.EstimatedEffectiveSize > cfg.MaxEffectiveSize*largeBatchRatio:
		return TypeLarge
	default:
		return TypeStandard
	}
}

// CanMergeWith 判断两个批次能否合并
// 规则：优先级差不超过 1，合并后有效大小不超限，双方都不是 Single 或 Large
func (b *Batch) CanMergeWith(other *Batch, cfg BuilderConfig) bool {
	if b == nil || other == nil {
		return false
	}
	if b.Type == TypeSingle || b.Type == TypeLarge ||
		other.Type == TypeSingle || other.Type == TypeLarge {
		return false
	}

	gap := int(b.Priority) - int(other.Priority)
	if gap < 0 {
		gap = -gap
	}
	if gap > 1 {
		return false
	}

	if b.EstimatedEffectiveSize+other.EstimatedEffectiveSize > cfg.MaxEffectiveSize {
		return false
	}
	if b.EstimatedChars+other.EstimatedChars > cfg.MaxBatchSize {
		return false
	}

	return true
}

// MergeWith 把 other 的条目并入本批次并重新推导类型
// 调用方必须先用 CanMergeWith 检查
func (b *Batch) MergeWith(other *Batch, cfg BuilderConfig) {
	b.Items = append(b.Items, other.Items...)
	b.recalculate(cfg)
}

// estimateDuration 按有效大小估算批次耗时
// 经验值：500ms 起步，每 1000 个有效字符增加 1s
func estimateDuration(effectiveSize float64) time.Duration {
	return 500*time.Millisecond + time.Duration(effectiveSize/1000*float64(time.Second))
}
