package collector

import (
	"unicode/utf8"

	"golang.org/x/net/html"
)

// TextType 文本单元的类型，决定翻译优先级
type TextType int

const (
	TextTypeContent TextType = iota // 普通文本内容
	TextTypeTitle                   // 标题（title、h1-h6）
	TextTypeLink                    // 链接文本
	TextTypeButton                  // 按钮文本
	TextTypeFormLabel               // 表单标签、占位符
	TextTypeImageAlt                // 图片替代文本
	TextTypeTooltip                 // 悬浮提示（title 属性）
	TextTypeAttribute               // 其他属性值
)

// String 返回类型名称
func (t TextType) String() string {
	switch t {
	case TextTypeContent:
		return "content"
	case TextTypeTitle:
		return "title"
	case TextTypeLink:
		return "link"
	case TextTypeButton:
		return "button"
	case TextTypeFormLabel:
		return "form_label"
	case TextTypeImageAlt:
		return "image_alt"
	case TextTypeTooltip:
		return "tooltip"
	case TextTypeAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// Priority 翻译优先级，值越大越优先
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String 返回优先级名称
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// TextItem 一个待翻译的文本单元：文本节点的内容或一个属性值
// Node 是对外部 DOM 的非拥有引用，节点本身由 DOM 树独占持有
type TextItem struct {
	// Text 去除首尾空白后的原始文本
	Text string

	// Node 关联的 DOM 节点：内容项指向文本节点，属性项指向元素节点
	Node *html.Node

	// AttrName 属性名，仅属性项设置
	AttrName string

	// Type 文本类型
	Type TextType

	// Priority 翻译优先级，由 (Type, 文本长度) 唯一决定
	Priority Priority

	// Depth 节点在 DOM 树中的深度
	Depth int

	// ParentTag 父元素标签名
	ParentTag string

	// ComplexityWeight 复杂度权重，范围 [0.5, 3.0]
	ComplexityWeight float64

	// LeadingWhitespace / TrailingWhitespace 原始文本的首尾空白，
	// 写回 DOM 时原样保留
	LeadingWhitespace  string
	TrailingWhitespace string
}

// IsAttribute 判断该项是否为属性值
func (item *TextItem) IsAttribute() bool {
	return item.AttrName != ""
}

// CharCount 返回文本的字符数（按 rune 计）
func (item *TextItem) CharCount() int {
	return utf8.RuneCountInString(item.Text)
}

// EffectiveSize 返回复杂度加权后的有效大小，用于批次容量计算
func (item *TextItem) EffectiveSize() float64 {
	return float64(item.CharCount()) * item.ComplexityWeight
}

// PriorityFor 根据文本类型和长度计算优先级
// 纯函数：标题始终最高，交互元素其次，普通内容按长度分级，裸属性最低
func PriorityFor(textType TextType, charCount int) Priority {
	switch textType {
	case TextTypeTitle:
		return PriorityCritical
	case TextTypeButton, TextTypeLink, TextTypeFormLabel, TextTypeTooltip:
		return PriorityHigh
	case TextTypeContent:
		switch {
		case charCount > 100:
			return PriorityHigh
		case charCount > 20:
			return PriorityNormal
		default:
			return PriorityLow
		}
	default:
		return PriorityLow
	}
}
