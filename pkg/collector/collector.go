package collector

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-page-translator/pkg/textfilter"
)

// Options 收集器选项
type Options struct {
	// MaxDepth 遍历深度上限，防止病态嵌套的文档
	MaxDepth int
	// RespectTranslateAttr 是否尊重 translate="no" 属性
	RespectTranslateAttr bool
	// ExtractableAttributes 可提取的属性名列表
	ExtractableAttributes []string
	// SkipTags 整棵子树剪枝的标签列表
	SkipTags []string
}

// DefaultOptions 返回默认收集器选项
func DefaultOptions() Options {
	return Options{
		MaxDepth:             50,
		RespectTranslateAttr: true,
		ExtractableAttributes: []string{
			"title", "alt", "placeholder", "aria-label", "aria-description",
		},
		SkipTags: []string{
			"script", "style", "code", "pre", "noscript", "meta", "link",
			"head", "svg", "math", "canvas", "video", "audio", "embed",
			"object", "iframe", "map", "area", "base", "br", "hr", "img",
			"input", "source", "track", "wbr",
		},
	}
}

// attributeTextTypes 属性名到文本类型的映射
var attributeTextTypes = map[string]TextType{
	"title":            TextTypeTooltip,
	"alt":              TextTypeImageAlt,
	"placeholder":      TextTypeFormLabel,
	"aria-label":       TextTypeAttribute,
	"aria-description": TextTypeAttribute,
}

// Collector 遍历 DOM 树提取待翻译文本，纯读取，不修改 DOM
type Collector struct {
	logger   *zap.Logger
	filter   *textfilter.Filter
	opts     Options
	skipTags map[string]bool
}

// New 创建文本收集器
func New(logger *zap.Logger, filter *textfilter.Filter, opts Options) *Collector {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 50
	}

	skipTags := make(map[string]bool, len(opts.SkipTags))
	for _, tag := range opts.SkipTags {
		skipTags[strings.ToLower(tag)] = true
	}

	return &Collector{
		logger:   logger,
		filter:   filter,
		opts:     opts,
		skipTags: skipTags,
	}
}

// Collect 提取文档中的全部待翻译文本单元
// 返回结果已去重并按 优先级降序 / 字符数升序 / 深度升序 排好序
func (c *Collector) Collect(doc *goquery.Document) []*TextItem {
	var items []*TextItem

	for _, root := range doc.Nodes {
		c.walk(root, 0, &items)
	}

	items = dedupeItems(items)
	sortItems(items)

	c.logger.Debug("collected translatable items",
		zap.Int("total", len(items)),
		zap.Int("attributes", countAttributes(items)))

	return items
}

// walk 深度优先遍历节点
func (c *Collector) walk(n *html.Node, depth int, items *[]*TextItem) {
	if depth > c.opts.MaxDepth {
		c.logger.Warn("max traversal depth exceeded, pruning subtree",
			zap.Int("depth", depth))
		return
	}

	switch n.Type {
	case html.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			c.walk(child, depth, items)
		}

	case html.ElementNode:
		tag := strings.ToLower(n.Data)

		if c.opts.RespectTranslateAttr && getAttr(n, "translate") == "no" {
			return
		}

		// 属性先于剪枝提取：img 等空元素的 alt/title 仍然需要翻译
		c.collectAttributes(n, tag, depth, items)

		if c.skipTags[tag] {
			// head 整体剪枝，但 <title> 是页面的可见标题，仍然要收集
			if tag == "head" {
				for child := n.FirstChild; child != nil; child = child.NextSibling {
					if child.Type == html.ElementNode && strings.EqualFold(child.Data, "title") {
						c.walk(child, depth+1, items)
					}
				}
			}
			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			c.walk(child, depth+1, items)
		}

	case html.TextNode:
		c.collectText(n, depth, items)
	}
}

// collectText 提取一个文本节点
func (c *Collector) collectText(n *html.Node, depth int, items *[]*TextItem) {
	raw := n.Data
	text := strings.TrimSpace(raw)
	if text == "" || !c.filter.ShouldTranslate(text) {
		return
	}

	parentTag := parentTagOf(n)
	textType := classifyTextType(parentTag)

	item := &TextItem{
		Text:               text,
		Node:               n,
		Type:               textType,
		Depth:              depth,
		ParentTag:          parentTag,
		LeadingWhitespace:  leadingWhitespace(raw),
		TrailingWhitespace: trailingWhitespace(raw),
	}
	item.Priority = PriorityFor(textType, item.CharCount())
	item.ComplexityWeight = ComplexityWeight(text, textType, depth, parentTag)

	*items = append(*items, item)
}

// collectAttributes 提取元素上允许的属性值
func (c *Collector) collectAttributes(n *html.Node, tag string, depth int, items *[]*TextItem) {
	for _, attrName := range c.opts.ExtractableAttributes {
		value := strings.TrimSpace(getAttr(n, attrName))
		if value == "" || !c.filter.ShouldTranslate(value) {
			continue
		}

		textType, ok := attributeTextTypes[attrName]
		if !ok {
			textType = TextTypeAttribute
		}

		item := &TextItem{
			Text:      value,
			Node:      n,
			AttrName:  attrName,
			Type:      textType,
			Depth:     depth,
			ParentTag: tag,
		}
		item.Priority = PriorityFor(textType, item.CharCount())
		item.ComplexityWeight = ComplexityWeight(value, textType, depth, tag)

		*items = append(*items, item)
	}
}

// classifyTextType 根据父标签判断文本内容的类型
func classifyTextType(parentTag string) TextType {
	switch parentTag {
	case "title":
		return TextTypeTitle
	case "a":
		return TextTypeLink
	case "button":
		return TextTypeButton
	case "label", "legend", "option", "optgroup":
		return TextTypeFormLabel
	default:
		if headingTags[parentTag] {
			return TextTypeTitle
		}
		return TextTypeContent
	}
}

// dedupeItems 按 (文本, 类型) 去重，保留优先级更高的出现
func dedupeItems(items []*TextItem) []*TextItem {
	type dedupeKey struct {
		text string
		kind TextType
	}

	best := make(map[dedupeKey]*TextItem, len(items))
	order := make([]dedupeKey, 0, len(items))

	for _, item := range items {
		key := dedupeKey{text: item.Text, kind: item.Type}
		existing, seen := best[key]
		if !seen {
			best[key] = item
			order = append(order, key)
			continue
		}
		if item.Priority > existing.Priority {
			best[key] = item
		}
	}

	result := make([]*TextItem, 0, len(order))
	for _, key := range order {
		result = append(result, best[key])
	}
	return result
}

// sortItems 按 优先级降序 / 字符数升序 / 深度升序 排序
// 短文本靠前能让批次装得更满
func sortItems(items []*TextItem) {
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

// getAttr 读取节点属性值，不存在时返回空串
func getAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, name) {
			return attr.Val
		}
	}
	return ""
}

// parentTagOf 获取文本节点的父元素标签名
func parentTagOf(n *html.Node) string {
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		return strings.ToLower(n.Parent.Data)
	}
	return ""
}

// leadingWhitespace 截取文本的前导空白
func leadingWhitespace(text string) string {
	trimmed := strings.TrimLeft(text, " \t\n\r")
	return text[:len(text)-len(trimmed)]
}

// trailingWhitespace 截取文本的尾随空白
func trailingWhitespace(text string) string {
	trimmed := strings.TrimRight(text, " \t\n\r")
	return text[len(trimmed):]
}

// countAttributes 统计属性项数量
func countAttributes(items []*TextItem) int {
	count := 0
	for _, item := range items {
		if item.IsAttribute() {
			count++
		}
	}
	return count
}
