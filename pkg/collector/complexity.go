package collector

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 复杂度权重的取值范围
const (
	minComplexityWeight = 0.5
	maxComplexityWeight = 3.0
)

// headingTags 标题类标签
var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true,
}

// ComplexityWeight 估算一段文本的翻译复杂度权重
// 以 1.0 为基准，按长度、标点密度、数字密度、大写占比、文本类型、
// DOM 深度、父标签和特殊内容指示逐项修正，最终收敛到 [0.5, 3.0]
func ComplexityWeight(text string, textType TextType, depth int, parentTag string) float64 {
	weight := 1.0
	charCount := utf8.RuneCountInString(text)

	// 长度修正：长文本承载更多上下文，短文本更像独立词组
	switch {
	case charCount > 500:
		weight += 0.4
	case charCount > 200:
		weight += 0.2
	case charCount < 10:
		weight -= 0.2
	}

	if punctuationDensity(text) > 0.15 {
		weight += 0.2
	}
	if digitDensity(text) > 0.3 {
		weight += 0.3
	}
	if uppercaseRatio(text) > 0.5 {
		weight += 0.2
	}

	// 类型修正：标题和提示语对措辞更敏感
	switch textType {
	case TextTypeTitle:
		weight += 0.2
	case TextTypeTooltip, TextTypeFormLabel:
		weight += 0.1
	case TextTypeButton, TextTypeLink:
		weight -= 0.1
	}

	// 深层嵌套的文本往往是复杂版式的碎片
	if depth > 20 {
		weight += 0.2
	} else if depth > 10 {
		weight += 0.1
	}

	switch {
	case parentTag == "code" || parentTag == "pre" || parentTag == "script":
		weight += 0.5
	case parentTag == "table" || parentTag == "th" || parentTag == "td":
		weight += 0.2
	case headingTags[parentTag]:
		weight += 0.2
	}

	// HTML 实体和 URL/邮箱痕迹提高出错概率
	if strings.Contains(text, "&") && strings.Contains(text, ";") {
		weight += 0.2
	}
	if strings.Contains(text, "://") || looksLikeEmailFragment(text) {
		weight += 0.3
	}

	if weight < minComplexityWeight {
		weight = minComplexityWeight
	}
	if weight > maxComplexityWeight {
		weight = maxComplexityWeight
	}
	return weight
}

// punctuationDensity 计算标点符号密度
func punctuationDensity(text string) float64 {
	total := 0
	count := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			count++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// digitDensity 计算数字密度
func digitDensity(text string) float64 {
	total := 0
	count := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			count++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// uppercaseRatio 计算大写字母在全部字母中的占比
func uppercaseRatio(text string) float64 {
	letters := 0
	upper := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// looksLikeEmailFragment 判断文本中是否夹带邮箱样式的片段
func looksLikeEmailFragment(text string) bool {
	at := strings.Index(text, "@")
	if at <= 0 || at >= len(text)-1 {
		return false
	}
	rest := text[at+1:]
	dot := strings.Index(rest, ".")
	return dot > 0 && dot < len(rest)-1
}
