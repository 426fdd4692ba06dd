package textfilter

import (
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// Config 文本过滤器配置
type Config struct {
	// MinTextLength 低于该长度的文本直接跳过
	MinTextLength int
	// SpecialCharThreshold 代码类字符占比阈值，超过则视为代码片段
	SpecialCharThreshold float64
	// CJKThreshold 中日韩字符占比阈值，超过则视为已是目标语言
	CJKThreshold float64
	// MaxEmailLength 超过该长度的文本不再做邮箱判断
	MaxEmailLength int
}

// DefaultConfig 返回默认过滤器配置
func DefaultConfig() Config {
	return Config{
		MinTextLength:        2,
		SpecialCharThreshold: 1.0 / 3.0,
		CJKThreshold:         0.5,
		MaxEmailLength:       100,
	}
}

// Filter 判断一段文本是否值得提交翻译
// 所有正则在构造时编译一次，组件间通过注入共享，不使用包级全局状态
type Filter struct {
	cfg           Config
	urlPattern    *regexp2.Regexp
	emailPattern  *regexp2.Regexp
	entityPattern *regexp2.Regexp
	functional    map[string]bool
}

// codeLikeChars 代码片段常见的符号集合
const codeLikeChars = "{}[]();=<>/\\"

// NewFilter 创建文本过滤器
func NewFilter(cfg Config) *Filter {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 2
	}
	if cfg.SpecialCharThreshold <= 0 {
		cfg.SpecialCharThreshold = 1.0 / 3.0
	}
	if cfg.CJKThreshold <= 0 {
		cfg.CJKThreshold = 0.5
	}
	if cfg.MaxEmailLength <= 0 {
		cfg.MaxEmailLength = 100
	}

	// 短功能词，翻译后往往比原文更难理解
	functional := map[string]bool{
		"ok": true, "yes": true, "no": true, "on": true,
		"off": true, "go": true, "up": true, "x": true, ">": true,
	}

	return &Filter{
		cfg:           cfg,
		urlPattern:    regexp2.MustCompile(`^(https?|ftp)://\S+$`, regexp2.IgnoreCase),
		emailPattern:  regexp2.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`, 0),
		entityPattern: regexp2.MustCompile(`&[a-zA-Z]+\d*;|&#\d+;`, 0),
		functional:    functional,
	}
}

// ShouldTranslate 判断文本是否值得翻译
// 纯函数：相同输入必然得到相同输出，不产生副作用
func (f *Filter) ShouldTranslate(text string) bool {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)

	if len(runes) < f.cfg.MinTextLength {
		return false
	}

	if f.IsURL(trimmed) || f.IsEmail(trimmed) {
		return false
	}

	// 代码片段：特殊符号占比过高
	if specialCharRatio(trimmed) > f.cfg.SpecialCharThreshold {
		return false
	}

	// CSS 选择器样式的文本
	if isCSSSelectorLike(trimmed) {
		return false
	}

	// 完全没有字母的文本（纯数字、纯符号）没有翻译价值
	if !hasAlphabetic(runes) {
		return false
	}

	// 已经以中日韩字符为主，视为目标语言
	if cjkRatio(runes) >= f.cfg.CJKThreshold {
		return false
	}

	// 极短的功能词
	if len(runes) < 3 && f.functional[strings.ToLower(trimmed)] {
		return false
	}

	return true
}

// TranslatabilityScore 计算文本的可翻译性评分，范围 [0, 1]
// 采用乘法惩罚模型：各项信号独立打折，URL 和邮箱直接归零
func (f *Filter) TranslatabilityScore(text string) float64 {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)

	if len(runes) == 0 {
		return 0
	}
	if f.IsURL(trimmed) || f.IsEmail(trimmed) {
		return 0
	}

	score := 1.0

	if len(runes) < f.cfg.MinTextLength {
		score *= 0.1
	} else if len(runes) < 5 {
		score *= 0.6
	}

	alpha := alphabeticRatio(runes)
	score *= alpha

	if cjk := cjkRatio(runes); cjk >= f.cfg.CJKThreshold {
		score *= 1 - cjk
	}

	if specialCharRatio(trimmed) > f.cfg.SpecialCharThreshold {
		score *= 0.2
	}

	if len(runes) < 3 && f.functional[strings.ToLower(trimmed)] {
		score *= 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// IsURL 判断文本是否是 URL
func (f *Filter) IsURL(text string) bool {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://") {
		return true
	}
	matched, _ := f.urlPattern.MatchString(text)
	return matched
}

// IsEmail 判断文本是否是邮箱地址
func (f *Filter) IsEmail(text string) bool {
	if len(text) > f.cfg.MaxEmailLength {
		return false
	}
	if !strings.Contains(text, "@") || !strings.Contains(text, ".") {
		return false
	}
	matched, _ := f.emailPattern.MatchString(text)
	return matched
}

// HasHTMLEntity 判断文本是否包含 HTML 实体
func (f *Filter) HasHTMLEntity(text string) bool {
	matched, _ := f.entityPattern.MatchString(text)
	return matched
}

// isCSSSelectorLike 判断文本是否像 CSS 选择器
func isCSSSelectorLike(text string) bool {
	if strings.Contains(text, "::") {
		return true
	}
	if strings.HasPrefix(text, ".") || strings.HasPrefix(text, "#") {
		// 选择器不含空格，如 .btn-primary、#main-content
		return !strings.ContainsAny(text, " \t")
	}
	return false
}

// specialCharRatio 计算代码类符号占比
func specialCharRatio(text string) float64 {
	if text == "" {
		return 0
	}
	count := 0
	total := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if strings.ContainsRune(codeLikeChars, r) {
			count++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// hasAlphabetic 判断是否包含任何字母字符
func hasAlphabetic(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// alphabeticRatio 计算字母字符占比
func alphabeticRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	count := 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return float64(count) / float64(len(runes))
}

// cjkRatio 计算中日韩统一表意文字占比
func cjkRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	count := 0
	for _, r := range runes {
		if unicode.Is(unicode.Han, r) {
			count++
		}
	}
	return float64(count) / float64(len(runes))
}

// kanaRatio 计算日文假名占比
func kanaRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	count := 0
	for _, r := range runes {
		if unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			count++
		}
	}
	return float64(count) / float64(len(runes))
}

// hangulRatio 计算韩文谚文占比
func hangulRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	count := 0
	for _, r := range runes {
		if unicode.Is(unicode.Hangul, r) {
			count++
		}
	}
	return float64(count) / float64(len(runes))
}

// asciiLetterRatio 计算 ASCII 字母占比
func asciiLetterRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	count := 0
	for _, r := range runes {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			count++
		}
	}
	return float64(count) / float64(len(runes))
}
