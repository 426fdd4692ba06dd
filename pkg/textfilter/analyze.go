package textfilter

import (
	"strings"

	"golang.org/x/text/language"
)

// LanguageHint 粗粒度的语言提示，基于 Unicode 区块占比推断
type LanguageHint string

const (
	LanguageHintChinese  LanguageHint = "chinese"
	LanguageHintJapanese LanguageHint = "japanese"
	LanguageHintKorean   LanguageHint = "korean"
	LanguageHintLatin    LanguageHint = "latin"
	LanguageHintMixed    LanguageHint = "mixed"
	LanguageHintUnknown  LanguageHint = "unknown"
)

// Tag 返回语言提示对应的 BCP 47 标签
func (h LanguageHint) Tag() language.Tag {
	switch h {
	case LanguageHintChinese:
		return language.Chinese
	case LanguageHintJapanese:
		return language.Japanese
	case LanguageHintKorean:
		return language.Korean
	case LanguageHintLatin:
		return language.English
	default:
		return language.Und
	}
}

// TextAnalysis 文本分析结果，汇总过滤器的所有子信号
type TextAnalysis struct {
	Text             string
	CharCount        int
	IsURL            bool
	IsEmail          bool
	HasAlphabetic    bool
	AlphabeticRatio  float64
	SpecialCharRatio float64
	CJKRatio         float64
	KanaRatio        float64
	HangulRatio      float64
	ASCIILetterRatio float64
	IsCSSSelector    bool
	IsFunctionalWord bool
	Score            float64
	LanguageHint     LanguageHint
}

// Analyze 返回文本的全部过滤信号和语言提示
func (f *Filter) Analyze(text string) TextAnalysis {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)

	analysis := TextAnalysis{
		Text:             trimmed,
		CharCount:        len(runes),
		IsURL:            f.IsURL(trimmed),
		IsEmail:          f.IsEmail(trimmed),
		HasAlphabetic:    hasAlphabetic(runes),
		AlphabeticRatio:  alphabeticRatio(runes),
		SpecialCharRatio: specialCharRatio(trimmed),
		CJKRatio:         cjkRatio(runes),
		KanaRatio:        kanaRatio(runes),
		HangulRatio:      hangulRatio(runes),
		ASCIILetterRatio: asciiLetterRatio(runes),
		IsCSSSelector:    isCSSSelectorLike(trimmed),
		IsFunctionalWord: len(runes) < 3 && f.functional[strings.ToLower(trimmed)],
	}
	analysis.Score = f.TranslatabilityScore(trimmed)
	analysis.LanguageHint = detectLanguageHint(analysis)

	return analysis
}

// detectLanguageHint 根据 Unicode 区块占比推断语言
// 阈值：假名 >10% 视为日文，谚文 >30% 视为韩文，汉字 >30% 视为中文，
// ASCII 字母 >50% 视为拉丁文；同时命中多种脚本视为混合
func detectLanguageHint(a TextAnalysis) LanguageHint {
	if a.CharCount == 0 {
		return LanguageHintUnknown
	}

	scripts := 0
	var hint LanguageHint = LanguageHintUnknown

	// 假名优先于汉字判断：日文文本通常同时包含两者
	if a.KanaRatio > 0.10 {
		scripts++
		hint = LanguageHintJapanese
	}
	if a.HangulRatio > 0.30 {
		scripts++
		hint = LanguageHintKorean
	}
	if a.CJKRatio > 0.30 && hint != LanguageHintJapanese {
		scripts++
		hint = LanguageHintChinese
	}
	if a.ASCIILetterRatio > 0.50 {
		scripts++
		hint = LanguageHintLatin
	}

	if scripts > 1 {
		return LanguageHintMixed
	}
	return hint
}
