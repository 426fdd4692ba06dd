package processor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// indexedSeparator 片段间的连接符
// 请求构造和响应解析统一用空行；解析按行锚定索引标记，
// 即使服务折叠了空行也不影响还原
const indexedSeparator = "\n\n"

// indexedLinePattern 匹配 "[N] 文本" 形式的行
var indexedLinePattern = regexp.MustCompile(`^\[(\d+)\]\s*(.*)$`)

// CombineIndexed 把多段文本合并为索引翻译格式
// 每段加 "[i] " 前缀后用空行连接，i 从 0 开始
func CombineIndexed(texts []string) string {
	var builder strings.Builder
	for i, text := range texts {
		if i > 0 {
			builder.WriteString(indexedSeparator)
		}
		builder.WriteString(fmt.Sprintf("[%d] %s", i, text))
	}
	return builder.String()
}

// ParseIndexed 解析索引翻译的返回结果
// 按索引而非位置还原映射：服务可能乱序返回甚至丢行；
// 没有索引标记的行归入前一个索引（多行翻译的续行）
func ParseIndexed(combined string) map[int]string {
	results := make(map[int]string)
	current := -1

	for _, line := range strings.Split(combined, "\n") {
		match := indexedLinePattern.FindStringSubmatch(line)
		if match != nil {
			index, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			current = index
			results[index] = match[2]
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || current < 0 {
			continue
		}
		results[current] += "\n" + trimmed
	}

	// 去掉每段的首尾空白
	for index, text := range results {
		results[index] = strings.TrimSpace(text)
	}

	return results
}
