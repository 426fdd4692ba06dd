package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nerdneilsfield/go-page-translator/pkg/cache"
	"github.com/nerdneilsfield/go-page-translator/pkg/processor"
)

// printSummary 在标准输出渲染一次处理的汇总表格
func printSummary(result *processor.Result, translationCache *cache.TranslationCache, elapsed time.Duration) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)

	tw.AppendRow(table.Row{"项", "值"})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"批次总数", result.BatchesAttempted})
	tw.AppendRow(table.Row{"成功批次", result.BatchesSucceeded})
	tw.AppendRow(table.Row{"失败批次", result.BatchesFailed})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"已翻译文本", result.ItemsTranslated})
	tw.AppendRow(table.Row{"缓存命中", result.ItemsFromCache})
	tw.AppendRow(table.Row{"跳过文本", result.ItemsSkipped})
	tw.AppendRow(table.Row{"缺失译文", result.MissingTranslations})

	if translationCache != nil {
		stats := translationCache.Stats()
		total := stats.Hits + stats.Misses
		hitRate := 0.0
		if total > 0 {
			hitRate = float64(stats.Hits) / float64(total) * 100
		}
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"缓存命中率", fmt.Sprintf("%.1f%% (%d/%d)", hitRate, stats.Hits, total)})
		tw.AppendRow(table.Row{"缓存条目", stats.Size})
	}

	tw.AppendSeparator()
	tw.AppendRow(table.Row{"总耗时", elapsed.Round(time.Millisecond)})

	tw.SetStyle(table.StyleLight)
	tw.Render()

	for _, err := range result.Errors {
		fmt.Printf("  ⚠ %s\n", ellipsize(err.Error(), 120))
	}
}
