package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-page-translator/internal/config"
	"github.com/nerdneilsfield/go-page-translator/internal/logger"
	"github.com/nerdneilsfield/go-page-translator/pkg/batch"
	"github.com/nerdneilsfield/go-page-translator/pkg/cache"
	"github.com/nerdneilsfield/go-page-translator/pkg/collector"
	"github.com/nerdneilsfield/go-page-translator/pkg/processor"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/raw"
	"github.com/nerdneilsfield/go-page-translator/pkg/routing"
	"github.com/nerdneilsfield/go-page-translator/pkg/textfilter"
)

var (
	// 命令行标志变量
	cfgFile     string
	sourceLang  string
	targetLang  string
	pageURL     string
	redisAddr   string
	routingDB   string
	concurrency int64
	noCache     bool
	dryRun      bool // 预演模式，使用回显提供商，不发起网络请求
	debugMode   bool
	verboseMode bool
	showVersion bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagetranslator [flags] input_file output_file",
		Short: "增量式 HTML 页面翻译工具",
		Long: `增量式 HTML 页面翻译工具：解析 HTML 页面，提取可翻译的文本单元，
按优先级和复杂度组装成批次后提交翻译服务，再把译文原位写回 DOM。
支持多级翻译缓存和基于历史记录的请求路由。

支持的翻译提供商:
  - openai: OpenAI Chat Completions
  - raw: 原样回显（调试和预演用）`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			if len(args) != 2 {
				return fmt.Errorf("accepts 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger(debugMode, verboseMode)
			defer func() {
				_ = log.Sync()
			}()

			if showVersion {
				fmt.Printf("pagetranslator %s (commit %s, built %s)\n", version, commit, buildDate)
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				log.Error("加载配置失败", zap.Error(err))
				return err
			}
			applyFlagOverrides(cmd, cfg)

			return runTranslate(cmd.Context(), cfg, args[0], args[1], log)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().BoolVar(&verboseMode, "verbose", false, "显示详细日志")

	rootCmd.Flags().StringVarP(&sourceLang, "source", "s", "", "源语言 (默认 en)")
	rootCmd.Flags().StringVarP(&targetLang, "target", "t", "", "目标语言 (默认 zh)")
	rootCmd.Flags().StringVar(&pageURL, "url", "", "页面 URL，用于路由记录")
	rootCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis 地址，启用远端缓存层")
	rootCmd.Flags().StringVar(&routingDB, "routing-db", "", "路由记录库路径 (SQLite)")
	rootCmd.Flags().Int64Var(&concurrency, "concurrency", 0, "并发批次数")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "禁用翻译缓存")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "预演模式，不调用翻译服务")
	rootCmd.Flags().BoolVar(&showVersion, "version-info", false, "显示版本信息")

	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// newConfigCommand 配置管理子命令
func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "配置管理",
	}

	var outputPath string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "生成默认配置文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveConfig(config.NewDefaultConfig(), outputPath); err != nil {
				return err
			}
			path := outputPath
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				path = filepath.Join(home, ".page-translator.yaml")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "配置文件已生成: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&outputPath, "output", "o", "", "配置文件输出路径 (默认 ~/.page-translator.yaml)")
	configCmd.AddCommand(initCmd)

	return configCmd
}

// applyFlagOverrides 用命令行参数覆盖配置文件
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("source") {
		cfg.SourceLang = sourceLang
	}
	if cmd.Flags().Changed("target") {
		cfg.TargetLang = targetLang
	}
	if cmd.Flags().Changed("redis") {
		cfg.Cache.RedisAddr = redisAddr
	}
	if cmd.Flags().Changed("routing-db") {
		cfg.Routing.DBPath = routingDB
	}
	if cmd.Flags().Changed("concurrency") && concurrency > 0 {
		cfg.Processor.MaxConcurrency = concurrency
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if dryRun {
		cfg.Provider.Name = "raw"
	}
}

// runTranslate 执行一次完整的页面翻译
func runTranslate(ctx context.Context, cfg *config.Config, inputPath, outputPath string, log *zap.Logger) error {
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	start := time.Now()

	// 路由查询：已有可用记录时跳过整次处理
	var store *routing.SQLiteStore
	var recordID int64
	if cfg.Routing.DBPath != "" && pageURL != "" {
		var err error
		store, err = routing.OpenSQLiteStore(cfg.Routing.DBPath)
		if err != nil {
			log.Error("打开路由记录库失败", zap.Error(err))
			return err
		}
		defer store.Close()

		engine := routing.NewEngine(store, routing.EngineConfig{
			CacheCapacity: cfg.Routing.CacheCapacity,
			CacheTTL:      cfg.Routing.CacheTTL(),
		}, log)

		decision, err := engine.QueryStatus(ctx, pageURL, cfg.SourceLang, cfg.TargetLang)
		if err != nil {
			log.Error("路由查询失败", zap.Error(err))
			return err
		}
		log.Info("路由决策",
			zap.String("url", pageURL),
			zap.String("status", decision.Status.String()),
			zap.String("strategy", decision.Strategy.String()))

		switch decision.Strategy {
		case routing.StrategyUseCache:
			fmt.Println("页面已有可用的翻译记录，跳过处理")
			return nil
		case routing.StrategyWaitForProcessing:
			fmt.Println("页面正在被其他任务处理，稍后重试")
			return nil
		}

		recordID, err = store.Insert(ctx, &routing.Record{
			URL:        pageURL,
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
			Status:     routing.RecordStatusPending,
		})
		if err != nil {
			log.Warn("写入路由记录失败", zap.Error(err))
		}
		defer engine.Invalidate(pageURL, cfg.SourceLang, cfg.TargetLang)
	}

	// 读取并解析输入文档
	input, err := os.Open(inputPath)
	if err != nil {
		log.Error("打开输入文件失败", zap.String("文件", inputPath), zap.Error(err))
		return err
	}
	doc, err := goquery.NewDocumentFromReader(input)
	input.Close()
	if err != nil {
		log.Error("解析 HTML 失败", zap.String("文件", inputPath), zap.Error(err))
		return err
	}

	// 组装流水线
	filter := textfilter.NewFilter(textfilter.Config{
		MinTextLength:        cfg.Filter.MinTextLength,
		SpecialCharThreshold: cfg.Filter.SpecialCharThreshold,
		CJKThreshold:         cfg.Filter.CJKThreshold,
		MaxEmailLength:       cfg.Filter.MaxEmailLength,
	})

	opts := collector.DefaultOptions()
	opts.MaxDepth = cfg.Collector.MaxDepth
	opts.RespectTranslateAttr = cfg.Collector.RespectTranslateAttr
	items := collector.New(log, filter, opts).Collect(doc)

	if len(items) == 0 {
		log.Info("没有可翻译的文本，原样输出")
		return writeDocument(doc, outputPath, log)
	}

	batches := batch.NewBuilder(batch.BuilderConfig{
		MaxBatchSize:        cfg.Batch.MaxBatchSize,
		MinBatchChars:       cfg.Batch.MinBatchChars,
		MaxEffectiveSize:    cfg.Batch.MaxEffectiveSize,
		MinEffectiveSize:    cfg.Batch.MinEffectiveSize,
		SmallBatchThreshold: cfg.Batch.SmallBatchThreshold,
	}, log).Build(items)

	log.Info("批次构建完成",
		zap.Int("文本单元", len(items)),
		zap.Int("批次", len(batches)))

	translator, err := buildTranslator(cfg)
	if err != nil {
		log.Error("创建翻译提供商失败", zap.Error(err))
		return err
	}

	translationCache, err := buildCache(cfg, log)
	if err != nil {
		log.Error("创建翻译缓存失败", zap.Error(err))
		return err
	}

	proc, err := processor.New(processor.Config{
		SourceLang:       cfg.SourceLang,
		TargetLang:       cfg.TargetLang,
		IndexedThreshold: cfg.Batch.SmallBatchThreshold,
		MinSuccessRate:   cfg.Processor.MinSuccessRate,
		MaxRetries:       cfg.Processor.MaxRetries,
		RetryDelay:       cfg.Processor.RetryDelay(),
		BatchTimeout:     cfg.Processor.BatchTimeout(),
		MaxConcurrency:   cfg.Processor.MaxConcurrency,
		ItemDelay:        cfg.Processor.ItemDelay(),
	}, translator, translationCache, log)
	if err != nil {
		log.Error("创建批处理器失败", zap.Error(err))
		return err
	}

	result := proc.Process(ctx, batches)

	// 更新路由记录状态
	if store != nil && recordID != 0 {
		status := routing.RecordStatusSuccess
		if result.BatchesSucceeded == 0 {
			status = routing.RecordStatusError
		}
		if err := store.UpdateStatus(ctx, recordID, status); err != nil {
			log.Warn("更新路由记录失败", zap.Error(err))
		}
	}

	if err := writeDocument(doc, outputPath, log); err != nil {
		return err
	}

	printSummary(result, translationCache, time.Since(start))

	if result.BatchesSucceeded == 0 && result.BatchesAttempted > 0 {
		return fmt.Errorf("all %d batches failed", result.BatchesAttempted)
	}
	return nil
}

// buildTranslator 根据配置创建翻译提供商，网络提供商外面包一层熔断
func buildTranslator(cfg *config.Config) (providers.Translator, error) {
	switch cfg.Provider.Name {
	case "raw":
		return raw.New(), nil
	case "openai":
		if cfg.Provider.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key (set OPENAI_API_KEY)")
		}
		providerCfg := openai.DefaultConfig()
		providerCfg.APIKey = cfg.Provider.APIKey
		providerCfg.APIEndpoint = cfg.Provider.APIEndpoint
		providerCfg.SourceLang = cfg.SourceLang
		providerCfg.TargetLang = cfg.TargetLang
		providerCfg.Timeout = cfg.Provider.Timeout()
		if cfg.Provider.Model != "" {
			providerCfg.Model = cfg.Provider.Model
		}
		if cfg.Provider.Temperature > 0 {
			providerCfg.Temperature = cfg.Provider.Temperature
		}
		if cfg.Provider.MaxTokens > 0 {
			providerCfg.MaxTokens = cfg.Provider.MaxTokens
		}
		return providers.WithBreaker(openai.New(providerCfg), providers.DefaultBreakerConfig()), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

// buildCache 根据配置创建翻译缓存，未启用时返回 nil
func buildCache(cfg *config.Config, log *zap.Logger) (*cache.TranslationCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	var remote cache.RemoteTier
	if cfg.Cache.RedisAddr != "" {
		remote = cache.NewRedisTier(cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPass,
			DB:       cfg.Cache.RedisDB,
		})
	}

	return cache.New(cache.Config{
		Capacity: cfg.Cache.Capacity,
		TTL:      cfg.Cache.TTL(),
	}, remote, log)
}

// writeDocument 序列化 DOM 并写入输出文件
func writeDocument(doc *goquery.Document, outputPath string, log *zap.Logger) error {
	rendered, err := doc.Html()
	if err != nil {
		log.Error("序列化 HTML 失败", zap.Error(err))
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("创建输出目录失败", zap.String("目录", dir), zap.Error(err))
			return err
		}
	}

	if err := os.WriteFile(outputPath, []byte(rendered), 0o644); err != nil {
		log.Error("写入输出文件失败", zap.String("文件", outputPath), zap.Error(err))
		return err
	}

	log.Info("输出完成",
		zap.String("文件", outputPath),
		zap.Int("字节", len(rendered)))
	return nil
}

// ellipsize 截断过长的错误消息
func ellipsize(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.TrimSpace(s[:limit]) + "..."
}
