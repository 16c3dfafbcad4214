package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/core"
	"github.com/RecoveryAshes/bilispy/internal/crawlers"
	"github.com/RecoveryAshes/bilispy/internal/metrics"
	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	headersFile    string
	validateConfig bool

	// 抓取参数
	keyword     string
	keywordFile string
	maxVideos   int
	workers     int
	outputFile  string
	headless    bool
	browserBin  string
	minDelay    time.Duration
	maxDelay    time.Duration
	maxPages    int
	metricsAddr string

	// 批量处理参数
	batchDelay      time.Duration
	continueOnError bool
)

// appConfig 由 PersistentPreRunE 加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "bilispy",
	Short: "B站搜索结果弹幕抓取工具",
	Long: `bilispy - 按关键词抓取B站搜索结果中视频的弹幕

工作流程:
  • 用浏览器打开搜索结果页, 逐页收集视频链接
  • 对每个视频请求页面取得 cid, 再下载弹幕XML
  • 每个视频的弹幕作为一行JSON数组追加到输出文件
  • 成功数达到上限 (默认360) 或结果翻完后停止

示例:
  bilispy -k 大模型
  bilispy -k 大模型 -n 50 -o data/barrage.json
  bilispy -f keywords.txt --workers 2

  # 带登录Cookie
  bilispy -k 大模型 -H "Cookie: SESSDATA=xxxx"

  # 验证请求头配置
  bilispy --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.LogConfig()
		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		} else if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ctrl+C 时停止分页并等待进行中的抓取结束
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		headerManager, err := core.NewHeaderManager(headersFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(headerManager)
		}

		applyFlagOverrides(cmd)

		if err := ValidateFlags(keywordFile, appConfig.Run.MaxVideos, appConfig.Run.Workers,
			appConfig.Search.MaxPages, appConfig.Pacing.MinDelay, appConfig.Pacing.MaxDelay); err != nil {
			return err
		}
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}

		keywords, err := resolveKeywords()
		if err != nil {
			return err
		}

		// 提前校验请求头, 避免启动浏览器后才失败
		if _, err := headerManager.GetHeaders(); err != nil {
			return fmt.Errorf("请求头配置无效: %w", err)
		}

		sink, err := utils.OpenBarrageSink(appConfig.Run.OutputFile)
		if err != nil {
			return err
		}
		defer sink.Close()

		m := metrics.New()
		if appConfig.Metrics.Addr != "" {
			go func() {
				if err := m.Serve(ctx, appConfig.Metrics.Addr); err != nil {
					utils.Errorf("指标服务异常退出: %v", err)
				}
			}()
		}

		deps := newDependencies(headerManager, sink, m)

		if len(keywords) > 1 {
			batchCrawler := core.NewBatchCrawler(appConfig, deps)
			summary, err := batchCrawler.CrawlBatch(ctx, keywords)
			if err != nil {
				return fmt.Errorf("批量抓取失败: %w", err)
			}
			printStats(summary.Stats, sink)
			utils.Info("✨ 批量抓取任务完成!")
			return nil
		}

		crawler, err := core.NewCrawler(keywords[0], appConfig, deps)
		if err != nil {
			return fmt.Errorf("创建抓取器失败: %w", err)
		}
		report, err := crawler.Run(ctx)
		if err != nil {
			return fmt.Errorf("抓取失败: %w", err)
		}

		printStats(report.Stats, sink)
		if report.Status == models.RunStatusInterrupted {
			utils.Warn("抓取已中断, 已写出的结果保留在输出文件中")
			return nil
		}
		utils.Info("✨ 抓取任务完成!")
		return nil
	},
}

// applyFlagOverrides 显式指定的命令行参数覆盖配置文件
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("keyword") {
		appConfig.Search.Keyword = keyword
	}
	if flags.Changed("max-videos") {
		appConfig.Run.MaxVideos = maxVideos
	}
	if flags.Changed("workers") {
		appConfig.Run.Workers = workers
	}
	if flags.Changed("output") {
		appConfig.Run.OutputFile = outputFile
	}
	if flags.Changed("headless") {
		appConfig.Search.Headless = headless
	}
	if flags.Changed("browser") {
		appConfig.Search.BrowserBin = browserBin
	}
	if flags.Changed("min-delay") {
		appConfig.Pacing.MinDelay = minDelay
	}
	if flags.Changed("max-delay") {
		appConfig.Pacing.MaxDelay = maxDelay
	}
	if flags.Changed("max-pages") {
		appConfig.Search.MaxPages = maxPages
	}
	if flags.Changed("metrics-addr") {
		appConfig.Metrics.Addr = metricsAddr
	}
	if flags.Changed("batch-delay") {
		appConfig.Batch.Delay = batchDelay
	}
	if flags.Changed("continue-on-error") {
		appConfig.Batch.ContinueOnError = continueOnError
	}
}

// resolveKeywords -f 优先, 其次 -k 或配置文件中的关键词
func resolveKeywords() ([]string, error) {
	if keywordFile != "" {
		keywords, err := utils.ReadKeywordsFromFile(keywordFile)
		if err != nil {
			return nil, fmt.Errorf("读取关键词文件失败: %w", err)
		}
		return keywords, nil
	}
	if appConfig.Search.Keyword == "" {
		return nil, fmt.Errorf("未指定搜索关键词, 请使用 -k 或 -f")
	}
	return []string{appConfig.Search.Keyword}, nil
}

// newDependencies 组装浏览器会话和弹幕抓取器
func newDependencies(headerManager *core.HeaderManager, sink *utils.BarrageSink, m *metrics.Metrics) core.Dependencies {
	pageClient := crawlers.NewPageClient(appConfig.PageClientConfig(), headerManager)
	agentConfig := crawlers.RodAgentConfig{
		Headless: appConfig.Search.Headless,
		Bin:      appConfig.Search.BrowserBin,
	}

	deps := core.Dependencies{
		NewSession: func(ctx context.Context) (crawlers.RenderAgent, error) {
			agent, err := crawlers.LaunchRodAgent(agentConfig, headerManager)
			if err != nil {
				return nil, err
			}
			return agent, nil
		},
		NewFetcher: func(videoURL string) core.Fetcher {
			return crawlers.NewBarrageFetcher(videoURL, pageClient, appConfig.Barrage.CommentBaseURL)
		},
		Sink:    sink,
		Monitor: crawlers.NewResourceMonitor(crawlers.DefaultResourceMonitorConfig()),
		Metrics: m,
	}
	return deps
}

func runValidateConfig(headerManager *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	safeHeaders, err := headerManager.SafeHeaders()
	if err != nil {
		return fmt.Errorf("请求头验证失败: %w", err)
	}

	utils.Info("✅ 配置验证通过!")
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	names := make([]string, 0, len(safeHeaders))
	for name := range safeHeaders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		utils.Infof("  %s: %s", name, safeHeaders[name])
	}
	return nil
}

func printStats(stats models.RunStats, sink *utils.BarrageSink) {
	fmt.Println("\n==================================================")
	fmt.Println("📊 抓取统计")
	fmt.Println("==================================================")
	fmt.Printf("✅ 搜索结果页: %d\n", stats.Pages)
	fmt.Printf("✅ 候选视频: %d\n", stats.Candidates)
	fmt.Printf("✅ 成功视频: %d\n", stats.Processed)
	fmt.Printf("❌ 跳过视频: %d\n", stats.Skipped)
	fmt.Printf("💬 弹幕总数: %d\n", stats.Comments)
	fmt.Printf("📄 输出文件: %s (本次写入 %d 行)\n", sink.Path(), sink.Lines())
	fmt.Printf("⏱️  总耗时: %.2f秒\n", stats.Duration)
	fmt.Println("==================================================")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bilispy %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headersFile, "headers-file", "", "请求头配置文件 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 抓取参数
	rootCmd.Flags().StringVarP(&keyword, "keyword", "k", "", "搜索关键词 (默认取配置文件, 未配置时为'大模型')")
	rootCmd.Flags().StringVarP(&keywordFile, "keyword-file", "f", "", "关键词列表文件, 每行一个")
	rootCmd.Flags().IntVarP(&maxVideos, "max-videos", "n", 360, "成功抓取的视频数上限, 0 表示不限制")
	rootCmd.Flags().IntVar(&workers, "workers", 1, "弹幕抓取并发数")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "barrage.json", "输出文件 (追加写入)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVar(&browserBin, "browser", "", "浏览器可执行文件路径")
	rootCmd.Flags().DurationVar(&minDelay, "min-delay", 6*time.Second, "两个视频之间的最短等待")
	rootCmd.Flags().DurationVar(&maxDelay, "max-delay", 12*time.Second, "两个视频之间的最长等待")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "最多翻页数, 0 表示不限制")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus 指标监听地址, 如 :9090")

	// 批量处理参数
	rootCmd.Flags().DurationVar(&batchDelay, "batch-delay", 30*time.Second, "批量处理关键词间延迟")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
