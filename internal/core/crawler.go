package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/RecoveryAshes/bilispy/internal/crawlers"
	"github.com/RecoveryAshes/bilispy/internal/metrics"
	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
)

// Fetcher 单个视频的弹幕抓取, 由 crawlers.BarrageFetcher 实现
type Fetcher interface {
	Fetch(ctx context.Context) bool
	Get() []string
	Err() error
}

// FetcherFactory 为视频地址创建抓取器
type FetcherFactory func(videoURL string) Fetcher

// SessionFactory 创建浏览器会话, 每次运行一个
type SessionFactory func(ctx context.Context) (crawlers.RenderAgent, error)

// Dependencies 运行所需的外部组件
type Dependencies struct {
	NewSession SessionFactory
	NewFetcher FetcherFactory
	Sink       *utils.BarrageSink

	// 以下可选
	Budget   *Budget                    // 为空时按 run.max_videos 新建
	Monitor  *crawlers.ResourceMonitor  // 为空时直接使用 run.workers
	Metrics  *metrics.Metrics
	Progress io.Writer // 为空且 run.show_progress 时输出到 stderr
}

// Crawler 单个关键词的抓取编排
//
// 浏览器会话只在调用 Run 的 goroutine 中使用, 候选链接按顺序交给有界的抓取worker.
// 每个worker在自己上一次成功后随机等待, 输出文件由 BarrageSink 串行写入.
type Crawler struct {
	keyword string
	config  *Config
	deps    Dependencies
	budget  *Budget
	pacer   *Pacer

	mu     sync.Mutex
	stats  models.RunStats
	report *models.RunReport

	stopRun context.CancelFunc
	bar     *progressbar.ProgressBar
}

// NewCrawler 创建抓取编排器
func NewCrawler(keyword string, config *Config, deps Dependencies) (*Crawler, error) {
	if keyword == "" {
		return nil, fmt.Errorf("搜索关键词不能为空")
	}
	if deps.NewSession == nil || deps.NewFetcher == nil || deps.Sink == nil {
		return nil, fmt.Errorf("缺少浏览器会话、抓取器或输出文件")
	}

	budget := deps.Budget
	if budget == nil {
		budget = NewBudget(config.Run.MaxVideos)
	}

	return &Crawler{
		keyword: keyword,
		config:  config,
		deps:    deps,
		budget:  budget,
		pacer:   NewPacer(config.Pacing.MinDelay, config.Pacing.MaxDelay),
		stats:   models.RunStats{FailuresByKind: make(map[string]int)},
	}, nil
}

// Run 执行抓取, 直到分页结束、达到上限或 ctx 取消
// 单个视频失败只计入统计; 只有会话创建失败或输出写入失败会返回错误
func (c *Crawler) Run(ctx context.Context) (*models.RunReport, error) {
	startTime := time.Now()
	c.report = models.NewRunReport(c.keyword, startTime)
	c.report.OutputFile = c.deps.Sink.Path()

	utils.Infof("开始抓取关键词: %s", c.keyword)

	runErr := c.run(ctx)

	c.mu.Lock()
	c.stats.Duration = time.Since(startTime).Seconds()
	c.report.Stats = c.stats
	c.mu.Unlock()
	c.report.EndTime = time.Now()

	switch {
	case runErr != nil:
		c.report.Status = models.RunStatusFailed
	case c.budget.Exhausted():
		c.report.Status = models.RunStatusLimited
		utils.Infof("已达到弹幕获取上限 (%d), 停止抓取", c.budget.Limit())
	case ctx.Err() != nil:
		c.report.Status = models.RunStatusInterrupted
		utils.Warnf("抓取被中断")
	default:
		c.report.Status = models.RunStatusCompleted
	}

	stats := c.report.Stats
	utils.Infof("关键词 [%s] 完成: 页数=%d, 候选=%d, 成功=%d, 跳过=%d, 弹幕=%d, 耗时=%.1fs",
		c.keyword, stats.Pages, stats.Candidates, stats.Processed, stats.Skipped, stats.Comments, stats.Duration)

	if dir := c.config.Output.ReportsDir; dir != "" {
		if path, err := utils.NewReporter(dir).GenerateReport(c.report); err != nil {
			utils.Warnf("生成报告失败: %v", err)
		} else {
			utils.Infof("报告已保存: %s", path)
		}
	}

	return c.report, runErr
}

func (c *Crawler) run(ctx context.Context) error {
	agent, err := c.deps.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("创建浏览器会话失败: %w", err)
	}
	paginator := crawlers.NewSearchPaginator(agent, c.keyword, c.config.PaginatorConfig())
	defer paginator.Stop()

	workers := c.config.Run.Workers
	if c.deps.Monitor != nil {
		workers = c.deps.Monitor.CalculateMaxWorkers(workers)
	}
	if workers < 1 {
		workers = 1
	}
	utils.Debugf("抓取worker数量: %d", workers)

	c.bar = c.newProgressBar()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.stopRun = cancel

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(workers)

	index := 0
	lastPage := 0
	for videoURL := range paginator.Query(gctx) {
		if page := paginator.Page(); page != lastPage {
			c.onPage(page)
			lastPage = page
		}
		if c.budget.Exhausted() {
			break
		}

		task := models.VideoTask{URL: videoURL, Page: paginator.Page(), Index: index}
		index++
		c.onCandidate()

		// 名额满时阻塞, 分页随之暂停
		g.Go(func() error {
			return c.process(gctx, task)
		})
	}

	err = g.Wait()
	if c.bar != nil {
		c.bar.Finish()
	}
	if lastPage < paginator.Page() {
		c.onPage(paginator.Page())
	}
	return err
}

// process 抓取并写出一个视频的弹幕
func (c *Crawler) process(ctx context.Context, task models.VideoTask) error {
	if c.budget.Exhausted() || ctx.Err() != nil {
		return nil
	}

	utils.Infof("正在解析 %s", task.URL)
	start := time.Now()
	fetcher := c.deps.NewFetcher(task.URL)

	if !fetcher.Fetch(ctx) {
		if ctx.Err() != nil {
			return nil
		}
		c.onFailure(task, fetcher.Err(), time.Since(start))
		return nil
	}

	texts := fetcher.Get()
	used, ok := c.budget.Acquire()
	if !ok {
		return nil
	}
	if err := c.deps.Sink.Append(texts); err != nil {
		return fmt.Errorf("写入弹幕失败: %w", err)
	}
	c.onSuccess(len(texts), time.Since(start))

	utils.Infof("已获取 %d 条弹幕", len(texts))
	utils.Infof("已完成 %d 个视频的弹幕获取", used)

	if c.budget.Exhausted() {
		c.stopRun()
		return nil
	}

	c.pacer.Wait(ctx)
	return nil
}

func (c *Crawler) onPage(page int) {
	c.mu.Lock()
	delta := page - c.stats.Pages
	c.stats.Pages = page
	c.mu.Unlock()
	if c.deps.Metrics != nil && delta > 0 {
		c.deps.Metrics.AddPages(delta)
	}
}

func (c *Crawler) onCandidate() {
	c.mu.Lock()
	c.stats.Candidates++
	c.mu.Unlock()
	if c.deps.Metrics != nil {
		c.deps.Metrics.IncCandidates()
	}
}

func (c *Crawler) onSuccess(comments int, elapsed time.Duration) {
	c.mu.Lock()
	c.stats.Processed++
	c.stats.Comments += comments
	c.mu.Unlock()

	if c.deps.Metrics != nil {
		c.deps.Metrics.ObserveFetch("", comments, elapsed)
	}
	if c.bar != nil {
		c.bar.Add(1)
	}
}

func (c *Crawler) onFailure(task models.VideoTask, err error, elapsed time.Duration) {
	kind := crawlers.ErrorKind(err)
	if kind == "" {
		kind = "unknown"
	}

	utils.Logger.Warn().Err(err).Str("url", task.URL).Str("kind", kind).Int("page", task.Page).Msg("弹幕获取失败")

	c.mu.Lock()
	c.stats.Skipped++
	c.stats.FailuresByKind[kind]++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.report.FailedVideos = append(c.report.FailedVideos, models.FailedVideo{
		URL:       task.URL,
		ErrorType: kind,
		ErrorMsg:  msg,
	})
	c.mu.Unlock()

	if c.deps.Metrics != nil {
		c.deps.Metrics.ObserveFetch(kind, 0, elapsed)
	}
}

func (c *Crawler) newProgressBar() *progressbar.ProgressBar {
	if !c.config.Run.ShowProgress {
		return nil
	}
	remaining := 0
	if limit := c.budget.Limit(); limit > 0 {
		remaining = limit - c.budget.Used()
	}
	return utils.NewProgressBar(remaining, "["+c.keyword+"] 弹幕抓取", c.deps.Progress)
}

// Stats 当前统计
func (c *Crawler) Stats() models.RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.FailuresByKind = make(map[string]int, len(c.stats.FailuresByKind))
	for k, v := range c.stats.FailuresByKind {
		stats.FailuresByKind[k] = v
	}
	return stats
}
