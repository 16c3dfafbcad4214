package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
)

// BatchCrawler 按顺序抓取多个关键词, 每个关键词使用独立的浏览器会话
// 所有关键词共用输出文件和成功数上限
type BatchCrawler struct {
	config *Config
	deps   Dependencies
}

// BatchResult 单个关键词的结果
type BatchResult struct {
	Keyword string
	Success bool
	Error   error
	Report  *models.RunReport
}

// BatchSummary 批量抓取摘要
type BatchSummary struct {
	TotalKeywords int
	SuccessCount  int
	FailCount     int
	Stats         models.RunStats
	TotalDuration float64
	Results       []BatchResult
}

// NewBatchCrawler 创建批量抓取器
func NewBatchCrawler(config *Config, deps Dependencies) *BatchCrawler {
	if deps.Budget == nil {
		deps.Budget = NewBudget(config.Run.MaxVideos)
	}
	return &BatchCrawler{config: config, deps: deps}
}

// CrawlBatch 依次抓取关键词
// 达到上限或 ctx 取消时停止; batch.continue_on_error 为 false 时遇到失败即停止
func (bc *BatchCrawler) CrawlBatch(ctx context.Context, keywords []string) (*BatchSummary, error) {
	utils.Infof("开始批量抓取: %d 个关键词", len(keywords))

	summary := &BatchSummary{
		TotalKeywords: len(keywords),
		Stats:         models.RunStats{FailuresByKind: make(map[string]int)},
		Results:       make([]BatchResult, 0, len(keywords)),
	}
	startTime := time.Now()

	for i, keyword := range keywords {
		if ctx.Err() != nil || bc.deps.Budget.Exhausted() {
			break
		}
		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(keywords), keyword)

		result := bc.crawlKeyword(ctx, keyword)
		summary.Results = append(summary.Results, result)
		if result.Report != nil {
			summary.Stats.Merge(result.Report.Stats)
		}

		if result.Success {
			summary.SuccessCount++
		} else {
			summary.FailCount++
			utils.Errorf("关键词 [%s] 抓取失败: %v", keyword, result.Error)
			if !bc.config.Batch.ContinueOnError {
				utils.Warn("批量抓取中止 (batch.continue_on_error=false)")
				break
			}
		}

		if i < len(keywords)-1 && bc.config.Batch.Delay > 0 && !bc.deps.Budget.Exhausted() {
			utils.Debugf("等待 %v 后处理下一个关键词", bc.config.Batch.Delay)
			if !NewPacer(bc.config.Batch.Delay, bc.config.Batch.Delay).Wait(ctx) {
				break
			}
		}
	}

	summary.TotalDuration = time.Since(startTime).Seconds()
	bc.printSummary(summary)
	return summary, nil
}

func (bc *BatchCrawler) crawlKeyword(ctx context.Context, keyword string) BatchResult {
	result := BatchResult{Keyword: keyword}

	crawler, err := NewCrawler(keyword, bc.config, bc.deps)
	if err != nil {
		result.Error = fmt.Errorf("创建抓取器失败: %w", err)
		return result
	}

	report, err := crawler.Run(ctx)
	result.Report = report
	if err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

// printSummary 打印批量抓取摘要
func (bc *BatchCrawler) printSummary(summary *BatchSummary) {
	utils.Info("==================================================")
	utils.Info("批量抓取摘要")
	utils.Info("==================================================")
	utils.Infof("关键词: %d (成功 %d, 失败 %d)", summary.TotalKeywords, summary.SuccessCount, summary.FailCount)
	utils.Infof("视频: 成功 %d, 跳过 %d, 弹幕 %d 条", summary.Stats.Processed, summary.Stats.Skipped, summary.Stats.Comments)
	utils.Infof("总耗时: %.2f秒", summary.TotalDuration)
	utils.Info("==================================================")

	for _, result := range summary.Results {
		if !result.Success {
			utils.Warnf("  - %s: %v", result.Keyword, result.Error)
		}
	}
}
