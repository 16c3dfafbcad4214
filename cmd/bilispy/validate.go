package main

import (
	"fmt"
	"os"
	"time"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(
	keywordFile string,
	maxVideos int,
	workers int,
	maxPages int,
	minDelay time.Duration,
	maxDelay time.Duration,
) error {
	if keywordFile != "" {
		if err := ValidateKeywordFile(keywordFile); err != nil {
			return err
		}
	}

	// 验证上限
	if maxVideos < 0 {
		return fmt.Errorf("视频数上限不能为负数,当前值: %d", maxVideos)
	}

	// 验证并发数
	if workers < 1 || workers > 32 {
		return fmt.Errorf("并发数必须在1-32之间,当前值: %d", workers)
	}

	if maxPages < 0 {
		return fmt.Errorf("最多翻页数不能为负数,当前值: %d", maxPages)
	}

	// 验证等待区间
	if minDelay < 0 {
		return fmt.Errorf("最短等待不能为负数,当前值: %v", minDelay)
	}
	if maxDelay < minDelay {
		return fmt.Errorf("最长等待(%v)不能小于最短等待(%v)", maxDelay, minDelay)
	}

	return nil
}

// ValidateKeywordFile 验证关键词文件路径
func ValidateKeywordFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("关键词文件不可用: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("关键词文件是目录: %s", path)
	}
	return nil
}
