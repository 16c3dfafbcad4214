package models

import (
	"encoding/json"
	"time"
)

// RunStatus 抓取任务状态
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"   // 分页耗尽
	RunStatusLimited     RunStatus = "limited"     // 达到处理上限
	RunStatusInterrupted RunStatus = "interrupted" // 收到中断信号
	RunStatusFailed      RunStatus = "failed"
)

// RunStats 一次抓取的统计
type RunStats struct {
	Pages      int `json:"pages"`      // 已遍历的搜索结果页
	Candidates int `json:"candidates"` // 通过前缀校验的视频链接
	Processed  int `json:"processed"`  // 成功写出的视频
	Skipped    int `json:"skipped"`    // 抓取失败被跳过的视频
	Comments   int `json:"comments"`   // 写出的弹幕总数

	// FailuresByKind 失败原因分布 (transport, malformed, ...)
	FailuresByKind map[string]int `json:"failures_by_kind"`

	Duration float64 `json:"duration"` // 秒
}

// Merge 累加另一次抓取的统计
func (s *RunStats) Merge(other RunStats) {
	s.Pages += other.Pages
	s.Candidates += other.Candidates
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Comments += other.Comments
	s.Duration += other.Duration
	for kind, n := range other.FailuresByKind {
		if s.FailuresByKind == nil {
			s.FailuresByKind = make(map[string]int)
		}
		s.FailuresByKind[kind] += n
	}
}

// RunReport 抓取报告
type RunReport struct {
	RunID      string    `json:"run_id"`
	Keyword    string    `json:"keyword"`
	Status     RunStatus `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Stats      RunStats  `json:"stats"`
	OutputFile string    `json:"output_file"`

	// FailedVideos 失败的视频及原因
	FailedVideos []FailedVideo `json:"failed_videos"`
}

// FailedVideo 失败视频信息
type FailedVideo struct {
	URL       string `json:"url"`
	ErrorType string `json:"error_type"` // transport, malformed ...
	ErrorMsg  string `json:"error_msg"`
}

// NewRunReport 创建报告并分配运行ID
func NewRunReport(keyword string, start time.Time) *RunReport {
	return &RunReport{
		RunID:        generateID(),
		Keyword:      keyword,
		Status:       RunStatusRunning,
		StartTime:    start,
		FailedVideos: make([]FailedVideo, 0),
	}
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
