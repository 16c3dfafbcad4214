package models

// VideoTask 分页器交给抓取worker的一项任务
type VideoTask struct {
	// URL 已通过前缀校验的视频页地址
	URL string

	// Page 候选所在的搜索结果页码, 从1开始
	Page int

	// Index 在整个会话中的产出序号, 从0开始
	Index int
}
