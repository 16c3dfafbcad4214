package core

import "sync"

// Budget 成功处理视频数的上限
// 批量运行时多个关键词共享同一个 Budget
type Budget struct {
	mu    sync.Mutex
	limit int // 0 表示不限制
	used  int
}

// NewBudget 创建上限, limit <= 0 表示不限制
func NewBudget(limit int) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

// Acquire 占用一个名额, 已满时返回 false
func (b *Budget) Acquire() (used int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && b.used >= b.limit {
		return b.used, false
	}
	b.used++
	return b.used, true
}

// Exhausted 名额是否已用完
func (b *Budget) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit > 0 && b.used >= b.limit
}

// Used 已使用的名额
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Limit 上限, 0 表示不限制
func (b *Budget) Limit() int {
	return b.limit
}
