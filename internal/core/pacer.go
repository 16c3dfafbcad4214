package core

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer 视频之间的随机等待, 降低被反爬识别的概率
type Pacer struct {
	min time.Duration
	max time.Duration
}

// NewPacer 创建等待器, 区间为 [min, max)
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max}
}

// Next 下一次等待的时长
func (p *Pacer) Next() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + time.Duration(rand.Int64N(int64(p.max-p.min)))
}

// Wait 随机等待, ctx 取消时提前返回 false
func (p *Pacer) Wait(ctx context.Context) bool {
	d := p.Next()
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
