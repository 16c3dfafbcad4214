package crawlers

import (
	"context"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/utils"
)

// DefaultPollInterval 默认轮询间隔
const DefaultPollInterval = 500 * time.Millisecond

// Condition 等待条件, 出错时应返回 false
type Condition func(ctx context.Context, agent RenderAgent) bool

// ElementPresent 页面上存在匹配的元素
func ElementPresent(loc Locator) Condition {
	return func(ctx context.Context, agent RenderAgent) bool {
		_, err := agent.FindElement(ctx, loc)
		return err == nil
	}
}

// ElementStale 元素已不在文档中
func ElementStale(el ElementHandle) Condition {
	return func(ctx context.Context, _ RenderAgent) bool {
		return el.IsStale(ctx)
	}
}

// ReadinessWaiter 按固定间隔轮询页面状态
// 所有等待都有超时, 结果只有成功/超时两种, 不向外返回错误
type ReadinessWaiter struct {
	agent        RenderAgent
	pollInterval time.Duration
}

// NewReadinessWaiter 创建等待器, pollInterval <= 0 时使用默认值
func NewReadinessWaiter(agent RenderAgent, pollInterval time.Duration) *ReadinessWaiter {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &ReadinessWaiter{agent: agent, pollInterval: pollInterval}
}

// Wait 等待 document.readyState 为 complete 且 cond 成立
func (w *ReadinessWaiter) Wait(ctx context.Context, timeout time.Duration, cond Condition) bool {
	return w.Until(ctx, timeout, func(ctx context.Context, agent RenderAgent) bool {
		state, err := agent.ReadyState(ctx)
		if err != nil || state != "complete" {
			return false
		}
		return cond == nil || cond(ctx, agent)
	})
}

// Until 等待 cond 成立, 不检查文档加载状态
func (w *ReadinessWaiter) Until(ctx context.Context, timeout time.Duration, cond Condition) bool {
	if timeout <= 0 {
		return w.check(ctx, cond)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if w.check(waitCtx, cond) {
			return true
		}
		select {
		case <-waitCtx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (w *ReadinessWaiter) check(ctx context.Context, cond Condition) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			utils.Warnf("等待条件执行异常: %v", r)
			ok = false
		}
	}()
	return cond(ctx, w.agent)
}
