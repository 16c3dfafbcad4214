package crawlers_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/crawlers"
	"github.com/RecoveryAshes/bilispy/internal/crawlers/rendertest"
)

func TestReadinessWaiter_Wait(t *testing.T) {
	ctx := context.Background()

	t.Run("页面就绪且元素存在", func(t *testing.T) {
		session := rendertest.FromPages([]rendertest.Card{video(1, 1)})
		session.Navigate(ctx, crawlers.DefaultSearchURL)
		w := crawlers.NewReadinessWaiter(session, 10*time.Millisecond)

		if !w.Wait(ctx, 0, crawlers.ElementPresent(crawlers.ResultListLocator)) {
			t.Error("期望等待成功")
		}
	})

	t.Run("页面未打开时超时", func(t *testing.T) {
		session := rendertest.FromPages([]rendertest.Card{video(1, 1)})
		w := crawlers.NewReadinessWaiter(session, 10*time.Millisecond)

		start := time.Now()
		if w.Wait(ctx, 50*time.Millisecond, nil) {
			t.Error("期望等待超时")
		}
		if time.Since(start) < 50*time.Millisecond {
			t.Error("超时前不应返回")
		}
	})

	t.Run("元素不存在", func(t *testing.T) {
		session := rendertest.FromPages([]rendertest.Card{video(1, 1)})
		session.Navigate(ctx, crawlers.DefaultSearchURL)
		w := crawlers.NewReadinessWaiter(session, 10*time.Millisecond)

		if w.Wait(ctx, 30*time.Millisecond, crawlers.ElementPresent(crawlers.NextPageLocator)) {
			t.Error("单页时不应找到下一页按钮")
		}
	})
}

func TestReadinessWaiter_Until(t *testing.T) {
	session := rendertest.FromPages(nil)
	w := crawlers.NewReadinessWaiter(session, 5*time.Millisecond)

	t.Run("轮询直到条件成立", func(t *testing.T) {
		var calls atomic.Int32
		ok := w.Until(context.Background(), time.Second, func(ctx context.Context, _ crawlers.RenderAgent) bool {
			return calls.Add(1) >= 3
		})
		if !ok || calls.Load() != 3 {
			t.Errorf("期望第3次检查成功, ok=%v, 检查 %d 次", ok, calls.Load())
		}
	})

	t.Run("超时为0只检查一次", func(t *testing.T) {
		var calls atomic.Int32
		ok := w.Until(context.Background(), 0, func(ctx context.Context, _ crawlers.RenderAgent) bool {
			calls.Add(1)
			return false
		})
		if ok || calls.Load() != 1 {
			t.Errorf("期望只检查一次, 实际 %d 次", calls.Load())
		}
	})

	t.Run("条件panic视为不成立", func(t *testing.T) {
		ok := w.Until(context.Background(), 20*time.Millisecond, func(ctx context.Context, _ crawlers.RenderAgent) bool {
			panic("boom")
		})
		if ok {
			t.Error("panic 时应返回 false")
		}
	})

	t.Run("ctx取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		ok := w.Until(ctx, time.Hour, func(ctx context.Context, _ crawlers.RenderAgent) bool {
			return false
		})
		if ok || time.Since(start) > time.Second {
			t.Error("ctx 取消后应立即返回 false")
		}
	})
}
