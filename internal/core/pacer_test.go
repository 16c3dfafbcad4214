package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPacer_Next(t *testing.T) {
	tests := []struct {
		name     string
		min, max time.Duration
	}{
		{"区间", 6 * time.Second, 12 * time.Second},
		{"固定", time.Second, time.Second},
		{"上限小于下限", 3 * time.Second, time.Second},
		{"零", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPacer(tt.min, tt.max)
			for i := 0; i < 200; i++ {
				d := p.Next()
				if d < tt.min {
					t.Fatalf("等待 %v 小于下限 %v", d, tt.min)
				}
				if tt.max > tt.min && d >= tt.max {
					t.Fatalf("等待 %v 超出上限 %v", d, tt.max)
				}
				if tt.max <= tt.min && d != tt.min {
					t.Fatalf("期望固定等待 %v, 实际 %v", tt.min, d)
				}
			}
		})
	}
}

func TestPacer_WaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if NewPacer(time.Hour, time.Hour).Wait(ctx) {
		t.Error("取消后应返回 false")
	}
	if time.Since(start) > time.Second {
		t.Error("取消后应立即返回")
	}
	if !NewPacer(0, 0).Wait(context.Background()) {
		t.Error("零等待应返回 true")
	}
}

func TestBudget(t *testing.T) {
	t.Run("不限制", func(t *testing.T) {
		b := NewBudget(0)
		for i := 0; i < 1000; i++ {
			if _, ok := b.Acquire(); !ok {
				t.Fatal("不限制时不应拒绝")
			}
		}
		if b.Exhausted() {
			t.Error("不限制时不应用完")
		}
	})

	t.Run("并发占用", func(t *testing.T) {
		b := NewBudget(360)
		var wg sync.WaitGroup
		var mu sync.Mutex
		granted := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					if _, ok := b.Acquire(); ok {
						mu.Lock()
						granted++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		if granted != 360 || b.Used() != 360 || !b.Exhausted() {
			t.Errorf("期望占用 360 个, 实际 %d (used=%d)", granted, b.Used())
		}
	})
}
