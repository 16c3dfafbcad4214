package crawlers

import "testing"

func TestResourceMonitor_CalculateMaxWorkers(t *testing.T) {
	const mb = 1024 * 1024

	tests := []struct {
		name      string
		snap      ResourceSnapshot
		requested int
		expected  int
	}{
		{"单worker", ResourceSnapshot{NumCPU: 8, AvailableMemory: 8192 * mb}, 1, 1},
		{"资源充足", ResourceSnapshot{NumCPU: 8, AvailableMemory: 8192 * mb}, 4, 4},
		{"受绝对上限限制", ResourceSnapshot{NumCPU: 64, AvailableMemory: 65536 * mb}, 32, 8},
		{"受CPU核数限制", ResourceSnapshot{NumCPU: 2, AvailableMemory: 8192 * mb}, 6, 2},
		{"受内存限制", ResourceSnapshot{NumCPU: 8, AvailableMemory: 512*mb + 64*mb}, 6, 2},
		{"内存严重不足", ResourceSnapshot{NumCPU: 8, AvailableMemory: 100 * mb}, 6, 1},
		{"CPU过载", ResourceSnapshot{NumCPU: 8, AvailableMemory: 8192 * mb, CPUPercent: 95}, 6, 1},
		{"采样失败不限制内存", ResourceSnapshot{NumCPU: 8}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewResourceMonitor(DefaultResourceMonitorConfig())
			snap := tt.snap
			rm.sample = func() ResourceSnapshot { return snap }

			if got := rm.CalculateMaxWorkers(tt.requested); got != tt.expected {
				t.Errorf("期望 %d, 实际 %d", tt.expected, got)
			}
		})
	}
}
