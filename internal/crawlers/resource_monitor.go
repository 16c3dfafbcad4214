package crawlers

import (
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitorConfig 资源监控配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64   // 为系统保留的内存(字节)
	WorkerMemoryUsage   int64   // 单个抓取worker的估算内存(字节)
	CPULoadThreshold    float64 // CPU使用率超过该值(%)时只允许1个worker, <= 0 表示不检查
	MaxWorkersLimit     int     // 绝对上限
}

// DefaultResourceMonitorConfig 默认配置
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: 512 * 1024 * 1024,
		WorkerMemoryUsage:   32 * 1024 * 1024,
		CPULoadThreshold:    90,
		MaxWorkersLimit:     8,
	}
}

// ResourceSnapshot 一次资源采样
type ResourceSnapshot struct {
	TotalMemory     uint64
	AvailableMemory uint64
	CPUPercent      float64
	NumCPU          int
}

// ResourceMonitor 根据内存和CPU余量限制抓取worker数量
// 浏览器会话固定只有一个, 这里只约束弹幕抓取的并发
type ResourceMonitor struct {
	config ResourceMonitorConfig
	sample func() ResourceSnapshot
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage <= 0 {
		config.WorkerMemoryUsage = 32 * 1024 * 1024
	}
	if config.MaxWorkersLimit <= 0 {
		config.MaxWorkersLimit = 8
	}
	return &ResourceMonitor{config: config, sample: SampleResources}
}

// SampleResources 用 gopsutil 采集系统资源, 失败的项保持为0
func SampleResources() ResourceSnapshot {
	snap := ResourceSnapshot{NumCPU: runtime.NumCPU()}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
	} else {
		snap.TotalMemory = vm.Total
		snap.AvailableMemory = vm.Available
	}

	if percentages, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
	} else if len(percentages) > 0 {
		snap.CPUPercent = percentages[0]
	}
	return snap
}

// Snapshot 当前资源状况
func (rm *ResourceMonitor) Snapshot() ResourceSnapshot {
	return rm.sample()
}

// CalculateMaxWorkers 计算实际可用的worker数量, 结果在 [1, requested] 之间
func (rm *ResourceMonitor) CalculateMaxWorkers(requested int) int {
	if requested <= 1 {
		return 1
	}

	snap := rm.sample()
	result := requested

	if rm.config.MaxWorkersLimit < result {
		result = rm.config.MaxWorkersLimit
	}
	if snap.NumCPU > 0 && snap.NumCPU < result {
		result = snap.NumCPU
	}

	// 内存采样失败时不按内存限制
	if snap.AvailableMemory > 0 {
		surplus := int64(snap.AvailableMemory) - rm.config.SafetyReserveMemory
		byMemory := int(surplus / rm.config.WorkerMemoryUsage)
		if byMemory < result {
			log.Warn().Msgf("可用内存不足(当前%dMB), worker数量限制为%d",
				snap.AvailableMemory/(1024*1024), max(byMemory, 1))
			result = byMemory
		}
	}

	if rm.config.CPULoadThreshold > 0 && snap.CPUPercent > rm.config.CPULoadThreshold {
		log.Warn().Msgf("CPU负载过高(当前%.1f%%), 只使用1个worker", snap.CPUPercent)
		result = 1
	}

	if result < 1 {
		result = 1
	}
	return result
}
