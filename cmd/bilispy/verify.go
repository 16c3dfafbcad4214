package main

import (
	"fmt"
	"runtime"

	"github.com/RecoveryAshes/bilispy/internal/config"
	"github.com/RecoveryAshes/bilispy/internal/crawlers"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "检查运行环境 (浏览器, 资源, 配置)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("==============================================")
		fmt.Println("  bilispy 环境验证")
		fmt.Println("==============================================")
		fmt.Println()

		allOK := true

		fmt.Printf("✅ Go版本: %s\n", runtime.Version())
		fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

		// 浏览器
		if bin := appConfig.Search.BrowserBin; bin != "" {
			fmt.Printf("✅ 使用配置的浏览器: %s\n", bin)
		} else if path, found := launcher.LookPath(); found {
			fmt.Printf("✅ 找到浏览器: %s\n", path)
		} else {
			fmt.Println("⚠️  未找到本地浏览器 - 首次运行时会自动下载 Chromium")
		}

		// 资源
		monitor := crawlers.NewResourceMonitor(crawlers.DefaultResourceMonitorConfig())
		snap := monitor.Snapshot()
		fmt.Printf("✅ CPU: %d 核, 使用率 %.1f%%\n", snap.NumCPU, snap.CPUPercent)
		fmt.Printf("✅ 内存: 可用 %dMB / 共 %dMB\n", snap.AvailableMemory/(1024*1024), snap.TotalMemory/(1024*1024))
		requested := appConfig.Run.Workers
		if allowed := monitor.CalculateMaxWorkers(requested); allowed < requested {
			fmt.Printf("⚠️  配置的worker数 %d 超出当前资源, 实际将使用 %d\n", requested, allowed)
		}

		// 配置
		if err := appConfig.Validate(); err != nil {
			fmt.Printf("❌ 配置无效: %v\n", err)
			allOK = false
		} else {
			fmt.Println("✅ 配置有效")
		}

		loader := config.NewHeaderConfigLoader(headersFile)
		if _, err := loader.LoadHeaders(); err != nil {
			fmt.Printf("❌ 请求头配置无效: %v\n", err)
			allOK = false
		} else {
			fmt.Printf("✅ 请求头配置: %s\n", loader.Path())
		}

		fmt.Println()
		fmt.Println("==============================================")
		if !allOK {
			return fmt.Errorf("环境验证失败,请解决上述问题")
		}
		fmt.Println("✅ 环境验证通过!")
		return nil
	},
}
