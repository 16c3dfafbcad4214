// Package metrics 抓取过程的 Prometheus 指标
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RecoveryAshes/bilispy/internal/utils"
)

// Metrics 抓取指标, 每个实例使用独立的 Registry
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal      prometheus.Counter
	CandidatesTotal prometheus.Counter
	FetchesTotal    *prometheus.CounterVec // outcome, kind
	CommentsTotal   prometheus.Counter
	FetchDuration   prometheus.Histogram
}

// New 创建指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bilispy_search_pages_total",
			Help: "遍历过的搜索结果页数",
		}),
		CandidatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bilispy_video_candidates_total",
			Help: "通过前缀校验的视频链接数",
		}),
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bilispy_barrage_fetches_total",
			Help: "弹幕抓取次数, 按结果和失败类型区分",
		}, []string{"outcome", "kind"}),
		CommentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bilispy_comments_total",
			Help: "写出的弹幕条数",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bilispy_barrage_fetch_duration_seconds",
			Help:    "单个视频两段请求的总耗时",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// AddPages 新遍历的页数
func (m *Metrics) AddPages(n int) {
	m.PagesTotal.Add(float64(n))
}

// IncCandidates 新的候选链接
func (m *Metrics) IncCandidates() {
	m.CandidatesTotal.Inc()
}

// ObserveFetch 记录一次抓取, kind 为空表示成功
func (m *Metrics) ObserveFetch(kind string, comments int, elapsed time.Duration) {
	m.FetchDuration.Observe(elapsed.Seconds())
	if kind == "" {
		m.FetchesTotal.WithLabelValues("success", "").Inc()
		m.CommentsTotal.Add(float64(comments))
		return
	}
	m.FetchesTotal.WithLabelValues("failure", kind).Inc()
}

// Registry 指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 在 addr 上暴露 /metrics, 直到 ctx 取消
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	utils.Infof("指标服务已启动: http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
