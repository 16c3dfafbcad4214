package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveFetch(t *testing.T) {
	m := New()

	m.ObserveFetch("", 3, time.Second)
	m.ObserveFetch("", 2, time.Second)
	m.ObserveFetch("transport", 0, time.Second)

	if got := testutil.ToFloat64(m.FetchesTotal.WithLabelValues("success", "")); got != 2 {
		t.Errorf("成功次数期望 2, 实际 %v", got)
	}
	if got := testutil.ToFloat64(m.FetchesTotal.WithLabelValues("failure", "transport")); got != 1 {
		t.Errorf("失败次数期望 1, 实际 %v", got)
	}
	if got := testutil.ToFloat64(m.CommentsTotal); got != 5 {
		t.Errorf("弹幕数期望 5, 实际 %v", got)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.AddPages(2)

	if testutil.ToFloat64(b.PagesTotal) != 0 {
		t.Error("不同实例的指标不应互相影响")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncCandidates()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "bilispy_video_candidates_total 1") {
		t.Errorf("输出中缺少候选计数:\n%s", body)
	}
}
