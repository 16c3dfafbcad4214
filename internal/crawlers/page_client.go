package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// PageClientConfig HTTP客户端配置
type PageClientConfig struct {
	RequestTimeout time.Duration
	RateLimit      float64 // 每秒请求数, <= 0 表示不限速
	Burst          int
}

// DefaultPageClientConfig 默认配置
func DefaultPageClientConfig() PageClientConfig {
	return PageClientConfig{
		RequestTimeout: 30 * time.Second,
		RateLimit:      2,
		Burst:          1,
	}
}

// PageResponse 一次 GET 的结果
type PageResponse struct {
	URL        string
	StatusCode int
	Body       []byte // 已解压
}

// PageClient 带浏览器风格请求头的 GET 客户端
// 所有抓取worker共用一个实例, 连接池和限速器都是共享的
type PageClient struct {
	collector      *colly.Collector
	headerProvider models.HeaderProvider
	limiter        *rate.Limiter
}

// NewPageClient 创建客户端
func NewPageClient(config PageClientConfig, headerProvider models.HeaderProvider) *PageClient {
	// 所有状态码都交给 OnResponse, 是否为 2xx 由 Get 判断
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxBodySize(0),
		colly.ParseHTTPErrorResponse(),
	)
	if config.RequestTimeout > 0 {
		c.SetRequestTimeout(config.RequestTimeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &PageClient{
		collector:      c,
		headerProvider: headerProvider,
		limiter:        limiter,
	}
}

// Get 发起 GET 请求
// 网络错误和非 2xx 状态码返回 ErrTransport 类错误
func (pc *PageClient) Get(ctx context.Context, url string) (*PageResponse, error) {
	if err := pc.limiter.Wait(ctx); err != nil {
		return nil, transportError(url, 0, err)
	}

	headers := http.Header{}
	if pc.headerProvider != nil {
		h, err := pc.headerProvider.GetHeaders()
		if err != nil {
			return nil, transportError(url, 0, err)
		}
		headers = h.Clone()
	}

	// 每个请求一个克隆, 回调互不干扰, 底层连接池共享
	c := pc.collector.Clone()
	c.Context = ctx

	var resp *PageResponse
	var encoding string
	var status int

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		encoding = r.Headers.Get("Content-Encoding")
		resp = &PageResponse{URL: r.Request.URL.String(), StatusCode: r.StatusCode, Body: r.Body}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Request(http.MethodGet, url, nil, nil, headers); err != nil {
		return nil, transportError(url, status, err)
	}
	if resp == nil {
		return nil, transportError(url, status, errEmptyResponse)
	}
	if resp.StatusCode/100 != 2 {
		return nil, transportError(url, resp.StatusCode, fmt.Errorf("%w: %d %s", errBadStatus, resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	body, err := decompressResponse(encoding, resp.Body)
	if err != nil {
		return nil, transportError(url, status, err)
	}
	resp.Body = body

	utils.Debugf("GET %s -> %d (%d 字节)", url, resp.StatusCode, len(body))
	return resp, nil
}
