package crawlers

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"

	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
)

// DefaultCommentBaseURL 弹幕流地址前缀, 完整地址为 <base>/<cid>.xml
const DefaultCommentBaseURL = "https://comment.bilibili.com"

// cidPattern 视频页内嵌状态中的 "cid":123 字段
var cidPattern = regexp.MustCompile(`"cid":\s*"?(\d+)`)

// Getter HTTP GET 能力, 由 PageClient 实现
type Getter interface {
	Get(ctx context.Context, url string) (*PageResponse, error)
}

// BarrageFetcher 抓取单个视频的弹幕
//
// 先请求视频页取出 cid, 再请求弹幕流并解析. 任何失败都只体现为 Fetch 返回 false,
// 具体原因由 Err 给出. 成功后结果不再变化.
type BarrageFetcher struct {
	videoURL       string
	client         Getter
	commentBaseURL string

	mu       sync.Mutex
	cid      string
	barrages []models.Barrage // 成功解析后的原始列表
	texts    []string         // Get 的缓存
	err      error
}

// NewBarrageFetcher 创建抓取器, commentBaseURL 为空时使用默认地址
func NewBarrageFetcher(videoURL string, client Getter, commentBaseURL string) *BarrageFetcher {
	if commentBaseURL == "" {
		commentBaseURL = DefaultCommentBaseURL
	}
	return &BarrageFetcher{
		videoURL:       videoURL,
		client:         client,
		commentBaseURL: strings.TrimRight(commentBaseURL, "/"),
	}
}

// Fetch 抓取并解析弹幕, 成功返回 true
// 已成功过的抓取器不会再次请求
func (f *BarrageFetcher) Fetch(ctx context.Context) (ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.barrages != nil {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			f.err = malformedError(f.videoURL, fmt.Errorf("解析异常: %v", r))
			ok = false
		}
	}()

	barrages, cid, err := f.fetch(ctx)
	f.cid = cid
	if err != nil {
		f.err = err
		utils.Logger.Debug().Err(err).Str("url", f.videoURL).Str("kind", ErrorKind(err)).Msg("弹幕抓取失败")
		return false
	}

	f.barrages = barrages
	f.err = nil
	return true
}

func (f *BarrageFetcher) fetch(ctx context.Context) ([]models.Barrage, string, error) {
	page, err := f.client.Get(ctx, f.videoURL)
	if err != nil {
		return nil, "", err
	}

	m := cidPattern.FindSubmatch(page.Body)
	if m == nil {
		return nil, "", malformedError(f.videoURL, errNoCID)
	}
	cid := string(m[1])

	streamURL := f.StreamURL(cid)
	stream, err := f.client.Get(ctx, streamURL)
	if err != nil {
		return nil, cid, err
	}

	body, err := decodeUTF8(stream.Body)
	if err != nil {
		return nil, cid, malformedError(streamURL, err)
	}
	barrages, err := parseBarrageDocument(body)
	if err != nil {
		return nil, cid, malformedError(streamURL, err)
	}
	return barrages, cid, nil
}

// parseBarrageDocument 解析 <i><d p="...">文本</d>...</i>, 保持文档顺序
func parseBarrageDocument(body []byte) ([]models.Barrage, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("XML解析失败: %w", err)
	}
	if xmlquery.FindOne(doc, "/i") == nil {
		return nil, errNoRoot
	}

	nodes, err := xmlquery.QueryAll(doc, "/i/d")
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errNoComments
	}

	barrages := make([]models.Barrage, 0, len(nodes))
	for _, node := range nodes {
		barrages = append(barrages, models.NewBarrage(node.InnerText(), node.SelectAttr("p")))
	}
	return barrages, nil
}

// Get 按文档顺序返回弹幕文本
// 第一次调用时从解析结果生成并缓存, 之后返回同样的内容; 未成功抓取时返回空切片
func (f *BarrageFetcher) Get() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.texts == nil {
		if f.barrages == nil {
			return []string{}
		}
		f.texts = models.Texts(f.barrages)
	}
	return slices.Clone(f.texts)
}

// Barrages 带元数据的弹幕, 未成功抓取时为空
func (f *BarrageFetcher) Barrages() []models.Barrage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.barrages)
}

// StreamURL 弹幕流地址
func (f *BarrageFetcher) StreamURL(cid string) string {
	return f.commentBaseURL + "/" + cid + ".xml"
}

// CID 视频页中解析到的 cid, 第一阶段失败时为空
func (f *BarrageFetcher) CID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cid
}

// Err 最近一次 Fetch 的失败原因
func (f *BarrageFetcher) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// URL 视频页地址
func (f *BarrageFetcher) URL() string {
	return f.videoURL
}
