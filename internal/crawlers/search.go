package crawlers

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"sync"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
)

// DefaultSearchURL 综合搜索页
const DefaultSearchURL = "https://search.bilibili.com/all"

// 搜索结果页上的元素
var (
	ResultListLocator = XPath(`//div[contains(@class, 'video-list')]`)
	VideoCardLocator  = Class("bili-video-card")
	CardAnchorLocator = XPath(`.//a`)
	NextPageLocator   = XPath(`//button[text()='下一页']`)
)

// PaginatorState 分页器状态
type PaginatorState int

const (
	StateNotStarted PaginatorState = iota
	StateLoaded
	StateAdvancing
	StateExhausted
)

func (s PaginatorState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLoaded:
		return "loaded"
	case StateAdvancing:
		return "advancing"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// PaginatorConfig 分页器配置
type PaginatorConfig struct {
	SearchURL       string
	SettleDelay     time.Duration // 页面就绪后等待前端渲染结果卡片的时间
	LoadTimeout     time.Duration
	AdvanceTimeout  time.Duration // 翻页确认两段等待各自的超时
	NextPageTimeout time.Duration // 等待"下一页"按钮可点击
	PollInterval    time.Duration
	MaxPages        int // 0 表示不限制
}

// DefaultPaginatorConfig 默认配置
func DefaultPaginatorConfig() PaginatorConfig {
	return PaginatorConfig{
		SearchURL:       DefaultSearchURL,
		SettleDelay:     5 * time.Second,
		LoadTimeout:     15 * time.Second,
		AdvanceTimeout:  15 * time.Second,
		NextPageTimeout: 10 * time.Second,
		PollInterval:    DefaultPollInterval,
	}
}

// SearchPaginator 在一个浏览器会话中逐页产出搜索结果中的视频链接
//
// 会话由分页器独占, Stop 释放. 所有浏览器操作都在调用方的 goroutine 中顺序执行.
type SearchPaginator struct {
	agent   RenderAgent
	keyword string
	config  PaginatorConfig
	waiter  *ReadinessWaiter

	mu         sync.Mutex
	state      PaginatorState
	page       int // 当前页码, 从1开始
	candidates int
	lastErr    error

	stopOnce sync.Once
}

// NewSearchPaginator 创建分页器
func NewSearchPaginator(agent RenderAgent, keyword string, config PaginatorConfig) *SearchPaginator {
	if config.SearchURL == "" {
		config.SearchURL = DefaultSearchURL
	}
	return &SearchPaginator{
		agent:   agent,
		keyword: keyword,
		config:  config,
		waiter:  NewReadinessWaiter(agent, config.PollInterval),
		state:   StateNotStarted,
	}
}

// SearchURL 关键词对应的搜索地址
func (p *SearchPaginator) SearchURL() string {
	return p.config.SearchURL + "?keyword=" + url.QueryEscape(p.keyword)
}

// Start 打开搜索页, 重复调用无效果
// 加载等待超时不算失败, 后续照常解析
func (p *SearchPaginator) Start(ctx context.Context) {
	p.mu.Lock()
	if p.state != StateNotStarted {
		p.mu.Unlock()
		return
	}
	p.state = StateLoaded
	p.page = 1
	p.mu.Unlock()

	searchURL := p.SearchURL()
	utils.Infof("打开搜索页: %s", searchURL)
	if err := p.agent.Navigate(ctx, searchURL); err != nil {
		p.setErr(fmt.Errorf("%w: %v", ErrUIInteraction, err))
		utils.Warnf("打开搜索页失败: %v", err)
	}

	if !p.waiter.Wait(ctx, p.config.LoadTimeout, ElementPresent(ResultListLocator)) {
		utils.Warnf("搜索页加载等待超时 (%v), 继续解析", p.config.LoadTimeout)
	}
}

// ProduceCandidates 当前页的有效视频链接
// 没有链接或链接读取失败的卡片直接跳过
func (p *SearchPaginator) ProduceCandidates(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !sleepContext(ctx, p.config.SettleDelay) {
			return
		}

		list, err := p.agent.FindElement(ctx, ResultListLocator)
		if err != nil {
			utils.Warnf("第%d页未找到结果列表: %v", p.Page(), err)
			return
		}
		cards, err := list.FindElements(ctx, VideoCardLocator)
		if err != nil {
			utils.Warnf("第%d页读取视频卡片失败: %v", p.Page(), err)
			return
		}
		utils.Debugf("第%d页共 %d 个视频卡片", p.Page(), len(cards))

		for _, card := range cards {
			anchor, err := card.FindElement(ctx, CardAnchorLocator)
			if err != nil {
				continue
			}
			href, err := anchor.Attribute(ctx, "href")
			if err != nil {
				continue
			}
			if !models.IsValidVideoURL(href) {
				utils.Debugf("跳过非视频链接: %q", href)
				continue
			}

			p.mu.Lock()
			p.candidates++
			p.mu.Unlock()

			if !yield(href) {
				return
			}
		}
	}
}

// AdvancePage 点击"下一页"并确认页面已切换
// 返回 false 表示没有下一页, 分页结束
func (p *SearchPaginator) AdvancePage(ctx context.Context) bool {
	if ctx.Err() != nil {
		p.setState(StateExhausted)
		return false
	}
	p.setState(StateAdvancing)

	var next ElementHandle
	found := p.waiter.Until(ctx, p.config.NextPageTimeout, func(ctx context.Context, agent RenderAgent) bool {
		el, err := agent.FindElement(ctx, NextPageLocator)
		if err != nil {
			return false
		}
		clickable, err := el.Clickable(ctx)
		if err != nil || !clickable {
			return false
		}
		next = el
		return true
	})
	if !found {
		utils.Infof("没有可点击的下一页, 共 %d 页", p.Page())
		p.setState(StateExhausted)
		return false
	}

	if err := next.ScrollIntoView(ctx); err != nil {
		utils.Debugf("滚动到下一页按钮失败: %v", err)
	}
	if err := next.Click(ctx); err != nil {
		p.setErr(fmt.Errorf("%w: 点击下一页: %v", ErrUIInteraction, err))
		utils.Warnf("点击下一页失败: %v", err)
		p.setState(StateExhausted)
		return false
	}

	// 旧按钮失效说明页面已替换; 否则退回到检查结果列表
	if p.waiter.Wait(ctx, p.config.AdvanceTimeout, ElementStale(next)) ||
		p.waiter.Wait(ctx, p.config.AdvanceTimeout, ElementPresent(ResultListLocator)) {
		p.mu.Lock()
		p.state = StateLoaded
		p.page++
		p.mu.Unlock()
		utils.Debugf("已翻到第%d页", p.Page())
		return true
	}

	p.setErr(fmt.Errorf("%w: 第%d页之后", ErrPageTransitionTimeout, p.Page()))
	utils.Warnf("翻页确认超时, 停止分页")
	p.setState(StateExhausted)
	return false
}

// Query 逐页产出视频链接, 直到没有下一页, 调用方停止迭代或 ctx 取消
func (p *SearchPaginator) Query(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		p.Start(ctx)

		for ctx.Err() == nil {
			for href := range p.ProduceCandidates(ctx) {
				if !yield(href) {
					return
				}
			}

			if p.config.MaxPages > 0 && p.Page() >= p.config.MaxPages {
				utils.Infof("已达到最大页数 %d", p.config.MaxPages)
				p.setState(StateExhausted)
				return
			}
			if !p.AdvancePage(ctx) {
				return
			}
		}
	}
}

// Stop 释放浏览器会话, 可重复调用, 关闭失败只记录日志
func (p *SearchPaginator) Stop() {
	p.stopOnce.Do(func() {
		if err := p.agent.Close(); err != nil {
			utils.Debugf("关闭浏览器会话失败: %v", err)
		}
	})
}

// State 当前状态
func (p *SearchPaginator) State() PaginatorState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Page 当前页码, 未开始时为0
func (p *SearchPaginator) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Candidates 已产出的有效链接数
func (p *SearchPaginator) Candidates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.candidates
}

// Err 最近一次页面交互失败, 没有时为 nil
func (p *SearchPaginator) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *SearchPaginator) setState(state PaginatorState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

func (p *SearchPaginator) setErr(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// sleepContext 等待 d, ctx 取消时提前返回 false
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
