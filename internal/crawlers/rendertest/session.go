// Package rendertest 提供内存中的模拟浏览器会话, 用于测试分页和编排逻辑
package rendertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RecoveryAshes/bilispy/internal/crawlers"
)

var _ crawlers.RenderAgent = (*Session)(nil)

// Card 搜索结果中的一个视频卡片
type Card struct {
	Href     string
	NoAnchor bool // 卡片内没有链接
	AttrErr  bool // 读取 href 失败
}

// Session 模拟的搜索结果会话
//
// 页面从1开始编号, "下一页"按钮在第 1..Clicks 页存在且可点击, 之后消失.
// 每次翻页后旧页面上的元素全部失效.
type Session struct {
	// PageCards 返回第 page 页的卡片
	PageCards func(page int) []Card

	// Clicks "下一页"可以被点击的次数
	Clicks int

	// ClickErr 不为空时点击"下一页"返回该错误
	ClickErr error

	// ScrollErr 不为空时 ScrollIntoView 返回该错误
	ScrollErr error

	// KeepNextAlive 翻页时复用页面节点, 旧元素不会失效
	KeepNextAlive bool

	// NoListFrom 大于0时, 从该页起页面上没有结果列表
	NoListFrom int

	mu          sync.Mutex
	page        int // 0 表示尚未打开
	generation  int
	navigations []string
	clicks      int
	closes      int

	active     atomic.Int32
	violations atomic.Int32
}

// New 创建会话, "下一页"可点击 clicks 次, 共 clicks+1 页
func New(clicks int, pageCards func(page int) []Card) *Session {
	return &Session{PageCards: pageCards, Clicks: clicks}
}

// FromPages 用固定的页面内容创建会话
func FromPages(pages ...[]Card) *Session {
	return New(len(pages)-1, func(page int) []Card {
		if page < 1 || page > len(pages) {
			return nil
		}
		return pages[page-1]
	})
}

// Navigations 打开过的地址
func (s *Session) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// ClickCount 成功点击"下一页"的次数
func (s *Session) ClickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks
}

// Closes Close 被调用的次数
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Violations 检测到的并发调用次数
func (s *Session) Violations() int {
	return int(s.violations.Load())
}

func (s *Session) enter() func() {
	if s.active.Add(1) > 1 {
		s.violations.Add(1)
	}
	return func() { s.active.Add(-1) }
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, url)
	s.page = 1
	s.generation++
	return nil
}

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == 0 {
		return "loading", nil
	}
	return "complete", nil
}

func (s *Session) FindElement(ctx context.Context, loc crawlers.Locator) (crawlers.ElementHandle, error) {
	els, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", crawlers.ErrElementNotFound, loc)
	}
	return els[0], nil
}

func (s *Session) FindElements(ctx context.Context, loc crawlers.Locator) ([]crawlers.ElementHandle, error) {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == 0 {
		return nil, nil
	}
	switch loc {
	case crawlers.ResultListLocator:
		if s.NoListFrom > 0 && s.page >= s.NoListFrom {
			return nil, nil
		}
		return []crawlers.ElementHandle{s.element(kindList, Card{})}, nil
	case crawlers.NextPageLocator:
		if s.page > s.Clicks {
			return nil, nil
		}
		return []crawlers.ElementHandle{s.element(kindNext, Card{})}, nil
	default:
		return nil, nil
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *Session) element(kind elementKind, card Card) *element {
	return &element{session: s, generation: s.generation, kind: kind, card: card}
}

type elementKind int

const (
	kindList elementKind = iota
	kindCard
	kindAnchor
	kindNext
)

var errStale = errors.New("stale element reference")

type element struct {
	session    *Session
	generation int
	kind       elementKind
	card       Card
}

func (e *element) stale() bool {
	return e.generation != e.session.generation
}

func (e *element) FindElement(ctx context.Context, loc crawlers.Locator) (crawlers.ElementHandle, error) {
	els, err := e.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", crawlers.ErrElementNotFound, loc)
	}
	return els[0], nil
}

func (e *element) FindElements(ctx context.Context, loc crawlers.Locator) ([]crawlers.ElementHandle, error) {
	s := e.session
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.stale() {
		return nil, errStale
	}

	switch {
	case e.kind == kindList && loc == crawlers.VideoCardLocator:
		var cards []Card
		if s.PageCards != nil {
			cards = s.PageCards(s.page)
		}
		handles := make([]crawlers.ElementHandle, 0, len(cards))
		for _, card := range cards {
			handles = append(handles, s.element(kindCard, card))
		}
		return handles, nil
	case e.kind == kindCard && loc == crawlers.CardAnchorLocator && !e.card.NoAnchor:
		return []crawlers.ElementHandle{s.element(kindAnchor, e.card)}, nil
	default:
		return nil, nil
	}
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	s := e.session
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.stale() {
		return "", errStale
	}
	if e.kind != kindAnchor || name != "href" {
		return "", nil
	}
	if e.card.AttrErr {
		return "", errors.New("attribute read failed")
	}
	return e.card.Href, nil
}

func (e *element) Click(ctx context.Context) error {
	s := e.session
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.stale() {
		return errStale
	}
	if e.kind != kindNext {
		return nil
	}
	if s.ClickErr != nil {
		return s.ClickErr
	}
	s.page++
	if !s.KeepNextAlive {
		s.generation++
	}
	s.clicks++
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	s := e.session
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.stale() {
		return errStale
	}
	return s.ScrollErr
}

func (e *element) IsStale(ctx context.Context) bool {
	s := e.session
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.stale()
}

func (e *element) Clickable(ctx context.Context) (bool, error) {
	s := e.session
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	return !e.stale() && e.kind == kindNext, nil
}
