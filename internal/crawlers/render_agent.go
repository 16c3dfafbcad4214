package crawlers

import "context"

// Strategy 元素定位方式
type Strategy int

const (
	ByXPath Strategy = iota
	ByClass          // 单个 class 名
	ByCSS
)

func (s Strategy) String() string {
	switch s {
	case ByXPath:
		return "xpath"
	case ByClass:
		return "class"
	case ByCSS:
		return "css"
	default:
		return "unknown"
	}
}

// Locator 元素定位器
type Locator struct {
	Strategy Strategy
	Value    string
}

// XPath 构造 XPath 定位器
func XPath(expr string) Locator {
	return Locator{Strategy: ByXPath, Value: expr}
}

// Class 构造 class 定位器
func Class(name string) Locator {
	return Locator{Strategy: ByClass, Value: name}
}

// CSS 构造 CSS 选择器定位器
func CSS(selector string) Locator {
	return Locator{Strategy: ByCSS, Value: selector}
}

func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Value
}

// RenderAgent 一个浏览器渲染会话
//
// 会话不是并发安全的, 同一时刻只能有一个调用方操作它.
// 查找操作不等待, 没有匹配时立即返回 ErrElementNotFound.
type RenderAgent interface {
	Navigate(ctx context.Context, url string) error

	// ReadyState 返回 document.readyState, 如 "loading" / "complete"
	ReadyState(ctx context.Context) (string, error)

	FindElement(ctx context.Context, loc Locator) (ElementHandle, error)
	FindElements(ctx context.Context, loc Locator) ([]ElementHandle, error)

	// Close 释放会话, 可重复调用
	Close() error
}

// ElementHandle 页面元素的引用
// 页面内容被替换后引用会失效 (stale), 之后的操作返回错误
type ElementHandle interface {
	// FindElement 在当前元素内查找第一个匹配的元素
	FindElement(ctx context.Context, loc Locator) (ElementHandle, error)
	FindElements(ctx context.Context, loc Locator) ([]ElementHandle, error)

	// Attribute 读取属性, 不存在时返回 ""
	Attribute(ctx context.Context, name string) (string, error)

	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error

	// IsStale 元素已从文档中移除
	IsStale(ctx context.Context) bool

	// Clickable 元素可见且未禁用
	Clickable(ctx context.Context) (bool, error)
}
