package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodAgentConfig 浏览器会话配置
type RodAgentConfig struct {
	Headless bool
	Bin      string // 浏览器可执行文件, 为空时由launcher自动查找或下载
}

// RodAgent 基于 go-rod 的 RenderAgent 实现, 一个浏览器一个标签页
type RodAgent struct {
	browser   *rod.Browser
	page      *rod.Page
	closeOnce sync.Once
}

// LaunchRodAgent 启动浏览器并打开一个空白标签页
// headerProvider 不为空时使用其中的 User-Agent 和 Accept-Language
func LaunchRodAgent(config RodAgentConfig, headerProvider models.HeaderProvider) (*RodAgent, error) {
	l := launcher.New().Headless(config.Headless)
	if config.Bin != "" {
		l = l.Bin(config.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := connectBrowser(browser.Connect, l.Kill); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	if headerProvider != nil {
		headers, err := headerProvider.GetHeaders()
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("获取请求头失败: %w", err)
		}
		if ua := headers.Get("User-Agent"); ua != "" {
			err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
				UserAgent:      ua,
				AcceptLanguage: headers.Get("Accept-Language"),
			})
			if err != nil {
				utils.Warnf("设置浏览器User-Agent失败: %v", err)
			}
		}
	}

	utils.Debugf("浏览器已启动: %s (headless=%v)", controlURL, config.Headless)
	return &RodAgent{browser: browser, page: page}, nil
}

// Navigate 打开地址, 不等待页面加载完成
func (a *RodAgent) Navigate(ctx context.Context, url string) error {
	if err := a.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("打开页面失败 [%s]: %w", url, err)
	}
	return nil
}

// ReadyState 返回 document.readyState
func (a *RodAgent) ReadyState(ctx context.Context) (string, error) {
	res, err := a.page.Context(ctx).Eval(`() => document.readyState`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// FindElement 返回第一个匹配的元素
func (a *RodAgent) FindElement(ctx context.Context, loc Locator) (ElementHandle, error) {
	els, err := a.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}
	return els[0], nil
}

// FindElements 返回全部匹配的元素, 没有匹配时返回空切片
func (a *RodAgent) FindElements(ctx context.Context, loc Locator) ([]ElementHandle, error) {
	p := a.page.Context(ctx)

	var els rod.Elements
	var err error
	switch loc.Strategy {
	case ByXPath:
		els, err = p.ElementsX(loc.Value)
	case ByClass:
		els, err = p.Elements("." + loc.Value)
	default:
		els, err = p.Elements(loc.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("查找元素失败 [%s]: %w", loc, err)
	}
	return wrapElements(els), nil
}

// Close 关闭浏览器, 可重复调用
func (a *RodAgent) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.browser.Close()
		utils.Debugf("浏览器已关闭")
	})
	return err
}

type rodElement struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []ElementHandle {
	handles := make([]ElementHandle, 0, len(els))
	for _, el := range els {
		handles = append(handles, &rodElement{el: el})
	}
	return handles
}

func (e *rodElement) FindElement(ctx context.Context, loc Locator) (ElementHandle, error) {
	els, err := e.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}
	return els[0], nil
}

func (e *rodElement) FindElements(ctx context.Context, loc Locator) ([]ElementHandle, error) {
	el := e.el.Context(ctx)

	var els rod.Elements
	var err error
	switch loc.Strategy {
	case ByXPath:
		els, err = el.ElementsX(loc.Value)
	case ByClass:
		els, err = el.Elements("." + loc.Value)
	default:
		els, err = el.Elements(loc.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("查找元素失败 [%s]: %w", loc, err)
	}
	return wrapElements(els), nil
}

// Attribute 优先读取 DOM 属性 (href 为解析后的绝对地址), 取不到再读 HTML 特性
func (e *rodElement) Attribute(ctx context.Context, name string) (string, error) {
	el := e.el.Context(ctx)

	prop, err := el.Property(name)
	if err == nil && !prop.Nil() {
		if s := prop.Str(); s != "" {
			return s, nil
		}
	}

	attr, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if attr == nil {
		return "", nil
	}
	return *attr, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *rodElement) IsStale(ctx context.Context) bool {
	res, err := e.el.Context(ctx).Eval(`() => this.isConnected`)
	connected := false
	if err == nil {
		connected = res.Value.Bool()
	}
	return evalStale(ctx, connected, err)
}

// evalStale 由 isConnected 的求值结果判断元素是否失效
// 求值失败一般是节点已被回收; 但 ctx 结束导致的失败不能说明页面已切换
func evalStale(ctx context.Context, connected bool, err error) bool {
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return false
		}
		return true
	}
	return !connected
}

// connectBrowser 连接失败时结束已启动的浏览器进程
func connectBrowser(connect func() error, kill func()) error {
	if err := connect(); err != nil {
		kill()
		return err
	}
	return nil
}

func (e *rodElement) Clickable(ctx context.Context) (bool, error) {
	el := e.el.Context(ctx)

	visible, err := el.Visible()
	if err != nil || !visible {
		return false, err
	}
	disabled, err := el.Disabled()
	if err != nil {
		return false, err
	}
	return !disabled, nil
}
