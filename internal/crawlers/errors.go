package crawlers

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport 网络失败或非成功状态码
	ErrTransport = errors.New("传输失败")

	// ErrMalformedResponse 响应可读但不符合预期结构
	ErrMalformedResponse = errors.New("响应格式错误")

	// ErrUIInteraction 页面元素操作失败
	ErrUIInteraction = errors.New("页面交互失败")

	// ErrPageTransitionTimeout 翻页后未能确认新页面
	ErrPageTransitionTimeout = errors.New("翻页超时")

	// ErrElementNotFound 定位器没有匹配到任何元素
	ErrElementNotFound = errors.New("元素不存在")
)

// FetchError 单个请求的失败详情
type FetchError struct {
	Kind   error // ErrTransport 或 ErrMalformedResponse
	URL    string
	Status int // 0 表示没有拿到响应
	Cause  error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%v [%s]", e.Kind, e.URL)
	if e.Status != 0 {
		msg += fmt.Sprintf(" 状态码=%d", e.Status)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Is 支持 errors.Is(err, ErrTransport) 这类判断
func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap 返回底层原因
func (e *FetchError) Unwrap() error {
	return e.Cause
}

func transportError(url string, status int, cause error) *FetchError {
	return &FetchError{Kind: ErrTransport, URL: url, Status: status, Cause: cause}
}

func malformedError(url string, cause error) *FetchError {
	return &FetchError{Kind: ErrMalformedResponse, URL: url, Cause: cause}
}

// ErrorKind 错误分类标签, 用于日志和指标
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrUIInteraction), errors.Is(err, ErrElementNotFound):
		return "ui"
	case errors.Is(err, ErrPageTransitionTimeout):
		return "timeout"
	default:
		return "unknown"
	}
}

var (
	errEmptyResponse = errors.New("没有收到响应")
	errBadStatus     = errors.New("非 2xx 状态码")
	errNoCID         = errors.New("页面中没有 cid")
	errNoRoot        = errors.New("弹幕文档缺少根元素 <i>")
	errNoComments    = errors.New("弹幕文档中没有 <d> 元素")
)
