package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/bilispy/internal/config"
	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
)

// 浏览器风格的默认请求头
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/91.0.4472.124 Safari/537.36"
	DefaultAcceptLanguage = "zh-CN,zh;q=0.9"
	DefaultAcceptEncoding = "gzip, deflate, br"
	DefaultReferer        = "https://www.bilibili.com/"
)

// HeaderManager 合并并校验请求头, 实现 models.HeaderProvider
// 优先级: 内置默认 < headers.yaml < 命令行 -H
type HeaderManager struct {
	defaults http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	mu     sync.Mutex
	file   http.Header
	merged http.Header // 校验通过后的缓存
}

// NewHeaderManager 创建头部管理器
// configFile 为空时使用 configs/headers.yaml; cliHeaders 格式错误时返回错误
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}
	return &HeaderManager{
		defaults:     DefaultHeaders(),
		cli:          cli,
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}, nil
}

// DefaultHeaders 内置默认请求头
func DefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{DefaultUserAgent},
		"Accept-Language": []string{DefaultAcceptLanguage},
		"Accept-Encoding": []string{DefaultAcceptEncoding},
		"Referer":         []string{DefaultReferer},
	}
}

// GetHeaders 返回合并后的请求头副本
// 第一次调用时加载配置文件并校验, 结果缓存供所有worker共用
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.merged != nil {
		return hm.merged.Clone(), nil
	}

	if hm.file == nil {
		file, err := hm.configLoader.LoadHeaders()
		if err != nil {
			utils.Errorf("加载请求头配置失败: %v", err)
			return nil, err
		}
		hm.file = file
		if len(file) > 0 {
			utils.Debugf("加载了%d个自定义请求头: %s", len(file), hm.redactor.RedactToString(file))
		}
	}

	for _, layer := range []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.file},
		{"命令行", hm.cli},
	} {
		if err := hm.validator.Validate(layer.headers); err != nil {
			utils.Errorf("%s请求头校验失败: %v", layer.name, err)
			return nil, err
		}
	}

	hm.merged = merge(hm.defaults, hm.file, hm.cli)
	utils.Debugf("生效的请求头: %s", hm.redactor.RedactToString(hm.merged))
	return hm.merged.Clone(), nil
}

// SafeHeaders 脱敏后的生效请求头, 用于展示
func (hm *HeaderManager) SafeHeaders() (map[string]string, error) {
	headers, err := hm.GetHeaders()
	if err != nil {
		return nil, err
	}
	return hm.redactor.Redact(headers), nil
}

// merge 后面的层整体覆盖前面同名的头部
func merge(layers ...http.Header) http.Header {
	result := make(http.Header)
	for _, layer := range layers {
		for name, values := range layer {
			result[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}
	return result
}
