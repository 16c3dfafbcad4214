package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	"github.com/RecoveryAshes/bilispy/internal/models"
	"github.com/RecoveryAshes/bilispy/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultHeadersFile 请求头配置文件默认路径
	DefaultHeadersFile = "configs/headers.yaml"

	// MaxHeadersFileSize 请求头配置文件最大大小 (1MB)
	MaxHeadersFileSize = 1 * 1024 * 1024
)

//go:embed headers_template.yaml
var headersTemplate string

// HeaderConfigLoader 请求头配置文件加载器
type HeaderConfigLoader struct {
	path string
}

// NewHeaderConfigLoader 创建加载器, path 为空时使用默认路径
func NewHeaderConfigLoader(path string) *HeaderConfigLoader {
	if path == "" {
		path = DefaultHeadersFile
	}
	return &HeaderConfigLoader{path: path}
}

// Path 配置文件路径
func (l *HeaderConfigLoader) Path() string {
	return l.path
}

// Template 内置模板内容
func Template() string {
	return headersTemplate
}

// EnsureExists 文件不存在时写入内置模板
func (l *HeaderConfigLoader) EnsureExists() error {
	_, err := os.Stat(l.path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("无法访问请求头配置 [%s]: %w", l.path, err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}
	if err := os.WriteFile(l.path, []byte(headersTemplate), 0644); err != nil {
		return fmt.Errorf("无法生成请求头配置 [%s]: %w", l.path, err)
	}
	utils.Infof("已生成请求头配置模板: %s", l.path)
	return nil
}

func (l *HeaderConfigLoader) checkSize() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return &models.ConfigError{FilePath: l.path, Cause: err}
	}
	if info.Size() > MaxHeadersFileSize {
		return &models.ConfigError{
			FilePath: l.path,
			Cause:    fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxHeadersFileSize),
		}
	}
	return nil
}

// Load 读取 headers.yaml
// 文件被其他进程锁定时返回空配置, 调用方退回到默认头部
func (l *HeaderConfigLoader) Load() (*models.HeaderConfig, error) {
	if err := l.EnsureExists(); err != nil {
		return nil, err
	}
	if err := l.checkSize(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("请求头配置被锁定 [%s], 使用默认头部", l.path)
			return &models.HeaderConfig{Headers: map[string]string{}}, nil
		}
		return nil, &models.ConfigError{FilePath: l.path, Cause: err}
	}

	var cfg models.HeaderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{FilePath: l.path, Cause: fmt.Errorf("配置绑定失败: %w", err)}
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return &cfg, nil
}

// LoadHeaders 读取并转换为 http.Header
// viper 会把键转成小写, 这里用 CanonicalHeaderKey 还原
func (l *HeaderConfigLoader) LoadHeaders() (http.Header, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	headers := make(http.Header, len(cfg.Headers))
	for name, value := range cfg.Headers {
		headers.Set(http.CanonicalHeaderKey(name), value)
	}
	return headers, nil
}
