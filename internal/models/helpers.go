package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// VideoURLPrefix 视频页的规范前缀, 搜索结果卡片中的链接只有以此开头才算有效候选
const VideoURLPrefix = "https://www.bilibili.com/video/BV"

// IsValidVideoURL 判断候选链接是否为视频页
func IsValidVideoURL(href string) bool {
	return strings.HasPrefix(href, VideoURLPrefix)
}

// ValidateURL 验证URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

func generateID() string {
	return uuid.New().String()
}
