package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHeaderConfigLoader_GeneratesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "headers.yaml")
	loader := NewHeaderConfigLoader(path)

	headers, err := loader.LoadHeaders()
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if len(headers) != 0 {
		t.Errorf("模板中不应有生效的头部, 实际: %v", headers)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("模板未生成: %v", err)
	}
	if !strings.Contains(string(data), "headers:") {
		t.Error("模板内容缺少 headers 节")
	}
}

func TestHeaderConfigLoader_LoadHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headers.yaml")
	content := "headers:\n  Cookie: \"SESSDATA=abc\"\n  x-custom: \"1\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	headers, err := NewHeaderConfigLoader(path).LoadHeaders()
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if got := headers.Get("Cookie"); got != "SESSDATA=abc" {
		t.Errorf("Cookie 错误: %q", got)
	}
	if _, ok := headers["X-Custom"]; !ok {
		t.Errorf("头部名称应规范化, 实际: %v", headers)
	}
}

func TestHeaderConfigLoader_Errors(t *testing.T) {
	t.Run("YAML格式错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte("headers: [unclosed"), 0644)
		if _, err := NewHeaderConfigLoader(path).Load(); err == nil {
			t.Error("期望解析错误")
		}
	})

	t.Run("文件过大", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "big.yaml")
		os.WriteFile(path, make([]byte, MaxHeadersFileSize+1), 0644)
		if _, err := NewHeaderConfigLoader(path).Load(); err == nil {
			t.Error("期望文件过大错误")
		}
	})

	t.Run("默认路径", func(t *testing.T) {
		if NewHeaderConfigLoader("").Path() != DefaultHeadersFile {
			t.Error("空路径应使用默认路径")
		}
	})
}
