package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/models"
)

func TestReadKeywordsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	content := "# 关键词列表\n蔡徐坤\n\n  原神  \n蔡徐坤\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	keywords, err := ReadKeywordsFromFile(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(keywords) != 2 || keywords[0] != "蔡徐坤" || keywords[1] != "原神" {
		t.Errorf("关键词解析错误: %v", keywords)
	}
}

func TestReadKeywordsFromFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	os.WriteFile(path, []byte("# only comment\n\n"), 0644)

	if _, err := ReadKeywordsFromFile(path); err == nil {
		t.Error("没有有效关键词时应返回错误")
	}
	if _, err := ReadKeywordsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}

func TestReporter_GenerateReport(t *testing.T) {
	dir := t.TempDir()
	report := models.NewRunReport("测试", time.Now())
	report.Status = models.RunStatusCompleted

	path, err := NewReporter(dir).GenerateReport(report)
	if err != nil {
		t.Fatalf("生成报告失败: %v", err)
	}
	if filepath.Base(path) != "run_"+report.RunID+".json" {
		t.Errorf("报告文件名错误: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("报告文件不存在: %v", err)
	}
}
