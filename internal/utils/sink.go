package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// BarrageSink 弹幕输出文件
//
// 每个成功处理的视频追加一行 JSON 字符串数组, 下游按行读取, 格式不可更改.
// 可被多个抓取worker并发调用.
type BarrageSink struct {
	path  string
	file  *os.File
	lines int
	mu    sync.Mutex
}

// OpenBarrageSink 以追加模式打开输出文件, 不存在则创建
func OpenBarrageSink(path string) (*BarrageSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}
	return &BarrageSink{path: path, file: file}, nil
}

// Append 写入一行弹幕
func (s *BarrageSink) Append(texts []string) error {
	if texts == nil {
		texts = []string{}
	}

	// 与原样中文输出一致: 不转义 <, >, &
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(texts); err != nil {
		return fmt.Errorf("序列化弹幕失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("输出文件已关闭: %s", s.path)
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	s.lines++
	return nil
}

// Lines 本次打开后写入的行数
func (s *BarrageSink) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines
}

// Path 输出文件路径
func (s *BarrageSink) Path() string {
	return s.path
}

// Close 关闭文件, 可重复调用
func (s *BarrageSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
