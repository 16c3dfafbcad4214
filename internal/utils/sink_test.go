package utils

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("打开输出文件失败: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestBarrageSink_AppendFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "barrage.json")
	sink, err := OpenBarrageSink(path)
	if err != nil {
		t.Fatalf("打开输出失败: %v", err)
	}

	if err := sink.Append([]string{"前方高能", "<b>&"}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if err := sink.Append(nil); err != nil {
		t.Fatalf("写入空列表失败: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("期望 2 行, 实际 %d 行", len(lines))
	}
	if lines[0] != `["前方高能","<b>&"]` {
		t.Errorf("中文和特殊字符应原样输出, 实际: %s", lines[0])
	}
	if lines[1] != `[]` {
		t.Errorf("空列表应输出 [], 实际: %s", lines[1])
	}
}

func TestBarrageSink_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barrage.json")

	for i := 0; i < 2; i++ {
		sink, err := OpenBarrageSink(path)
		if err != nil {
			t.Fatalf("打开输出失败: %v", err)
		}
		if err := sink.Append([]string{"a"}); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
		sink.Close()
	}

	if lines := readLines(t, path); len(lines) != 2 {
		t.Errorf("重复打开应追加写入, 期望 2 行, 实际 %d 行", len(lines))
	}
}

func TestBarrageSink_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barrage.json")
	sink, err := OpenBarrageSink(path)
	if err != nil {
		t.Fatalf("打开输出失败: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Append([]string{"并发", "写入"})
		}()
	}
	wg.Wait()
	sink.Close()

	if sink.Lines() != 20 {
		t.Errorf("期望写入 20 行, 实际 %d", sink.Lines())
	}
	for _, line := range readLines(t, path) {
		var texts []string
		if err := json.Unmarshal([]byte(line), &texts); err != nil {
			t.Fatalf("行内容不是合法JSON: %s", line)
		}
	}

	if err := sink.Append([]string{"x"}); err == nil {
		t.Error("关闭后写入应返回错误")
	}
}
