package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadKeywordsFromFile 从文件读取搜索关键词, 每行一个
// 空行和 # 开头的注释行会被跳过, 重复关键词只保留第一次出现
func ReadKeywordsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开关键词文件失败: %w", err)
	}
	defer file.Close()

	keywords := make([]string, 0)
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			Debugf("跳过重复关键词: %s", line)
			continue
		}
		seen[line] = true
		keywords = append(keywords, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取关键词文件失败: %w", err)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("关键词文件中没有有效的关键词")
	}

	Infof("从文件加载了 %d 个关键词", len(keywords))
	return keywords, nil
}
