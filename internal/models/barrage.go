package models

import (
	"strconv"
	"strings"
)

// Barrage 弹幕流文档中的一条弹幕
//
// 弹幕流的结构为 <i><d p="...">文本</d>...</i>, p 属性依次为:
// 出现时间(秒), 模式, 字号, 颜色, 发送时间戳, 弹幕池, 用户哈希, 行ID
type Barrage struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset"`
	Mode     int     `json:"mode"`
	FontSize int     `json:"font_size"`
	Color    int     `json:"color"`
	SentAt   int64   `json:"sent_at"`
	Pool     int     `json:"pool"`
	UserHash string  `json:"user_hash"`
	RowID    string  `json:"row_id"`

	// Attr 原始 p 属性
	Attr string `json:"attr,omitempty"`
}

// NewBarrage 由文本和 p 属性构造弹幕
// 元数据格式不对时只保留能解析的部分, 从不返回错误
func NewBarrage(text, attr string) Barrage {
	b := Barrage{Text: text, Attr: attr}
	if attr == "" {
		return b
	}

	fields := strings.Split(attr, ",")
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	b.Offset, _ = strconv.ParseFloat(field(0), 64)
	b.Mode, _ = strconv.Atoi(field(1))
	b.FontSize, _ = strconv.Atoi(field(2))
	b.Color, _ = strconv.Atoi(field(3))
	b.SentAt, _ = strconv.ParseInt(field(4), 10, 64)
	b.Pool, _ = strconv.Atoi(field(5))
	b.UserHash = field(6)
	b.RowID = field(7)
	return b
}

// Texts 按文档顺序取出弹幕文本
func Texts(barrages []Barrage) []string {
	texts := make([]string, 0, len(barrages))
	for _, b := range barrages {
		texts = append(texts, b.Text)
	}
	return texts
}
