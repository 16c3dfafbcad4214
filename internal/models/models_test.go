package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewBarrage(t *testing.T) {
	tests := []struct {
		name string
		attr string
		want Barrage
	}{
		{
			name: "完整元数据",
			attr: "12.345,1,25,16777215,1700000000,0,abcd1234,998877",
			want: Barrage{Offset: 12.345, Mode: 1, FontSize: 25, Color: 16777215, SentAt: 1700000000, Pool: 0, UserHash: "abcd1234", RowID: "998877"},
		},
		{
			name: "字段不足",
			attr: "3.5,4",
			want: Barrage{Offset: 3.5, Mode: 4},
		},
		{
			name: "非数字字段",
			attr: "x,y,25",
			want: Barrage{FontSize: 25},
		},
		{
			name: "没有属性",
			attr: "",
			want: Barrage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBarrage("弹幕", tt.attr)
			tt.want.Text = "弹幕"
			tt.want.Attr = tt.attr
			if got != tt.want {
				t.Errorf("期望 %+v, 实际 %+v", tt.want, got)
			}
		})
	}
}

func TestTexts(t *testing.T) {
	barrages := []Barrage{NewBarrage("第一", ""), NewBarrage("", ""), NewBarrage("第三", "")}
	texts := Texts(barrages)
	if len(texts) != 3 || texts[0] != "第一" || texts[1] != "" || texts[2] != "第三" {
		t.Errorf("文本顺序或内容错误: %v", texts)
	}
	if texts := Texts(nil); texts == nil || len(texts) != 0 {
		t.Error("空输入应返回空切片")
	}
}

func TestIsValidVideoURL(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{"https://www.bilibili.com/video/BV1xx411c7mD", true},
		{"https://www.bilibili.com/video/BV1xx411c7mD/?spm_id_from=333.337", true},
		{"//www.bilibili.com/video/BV1xx411c7mD", false},
		{"http://www.bilibili.com/video/BV1xx411c7mD", false},
		{"https://www.bilibili.com/bangumi/play/ep1", false},
		{"https://www.bilibili.com/video/av170001", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidVideoURL(tt.href); got != tt.want {
			t.Errorf("IsValidVideoURL(%q) = %v, 期望 %v", tt.href, got, tt.want)
		}
	}
}

func TestCliHeaders_Parse(t *testing.T) {
	headers, err := CliHeaders{"user-agent: Bot/1.0", "Cookie:  a=b:c "}.Parse()
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if headers.Get("User-Agent") != "Bot/1.0" {
		t.Errorf("User-Agent错误: %q", headers.Get("User-Agent"))
	}
	if headers.Get("Cookie") != "a=b:c" {
		t.Errorf("值中的冒号应保留: %q", headers.Get("Cookie"))
	}

	for _, bad := range []string{"NoColon", ": value"} {
		if _, err := (CliHeaders{bad}).Parse(); err == nil {
			t.Errorf("期望 %q 解析失败", bad)
		}
	}
}

func TestRunStats_Merge(t *testing.T) {
	total := RunStats{}
	total.Merge(RunStats{Pages: 2, Processed: 3, Comments: 30, FailuresByKind: map[string]int{"transport": 1}})
	total.Merge(RunStats{Pages: 1, Skipped: 2, FailuresByKind: map[string]int{"transport": 1, "malformed": 1}})

	if total.Pages != 3 || total.Processed != 3 || total.Skipped != 2 || total.Comments != 30 {
		t.Errorf("合并结果错误: %+v", total)
	}
	if total.FailuresByKind["transport"] != 2 || total.FailuresByKind["malformed"] != 1 {
		t.Errorf("失败原因合并错误: %v", total.FailuresByKind)
	}
}

func TestRunReport_ToJSON(t *testing.T) {
	report := NewRunReport("大模型", time.Now())
	if report.RunID == "" || report.Status != RunStatusRunning {
		t.Fatalf("新报告状态错误: %+v", report)
	}

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("输出不是合法JSON: %v", err)
	}
	if decoded["keyword"] != "大模型" || decoded["status"] != "running" {
		t.Errorf("字段错误: %v", decoded)
	}
}
