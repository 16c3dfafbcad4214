package crawlers_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/RecoveryAshes/bilispy/internal/crawlers"
	"github.com/RecoveryAshes/bilispy/internal/crawlers/rendertest"
)

func testConfig() crawlers.PaginatorConfig {
	return crawlers.PaginatorConfig{SearchURL: crawlers.DefaultSearchURL}
}

func video(page, i int) rendertest.Card {
	return rendertest.Card{Href: fmt.Sprintf("https://www.bilibili.com/video/BV%d_%d", page, i)}
}

func TestSearchPaginator_StartIdempotent(t *testing.T) {
	session := rendertest.FromPages([]rendertest.Card{video(1, 1)})
	p := crawlers.NewSearchPaginator(session, "测试 关键词", testConfig())

	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)

	navs := session.Navigations()
	if len(navs) != 1 {
		t.Fatalf("期望只打开一次搜索页, 实际 %d 次", len(navs))
	}
	if !strings.HasPrefix(navs[0], "https://search.bilibili.com/all?keyword=") {
		t.Errorf("搜索地址错误: %s", navs[0])
	}
	if p.State() != crawlers.StateLoaded {
		t.Errorf("期望状态 loaded, 实际 %s", p.State())
	}
}

func TestSearchPaginator_ProduceCandidatesSkipsBadCards(t *testing.T) {
	session := rendertest.FromPages([]rendertest.Card{
		video(1, 1),
		{NoAnchor: true},
		{Href: "https://www.bilibili.com/bangumi/play/ep1"},
		{Href: ""},
		{Href: "https://www.bilibili.com/video/BVx", AttrErr: true},
		video(1, 2),
	})
	p := crawlers.NewSearchPaginator(session, "k", testConfig())
	ctx := context.Background()
	p.Start(ctx)

	var got []string
	for href := range p.ProduceCandidates(ctx) {
		got = append(got, href)
	}

	want := []string{video(1, 1).Href, video(1, 2).Href}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("期望 %v, 实际 %v", want, got)
	}
	if p.Candidates() != 2 {
		t.Errorf("候选计数错误: %d", p.Candidates())
	}
}

func TestSearchPaginator_QueryVisitsAllPages(t *testing.T) {
	tests := []struct {
		name   string
		clicks int
	}{
		{"单页", 0},
		{"三页", 2},
		{"一万次翻页", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := rendertest.New(tt.clicks, func(page int) []rendertest.Card {
				return []rendertest.Card{video(page, 1)}
			})
			p := crawlers.NewSearchPaginator(session, "k", testConfig())
			defer p.Stop()

			pages := make(map[string]bool)
			count := 0
			for href := range p.Query(context.Background()) {
				pages[href] = true
				count++
			}

			if count != tt.clicks+1 || len(pages) != tt.clicks+1 {
				t.Errorf("期望 %d 页的候选, 实际 %d 个 (去重 %d)", tt.clicks+1, count, len(pages))
			}
			if p.State() != crawlers.StateExhausted {
				t.Errorf("期望状态 exhausted, 实际 %s", p.State())
			}
			if p.Page() != tt.clicks+1 {
				t.Errorf("期望停在第 %d 页, 实际 %d", tt.clicks+1, p.Page())
			}
			if session.ClickCount() != tt.clicks {
				t.Errorf("期望点击 %d 次, 实际 %d", tt.clicks, session.ClickCount())
			}
		})
	}
}

func TestSearchPaginator_QueryEarlyBreak(t *testing.T) {
	session := rendertest.New(5, func(page int) []rendertest.Card {
		return []rendertest.Card{video(page, 1), video(page, 2)}
	})
	p := crawlers.NewSearchPaginator(session, "k", testConfig())

	count := 0
	for range p.Query(context.Background()) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("期望在第3个候选处停止, 实际 %d", count)
	}
	if session.ClickCount() != 1 {
		t.Errorf("提前停止后不应继续翻页, 实际点击 %d 次", session.ClickCount())
	}
}

func TestSearchPaginator_MaxPages(t *testing.T) {
	session := rendertest.New(10, func(page int) []rendertest.Card {
		return []rendertest.Card{video(page, 1)}
	})
	config := testConfig()
	config.MaxPages = 3
	p := crawlers.NewSearchPaginator(session, "k", config)

	count := 0
	for range p.Query(context.Background()) {
		count++
	}
	if count != 3 {
		t.Errorf("期望3页候选, 实际 %d", count)
	}
}

func TestSearchPaginator_ClickFailureEndsPagination(t *testing.T) {
	session := rendertest.New(3, func(page int) []rendertest.Card {
		return []rendertest.Card{video(page, 1)}
	})
	session.ClickErr = errors.New("click intercepted")
	p := crawlers.NewSearchPaginator(session, "k", testConfig())

	count := 0
	for range p.Query(context.Background()) {
		count++
	}
	if count != 1 {
		t.Errorf("点击失败后应结束分页, 实际产出 %d 个", count)
	}
	if !errors.Is(p.Err(), crawlers.ErrUIInteraction) {
		t.Errorf("期望 ErrUIInteraction, 实际 %v", p.Err())
	}
	if crawlers.ErrorKind(p.Err()) != "ui" {
		t.Errorf("错误分类错误: %s", crawlers.ErrorKind(p.Err()))
	}
}

func TestSearchPaginator_ContextCancelled(t *testing.T) {
	session := rendertest.New(100, func(page int) []rendertest.Card {
		return []rendertest.Card{video(page, 1)}
	})
	p := crawlers.NewSearchPaginator(session, "k", testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	count := 0
	for range p.Query(ctx) {
		count++
		if count == 2 {
			cancel()
		}
	}
	if count != 2 {
		t.Errorf("取消后不应继续产出, 实际 %d", count)
	}
}

func TestSearchPaginator_StopOnce(t *testing.T) {
	session := rendertest.FromPages(nil)
	p := crawlers.NewSearchPaginator(session, "k", testConfig())
	p.Stop()
	p.Stop()
	if session.Closes() != 1 {
		t.Errorf("期望关闭一次, 实际 %d", session.Closes())
	}
}

func TestSearchPaginator_StaleFallback(t *testing.T) {
	session := rendertest.New(2, func(page int) []rendertest.Card {
		return []rendertest.Card{video(page, 1)}
	})
	session.KeepNextAlive = true
	p := crawlers.NewSearchPaginator(session, "k", testConfig())

	var got []string
	for href := range p.Query(context.Background()) {
		got = append(got, href)
	}

	if len(got) != 3 || got[2] != video(3, 1).Href {
		t.Errorf("旧按钮未失效但结果列表存在时应继续翻页, 实际 %v", got)
	}
	if session.ClickCount() != 2 || p.Page() != 3 {
		t.Errorf("期望点击 2 次停在第3页, 实际点击 %d 次, 第%d页", session.ClickCount(), p.Page())
	}
	if p.Err() != nil {
		t.Errorf("正常结束不应有错误: %v", p.Err())
	}
}

func TestSearchPaginator_TransitionTimeout(t *testing.T) {
	session := rendertest.New(3, func(page int) []rendertest.Card {
		return []rendertest.Card{video(page, 1)}
	})
	session.KeepNextAlive = true
	session.NoListFrom = 2
	p := crawlers.NewSearchPaginator(session, "k", testConfig())

	count := 0
	for range p.Query(context.Background()) {
		count++
	}

	if count != 1 {
		t.Errorf("翻页确认失败后应结束分页, 实际产出 %d 个", count)
	}
	if !errors.Is(p.Err(), crawlers.ErrPageTransitionTimeout) {
		t.Errorf("期望 ErrPageTransitionTimeout, 实际 %v", p.Err())
	}
	if p.State() != crawlers.StateExhausted || p.Page() != 1 {
		t.Errorf("期望停在第1页且状态为 exhausted, 实际第%d页 %s", p.Page(), p.State())
	}
}

func TestSearchPaginator_ScrollFailureStillClicks(t *testing.T) {
	tests := []struct {
		name          string
		keepNextAlive bool
	}{
		{"按钮失效", false},
		{"按钮不失效", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := rendertest.New(2, func(page int) []rendertest.Card {
				return []rendertest.Card{video(page, 1)}
			})
			session.ScrollErr = errors.New("element not scrollable")
			session.KeepNextAlive = tt.keepNextAlive
			p := crawlers.NewSearchPaginator(session, "k", testConfig())

			count := 0
			for range p.Query(context.Background()) {
				count++
			}

			if session.ClickCount() != 2 {
				t.Errorf("滚动失败不应阻止点击, 期望点击 2 次, 实际 %d", session.ClickCount())
			}
			if count != 3 || p.Page() != 3 {
				t.Errorf("期望3页候选, 实际 %d 个, 第%d页", count, p.Page())
			}
			if p.State() != crawlers.StateExhausted {
				t.Errorf("期望状态 exhausted, 实际 %s", p.State())
			}
		})
	}
}
