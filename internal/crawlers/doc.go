// Package crawlers 实现搜索结果分页和弹幕抓取
//
// # 概述
//
// 抓取分两条线: 浏览器线 (go-rod) 打开搜索页, 逐页读取视频卡片并点击"下一页";
// HTTP线 (colly) 请求视频页取出 cid, 再下载并解析弹幕流 XML.
//
// # 核心组件
//
// ## RenderAgent / RodAgent
//
// RenderAgent 是浏览器会话的最小能力集合: 打开地址, 读取 readyState, 查找元素,
// 点击, 滚动, 判断元素是否失效. RodAgent 是基于 go-rod 的实现, 测试中使用
// rendertest 包提供的模拟会话.
//
// ## ReadinessWaiter
//
// 按固定间隔轮询, 直到文档加载完成且条件成立, 或超时. 只返回 true/false.
//
//	waiter := NewReadinessWaiter(agent, 500*time.Millisecond)
//	ok := waiter.Wait(ctx, 15*time.Second, ElementPresent(ResultListLocator))
//
// ## SearchPaginator
//
// 独占一个浏览器会话, 以 iter.Seq 的形式产出有效视频链接. 翻页是循环而不是递归,
// 页数再多也不会增加调用栈深度. "下一页"不可点击或翻页确认失败时序列结束.
//
//	paginator := NewSearchPaginator(agent, "关键词", DefaultPaginatorConfig())
//	defer paginator.Stop()
//	for videoURL := range paginator.Query(ctx) {
//	    ...
//	}
//
// ## PageClient / BarrageFetcher
//
// PageClient 带统一请求头发起 GET, 处理 br/deflate 压缩并共享限速器.
// BarrageFetcher 对单个视频执行两段请求, Fetch 只返回成功与否, Get 返回按文档
// 顺序排列的弹幕文本.
//
//	fetcher := NewBarrageFetcher(videoURL, client, DefaultCommentBaseURL)
//	if fetcher.Fetch(ctx) {
//	    texts := fetcher.Get()
//	}
//
// # 错误处理
//
// 失败按 ErrTransport, ErrMalformedResponse, ErrUIInteraction, ErrPageTransitionTimeout
// 分类, ErrorKind 把错误映射为日志和指标使用的标签. 组件边界上不返回这些错误,
// 只返回布尔结果.
//
// # 并发安全
//
//   - RenderAgent / SearchPaginator: 只能在一个 goroutine 中使用
//   - PageClient: 并发安全, 多个worker共享
//   - BarrageFetcher: 每个视频一个实例, 方法加锁
package crawlers
