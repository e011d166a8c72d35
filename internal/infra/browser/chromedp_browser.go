package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/crawleragent/internal/config"
	"github.com/LouYuanbo1/crawleragent/internal/flowcfg"
	"github.com/LouYuanbo1/crawleragent/internal/infra/capture"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type chromedpPage struct {
	requestCache  sync.Map
	allocCtx      context.Context
	allocCtxFuc   context.CancelFunc
	pageCtx       context.Context
	pageCtxFuc    context.CancelFunc
	timeoutCtxFuc context.CancelFunc
	stepTimeout   time.Duration
}

// InitChromedpPage 备用驱动: 基于chromedp创建页面
// proxyURL非空时通过--proxy-server走代理
func InitChromedpPage(ctx context.Context, cfg *config.Config, proxyURL string) Page {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Chromedp.Headless),
		chromedp.Flag("disable-blink-features", cfg.Chromedp.DisableBlinkFeatures),
		chromedp.Flag("incognito", cfg.Chromedp.Incognito),
		chromedp.Flag("disable-dev-shm-usage", cfg.Chromedp.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Chromedp.NoSandbox),
		chromedp.UserDataDir(cfg.Chromedp.UserDataDir),
		chromedp.UserAgent(cfg.Chromedp.UserAgent),
	)
	if proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, time.Duration(cfg.Chromedp.LifeTime)*time.Second)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	return &chromedpPage{
		allocCtx:      allocCtx,
		allocCtxFuc:   cancelAlloc,
		pageCtx:       pageCtx,
		pageCtxFuc:    cancelPage,
		timeoutCtxFuc: cancelTimeout,
		stepTimeout:   time.Duration(cfg.Poll.StepTimeout) * time.Millisecond,
	}
}

func (c *chromedpPage) Close() {
	c.pageCtxFuc()
	c.allocCtxFuc()
	c.timeoutCtxFuc()
}

func (c *chromedpPage) Navigate(url string) error {
	return chromedp.Run(c.pageCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second),
	)
}

// query 把定位器转成chromedp查询
func query(loc flowcfg.Locator) (string, chromedp.QueryOption) {
	switch loc.Kind {
	case flowcfg.LocatorText:
		return loc.Value, chromedp.BySearch
	case flowcfg.LocatorRole:
		return fmt.Sprintf("[role=%q]", loc.Value), chromedp.ByQuery
	default:
		return loc.Value, chromedp.ByQuery
	}
}

func (c *chromedpPage) run(timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(c.pageCtx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

func (c *chromedpPage) Click(loc flowcfg.Locator, timeout time.Duration) error {
	q, opt := query(loc)
	return c.run(timeout, chromedp.Click(q, opt))
}

func (c *chromedpPage) Fill(loc flowcfg.Locator, value string, timeout time.Duration) error {
	q, opt := query(loc)
	return c.run(timeout, chromedp.Clear(q, opt), chromedp.SendKeys(q, value, opt))
}

func (c *chromedpPage) WaitVisible(loc flowcfg.Locator, timeout time.Duration) error {
	q, opt := query(loc)
	return c.run(timeout, chromedp.WaitVisible(q, opt))
}

func (c *chromedpPage) Eval(js string, timeout time.Duration) (string, error) {
	var result string
	// js是零参函数表达式;rod侧由Evaluate自动调用,这里要显式包一层调用,
	// 否则Runtime.evaluate得到的是函数对象本身,Promise永远不会产生
	err := c.run(timeout, chromedp.Evaluate(invokeFnExpr(js), &result,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return "", fmt.Errorf("页面内JS执行失败: %w", err)
	}
	return result, nil
}

func (c *chromedpPage) Rows(selector string) ([]Row, error) {
	var count int
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	if err := c.run(c.stepTimeout, chromedp.Evaluate(js, &count)); err != nil {
		return nil, err
	}
	rows := make([]Row, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, &chromedpRow{page: c, rowSelector: selector, index: i})
	}
	return rows, nil
}

func (c *chromedpPage) FrameRowsText(vendorHints []string, filterTexts []string, rowSelector string) ([]string, error) {
	hints := make([]string, 0, len(vendorHints))
	for _, h := range vendorHints {
		hints = append(hints, fmt.Sprintf("%q", strings.ToLower(h)))
	}
	filters := make([]string, 0, len(filterTexts))
	for _, t := range filterTexts {
		filters = append(filters, fmt.Sprintf("%q", t))
	}
	// 只能访问同源iframe,跨域frame由rod驱动负责
	// 过滤项点击在选定的frame文档内完成,再采行文本
	js := fmt.Sprintf(`(() => {
		const hints = [%s];
		const filters = [%s];
		let doc = null, best = null, bestArea = 0;
		for (const f of document.querySelectorAll('iframe')) {
			let d = null;
			try { d = f.contentDocument; } catch (e) { continue; }
			if (!d) continue;
			const src = (f.src || '').toLowerCase();
			if (hints.some(h => src.includes(h))) { doc = d; break; }
			const area = f.offsetWidth * f.offsetHeight;
			if (area > bestArea) { bestArea = area; best = d; }
		}
		doc = doc || best || document;
		for (const t of filters) {
			const el = Array.from(doc.querySelectorAll('a,button,span,div,li'))
				.find(e => e.innerText && e.innerText.trim() === t);
			if (el) el.click();
		}
		return Array.from(doc.querySelectorAll(%q)).map(e => e.innerText);
	})()`, strings.Join(hints, ","), strings.Join(filters, ","), rowSelector)

	var texts []string
	if err := c.run(c.stepTimeout*2, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, err
	}
	return texts, nil
}

func (c *chromedpPage) PageText() (string, error) {
	var text string
	if err := c.run(c.stepTimeout*2, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (c *chromedpPage) Screenshot(path string) error {
	var buf []byte
	if err := c.run(10*time.Second, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// SetNetworkListener CDP两段监听:
// EventResponseReceived缓存命中的requestID, EventLoadingFinished后再取响应体
func (c *chromedpPage) SetNetworkListener(patterns []string, ch chan<- *capture.Response) {
	matches := func(url string) bool {
		for _, p := range patterns {
			if strings.Contains(url, p) {
				return true
			}
		}
		return false
	}
	chromedp.ListenTarget(c.pageCtx, func(ev any) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			if matches(ev.Response.URL) {
				c.requestCache.Store(ev.RequestID, ev.Response.URL)
			}
		case *network.EventLoadingFinished:
			if cached, ok := c.requestCache.Load(ev.RequestID); ok {
				c.requestCache.Delete(ev.RequestID)
				if url, ok := cached.(string); ok {
					go c.fetchResponseBody(ev.RequestID, url, ch)
				}
			}
		}
	})
}

func (c *chromedpPage) fetchResponseBody(requestID network.RequestID, url string, ch chan<- *capture.Response) {
	exec := chromedp.FromContext(c.pageCtx)
	ctx := cdp.WithExecutor(c.pageCtx, exec.Target)
	body, err := network.GetResponseBody(requestID).Do(ctx)
	if err != nil {
		zap.L().Debug("获取响应体失败",
			zap.String("request_id", string(requestID)), zap.Error(err))
		select {
		case ch <- &capture.Response{URL: url, Miss: true}:
		default:
		}
		return
	}
	if !capture.MatchesAPIPath(url) {
		return
	}
	select {
	case ch <- &capture.Response{URL: url, Body: body}:
	default:
		zap.L().Warn("捕获通道已满,丢弃响应", zap.String("url", url))
	}
}

type chromedpRow struct {
	page        *chromedpPage
	rowSelector string
	index       int
}

func (row *chromedpRow) Text() (string, error) {
	js := fmt.Sprintf(`(() => {
		const r = document.querySelectorAll(%q)[%d];
		return r ? r.innerText : "";
	})()`, row.rowSelector, row.index)
	var text string
	if err := row.page.run(row.page.stepTimeout, chromedp.Evaluate(js, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (row *chromedpRow) FieldText(spec flowcfg.FieldSpec, timeout time.Duration) (*string, error) {
	js := fmt.Sprintf(`(() => {
		const r = document.querySelectorAll(%q)[%d];
		if (!r) return null;
		const texts = Array.from(r.querySelectorAll(%q))
			.map(e => e.innerText.trim())
			.filter(t => t);
		if (!texts.length) return null;
		return %q === "textall" ? texts.join(%q) : texts[0];
	})()`, row.rowSelector, row.index, spec.Selector, string(spec.Mode), textAllDelim)

	var text *string
	if err := row.page.run(timeout, chromedp.Evaluate(js, &text)); err != nil {
		return nil, err
	}
	return text, nil
}
