package browser

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/LouYuanbo1/crawleragent/internal/config"
	"github.com/LouYuanbo1/crawleragent/internal/flowcfg"
	"github.com/LouYuanbo1/crawleragent/internal/infra/capture"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

type rodPage struct {
	browser     *rod.Browser
	page        *rod.Page
	router      *rod.HijackRouter
	navTimeout  time.Duration
	stepTimeout time.Duration
}

// InitRodPage 启动rod浏览器并创建stealth页面
// proxyURL非空时整个浏览器会话走该代理
func InitRodPage(cfg *config.Config, proxyURL string) (Page, error) {
	l := launcher.New().
		Headless(cfg.Rod.Headless).
		Leakless(cfg.Rod.Leakless)
	if cfg.Rod.Bin != "" {
		l = l.Bin(cfg.Rod.Bin)
	}
	if cfg.Rod.UserDataDir != "" {
		l = l.UserDataDir(cfg.Rod.UserDataDir)
	}
	if cfg.Rod.NoSandbox {
		l = l.NoSandbox(true)
	}
	if cfg.Rod.Incognito {
		l = l.Set("incognito")
	}
	if cfg.Rod.DisableDevShmUsage {
		l = l.Set("disable-dev-shm-usage")
	}
	if cfg.Rod.DisableBlinkFeatures != "" {
		l = l.Set("disable-blink-features", cfg.Rod.DisableBlinkFeatures)
	}
	if proxyURL != "" {
		l = l.Proxy(proxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("创建stealth页面失败: %w", err)
	}
	if cfg.Rod.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.Rod.UserAgent}); err != nil {
			zap.L().Warn("设置UserAgent失败", zap.Error(err))
		}
	}

	return &rodPage{
		browser:     b,
		page:        page,
		navTimeout:  time.Duration(cfg.Rod.NavigateTimeout) * time.Second,
		stepTimeout: time.Duration(cfg.Poll.StepTimeout) * time.Millisecond,
	}, nil
}

func (r *rodPage) Close() {
	if r.router != nil {
		if err := r.router.Stop(); err != nil {
			zap.L().Debug("停止拦截路由失败", zap.Error(err))
		}
	}
	if err := r.browser.Close(); err != nil {
		zap.L().Debug("关闭浏览器失败", zap.Error(err))
	}
}

func (r *rodPage) Navigate(url string) error {
	if err := r.page.Timeout(r.navTimeout).Navigate(url); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	if err := r.page.Timeout(r.navTimeout).WaitStable(time.Second); err != nil {
		return fmt.Errorf("页面未稳定: %w", err)
	}
	return nil
}

// element 在timeout内按定位器解析元素
func (r *rodPage) element(loc flowcfg.Locator, timeout time.Duration) (*rod.Element, error) {
	p := r.page.Timeout(timeout)
	switch loc.Kind {
	case flowcfg.LocatorText:
		return p.ElementR("*", loc.Value)
	case flowcfg.LocatorRole:
		return p.Element(fmt.Sprintf("[role=%q]", loc.Value))
	default:
		return p.Element(loc.Value)
	}
}

func (r *rodPage) Click(loc flowcfg.Locator, timeout time.Duration) error {
	el, err := r.element(loc, timeout)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (r *rodPage) Fill(loc flowcfg.Locator, value string, timeout time.Duration) error {
	el, err := r.element(loc, timeout)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (r *rodPage) WaitVisible(loc flowcfg.Locator, timeout time.Duration) error {
	el, err := r.element(loc, timeout)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (r *rodPage) Eval(js string, timeout time.Duration) (string, error) {
	res, err := r.page.Timeout(timeout).Evaluate(rod.Eval(js).ByPromise())
	if err != nil {
		return "", fmt.Errorf("页面内JS执行失败: %w", err)
	}
	return res.Value.Str(), nil
}

func (r *rodPage) Rows(selector string) ([]Row, error) {
	els, err := r.page.Timeout(r.stepTimeout).Elements(selector)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(els))
	for _, el := range els {
		rows = append(rows, &rodRow{el: el})
	}
	return rows, nil
}

func (r *rodPage) FrameRowsText(vendorHints []string, filterTexts []string, rowSelector string) ([]string, error) {
	frame := r.pickContentFrame(vendorHints)
	target := r.page
	if frame != nil {
		target = frame
	}
	// 过滤项要在选定frame内点,内容在跨域frame里时主文档根本看不到这些元素
	for _, txt := range filterTexts {
		el, err := target.Timeout(r.stepTimeout).ElementR("*", txt)
		if err != nil {
			zap.L().Debug("过滤项未找到", zap.String("text", txt))
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			zap.L().Debug("过滤项点击失败", zap.String("text", txt), zap.Error(err))
		}
	}
	els, err := target.Timeout(r.stepTimeout * 2).Elements(rowSelector)
	if err != nil || len(els) == 0 {
		// frame里找不到行时退回主文档再试一次
		if frame == nil {
			return nil, err
		}
		els, err = r.page.Timeout(r.stepTimeout).Elements(rowSelector)
		if err != nil {
			return nil, err
		}
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// pickContentFrame 选择最可能承载赔率内容的iframe
// URL命中vendorHints优先,否则取面积最大的;都没有返回nil
func (r *rodPage) pickContentFrame(vendorHints []string) *rod.Page {
	iframes, err := r.page.Timeout(r.stepTimeout).Elements("iframe")
	if err != nil || len(iframes) == 0 {
		return nil
	}

	var best *rod.Element
	var bestArea float64
	for _, el := range iframes {
		src, err := el.Attribute("src")
		if err == nil && src != nil {
			for _, hint := range vendorHints {
				if strings.Contains(strings.ToLower(*src), strings.ToLower(hint)) {
					if frame, err := el.Frame(); err == nil {
						return frame
					}
				}
			}
		}
		res, err := el.Eval(`() => this.offsetWidth * this.offsetHeight`)
		if err != nil {
			continue
		}
		if area := res.Value.Num(); area > bestArea {
			bestArea = area
			best = el
		}
	}
	if best == nil {
		return nil
	}
	frame, err := best.Frame()
	if err != nil {
		return nil
	}
	return frame
}

func (r *rodPage) PageText() (string, error) {
	el, err := r.page.Timeout(r.stepTimeout * 2).Element("body")
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (r *rodPage) Screenshot(path string) error {
	data, err := r.page.Screenshot(false, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SetNetworkListener 用hijack路由拦截命中pattern的响应
// 投递非阻塞: 通道满就丢,响应体拿不到投miss
func (r *rodPage) SetNetworkListener(patterns []string, ch chan<- *capture.Response) {
	router := r.page.HijackRequests()
	for _, pattern := range patterns {
		router.MustAdd(fmt.Sprintf("*%s*", pattern), func(h *rod.Hijack) {
			url := h.Request.URL().String()
			if err := h.LoadResponse(http.DefaultClient, true); err != nil {
				zap.L().Debug("加载响应体失败", zap.String("url", url), zap.Error(err))
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
			case ch <- &capture.Response{URL: url, Body: []byte(h.Response.Body())}:
			default:
				zap.L().Warn("捕获通道已满,丢弃响应", zap.String("url", url))
			}
		})
	}
	r.router = router
	go router.Run()
}

type rodRow struct {
	el *rod.Element
}

func (row *rodRow) Text() (string, error) {
	return row.el.Text()
}

func (row *rodRow) FieldText(spec flowcfg.FieldSpec, timeout time.Duration) (*string, error) {
	els, err := row.el.Timeout(timeout).Elements(spec.Selector)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}
	if spec.Mode == flowcfg.FieldTextAll {
		joined := strings.Join(texts, textAllDelim)
		return &joined, nil
	}
	return &texts[0], nil
}
