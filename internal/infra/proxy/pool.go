// Package proxy 出口代理轮换
// 缓存的代理列表带TTL,过期后先整体刷新再发放,绝不发放过期缓存
package proxy

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source 代理列表来源
type Source interface {
	FetchProxies(ctx context.Context) ([]string, error)
}

// Pool 代理池,进程内私有
type Pool struct {
	mu          sync.Mutex
	source      Source
	cacheTTL    time.Duration
	testURL     string
	testTimeout time.Duration

	proxies   []string
	fetchedAt time.Time
	cursor    int

	// now 可注入,便于测试TTL行为
	now func() time.Time
}

// InitPool 初始化代理池,首次取用时才拉取列表
func InitPool(source Source, cacheTTL time.Duration, testURL string, testTimeout time.Duration) *Pool {
	return &Pool{
		source:      source,
		cacheTTL:    cacheTTL,
		testURL:     testURL,
		testTimeout: testTimeout,
		now:         time.Now,
	}
}

// ensureFresh 缓存过期则整体刷新
// 刷新失败时宁可返回空也不发放过期条目
func (p *Pool) ensureFresh() {
	if len(p.proxies) > 0 && p.now().Sub(p.fetchedAt) < p.cacheTTL {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	proxies, err := p.source.FetchProxies(ctx)
	if err != nil {
		zap.L().Warn("刷新代理列表失败", zap.Error(err))
		p.proxies = nil
		return
	}
	p.proxies = proxies
	p.fetchedAt = p.now()
	p.cursor = 0
	zap.L().Info("代理列表已刷新", zap.Int("count", len(proxies)))
}

// GetNextProxy 按游标轮转返回下一个代理,列表耗尽后回绕
func (p *Pool) GetNextProxy() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureFresh()
	if len(p.proxies) == 0 {
		return "", false
	}
	proxyURL := p.proxies[p.cursor%len(p.proxies)]
	p.cursor = (p.cursor + 1) % len(p.proxies)
	return proxyURL, true
}

// GetRandomProxy 均匀随机取一个,不推进游标
func (p *Pool) GetRandomProxy() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureFresh()
	if len(p.proxies) == 0 {
		return "", false
	}
	return p.proxies[rand.Intn(len(p.proxies))], true
}

// TestProxy 通过候选代理发一个轻量请求,按状态码判定可用性
// 任何错误都归类为不可用,不向上传播
func (p *Pool) TestProxy(proxyURL string) bool {
	client := resty.New().
		SetProxy(proxyURL).
		SetTimeout(p.testTimeout)
	resp, err := client.R().Get(p.testURL)
	if err != nil {
		zap.L().Debug("代理测试失败", zap.String("proxy", proxyURL), zap.Error(err))
		return false
	}
	return resp.StatusCode() < 400
}

// HealthCheck 并发测试当前缓存的全部代理,返回可用数量
func (p *Pool) HealthCheck(ctx context.Context) int {
	p.mu.Lock()
	p.ensureFresh()
	proxies := make([]string, len(p.proxies))
	copy(proxies, p.proxies)
	p.mu.Unlock()

	var mu sync.Mutex
	alive := 0
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, proxyURL := range proxies {
		g.Go(func() error {
			if p.TestProxy(proxyURL) {
				mu.Lock()
				alive++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return alive
}
