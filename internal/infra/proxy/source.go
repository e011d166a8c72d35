package proxy

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// proxyAPITokenEnv 服务商API令牌的环境变量名
// 缺失时服务商来源不可用,代理功能整体降级而不是启动失败
const proxyAPITokenEnv = "PROXY_API_TOKEN"

// providerSource 代理服务商JSON API来源
type providerSource struct {
	client *resty.Client
	url    string
	token  string
}

// InitProviderSource 初始化服务商来源
// 环境变量里没有令牌时返回nil,调用方据此禁用代理
func InitProviderSource(url string) Source {
	token := os.Getenv(proxyAPITokenEnv)
	if url == "" || token == "" {
		zap.L().Info("代理服务商未配置,代理功能降级", zap.String("env", proxyAPITokenEnv))
		return nil
	}
	return &providerSource{
		client: resty.New(),
		url:    url,
		token:  token,
	}
}

type providerProxy struct {
	Address  string `json:"proxy_address"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type providerResponse struct {
	Results []providerProxy `json:"results"`
}

func (s *providerSource) FetchProxies(ctx context.Context) ([]string, error) {
	var body providerResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+s.token).
		SetResult(&body).
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("请求代理服务商失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("代理服务商返回 %d", resp.StatusCode())
	}
	proxies := make([]string, 0, len(body.Results))
	for _, p := range body.Results {
		if p.Address == "" || p.Port == 0 {
			continue
		}
		if p.Username != "" {
			proxies = append(proxies, fmt.Sprintf("http://%s:%s@%s:%d", p.Username, p.Password, p.Address, p.Port))
		} else {
			proxies = append(proxies, fmt.Sprintf("http://%s:%d", p.Address, p.Port))
		}
	}
	return proxies, nil
}

// scrapeSource 免费代理列表页来源,服务商不可用时的兜底
type scrapeSource struct {
	url string
}

// InitScrapeSource 初始化列表页抓取来源
func InitScrapeSource(url string) Source {
	if url == "" {
		return nil
	}
	return &scrapeSource{url: url}
}

func (s *scrapeSource) FetchProxies(ctx context.Context) ([]string, error) {
	var proxies []string
	c := colly.NewCollector()

	c.OnHTML("table tbody tr", func(e *colly.HTMLElement) {
		ip := strings.TrimSpace(e.ChildText("td:nth-child(1)"))
		port := strings.TrimSpace(e.ChildText("td:nth-child(2)"))
		if net.ParseIP(ip) == nil || port == "" {
			return
		}
		proxies = append(proxies, fmt.Sprintf("http://%s:%s", ip, port))
	})

	if err := c.Visit(s.url); err != nil {
		return nil, fmt.Errorf("抓取代理列表页失败: %w", err)
	}
	c.Wait()
	return proxies, nil
}

// InitChainSource 依次尝试多个来源,第一个成功且非空的生效
func InitChainSource(sources ...Source) Source {
	valid := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return chainSource(valid)
}

type chainSource []Source

func (cs chainSource) FetchProxies(ctx context.Context) ([]string, error) {
	var lastErr error
	for _, s := range cs {
		proxies, err := s.FetchProxies(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if len(proxies) > 0 {
			return proxies, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("所有代理来源均为空")
}
