package main

import (
	"context"
	_ "embed"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/config"
	"github.com/LouYuanbo1/crawleragent/internal/infra/proxy"
	"github.com/LouYuanbo1/crawleragent/internal/logger"
	"github.com/LouYuanbo1/crawleragent/param"
)

//go:embed appconfig/appconfig.json
var appConfig []byte

// 体检选项: 留空表示沿用appconfig里的来源,临时换来源时只改这里
var checkParam = &param.ProxyCheck{
	ProviderUrl: "",
	ScrapeUrl:   "",
}

// 代理池体检: 拉一遍全部来源并并发测活,打印可用数量
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("未加载.env文件: %v", err)
	}

	appcfg, err := config.ParseConfig(appConfig)
	if err != nil {
		log.Fatalf("解析配置失败: %v", err)
	}
	zlog, err := logger.InitLogger(appcfg.Logger.Level, appcfg.Logger.Development)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Sync()

	providerURL := checkParam.ProviderUrl
	if providerURL == "" {
		providerURL = appcfg.Proxy.ProviderURL
	}
	scrapeURL := checkParam.ScrapeUrl
	if scrapeURL == "" {
		scrapeURL = appcfg.Proxy.ScrapeURL
	}
	source := proxy.InitChainSource(
		proxy.InitProviderSource(providerURL),
		proxy.InitScrapeSource(scrapeURL),
	)
	if source == nil {
		zap.L().Fatal("无可用代理来源")
	}

	pool := proxy.InitPool(source,
		time.Duration(appcfg.Proxy.CacheTTLMinutes)*time.Minute,
		appcfg.Proxy.TestURL,
		time.Duration(appcfg.Proxy.TestTimeout)*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	alive := pool.HealthCheck(ctx)
	zap.L().Info("体检完成", zap.Int("alive", alive))
}
