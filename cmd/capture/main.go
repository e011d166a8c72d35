package main

import (
	"context"
	_ "embed"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/config"
	"github.com/LouYuanbo1/crawleragent/internal/infra/browser"
	"github.com/LouYuanbo1/crawleragent/internal/infra/capture"
	"github.com/LouYuanbo1/crawleragent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/crawleragent/internal/logger"
	"github.com/LouYuanbo1/crawleragent/param"
)

//go:embed appconfig/appconfig.json
var appConfig []byte

// 纯抓包运行: 打开页面挂住一段时间,把命中的API响应全部落盘/归档
// 用来摸清站点接口形态,不做提取和变化检测
var captureParam = &param.Capture{
	Url:             "https://sports.heritage99.eu/",
	DurationSeconds: 180,
	Patterns:        []string{"/api/", "/odds/", ".asmx/"},
}

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

	ctx := context.Background()

	var archiver capture.Archiver
	if appcfg.Elasticsearch.Enabled {
		archiver, err = es.InitCaptureArchiver(ctx, appcfg)
		if err != nil {
			zap.L().Warn("ES归档不可用,仅落盘", zap.Error(err))
			archiver = nil
		}
	}

	page, err := browser.InitRodPage(appcfg, "")
	if err != nil {
		zap.L().Fatal("初始化浏览器失败", zap.Error(err))
	}
	defer page.Close()

	consumer := capture.InitConsumer(appcfg.Capture.ChanSize, "capture", appcfg.Capture.OutputDir, archiver, nil)
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(captureParam.DurationSeconds)*time.Second)
	defer cancel()
	go consumer.Run(runCtx)

	page.SetNetworkListener(captureParam.Patterns, consumer.In())

	if err := page.Navigate(captureParam.Url); err != nil {
		zap.L().Fatal("导航失败", zap.String("url", captureParam.Url), zap.Error(err))
	}

	zap.L().Info("抓包中", zap.String("url", captureParam.Url), zap.Int("seconds", captureParam.DurationSeconds))
	<-runCtx.Done()
	zap.L().Info("抓包结束")
}
