package main

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/config"
	"github.com/LouYuanbo1/crawleragent/internal/flowcfg"
	"github.com/LouYuanbo1/crawleragent/internal/infra/browser"
	"github.com/LouYuanbo1/crawleragent/internal/infra/capture"
	"github.com/LouYuanbo1/crawleragent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/crawleragent/internal/infra/proxy"
	"github.com/LouYuanbo1/crawleragent/internal/infra/storage"
	"github.com/LouYuanbo1/crawleragent/internal/logger"
	"github.com/LouYuanbo1/crawleragent/internal/service/cascade"
	"github.com/LouYuanbo1/crawleragent/internal/service/detector"
	"github.com/LouYuanbo1/crawleragent/internal/service/flowexec"
	"github.com/LouYuanbo1/crawleragent/param"
)

//使用go:embed嵌入appconfig.json文件
//Github上保存的是样例配置,实际使用时以自己的文件为准

//go:embed appconfig/appconfig.json
var appConfig []byte

// 采集目标: 一个进程只盯一个盘口/联赛,多目标起多个进程
var pollParam = &param.Poll{
	Source: "heritage",
	Sport:  "football",
	League: "nfl",
	FeedEndpoints: []string{
		"/api/odds/GetGameLines.asmx/GetLeagueEvents",
		"/api/odds/GetSchedule.asmx/GetSchedule",
	},
	VendorHints:        []string{"lines.", "livebetting", "digitalsportstech"},
	FilterTexts:        []string{"Football", "NFL"},
	EvalTimeoutSeconds: 10,
}

func main() {
	// 环境变量里放凭据(登录账号/代理token),缺失时对应功能降级
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

	// 主体放在run里,出错返回后defer(关浏览器/关存储)先走完再退出
	if err := run(appcfg); err != nil {
		zap.L().Error("采集进程退出", zap.Error(err))
		zlog.Sync()
		os.Exit(1)
	}
}

func run(appcfg *config.Config) error {
	flowCfg, err := flowcfg.LoadFile(appcfg.Poll.FlowConfigPath)
	if err != nil {
		return fmt.Errorf("加载流程配置失败: %w", err)
	}

	ctx := context.Background()

	// 存储后端: sqlite为默认,跨进程盯同一目标时用redis
	store, err := initStore(appcfg)
	if err != nil {
		return fmt.Errorf("初始化存储失败: %w", err)
	}
	defer store.Close()

	changeLog, err := detector.InitChangeLog(appcfg.Poll.ChangeLogDir)
	if err != nil {
		return fmt.Errorf("初始化变化日志失败: %w", err)
	}
	det := detector.InitDetector(store, changeLog, detector.ConsoleSink{})

	// 代理: 可选,服务商和免费列表两路来源串联
	proxyURL := pickProxy(ctx, appcfg)

	page, err := initPage(ctx, appcfg, proxyURL)
	if err != nil {
		return fmt.Errorf("初始化浏览器失败: %w", err)
	}
	defer page.Close()

	// 抓包: 有ES时同步归档,没有只落盘
	var archiver capture.Archiver
	if appcfg.Elasticsearch.Enabled {
		archiver, err = es.InitCaptureArchiver(ctx, appcfg)
		if err != nil {
			zap.L().Warn("ES归档不可用,仅落盘", zap.Error(err))
			archiver = nil
		}
	}
	consumer := capture.InitConsumer(appcfg.Capture.ChanSize, pollParam.Source, appcfg.Capture.OutputDir, archiver, nil)
	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()
	go consumer.Run(consumerCtx)
	page.SetNetworkListener(appcfg.Capture.URLPatterns, consumer.In())

	exec := flowexec.InitExecutor(flowCfg,
		time.Duration(appcfg.Poll.StepTimeout)*time.Millisecond,
		time.Duration(appcfg.Poll.FieldTimeout)*time.Millisecond)
	casc := cascade.InitCascade(exec, flowCfg, pollParam)

	// 导航失败是致命错误,退出前留现场
	if err := page.Navigate(flowCfg.StartURL); err != nil {
		dumpDiagnostics(page, appcfg.Poll.DumpDir)
		return fmt.Errorf("导航失败 url=%s: %w", flowCfg.StartURL, err)
	}

	exec.Authenticate(page)
	exec.ExecuteFlow(page, "")

	// 按cron计划轮询,一轮 = 三级提取 + 逐场变化检测
	c := cron.New()
	_, err = c.AddFunc(appcfg.Poll.CronSpec, func() {
		pollAndDetect(ctx, page, casc, det)
	})
	if err != nil {
		return fmt.Errorf("cron计划不合法 spec=%s: %w", appcfg.Poll.CronSpec, err)
	}
	zap.L().Info("进入轮询", zap.String("cron", appcfg.Poll.CronSpec), zap.String("source", pollParam.Source))
	c.Run()
	return nil
}

func pollAndDetect(ctx context.Context, page browser.Page, casc *cascade.Cascade, det *detector.Detector) {
	cycleID := uuid.NewString()
	snaps := casc.PollOnce(page)
	if len(snaps) == 0 {
		// 连续零结果轮次是健康信号,不是崩溃
		zap.L().Warn("本轮零结果", zap.String("cycle", cycleID))
		return
	}

	changedCount := 0
	for i := range snaps {
		changed, err := det.CheckAndLog(ctx, &snaps[i])
		if err != nil {
			zap.L().Error("变化检测失败", zap.String("game", snaps[i].Label()), zap.Error(err))
			continue
		}
		if changed {
			changedCount++
		}
	}
	zap.L().Info("本轮完成", zap.String("cycle", cycleID), zap.Int("games", len(snaps)), zap.Int("changed", changedCount))
}

// initPage 按配置选择浏览器驱动,rod为主(带stealth),chromedp为备
func initPage(ctx context.Context, appcfg *config.Config, proxyURL string) (browser.Page, error) {
	if appcfg.Browser.Driver == "chromedp" {
		return browser.InitChromedpPage(ctx, appcfg, proxyURL), nil
	}
	return browser.InitRodPage(appcfg, proxyURL)
}

func initStore(appcfg *config.Config) (storage.OddsStore, error) {
	if appcfg.Storage.Backend == "redis" {
		return storage.InitRedisStore(
			appcfg.Storage.Redis.Address,
			appcfg.Storage.Redis.Password,
			appcfg.Storage.Redis.DB,
			time.Duration(appcfg.Storage.Redis.TTLHours)*time.Hour)
	}
	return storage.InitSqliteStore(appcfg.Storage.SqlitePath)
}

// pickProxy 从池里取下一个可用代理,池不可用或未启用时返回空(直连)
func pickProxy(ctx context.Context, appcfg *config.Config) string {
	if !appcfg.Proxy.Enabled {
		return ""
	}
	source := proxy.InitChainSource(
		proxy.InitProviderSource(appcfg.Proxy.ProviderURL),
		proxy.InitScrapeSource(appcfg.Proxy.ScrapeURL),
	)
	if source == nil {
		zap.L().Warn("无可用代理来源,直连")
		return ""
	}
	pool := proxy.InitPool(source,
		time.Duration(appcfg.Proxy.CacheTTLMinutes)*time.Minute,
		appcfg.Proxy.TestURL,
		time.Duration(appcfg.Proxy.TestTimeout)*time.Second)

	for range 3 {
		p, ok := pool.GetNextProxy()
		if !ok {
			break
		}
		if pool.TestProxy(p) {
			zap.L().Info("选定代理", zap.String("proxy", p))
			return p
		}
	}
	zap.L().Warn("代理池无可用节点,直连")
	return ""
}

// dumpDiagnostics 把截图和页面文本落到现场目录
func dumpDiagnostics(page browser.Page, dir string) {
	if dir == "" {
		dir = "dumps"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		zap.L().Error("创建现场目录失败", zap.Error(err))
		return
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	if err := page.Screenshot(filepath.Join(dir, "nav_fail_"+stamp+".png")); err != nil {
		zap.L().Error("截图失败", zap.Error(err))
	}
	if text, err := page.PageText(); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "nav_fail_"+stamp+".txt"), []byte(text), 0o644)
	}
}
