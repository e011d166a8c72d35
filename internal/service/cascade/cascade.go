// Package cascade 三级提取串联
// 结构化喂价 → DOM/iframe扫描 → 文本启发式,严格按序执行,首个非空结果短路
// 喂价优先是延迟和可靠性上的取舍: 没有DOM稳定性竞态,实测快一个量级;
// 后两级纯粹为接口形态变化和认证失效兜底
package cascade

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
	"github.com/LouYuanbo1/crawleragent/internal/flowcfg"
	"github.com/LouYuanbo1/crawleragent/internal/infra/browser"
	"github.com/LouYuanbo1/crawleragent/internal/service/flowexec"
	"github.com/LouYuanbo1/crawleragent/param"
)

// filterClickTimeout 运动/联赛过滤点击的单次超时,点不中不算错
const filterClickTimeout = 1500 * time.Millisecond

type Cascade struct {
	exec *flowexec.Executor
	cfg  *flowcfg.FlowConfig
	p    *param.Poll
	now  func() time.Time
}

func InitCascade(exec *flowexec.Executor, cfg *flowcfg.FlowConfig, p *param.Poll) *Cascade {
	return &Cascade{
		exec: exec,
		cfg:  cfg,
		p:    p,
		now:  time.Now,
	}
}

// PollOnce 执行一轮采集
// 零结果是一个值而不是错误: 连续零结果轮次由调用方当健康信号处理
func (c *Cascade) PollOnce(page browser.Page) []model.GameSnapshot {
	now := c.now()

	evalTimeout := time.Duration(c.p.EvalTimeoutSeconds) * time.Second
	if evalTimeout <= 0 {
		evalTimeout = 10 * time.Second
	}
	if snaps := readFeed(page, c.p.FeedEndpoints, c.p.Source, c.p.Sport, c.p.League, evalTimeout, now); len(snaps) > 0 {
		return snaps
	}

	zap.L().Info("结构化喂价无结果,转DOM扫描")
	if snaps := c.scanDOM(page, now); len(snaps) > 0 {
		return snaps
	}

	zap.L().Info("DOM扫描无结果,转文本启发式")
	snaps := c.scanText(page, now)
	if len(snaps) == 0 {
		zap.L().Warn("三级提取全部无结果", zap.String("source", c.p.Source))
	}
	return snaps
}

// scanDOM 第二级: 先定位内容frame,过滤项点击在frame内完成,再按行提取
// 过滤项在跨域frame里时,主文档点击永远落空,所以点击交给驱动在选定frame内做
func (c *Cascade) scanDOM(page browser.Page, now time.Time) []model.GameSnapshot {
	texts, err := page.FrameRowsText(c.p.VendorHints, c.p.FilterTexts, c.cfg.Extract.RowSelector)
	if err != nil {
		zap.L().Debug("iframe行提取失败", zap.Error(err))
	} else if snaps := c.parseBlocks(texts, now); len(snaps) > 0 {
		return snaps
	}

	// frame路径无结果时退回主文档字段化提取,过滤项在主文档再点一遍
	for _, txt := range c.p.FilterTexts {
		loc := flowcfg.Locator{Kind: flowcfg.LocatorText, Value: txt}
		if err := page.Click(loc, filterClickTimeout); err != nil {
			zap.L().Debug("过滤点击未命中", zap.String("text", txt))
		}
	}
	var snaps []model.GameSnapshot
	for _, row := range c.exec.ExtractData(page) {
		if snap := c.rowToSnapshot(row, now); snap != nil {
			snaps = append(snaps, *snap)
		}
	}
	return snaps
}

// rowToSnapshot 把字段化行结果映射成快照
// 约定字段名: away_team/home_team为队名,spread/total/moneyline为盘口文本
// 队名缺一或解析不出任何市场时丢弃该行
func (c *Cascade) rowToSnapshot(row flowexec.RowResult, now time.Time) *model.GameSnapshot {
	away := deref(row.Fields["away_team"])
	home := deref(row.Fields["home_team"])
	if away == "" || home == "" {
		return nil
	}

	var tokens []string
	for _, name := range []string{"spread", "total", "moneyline"} {
		tokens = append(tokens, strings.Fields(deref(row.Fields[name]))...)
	}
	markets := consumeTokens(tokens)
	if !hasAnyMarket(markets) {
		return nil
	}

	bucket := deref(row.Fields["date"])
	if bucket == "" {
		bucket = now.UTC().Format("2006-01-02")
	}
	league := row.League
	if league == "" {
		league = c.p.League
	}
	return &model.GameSnapshot{
		GameKey:        model.GameKey(away, home, bucket),
		Source:         c.p.Source,
		Sport:          c.p.Sport,
		League:         league,
		CollectedAt:    now,
		EventDate:      deref(row.Fields["date"]),
		EventTime:      deref(row.Fields["time"]),
		RotationNumber: deref(row.Fields["rot"]),
		Teams:          model.Teams{Away: away, Home: home},
		Markets:        markets,
		IsLive:         row.Live,
	}
}

// scanText 第三级: 整页文本按空行分块,过门控后逐块解析
func (c *Cascade) scanText(page browser.Page, now time.Time) []model.GameSnapshot {
	text, err := page.PageText()
	if err != nil {
		zap.L().Warn("页面文本读取失败", zap.Error(err))
		return nil
	}
	return c.parseBlocks(splitBlocks(text), now)
}

// parseBlocks 逐块走门控+解析,失败的块丢弃不报错
func (c *Cascade) parseBlocks(blocks []string, now time.Time) []model.GameSnapshot {
	var snaps []model.GameSnapshot
	for _, block := range blocks {
		if !looksLikeEventBlock(block) {
			continue
		}
		if snap := parseEventBlock(block, c.p.Source, c.p.Sport, c.p.League, now); snap != nil {
			snaps = append(snaps, *snap)
		}
	}
	return snaps
}

// splitBlocks 按空行切块
func splitBlocks(text string) []string {
	var blocks []string
	for _, b := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		b = strings.TrimSpace(b)
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
