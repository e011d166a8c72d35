// Package detector 盘口变化检测
// 每轮快照与上一轮持久化结果逐场对比,只盯固定的三个叶子字段,
// 避免全量深度diff把易变/无关字段的噪声当成变化
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
	"github.com/LouYuanbo1/crawleragent/internal/infra/storage"
)

// AlertSink 变化事件的下游出口(控制台/告警通道)
type AlertSink interface {
	Notify(events []model.ChangeEvent)
}

type Detector struct {
	store storage.OddsStore
	log   *ChangeLog
	sink  AlertSink
	now   func() time.Time
}

func InitDetector(store storage.OddsStore, log *ChangeLog, sink AlertSink) *Detector {
	return &Detector{
		store: store,
		log:   log,
		sink:  sink,
		now:   time.Now,
	}
}

// CheckAndLog 对一条快照做变化检测
// 读上一轮(没有不算错,首见不报变化) → 无条件覆盖存储 → 有旧值才diff;
// 产生事件时追加当日日志并转发告警,返回是否有变化
func (d *Detector) CheckAndLog(ctx context.Context, snap *model.GameSnapshot) (bool, error) {
	prevRaw, found, err := d.store.GetPrevious(ctx, snap.GameKey)
	if err != nil {
		return false, fmt.Errorf("读取历史盘口失败: %w", err)
	}

	currRaw, err := json.Marshal(snap.Markets)
	if err != nil {
		return false, fmt.Errorf("序列化盘口失败: %w", err)
	}
	// 存储永远反映最新观测,不管有没有变化
	if err := d.store.Store(ctx, snap.GameKey, currRaw); err != nil {
		return false, fmt.Errorf("写入盘口失败: %w", err)
	}

	if !found {
		zap.L().Debug("首次见到该比赛,不报变化", zap.String("game_key", snap.GameKey))
		return false, nil
	}

	var prev model.Markets
	if err := json.Unmarshal(prevRaw, &prev); err != nil {
		zap.L().Warn("历史盘口反序列化失败,按首见处理", zap.String("game_key", snap.GameKey), zap.Error(err))
		return false, nil
	}

	events := d.diff(snap, &prev)
	if len(events) == 0 {
		return false, nil
	}

	zap.L().Info("检测到盘口变化", zap.String("game", snap.Label()), zap.Int("changes", len(events)))
	if d.log != nil {
		if err := d.log.Append(events); err != nil {
			zap.L().Error("变化日志写入失败", zap.Error(err))
		}
	}
	if d.sink != nil {
		d.sink.Notify(events)
	}
	return true, nil
}

// diff 对比固定的三个叶子: 客队让分线/大分线/客队独赢赔率
// 新值为空不算变化(盘口被撤下不等于移动)
func (d *Detector) diff(snap *model.GameSnapshot, prev *model.Markets) []model.ChangeEvent {
	now := d.now().UTC()
	var events []model.ChangeEvent

	emit := func(market, field, oldV, newV string) {
		events = append(events, model.ChangeEvent{
			Timestamp: now,
			GameKey:   snap.GameKey,
			GameLabel: snap.Label(),
			Market:    market,
			Field:     field,
			OldValue:  oldV,
			NewValue:  newV,
		})
	}

	oldLine := awaySpreadLine(prev)
	newLine := awaySpreadLine(&snap.Markets)
	if newLine != nil && !floatEqual(oldLine, newLine) {
		emit("spread", "away_line", formatFloat(oldLine), formatFloat(newLine))
	}

	oldTotal := overTotalLine(prev)
	newTotal := overTotalLine(&snap.Markets)
	if newTotal != nil && !floatEqual(oldTotal, newTotal) {
		emit("total", "over_line", formatFloat(oldTotal), formatFloat(newTotal))
	}

	oldML := awayMoneylinePrice(prev)
	newML := awayMoneylinePrice(&snap.Markets)
	if newML != nil && !intEqual(oldML, newML) {
		emit("moneyline", "away_price", formatInt(oldML), formatInt(newML))
	}

	return events
}

func awaySpreadLine(m *model.Markets) *float64 {
	if m.Spread == nil || m.Spread.Away == nil {
		return nil
	}
	return m.Spread.Away.Line
}

func overTotalLine(m *model.Markets) *float64 {
	if m.Total == nil || m.Total.Over == nil {
		return nil
	}
	return m.Total.Over.Line
}

func awayMoneylinePrice(m *model.Markets) *int {
	if m.Moneyline == nil || m.Moneyline.Away == nil {
		return nil
	}
	return m.Moneyline.Away.Price
}

func floatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
