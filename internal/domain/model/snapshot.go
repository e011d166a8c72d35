package model

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// MarketSide 市场一侧的盘口: 线值+美式赔率
// 两个字段都可能缺失(页面未挂出该盘口时)
type MarketSide struct {
	Line  *float64 `json:"line"`
	Price *int     `json:"price"`
}

// Market 一个具名市场的两侧
// 让分/独赢用 away/home, 大小分用 over/under
type Market struct {
	Away  *MarketSide `json:"away,omitempty"`
	Home  *MarketSide `json:"home,omitempty"`
	Over  *MarketSide `json:"over,omitempty"`
	Under *MarketSide `json:"under,omitempty"`
}

// Markets 一场比赛的全部市场,缺失的市场为nil
type Markets struct {
	Spread    *Market `json:"spread,omitempty"`
	Total     *Market `json:"total,omitempty"`
	Moneyline *Market `json:"moneyline,omitempty"`
}

// Teams 客队/主队名称,以页面展示文本为准
type Teams struct {
	Away string `json:"away"`
	Home string `json:"home"`
}

// GameState 比赛进行状态(清洗后的原始文本)
type GameState struct {
	Period string `json:"period,omitempty"`
	Clock  string `json:"clock,omitempty"`
	Score  string `json:"score,omitempty"`
}

// GameSnapshot 一轮采集中一场比赛的完整快照
// 生成后不再修改,每轮重新生成并与上一轮的持久化结果对比
type GameSnapshot struct {
	GameKey        string    `json:"game_key"`
	Source         string    `json:"source"`
	Sport          string    `json:"sport"`
	League         string    `json:"league"`
	CollectedAt    time.Time `json:"collected_at"`
	EventDate      string    `json:"event_date,omitempty"`
	EventTime      string    `json:"event_time,omitempty"`
	RotationNumber string    `json:"rotation_number,omitempty"`
	Teams          Teams     `json:"teams"`
	State          GameState `json:"state"`
	Markets        Markets   `json:"markets"`
	IsLive         bool      `json:"is_live"`
}

// Label 返回人类可读的比赛标识,用于变化日志
func (gs *GameSnapshot) Label() string {
	return gs.Teams.Away + " @ " + gs.Teams.Home
}

// GameKey 由 (客队,主队,日期桶) 生成稳定短哈希
// 队名先 trim+小写 归一化,保证同一场比赛跨轮次key一致
func GameKey(away, home, dateBucket string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	sum := sha1.Sum([]byte(norm(away) + "|" + norm(home) + "|" + norm(dateBucket)))
	return hex.EncodeToString(sum[:])[:12]
}

// Float 辅助构造 *float64
func Float(v float64) *float64 { return &v }

// Int 辅助构造 *int
func Int(v int) *int { return &v }
