package cascade

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
	"github.com/LouYuanbo1/crawleragent/internal/infra/browser"
)

// 结构化喂价读取: 在页面内用站点自己的会话发fetch
// 复用页面cookie,免去单独HTTP客户端的认证问题,也没有DOM稳定性竞态

// feedFetchJS 在页面内请求站点接口并返回响应文本
const feedFetchJS = `() => fetch(%q, {credentials: "same-origin", headers: {"Content-Type": "application/json"}})
	.then(r => r.text())`

// feedEvent 站点喂价接口里的一场比赛
type feedEvent struct {
	League       string            `json:"league"`
	GameDate     string            `json:"gamedate"`
	GameTime     string            `json:"gametime"`
	IsLive       bool              `json:"islive"`
	Period       string            `json:"period"`
	Clock        string            `json:"clock"`
	Score        string            `json:"score"`
	Participants []feedParticipant `json:"participants"`
}

// feedParticipant 比赛的一方及其挂出的盘口
// 数值字段保留字符串形态: 站点会混用"6½"和"6.5"
type feedParticipant struct {
	Name        string `json:"name"`
	RotNum      string `json:"rotnum"`
	Side        string `json:"vhd"` // V=客 H=主
	Spread      string `json:"spread"`
	SpreadPrice string `json:"spreadprice"`
	Total       string `json:"total"`
	TotalPrice  string `json:"totalprice"`
	MoneyLine   string `json:"moneyline"`
}

type feedEnvelope struct {
	Events []feedEvent `json:"events"`
}

// unwrapASPNet 剥掉ASP.NET风格的 {"d": "<json字符串>"} 外壳
// 不是该形态时原样返回
func unwrapASPNet(body []byte) []byte {
	var wrapper struct {
		D json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || len(wrapper.D) == 0 {
		return body
	}
	// d的值本身可能是转义过的JSON字符串
	var inner string
	if err := json.Unmarshal(wrapper.D, &inner); err == nil {
		return []byte(inner)
	}
	return wrapper.D
}

// parseFeed 解析喂价响应为快照列表
// 信封兼容 {"events": [...]} 和裸数组两种形态
func parseFeed(body []byte, source, sport, league string, now time.Time) []model.GameSnapshot {
	body = unwrapASPNet(body)

	var env feedEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Events) == 0 {
		var events []feedEvent
		if err := json.Unmarshal(body, &events); err != nil {
			zap.L().Debug("喂价响应不是可识别的JSON形态", zap.Error(err))
			return nil
		}
		env.Events = events
	}

	snapshots := make([]model.GameSnapshot, 0, len(env.Events))
	for _, ev := range env.Events {
		snap := feedEventToSnapshot(ev, source, sport, league, now)
		if snap != nil {
			snapshots = append(snapshots, *snap)
		}
	}
	return snapshots
}

// feedEventToSnapshot 把一场喂价比赛映射成快照
// 双方参与者缺一或解析不出任何市场时丢弃,不报错
func feedEventToSnapshot(ev feedEvent, source, sport, league string, now time.Time) *model.GameSnapshot {
	var away, home *feedParticipant
	for i := range ev.Participants {
		p := &ev.Participants[i]
		switch strings.ToUpper(p.Side) {
		case "V":
			away = p
		case "H":
			home = p
		}
	}
	// 未标注主客时按列表顺序: 客队在前
	if away == nil && home == nil && len(ev.Participants) == 2 {
		away = &ev.Participants[0]
		home = &ev.Participants[1]
	}
	if away == nil || home == nil {
		return nil
	}

	var markets model.Markets
	if side := participantSide(away.Spread, away.SpreadPrice); side != nil {
		markets.Spread = &model.Market{Away: side, Home: participantSide(home.Spread, home.SpreadPrice)}
	}
	// 大小分挂在双方记录上: 客队行是Over,主队行是Under
	if side := participantSide(away.Total, away.TotalPrice); side != nil {
		markets.Total = &model.Market{Over: side, Under: participantSide(home.Total, home.TotalPrice)}
	}
	if price := parsePrice(away.MoneyLine); price != nil {
		ml := &model.Market{Away: &model.MarketSide{Price: price}}
		if hp := parsePrice(home.MoneyLine); hp != nil {
			ml.Home = &model.MarketSide{Price: hp}
		}
		markets.Moneyline = ml
	}
	if !hasAnyMarket(markets) {
		return nil
	}

	bucket := ev.GameDate
	if bucket == "" {
		bucket = now.UTC().Format("2006-01-02")
	}
	rot := away.RotNum
	if rot != "" && home.RotNum != "" {
		rot = away.RotNum + "/" + home.RotNum
	}

	if league == "" {
		league = ev.League
	}
	return &model.GameSnapshot{
		GameKey:        model.GameKey(away.Name, home.Name, bucket),
		Source:         source,
		Sport:          sport,
		League:         league,
		CollectedAt:    now,
		EventDate:      ev.GameDate,
		EventTime:      ev.GameTime,
		RotationNumber: rot,
		Teams:          model.Teams{Away: away.Name, Home: home.Name},
		State:          model.GameState{Period: ev.Period, Clock: ev.Clock, Score: ev.Score},
		Markets:        markets,
		IsLive:         ev.IsLive,
	}
}

// participantSide 由线值/赔率文本构造一侧盘口,线值缺失即视为未挂出
func participantSide(line, price string) *model.MarketSide {
	l := parseLineValue(line)
	if l == nil {
		return nil
	}
	return &model.MarketSide{Line: l, Price: parsePrice(price)}
}

// readFeed 在页面内逐个尝试喂价端点,第一个解析出比赛的生效
func readFeed(page browser.Page, endpoints []string, source, sport, league string, evalTimeout time.Duration, now time.Time) []model.GameSnapshot {
	for _, ep := range endpoints {
		js := fmt.Sprintf(feedFetchJS, ep)
		body, err := page.Eval(js, evalTimeout)
		if err != nil {
			zap.L().Debug("页面内fetch失败", zap.String("endpoint", ep), zap.Error(err))
			continue
		}
		snaps := parseFeed([]byte(body), source, sport, league, now)
		if len(snaps) > 0 {
			zap.L().Info("结构化喂价命中", zap.String("endpoint", ep), zap.Int("events", len(snaps)))
			return snaps
		}
	}
	return nil
}
