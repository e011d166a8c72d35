package cascade

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
)

// 文本启发式解析: 三级兜底中的最后一级
// 对原始行文本先过门控,再按token从左到右消费盘口数字
// 站点把客队渲染在前: 第一个让分token归客队,第二个归主队(未验证的观察性假设,大小分/独赢同序)

var (
	// 美式赔率: 带符号三位及以上,或标准-110形态
	priceRe = regexp.MustCompile(`[+-]\d{3,}`)
	// 让分线: 带符号小数值,可带半分符号
	spreadRe = regexp.MustCompile(`[+-]\d+(?:½|\.5)?(?:\s|$)`)
	// 大小分: o/u前缀跟数字
	totalRe = regexp.MustCompile(`(?i)\b[ou]\s?\d+(?:½|\.5)?`)
	// 数字兜底提取: 去掉杂字符后取第一个数值
	numericRe = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)
	// token整体匹配
	signedNumRe = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)
	totalTokRe  = regexp.MustCompile(`^(?i)[ou]\d+(?:\.\d+)?$`)
)

// normalizeHalf 把半分符号折算成.5,并去掉千分位等杂字符
func normalizeHalf(s string) string {
	s = strings.ReplaceAll(s, "½", ".5")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// parseLineValue 解析线值(如"+6½"→6.5),失败时退回数字正则兜底
func parseLineValue(s string) *float64 {
	s = normalizeHalf(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return model.Float(v)
	}
	m := numericRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return model.Float(v)
}

// parsePrice 解析美式赔率为整数
func parsePrice(s string) *int {
	f := parseLineValue(s)
	if f == nil {
		return nil
	}
	return model.Int(int(*f))
}

// looksLikeEventBlock 判断一段文本是否像一场比赛
// 至少两行,且出现赔率/让分/大小分三种模式之一才进入解析
func looksLikeEventBlock(block string) bool {
	lines := nonEmptyLines(block)
	if len(lines) < 2 {
		return false
	}
	return priceRe.MatchString(block) || spreadRe.MatchString(block) || totalRe.MatchString(block)
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, l := range strings.Split(block, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// looksLikeTeamLine 队名行: 含字母且不以数字开头
func looksLikeTeamLine(line string) bool {
	if line == "" {
		return false
	}
	r := rune(line[0])
	if r >= '0' && r <= '9' || r == '+' || r == '-' {
		return false
	}
	return strings.IndexFunc(line, func(r rune) bool {
		return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
	}) >= 0
}

// consumeTokens 从左到右消费数字token填充市场
// 小于100的带符号数视为让分线,其后第一个赔率归它;
// o/u前缀视为大小分线;落单的赔率按序归独赢(先客后主)
func consumeTokens(tokens []string) model.Markets {
	var markets model.Markets
	var pending *model.MarketSide
	spreadN, totalN, mlN := 0, 0, 0

	ensure := func(m **model.Market) *model.Market {
		if *m == nil {
			*m = &model.Market{}
		}
		return *m
	}

	for _, tok := range tokens {
		tok = normalizeHalf(tok)
		switch {
		case totalTokRe.MatchString(tok):
			line := parseLineValue(tok[1:])
			if line == nil {
				continue
			}
			side := &model.MarketSide{Line: line}
			total := ensure(&markets.Total)
			if totalN == 0 {
				total.Over = side
			} else if totalN == 1 {
				total.Under = side
			}
			totalN++
			pending = side

		case signedNumRe.MatchString(tok) && strings.ContainsAny(tok[:1], "+-"):
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				continue
			}
			if v > -100 && v < 100 {
				// 让分线
				side := &model.MarketSide{Line: model.Float(v)}
				spread := ensure(&markets.Spread)
				if spreadN == 0 {
					spread.Away = side
				} else if spreadN == 1 {
					spread.Home = side
				}
				spreadN++
				pending = side
				continue
			}
			// 赔率: 优先补给待定的线,否则按序归独赢
			price := model.Int(int(v))
			if pending != nil && pending.Price == nil {
				pending.Price = price
				pending = nil
				continue
			}
			ml := ensure(&markets.Moneyline)
			if mlN == 0 {
				ml.Away = &model.MarketSide{Price: price}
			} else if mlN == 1 {
				ml.Home = &model.MarketSide{Price: price}
			}
			mlN++
		}
	}
	return markets
}

// hasAnyMarket 至少有一个市场被填充
func hasAnyMarket(m model.Markets) bool {
	return m.Spread != nil || m.Total != nil || m.Moneyline != nil
}

// parseEventBlock 把一段比赛文本解析成快照
// 前两行像队名的作客队/主队,余下token按consumeTokens消费
// 解析不出任何市场时返回nil,调用方丢弃该行而不报错
func parseEventBlock(block, source, sport, league string, now time.Time) *model.GameSnapshot {
	lines := nonEmptyLines(block)
	var away, home string
	var rest []string
	for _, l := range lines {
		if home == "" && looksLikeTeamLine(l) {
			if away == "" {
				away = l
			} else {
				home = l
			}
			continue
		}
		rest = append(rest, l)
	}
	if away == "" || home == "" {
		return nil
	}

	markets := consumeTokens(strings.Fields(strings.Join(rest, " ")))
	if !hasAnyMarket(markets) {
		return nil
	}

	bucket := now.UTC().Format("2006-01-02")
	return &model.GameSnapshot{
		GameKey:     model.GameKey(away, home, bucket),
		Source:      source,
		Sport:       sport,
		League:      league,
		CollectedAt: now,
		Teams:       model.Teams{Away: away, Home: home},
		Markets:     markets,
	}
}
