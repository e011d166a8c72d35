// Package capture 拦截页面内API流量
// 浏览器驱动把命中规则的响应投递到有界通道,由单个消费者协程处理
package capture

import "strings"

// Response 一次被拦截的网络响应
// Miss为true表示URL命中规则但响应体已不可得(页面导航走了或目标关闭)
type Response struct {
	URL  string
	Body []byte
	Miss bool
}

// apiPathFragments 站点API路径的启发式特征
// 命中任意一个片段的响应才会被投递
var apiPathFragments = []string{
	"/api/",
	"/odds/",
	".asmx/",
	"getleagueevents",
	"getschedule",
	"getgamelines",
	"getlivegames",
}

// MatchesAPIPath 判断URL是否像站点自己的数据接口
func MatchesAPIPath(url string) bool {
	lower := strings.ToLower(url)
	for _, frag := range apiPathFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// endpointCategories 已知RPC方法名片段 -> 语义分类
// 顺序即匹配优先级
var endpointCategories = []struct {
	fragment string
	category string
}{
	{"getleagueevents", "league_events"},
	{"getschedule", "schedule"},
	{"getgamelines", "game_lines"},
	{"getlivegames", "live_games"},
	{"/odds/", "odds"},
}

// Classify 根据URL中的方法名片段推断端点分类,用于落盘/归档命名
func Classify(url string) string {
	lower := strings.ToLower(url)
	for _, ec := range endpointCategories {
		if strings.Contains(lower, ec.fragment) {
			return ec.category
		}
	}
	return "misc"
}
