package flowcfg

import (
	"fmt"
	"strings"
)

// LocatorKind 定位策略,配置解析时一次性确定,执行期不再解析前缀
type LocatorKind int

const (
	LocatorRaw LocatorKind = iota
	LocatorCSS
	LocatorText
	LocatorRole
)

// Locator 已解析的元素定位器
type Locator struct {
	Kind  LocatorKind
	Value string
}

// ParseLocator 解析带scheme前缀的选择器字符串
// 支持 role= / text= / css= 前缀,无前缀按原样(Raw)处理
func ParseLocator(s string) Locator {
	switch {
	case strings.HasPrefix(s, "css="):
		return Locator{Kind: LocatorCSS, Value: strings.TrimPrefix(s, "css=")}
	case strings.HasPrefix(s, "text="):
		return Locator{Kind: LocatorText, Value: strings.TrimPrefix(s, "text=")}
	case strings.HasPrefix(s, "role="):
		return Locator{Kind: LocatorRole, Value: strings.TrimPrefix(s, "role=")}
	default:
		return Locator{Kind: LocatorRaw, Value: s}
	}
}

func (l Locator) String() string {
	switch l.Kind {
	case LocatorCSS:
		return "css=" + l.Value
	case LocatorText:
		return "text=" + l.Value
	case LocatorRole:
		return "role=" + l.Value
	default:
		return l.Value
	}
}

func parseLocators(raw []string) []Locator {
	locs := make([]Locator, 0, len(raw))
	for _, s := range raw {
		locs = append(locs, ParseLocator(s))
	}
	return locs
}

// FieldMode 字段提取模式
type FieldMode string

const (
	// FieldTextOne 取第一个非空文本,没有则为null
	FieldTextOne FieldMode = "textone"
	// FieldTextAll 取所有匹配文本并用分隔符拼接
	FieldTextAll FieldMode = "textall"
)

// FieldSpec 单个字段的提取规则, 配置中写作 "<selector>::<mode>"
type FieldSpec struct {
	Selector string
	Mode     FieldMode
}

// ParseFieldSpec 解析 "<selector>::<mode>" 形式的字段规则
// 省略mode时默认textone
func ParseFieldSpec(s string) (FieldSpec, error) {
	sel, mode, found := strings.Cut(s, "::")
	if sel == "" {
		return FieldSpec{}, fmt.Errorf("字段规则缺少选择器: %q", s)
	}
	if !found {
		return FieldSpec{Selector: sel, Mode: FieldTextOne}, nil
	}
	switch FieldMode(mode) {
	case FieldTextOne, FieldTextAll:
		return FieldSpec{Selector: sel, Mode: FieldMode(mode)}, nil
	default:
		return FieldSpec{}, fmt.Errorf("未知的字段提取模式 %q (支持 textone/textall)", mode)
	}
}
