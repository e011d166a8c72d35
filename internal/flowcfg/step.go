package flowcfg

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StepType 步骤类型标签
type StepType string

const (
	StepClickAny        StepType = "click_any"
	StepFillFirst       StepType = "fill_first"
	StepWaitForDelay    StepType = "wait_for_delay"
	StepWaitForSelector StepType = "wait_for_selector"
)

// Step 自动化流程中的一个步骤,封闭标签变体
type Step interface {
	Type() StepType
}

// ClickAnyStep 依次尝试点击选择器列表,第一个成功的生效
type ClickAnyStep struct {
	Selectors []Locator
}

func (s *ClickAnyStep) Type() StepType { return StepClickAny }

// FillFirstStep 依次尝试填充选择器列表,值取字面量或环境变量
type FillFirstStep struct {
	Selectors    []Locator
	Value        string
	ValueFromEnv string
}

func (s *FillFirstStep) Type() StepType { return StepFillFirst }

// WaitForDelayStep 固定等待
type WaitForDelayStep struct {
	MS int
}

func (s *WaitForDelayStep) Type() StepType { return StepWaitForDelay }

// WaitForSelectorStep 等待选择器出现,超时即步骤失败(非致命)
type WaitForSelectorStep struct {
	Selector  Locator
	TimeoutMS int
}

func (s *WaitForSelectorStep) Type() StepType { return StepWaitForSelector }

// parseStep 解析单个步骤节点
// 步骤是只有一个键的映射,键即步骤类型
// 未知步骤类型不报错: 记录日志后跳过(返回nil),站点配置常超前于代码
func parseStep(node *yaml.Node) (Step, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) < 2 {
		return nil, fmt.Errorf("第%d行: 步骤必须是单键映射", node.Line)
	}
	key := node.Content[0].Value
	valueNode := node.Content[1]

	switch StepType(key) {
	case StepClickAny:
		var raw struct {
			Selectors []string `yaml:"selectors"`
		}
		if err := valueNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("第%d行: click_any解析失败: %w", valueNode.Line, err)
		}
		if len(raw.Selectors) == 0 {
			return nil, fmt.Errorf("第%d行: click_any缺少selectors", valueNode.Line)
		}
		return &ClickAnyStep{Selectors: parseLocators(raw.Selectors)}, nil

	case StepFillFirst:
		var raw struct {
			Selectors    []string `yaml:"selectors"`
			Value        string   `yaml:"value"`
			ValueFromEnv string   `yaml:"value_from_env"`
		}
		if err := valueNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("第%d行: fill_first解析失败: %w", valueNode.Line, err)
		}
		if len(raw.Selectors) == 0 {
			return nil, fmt.Errorf("第%d行: fill_first缺少selectors", valueNode.Line)
		}
		return &FillFirstStep{
			Selectors:    parseLocators(raw.Selectors),
			Value:        raw.Value,
			ValueFromEnv: raw.ValueFromEnv,
		}, nil

	case StepWaitForDelay:
		var raw struct {
			MS int `yaml:"ms"`
		}
		if err := valueNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("第%d行: wait_for_delay解析失败: %w", valueNode.Line, err)
		}
		return &WaitForDelayStep{MS: raw.MS}, nil

	case StepWaitForSelector:
		var raw struct {
			Selector  string `yaml:"selector"`
			TimeoutMS int    `yaml:"timeout"`
		}
		if err := valueNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("第%d行: wait_for_selector解析失败: %w", valueNode.Line, err)
		}
		if raw.TimeoutMS <= 0 {
			raw.TimeoutMS = 5000
		}
		return &WaitForSelectorStep{Selector: ParseLocator(raw.Selector), TimeoutMS: raw.TimeoutMS}, nil

	default:
		zap.L().Warn("未知步骤类型,已跳过",
			zap.String("step", key), zap.Int("line", node.Line))
		return nil, nil
	}
}

func parseSteps(nodes []yaml.Node) ([]Step, error) {
	steps := make([]Step, 0, len(nodes))
	for i := range nodes {
		step, err := parseStep(&nodes[i])
		if err != nil {
			return nil, err
		}
		if step == nil {
			continue
		}
		steps = append(steps, step)
	}
	return steps, nil
}
