// Package flowcfg 解析声明式自动化流程配置(YAML)
// 配置一次加载,进程生命周期内只读
package flowcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// maxExtendsDepth extends链的最大深度,超过视为配置错误
const maxExtendsDepth = 4

// FlowConfig 自动化配置根文档
type FlowConfig struct {
	StartURL   string
	ActiveFlow string
	Auth       Auth
	Flows      map[string]*Flow
	Extract    Extract
}

// Auth 认证步骤序列,失败不致命
type Auth struct {
	Steps []Step
}

// Flow 具名步骤序列,可通过extends继承父流程(父步骤先执行)
type Flow struct {
	Extends string
	Steps   []Step
}

// Extract 行提取配置
type Extract struct {
	RowSelector string
	Fields      map[string]FieldSpec
	Meta        Meta
}

// Meta 附加到每行结果的静态元数据
type Meta struct {
	Book          string
	League        string
	ScopeFromFlow map[string]string
	LivePlus      bool
}

type rawFlow struct {
	Extends string      `yaml:"extends"`
	Steps   []yaml.Node `yaml:"steps"`
}

type rawConfig struct {
	StartURL   string `yaml:"start_url"`
	ActiveFlow string `yaml:"active_flow"`
	Auth       struct {
		Steps []yaml.Node `yaml:"steps"`
	} `yaml:"auth"`
	Flows   map[string]rawFlow `yaml:"flows"`
	Extract struct {
		RowSelector string            `yaml:"row_selector"`
		Fields      map[string]string `yaml:"fields"`
		Meta        struct {
			Book          string            `yaml:"book"`
			League        string            `yaml:"league"`
			ScopeFromFlow map[string]string `yaml:"scope_from_flow"`
			LivePlus      bool              `yaml:"liveplus"`
		} `yaml:"meta"`
	} `yaml:"extract"`
}

// LoadFile 从文件加载流程配置
func LoadFile(path string) (*FlowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取流程配置失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析流程配置并做加载期校验
func Parse(data []byte) (*FlowConfig, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("流程配置YAML解析失败: %w", err)
	}

	cfg := &FlowConfig{
		StartURL:   raw.StartURL,
		ActiveFlow: raw.ActiveFlow,
		Flows:      make(map[string]*Flow, len(raw.Flows)),
	}

	authSteps, err := parseSteps(raw.Auth.Steps)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	cfg.Auth = Auth{Steps: authSteps}

	for name, rf := range raw.Flows {
		steps, err := parseSteps(rf.Steps)
		if err != nil {
			return nil, fmt.Errorf("flow %q: %w", name, err)
		}
		cfg.Flows[name] = &Flow{Extends: rf.Extends, Steps: steps}
	}

	cfg.Extract.RowSelector = raw.Extract.RowSelector
	cfg.Extract.Fields = make(map[string]FieldSpec, len(raw.Extract.Fields))
	for name, spec := range raw.Extract.Fields {
		fs, err := ParseFieldSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("extract.fields.%s: %w", name, err)
		}
		cfg.Extract.Fields[name] = fs
	}
	cfg.Extract.Meta = Meta{
		Book:          raw.Extract.Meta.Book,
		League:        raw.Extract.Meta.League,
		ScopeFromFlow: raw.Extract.Meta.ScopeFromFlow,
		LivePlus:      raw.Extract.Meta.LivePlus,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate 加载期校验extends链: 父流程必须存在,不允许环,深度不超过maxExtendsDepth
// 在这里失败比运行期无限递归好
func (fc *FlowConfig) validate() error {
	if fc.ActiveFlow != "" {
		if _, ok := fc.Flows[fc.ActiveFlow]; !ok {
			return fmt.Errorf("active_flow %q 不存在", fc.ActiveFlow)
		}
	}
	for name := range fc.Flows {
		if err := fc.checkExtendsChain(name); err != nil {
			return err
		}
	}
	return nil
}

func (fc *FlowConfig) checkExtendsChain(name string) error {
	seen := map[string]bool{}
	depth := 0
	for cur := name; ; {
		flow := fc.Flows[cur]
		if flow.Extends == "" {
			return nil
		}
		if depth++; depth > maxExtendsDepth {
			return fmt.Errorf("flow %q 的extends链深度超过%d", name, maxExtendsDepth)
		}
		if seen[cur] {
			return fmt.Errorf("flow %q 的extends链存在环", name)
		}
		seen[cur] = true
		if _, ok := fc.Flows[flow.Extends]; !ok {
			return fmt.Errorf("flow %q 继承的父流程 %q 不存在", cur, flow.Extends)
		}
		cur = flow.Extends
	}
}

// ResolveFlow 返回flow完整的步骤序列: 父流程步骤在前,自身步骤在后
// 配置已在加载期校验,这里的递归是有界的
func (fc *FlowConfig) ResolveFlow(name string) ([]Step, error) {
	flow, ok := fc.Flows[name]
	if !ok {
		return nil, fmt.Errorf("flow %q 不存在", name)
	}
	var steps []Step
	if flow.Extends != "" {
		parentSteps, err := fc.ResolveFlow(flow.Extends)
		if err != nil {
			return nil, err
		}
		steps = append(steps, parentSteps...)
	}
	return append(steps, flow.Steps...), nil
}
