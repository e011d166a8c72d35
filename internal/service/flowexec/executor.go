// Package flowexec 声明式自动化流程执行器
// 按配置驱动页面完成认证、导航和行提取,步骤失败不致命
package flowexec

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/flowcfg"
	"github.com/LouYuanbo1/crawleragent/internal/infra/browser"
)

// RowResult 单行提取结果
// 字段超时或提取失败只置nil,不影响同行其它字段
type RowResult struct {
	Fields map[string]*string `json:"fields"`
	Book   string             `json:"book"`
	League string             `json:"league"`
	Scope  string             `json:"scope"`
	Live   bool               `json:"live"`
}

type Executor struct {
	cfg          *flowcfg.FlowConfig
	stepTimeout  time.Duration
	fieldTimeout time.Duration
}

func InitExecutor(cfg *flowcfg.FlowConfig, stepTimeout, fieldTimeout time.Duration) *Executor {
	return &Executor{
		cfg:          cfg,
		stepTimeout:  stepTimeout,
		fieldTimeout: fieldTimeout,
	}
}

// Authenticate 执行认证步骤序列
// 认证失败不致命: 部分流程未登录也能走通,站点允许时继续未认证执行
func (e *Executor) Authenticate(page browser.Page) bool {
	if len(e.cfg.Auth.Steps) == 0 {
		zap.L().Debug("无认证步骤,跳过认证")
		return true
	}
	ok := true
	for i, step := range e.cfg.Auth.Steps {
		if !e.runStep(page, step) {
			zap.L().Warn("认证步骤失败,继续执行", zap.Int("step", i), zap.String("type", string(step.Type())))
			ok = false
		}
	}
	return ok
}

// ExecuteFlow 执行具名流程
// extends在配置解析时已完成校验,这里展开后父步骤先执行
func (e *Executor) ExecuteFlow(page browser.Page, flowName string) bool {
	if flowName == "" {
		flowName = e.cfg.ActiveFlow
	}
	steps, err := e.cfg.ResolveFlow(flowName)
	if err != nil {
		zap.L().Error("流程展开失败", zap.String("flow", flowName), zap.Error(err))
		return false
	}
	zap.L().Info("开始执行流程", zap.String("flow", flowName), zap.Int("steps", len(steps)))

	ok := true
	for i, step := range steps {
		if !e.runStep(page, step) {
			// 步骤失败不中断: 可选弹窗(cookie横幅/推广弹层)缺席不应打断导航
			zap.L().Warn("步骤失败,继续下一步", zap.String("flow", flowName), zap.Int("step", i), zap.String("type", string(step.Type())))
			ok = false
		}
	}
	return ok
}

// runStep 执行单个步骤,返回是否成功
func (e *Executor) runStep(page browser.Page, step flowcfg.Step) bool {
	switch s := step.(type) {
	case *flowcfg.ClickAnyStep:
		return e.clickAny(page, s)
	case *flowcfg.FillFirstStep:
		return e.fillFirst(page, s)
	case *flowcfg.WaitForDelayStep:
		time.Sleep(time.Duration(s.MS) * time.Millisecond)
		return true
	case *flowcfg.WaitForSelectorStep:
		timeout := time.Duration(s.TimeoutMS) * time.Millisecond
		if err := page.WaitVisible(s.Selector, timeout); err != nil {
			zap.L().Debug("等待选择器超时", zap.String("selector", s.Selector.String()), zap.Error(err))
			return false
		}
		return true
	default:
		zap.L().Warn("未知步骤类型,跳过", zap.String("type", string(step.Type())))
		return true
	}
}

// clickAny 依次尝试选择器,第一个点击成功的生效,后面的不再尝试
func (e *Executor) clickAny(page browser.Page, s *flowcfg.ClickAnyStep) bool {
	for _, loc := range s.Selectors {
		if err := page.Click(loc, e.stepTimeout); err != nil {
			zap.L().Debug("点击尝试失败", zap.String("selector", loc.String()), zap.Error(err))
			continue
		}
		zap.L().Debug("点击成功", zap.String("selector", loc.String()))
		return true
	}
	return false
}

// fillFirst 依次尝试选择器填充,值取字面量或环境变量
// 环境变量缺失按步骤失败处理,同样不致命: 缺凭据时降级为未认证
func (e *Executor) fillFirst(page browser.Page, s *flowcfg.FillFirstStep) bool {
	value := s.Value
	if s.ValueFromEnv != "" {
		value = os.Getenv(s.ValueFromEnv)
		if value == "" {
			zap.L().Warn("环境变量未设置,填充步骤失败", zap.String("env", s.ValueFromEnv))
			return false
		}
	}
	for _, loc := range s.Selectors {
		if err := page.Fill(loc, value, e.stepTimeout); err != nil {
			zap.L().Debug("填充尝试失败", zap.String("selector", loc.String()), zap.Error(err))
			continue
		}
		return true
	}
	return false
}

// ExtractData 按行选择器提取全部行
// 每个字段单独限时,超时或出错只置nil;单行失败不影响整页
func (e *Executor) ExtractData(page browser.Page) []RowResult {
	rows, err := page.Rows(e.cfg.Extract.RowSelector)
	if err != nil {
		zap.L().Warn("行选择器匹配失败", zap.String("selector", e.cfg.Extract.RowSelector), zap.Error(err))
		return nil
	}

	meta := e.cfg.Extract.Meta
	scope := meta.ScopeFromFlow[e.cfg.ActiveFlow]

	results := make([]RowResult, 0, len(rows))
	for i, row := range rows {
		fields := make(map[string]*string, len(e.cfg.Extract.Fields))
		for name, spec := range e.cfg.Extract.Fields {
			text, err := row.FieldText(spec, e.fieldTimeout)
			if err != nil {
				zap.L().Debug("字段提取失败", zap.Int("row", i), zap.String("field", name), zap.Error(err))
				fields[name] = nil
				continue
			}
			fields[name] = text
		}
		results = append(results, RowResult{
			Fields: fields,
			Book:   meta.Book,
			League: meta.League,
			Scope:  scope,
			Live:   meta.LivePlus,
		})
	}
	zap.L().Info("行提取完成", zap.Int("rows", len(results)))
	return results
}
