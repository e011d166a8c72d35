package flowexec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LouYuanbo1/crawleragent/internal/flowcfg"
	"github.com/LouYuanbo1/crawleragent/internal/infra/browser"
	"github.com/LouYuanbo1/crawleragent/internal/infra/capture"
)

// fakePage 记录交互序列的假页面
type fakePage struct {
	clicked    []string
	filled     map[string]string
	failClicks map[string]bool
	failFills  map[string]bool
	rows       []browser.Row
	rowsErr    error
	waited     []string
	failWaits  map[string]bool
}

func newFakePage() *fakePage {
	return &fakePage{
		filled:     map[string]string{},
		failClicks: map[string]bool{},
		failFills:  map[string]bool{},
		failWaits:  map[string]bool{},
	}
}

func (f *fakePage) Navigate(url string) error { return nil }

func (f *fakePage) Click(loc flowcfg.Locator, timeout time.Duration) error {
	f.clicked = append(f.clicked, loc.Value)
	if f.failClicks[loc.Value] {
		return errors.New("元素不存在")
	}
	return nil
}

func (f *fakePage) Fill(loc flowcfg.Locator, value string, timeout time.Duration) error {
	if f.failFills[loc.Value] {
		return errors.New("元素不存在")
	}
	f.filled[loc.Value] = value
	return nil
}

func (f *fakePage) WaitVisible(loc flowcfg.Locator, timeout time.Duration) error {
	f.waited = append(f.waited, loc.Value)
	if f.failWaits[loc.Value] {
		return errors.New("超时")
	}
	return nil
}

func (f *fakePage) Eval(js string, timeout time.Duration) (string, error) { return "", nil }

func (f *fakePage) Rows(selector string) ([]browser.Row, error) {
	return f.rows, f.rowsErr
}

func (f *fakePage) FrameRowsText(vendorHints []string, filterTexts []string, rowSelector string) ([]string, error) {
	return nil, nil
}

func (f *fakePage) PageText() (string, error) { return "", nil }
func (f *fakePage) Screenshot(path string) error { return nil }
func (f *fakePage) SetNetworkListener(patterns []string, ch chan<- *capture.Response) {}
func (f *fakePage) Close() {}

// fakeRow 固定字段文本的假行
type fakeRow struct {
	texts map[string]*string
	errs  map[string]error
}

func (r *fakeRow) Text() (string, error) { return "", nil }

func (r *fakeRow) FieldText(spec flowcfg.FieldSpec, timeout time.Duration) (*string, error) {
	if err, ok := r.errs[spec.Selector]; ok {
		return nil, err
	}
	return r.texts[spec.Selector], nil
}

func strptr(s string) *string { return &s }

func mustLocators(raws ...string) []flowcfg.Locator {
	locs := make([]flowcfg.Locator, 0, len(raws))
	for _, raw := range raws {
		locs = append(locs, flowcfg.ParseLocator(raw))
	}
	return locs
}

func TestClickAny_FirstSuccessWins(t *testing.T) {
	page := newFakePage()
	page.failClicks["a"] = true

	exec := InitExecutor(&flowcfg.FlowConfig{}, time.Second, time.Second)
	ok := exec.runStep(page, &flowcfg.ClickAnyStep{Selectors: mustLocators("a", "b", "c")})

	assert.True(t, ok)
	// a失败后b成功,c不再被尝试
	assert.Equal(t, []string{"a", "b"}, page.clicked)
}

func TestClickAny_AllFailIsNonFatal(t *testing.T) {
	page := newFakePage()
	page.failClicks["a"] = true
	page.failClicks["b"] = true

	exec := InitExecutor(&flowcfg.FlowConfig{}, time.Second, time.Second)
	ok := exec.runStep(page, &flowcfg.ClickAnyStep{Selectors: mustLocators("a", "b")})
	assert.False(t, ok)
}

func TestFillFirst_EnvValue(t *testing.T) {
	page := newFakePage()
	t.Setenv("BOOK_PASSWORD", "s3cret")

	exec := InitExecutor(&flowcfg.FlowConfig{}, time.Second, time.Second)
	ok := exec.runStep(page, &flowcfg.FillFirstStep{
		Selectors:    mustLocators("input[type=password]"),
		ValueFromEnv: "BOOK_PASSWORD",
	})

	assert.True(t, ok)
	assert.Equal(t, "s3cret", page.filled["input[type=password]"])
}

func TestFillFirst_MissingEnvFailsSoft(t *testing.T) {
	page := newFakePage()
	t.Setenv("BOOK_PASSWORD", "")

	exec := InitExecutor(&flowcfg.FlowConfig{}, time.Second, time.Second)
	ok := exec.runStep(page, &flowcfg.FillFirstStep{
		Selectors:    mustLocators("input"),
		ValueFromEnv: "BOOK_PASSWORD",
	})

	assert.False(t, ok)
	assert.Empty(t, page.filled)
}

func TestExecuteFlow_ParentStepsFirst(t *testing.T) {
	page := newFakePage()

	base := &flowcfg.Flow{Steps: []flowcfg.Step{
		&flowcfg.ClickAnyStep{Selectors: mustLocators("nav")},
	}}
	child := &flowcfg.Flow{Extends: "base", Steps: []flowcfg.Step{
		&flowcfg.ClickAnyStep{Selectors: mustLocators("nfl")},
	}}
	cfg := &flowcfg.FlowConfig{
		ActiveFlow: "nfl",
		Flows:      map[string]*flowcfg.Flow{"base": base, "nfl": child},
	}

	exec := InitExecutor(cfg, time.Second, time.Second)
	ok := exec.ExecuteFlow(page, "")

	assert.True(t, ok)
	assert.Equal(t, []string{"nav", "nfl"}, page.clicked)
}

func TestExecuteFlow_StepFailureContinues(t *testing.T) {
	page := newFakePage()
	page.failClicks["promo-close"] = true

	cfg := &flowcfg.FlowConfig{
		ActiveFlow: "main",
		Flows: map[string]*flowcfg.Flow{
			"main": {Steps: []flowcfg.Step{
				&flowcfg.ClickAnyStep{Selectors: mustLocators("promo-close")},
				&flowcfg.ClickAnyStep{Selectors: mustLocators("lines")},
			}},
		},
	}

	exec := InitExecutor(cfg, time.Second, time.Second)
	ok := exec.ExecuteFlow(page, "main")

	// 返回失败但后续步骤照常执行
	assert.False(t, ok)
	assert.Equal(t, []string{"promo-close", "lines"}, page.clicked)
}

func TestExtractData_FieldErrorYieldsNilSiblingIntact(t *testing.T) {
	page := newFakePage()
	page.rows = []browser.Row{
		&fakeRow{
			texts: map[string]*string{".team": strptr("Bills")},
			errs:  map[string]error{".spread": errors.New("超时")},
		},
	}

	teamSpec, err := flowcfg.ParseFieldSpec(".team::textone")
	require.NoError(t, err)
	spreadSpec, err := flowcfg.ParseFieldSpec(".spread::textone")
	require.NoError(t, err)

	cfg := &flowcfg.FlowConfig{
		ActiveFlow: "nfl",
		Extract: flowcfg.Extract{
			RowSelector: ".row",
			Fields:      map[string]flowcfg.FieldSpec{"team": teamSpec, "spread": spreadSpec},
			Meta: flowcfg.Meta{
				Book:          "heritage",
				League:        "nfl",
				ScopeFromFlow: map[string]string{"nfl": "game"},
				LivePlus:      true,
			},
		},
	}

	exec := InitExecutor(cfg, time.Second, time.Second)
	results := exec.ExtractData(page)

	require.Len(t, results, 1)
	row := results[0]
	require.NotNil(t, row.Fields["team"])
	assert.Equal(t, "Bills", *row.Fields["team"])
	assert.Nil(t, row.Fields["spread"])
	assert.Equal(t, "heritage", row.Book)
	assert.Equal(t, "game", row.Scope)
	assert.True(t, row.Live)
}

func TestExecuteFlow_UnknownFlow(t *testing.T) {
	cfg := &flowcfg.FlowConfig{Flows: map[string]*flowcfg.Flow{}}
	exec := InitExecutor(cfg, time.Second, time.Second)
	assert.False(t, exec.ExecuteFlow(newFakePage(), "nope"))
}
