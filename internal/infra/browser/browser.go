// Package browser 浏览器页面驱动
// 同一接口下维护rod和chromedp两套实现,rod为主(带stealth),chromedp为备
package browser

import (
	"time"

	"github.com/LouYuanbo1/crawleragent/internal/flowcfg"
	"github.com/LouYuanbo1/crawleragent/internal/infra/capture"
)

// Page 一个被独占使用的浏览器页面
// 同一时刻只允许一个流程/采集调用操作该页面,不支持并发导航
type Page interface {
	// Navigate 导航并等待页面稳定,失败是致命错误(调用方负责留现场)
	Navigate(url string) error
	// Click 在timeout内定位元素并点击
	Click(loc flowcfg.Locator, timeout time.Duration) error
	// Fill 在timeout内定位元素,清空后输入value
	Fill(loc flowcfg.Locator, value string, timeout time.Duration) error
	// WaitVisible 等待元素可见
	WaitVisible(loc flowcfg.Locator, timeout time.Duration) error
	// Eval 在页面内执行JS并返回字符串结果
	// js必须是零参函数表达式(如"() => fetch(...).then(r => r.text())"),
	// 驱动负责调用并等待返回的Promise
	Eval(js string, timeout time.Duration) (string, error)
	// Rows 返回行选择器匹配的全部行句柄
	Rows(selector string) ([]Row, error)
	// FrameRowsText 定位最可能的内容iframe,在frame内尽力点击filterTexts各项,
	// 然后返回frame中各行的文本
	// frame选择: 优先URL命中vendorHints,其次面积最大,找不到则退回主文档
	FrameRowsText(vendorHints []string, filterTexts []string, rowSelector string) ([]string, error)
	// PageText 返回body的全部文本,用于诊断现场
	PageText() (string, error)
	// Screenshot 截图写入path
	Screenshot(path string) error
	// SetNetworkListener 拦截URL包含任一pattern子串的响应,投递到ch
	// 投递是非阻塞的: 通道满则丢弃,响应体不可得则投miss
	SetNetworkListener(patterns []string, ch chan<- *capture.Response)
	Close()
}

// Row 单行元素句柄
type Row interface {
	// Text 整行文本
	Text() (string, error)
	// FieldText 按字段规则在行内提取文本,无匹配返回nil
	FieldText(spec flowcfg.FieldSpec, timeout time.Duration) (*string, error)
}

// textAllDelim textall模式的拼接分隔符
const textAllDelim = " | "

// invokeFnExpr 把零参函数表达式包成一次调用
// rod的Evaluate会自动调用传入的函数,CDP的Runtime.evaluate不会,需要显式调用
func invokeFnExpr(js string) string {
	return "(" + js + ")()"
}
