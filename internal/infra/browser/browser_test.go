package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// chromedp驱动把Eval契约中的零参函数表达式包一层调用后再交给Runtime.evaluate,
// 不包调用的话得到的是函数对象,后面的Promise不会被触发
func TestInvokeFnExpr(t *testing.T) {
	assert.Equal(t, "(() => 1)()", invokeFnExpr("() => 1"))

	js := `() => fetch("/Services.asmx/GetGameLines", {credentials: "same-origin"}).then(r => r.text())`
	wrapped := invokeFnExpr(js)
	assert.Equal(t, "("+js+")()", wrapped)
	assert.Equal(t, byte('('), wrapped[0])
	assert.Equal(t, "()", wrapped[len(wrapped)-2:])
}
