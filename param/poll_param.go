package param

// Poll 单轮采集选项,描述一个盘口目标
type Poll struct {
	Source             string   `json:"source"`
	Sport              string   `json:"sport"`
	League             string   `json:"league"`
	FeedEndpoints      []string `json:"feed_endpoints"`
	VendorHints        []string `json:"vendor_hints"`
	FilterTexts        []string `json:"filter_texts"`
	EvalTimeoutSeconds int      `json:"eval_timeout_seconds"`
}
