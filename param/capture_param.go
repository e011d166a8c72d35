package param

// Capture 纯抓包运行选项
type Capture struct {
	Url             string   `json:"url"`
	DurationSeconds int      `json:"duration_seconds"`
	Patterns        []string `json:"patterns"`
}

// ProxyCheck 代理池体检选项
type ProxyCheck struct {
	ProviderUrl string `json:"provider_url"`
	ScrapeUrl   string `json:"scrape_url"`
}
