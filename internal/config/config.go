package config

type Config struct {
	Logger struct {
		Level       string `json:"level"`
		Development bool   `json:"development"`
	} `json:"logger"`

	Browser struct {
		// Driver: rod(默认,带stealth) 或 chromedp
		Driver string `json:"driver"`
	} `json:"browser"`

	Rod struct {
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
		Leakless             bool   `json:"leakless"`
		Bin                  string `json:"bin"`
		NavigateTimeout      int    `json:"navigate_timeout_seconds"`
	} `json:"rod"`

	Chromedp struct {
		LifeTime             int    `json:"life_time"`
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
	} `json:"chromedp"`

	Storage struct {
		// Backend: sqlite 或 redis
		Backend    string `json:"backend"`
		SqlitePath string `json:"sqlite_path"`
		Redis      struct {
			Address  string `json:"address"`
			Password string `json:"password"`
			DB       int    `json:"db"`
			TTLHours int    `json:"ttl_hours"`
		} `json:"redis"`
	} `json:"storage"`

	Proxy struct {
		Enabled bool `json:"enabled"`
		// ProviderURL 代理服务商API(token通过环境变量PROXY_API_TOKEN注入)
		ProviderURL string `json:"provider_url"`
		// ScrapeURL 免费代理列表页,服务商不可用时的兜底来源
		ScrapeURL       string `json:"scrape_url"`
		CacheTTLMinutes int    `json:"cache_ttl_minutes"`
		TestURL         string `json:"test_url"`
		TestTimeout     int    `json:"test_timeout_seconds"`
	} `json:"proxy"`

	Capture struct {
		OutputDir   string   `json:"output_dir"`
		ChanSize    int      `json:"chan_size"`
		URLPatterns []string `json:"url_patterns"`
	} `json:"capture"`

	Elasticsearch struct {
		Enabled  bool   `json:"enabled"`
		Username string `json:"username"`
		Password string `json:"password"`
		Address  string `json:"address"`
	} `json:"elasticsearch"`

	Poll struct {
		// FlowConfigPath 声明式流程配置(YAML)路径
		FlowConfigPath string `json:"flow_config_path"`
		// CronSpec 轮询计划,如 "@every 45s"
		CronSpec     string `json:"cron_spec"`
		FieldTimeout int    `json:"field_timeout_ms"`
		StepTimeout  int    `json:"step_timeout_ms"`
		DumpDir      string `json:"dump_dir"`
		ChangeLogDir string `json:"change_log_dir"`
	} `json:"poll"`
}
