package config

import "time"

// DefaultUserAgent mimics a common desktop browser
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// FieldConfig names one academic field and the listing page that carries its venues
type FieldConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// MarkerConfig holds the text and class markers used to recognise the listing markup.
// Empty values fall back to the CCF defaults.
type MarkerConfig struct {
	JournalMarker    string   `yaml:"journal_marker,omitempty"`    // Substring of a type heading meaning "journals"
	ConferenceMarker string   `yaml:"conference_marker,omitempty"` // Substring of a type heading meaning "conferences"
	LevelAMarker     string   `yaml:"level_a_marker,omitempty"`
	LevelBMarker     string   `yaml:"level_b_marker,omitempty"`
	LevelCMarker     string   `yaml:"level_c_marker,omitempty"`
	HeaderRowMarkers []string `yaml:"header_row_markers,omitempty"` // Any of these in the first cell marks a header row
	ListClass        string   `yaml:"list_class,omitempty"`         // Class of the <ul> that renders a data table
}

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent          string           `yaml:"user_agent,omitempty"`
	OutputFile         string           `yaml:"output_file,omitempty"`
	StateDir           string           `yaml:"state_dir,omitempty"`
	EnableHistory      bool             `yaml:"enable_history,omitempty"` // Record per-page outcomes in the history store
	MaxBodyBytes       int64            `yaml:"max_body_bytes,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Markers            MarkerConfig     `yaml:"markers,omitempty"`
	Fields             []FieldConfig    `yaml:"fields"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// DefaultFields returns the CCF recommendation list pages, one per academic field, in publication order
func DefaultFields() []FieldConfig {
	const base = "https://www.ccf.org.cn/Academic_Evaluation/"
	return []FieldConfig{
		{Name: "计算机体系结构/并行与分布计算/存储系统", URL: base + "ARCH_DCP_SS/"},
		{Name: "计算机网络", URL: base + "CN/"},
		{Name: "网络与信息安全", URL: base + "NIS/"},
		{Name: "软件工程/系统软件/程序设计语言", URL: base + "TCSE_SS_PDL/"},
		{Name: "数据库/数据挖掘/内容检索", URL: base + "DM_CS/"},
		{Name: "计算机科学理论", URL: base + "TCS/"},
		{Name: "计算机图形学与多媒体", URL: base + "CGAndMT/"},
		{Name: "人工智能", URL: base + "AI/"},
		{Name: "人机交互与普适计算", URL: base + "HCIAndPC/"},
		{Name: "交叉/综合/新兴", URL: base + "Cross_Compre_Emerging/"},
	}
}

// DefaultAppConfig returns a configuration that reproduces the stock CCF scrape
func DefaultAppConfig() *AppConfig {
	cfg := &AppConfig{Fields: DefaultFields()}
	cfg.Validate()
	return cfg
}

// DefaultMarkers returns the markers of the CCF listing pages
func DefaultMarkers() MarkerConfig {
	var m MarkerConfig
	m.applyDefaults()
	return m
}
