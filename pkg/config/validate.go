package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Sriram-PR/ccf-scraper/pkg/utils"
)

const (
	defaultOutputFile   = "ccf_venues.csv"
	defaultStateDir     = "./scraper_state"
	defaultMaxBodyBytes = 10 << 20
	defaultTimeout      = 10 * time.Second
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	if c.OutputFile == "" {
		c.OutputFile = defaultOutputFile
	}

	if c.StateDir == "" {
		if c.EnableHistory {
			warnings = append(warnings, fmt.Sprintf("state_dir is empty, defaulting to '%s'", defaultStateDir))
		}
		c.StateDir = defaultStateDir
	}

	if c.MaxBodyBytes < 0 {
		warnings = append(warnings, "max_body_bytes cannot be negative, using default")
		c.MaxBodyBytes = 0
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}

	c.validateHTTPClientSettings()
	c.Markers.applyDefaults()

	if len(c.Fields) == 0 {
		warnings = append(warnings, "fields is empty, defaulting to the CCF recommendation list pages")
		c.Fields = DefaultFields()
	}

	seen := make(map[string]int, len(c.Fields))
	for i := range c.Fields {
		fieldWarnings, fieldErr := c.Fields[i].Validate()
		if fieldErr != nil {
			return warnings, fmt.Errorf("fields[%d]: %w", i, fieldErr)
		}
		warnings = append(warnings, fieldWarnings...)

		key, _, _ := utils.ParseAndNormalize(c.Fields[i].URL)
		if prev, dup := seen[key]; dup {
			warnings = append(warnings, fmt.Sprintf(
				"fields[%d] repeats the URL of fields[%d] (%s); its venues will be exported twice",
				i, prev, c.Fields[i].URL))
		} else {
			seen[key] = i
		}
	}

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = defaultTimeout
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 10
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 10 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

func (m *MarkerConfig) applyDefaults() {
	setDefault := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	setDefault(&m.JournalMarker, "刊物")
	setDefault(&m.ConferenceMarker, "会议")
	setDefault(&m.LevelAMarker, "A类")
	setDefault(&m.LevelBMarker, "B类")
	setDefault(&m.LevelCMarker, "C类")
	if len(m.HeaderRowMarkers) == 0 {
		m.HeaderRowMarkers = []string{"序号", "No."}
	}
	setDefault(&m.ListClass, "x-list3")
}

// Validate checks a single field entry.
// Returns collected warnings and any fatal error.
func (f *FieldConfig) Validate() (warnings []string, err error) {
	if f.Name == "" {
		return nil, fmt.Errorf("%w: field entry needs a name (url %q)", utils.ErrConfigValidation, f.URL)
	}
	if f.URL == "" {
		return nil, fmt.Errorf("%w: field '%s' needs a url", utils.ErrConfigValidation, f.Name)
	}

	u, parseErr := url.ParseRequestURI(f.URL)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: field '%s' has an invalid url: %v", utils.ErrConfigValidation, f.Name, parseErr)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: field '%s' url must be http(s), got scheme '%s'", utils.ErrConfigValidation, f.Name, u.Scheme)
	}
	if u.Scheme == "http" {
		warnings = append(warnings, fmt.Sprintf("field '%s' uses plain http", f.Name))
	}

	return warnings, nil
}
