package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // schedule timezone must resolve on hosts without zoneinfo

	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/scheduler"
	"github.com/cuemby/failover/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the configuration is read from when no path is given
	DefaultPath = "config.yaml"

	DefaultTimezone    = "Asia/Shanghai"
	DefaultRegionID    = "cn-hangzhou"
	DefaultTimeout     = 5 * time.Second
	DefaultRetryCount  = 1
	DefaultConcurrency = 16
	DefaultPageSize    = 500

	// MaxPageSize is the largest page the registrar API accepts
	MaxPageSize = 500

	// Environment fallbacks for registrar credentials
	EnvAccessKeyID     = "ALIBABA_CLOUD_ACCESS_KEY_ID"
	EnvAccessKeySecret = "ALIBABA_CLOUD_ACCESS_KEY_SECRET"
)

// Provider selects the DomainRegistry implementation
type Provider string

const (
	ProviderAliDNS Provider = "alidns"
	ProviderBolt   Provider = "bolt"
)

// Milliseconds is a duration configured as an integer number of
// milliseconds, or as a Go duration string ("5s").
type Milliseconds time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (m *Milliseconds) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if ms, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*m = Milliseconds(time.Duration(ms) * time.Millisecond)
		return nil
	}
	d, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, value.Value)
	}
	*m = Milliseconds(d)
	return nil
}

// Duration returns the time.Duration value
func (m Milliseconds) Duration() time.Duration {
	return time.Duration(m)
}

// RegistrarConfig holds registrar credentials and provider selection
type RegistrarConfig struct {
	Provider        Provider `yaml:"provider"`
	RegionID        string   `yaml:"regionId"`
	AccessKeyID     string   `yaml:"accessKeyId"`
	AccessKeySecret string   `yaml:"accessKeySecret"`

	// Path is the database file of the bolt provider
	Path string `yaml:"path"`
}

// CdnRecord is the configured form of a CDN rule
type CdnRecord struct {
	Match string `yaml:"match"`
	Port  int    `yaml:"port"`
}

// LogConfig configures pkg/log
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// APIConfig configures the status server
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the process-wide configuration. It is loaded once and must not
// be mutated afterwards.
type Config struct {
	Registrar RegistrarConfig `yaml:"registrar"`

	// Aliyun is the registrar block under its legacy key
	Aliyun *RegistrarConfig `yaml:"aliyun,omitempty"`

	Domain      string       `yaml:"domain"`
	CdnRecords  []CdnRecord  `yaml:"cdnRecords"`
	TestDomains []string     `yaml:"testDomains"`
	Timeout     Milliseconds `yaml:"timeout"`
	RetryCount  int          `yaml:"retryCount"`

	CronExpression string `yaml:"cronExpression"`
	// CronString is accepted as an alias of CronExpression
	CronString string `yaml:"cronString,omitempty"`
	Timezone   string `yaml:"timezone"`
	RunOnStart *bool  `yaml:"runOnStart,omitempty"`

	Concurrency int  `yaml:"concurrency"`
	PageSize    int  `yaml:"pageSize"`
	DryRun      bool `yaml:"dryRun"`

	Log LogConfig `yaml:"log"`
	API APIConfig `yaml:"api"`

	rules    []types.CdnRule
	location *time.Location
}

// Load reads, defaults and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &types.ConfigurationError{Reason: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Aliyun != nil && c.Registrar == (RegistrarConfig{}) {
		c.Registrar = *c.Aliyun
	}
	if c.Registrar.Provider == "" {
		c.Registrar.Provider = ProviderAliDNS
	}
	if c.Registrar.RegionID == "" {
		c.Registrar.RegionID = DefaultRegionID
	}
	if c.Registrar.AccessKeyID == "" {
		c.Registrar.AccessKeyID = os.Getenv(EnvAccessKeyID)
	}
	if c.Registrar.AccessKeySecret == "" {
		c.Registrar.AccessKeySecret = os.Getenv(EnvAccessKeySecret)
	}

	c.Domain = strings.TrimSuffix(strings.TrimSpace(c.Domain), ".")

	if c.CronExpression == "" {
		c.CronExpression = c.CronString
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.RunOnStart == nil {
		runOnStart := true
		c.RunOnStart = &runOnStart
	}
	if c.Timeout == 0 {
		c.Timeout = Milliseconds(DefaultTimeout)
	}
	if c.RetryCount == 0 {
		c.RetryCount = DefaultRetryCount
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
}

// Validate checks every option and compiles the CDN rules.
// All failures are *types.ConfigurationError.
func (c *Config) Validate() error {
	switch c.Registrar.Provider {
	case ProviderAliDNS:
		if c.Registrar.AccessKeyID == "" || c.Registrar.AccessKeySecret == "" {
			return &types.ConfigurationError{Field: "registrar", Reason: "accessKeyId and accessKeySecret are required"}
		}
	case ProviderBolt:
		if c.Registrar.Path == "" {
			return &types.ConfigurationError{Field: "registrar.path", Reason: "required for the bolt provider"}
		}
	default:
		return &types.ConfigurationError{Field: "registrar.provider", Reason: fmt.Sprintf("unknown provider %q", c.Registrar.Provider)}
	}

	if c.Domain == "" {
		return &types.ConfigurationError{Field: "domain", Reason: "required"}
	}

	if len(c.CdnRecords) == 0 {
		return &types.ConfigurationError{Field: "cdnRecords", Reason: "at least one rule is required"}
	}
	rules := make([]types.CdnRule, 0, len(c.CdnRecords))
	for i, r := range c.CdnRecords {
		field := fmt.Sprintf("cdnRecords[%d]", i)
		if r.Match == "" {
			return &types.ConfigurationError{Field: field + ".match", Reason: "required"}
		}
		if r.Port < 1 || r.Port > 65535 {
			return &types.ConfigurationError{Field: field + ".port", Reason: fmt.Sprintf("port %d out of range", r.Port)}
		}
		rule, err := types.NewCdnRule(r.Match, r.Port)
		if err != nil {
			return &types.ConfigurationError{Field: field + ".match", Reason: err.Error()}
		}
		rules = append(rules, rule)
	}

	if len(c.TestDomains) == 0 {
		return &types.ConfigurationError{Field: "testDomains", Reason: "at least one canary hostname is required"}
	}
	for i, host := range c.TestDomains {
		if strings.TrimSpace(host) == "" {
			return &types.ConfigurationError{Field: fmt.Sprintf("testDomains[%d]", i), Reason: "empty hostname"}
		}
	}

	if c.Timeout.Duration() <= 0 {
		return &types.ConfigurationError{Field: "timeout", Reason: "must be positive"}
	}
	if c.RetryCount < 1 {
		return &types.ConfigurationError{Field: "retryCount", Reason: "must be at least 1"}
	}
	if c.Concurrency < 1 {
		return &types.ConfigurationError{Field: "concurrency", Reason: "must be at least 1"}
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return &types.ConfigurationError{Field: "pageSize", Reason: fmt.Sprintf("must be between 1 and %d", MaxPageSize)}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return &types.ConfigurationError{Field: "timezone", Reason: err.Error()}
	}
	if c.CronExpression == "" {
		return &types.ConfigurationError{Field: "cronExpression", Reason: "required"}
	}
	if err := scheduler.ValidateExpression(c.CronExpression); err != nil {
		return &types.ConfigurationError{Field: "cronExpression", Reason: err.Error()}
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return &types.ConfigurationError{Field: "log.level", Reason: err.Error()}
	}

	c.rules = rules
	c.location = loc
	return nil
}

// Rules returns the compiled CDN rules in configuration order
func (c *Config) Rules() []types.CdnRule {
	return c.rules
}

// Location returns the timezone the schedule is evaluated in
func (c *Config) Location() *time.Location {
	return c.location
}

// ShouldRunOnStart reports whether a pass runs as soon as the scheduler starts
func (c *Config) ShouldRunOnStart() bool {
	return c.RunOnStart == nil || *c.RunOnStart
}

// LogSummary returns the non-secret settings for startup logging
func (c *Config) LogSummary() map[string]interface{} {
	matches := make([]string, 0, len(c.CdnRecords))
	for _, r := range c.CdnRecords {
		matches = append(matches, fmt.Sprintf("%s=>%d", r.Match, r.Port))
	}
	return map[string]interface{}{
		"provider":       string(c.Registrar.Provider),
		"domain":         c.Domain,
		"cdnRecords":     matches,
		"testDomains":    c.TestDomains,
		"timeout":        c.Timeout.Duration().String(),
		"retryCount":     c.RetryCount,
		"cronExpression": c.CronExpression,
		"timezone":       c.Timezone,
		"concurrency":    c.Concurrency,
		"dryRun":         c.DryRun,
	}
}
