package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/failover/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
registrar:
  accessKeyId: id
  accessKeySecret: secret
domain: example.com.
cdnRecords:
  - match: "^cdn"
    port: 443
  - match: "^cdn-hk"
    port: 8443
testDomains:
  - www.example.com
  - static.example.com
timeout: 3000
retryCount: 3
cronExpression: "0 */5 * * * *"
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, ProviderAliDNS, cfg.Registrar.Provider)
	assert.Equal(t, DefaultRegionID, cfg.Registrar.RegionID)
	assert.Equal(t, "example.com", cfg.Domain, "trailing dot is trimmed")
	assert.Equal(t, 3*time.Second, cfg.Timeout.Duration())
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
	assert.True(t, cfg.ShouldRunOnStart())
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)

	rules := cfg.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, 443, rules[0].Port)
	assert.Equal(t, 8443, rules[1].Port)
	assert.True(t, rules[1].Pattern.MatchString("cdn-hk-1"))
}

func TestParse_LegacyKeys(t *testing.T) {
	doc := `
aliyun:
  accessKeyId: id
  accessKeySecret: secret
domain: example.com
cdnRecords:
  - match: "^cdn"
    port: 443
testDomains: [www.example.com]
timeout: 2s
cronString: "*/1 * * * *"
runOnStart: false
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "id", cfg.Registrar.AccessKeyID)
	assert.Equal(t, "*/1 * * * *", cfg.CronExpression)
	assert.Equal(t, 2*time.Second, cfg.Timeout.Duration())
	assert.Equal(t, DefaultRetryCount, cfg.RetryCount)
	assert.False(t, cfg.ShouldRunOnStart())
}

func TestParse_CredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvAccessKeyID, "env-id")
	t.Setenv(EnvAccessKeySecret, "env-secret")

	doc := `
domain: example.com
cdnRecords: [{match: "^cdn", port: 443}]
testDomains: [www.example.com]
cronExpression: "@every 1m"
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "env-id", cfg.Registrar.AccessKeyID)
	assert.Equal(t, "env-secret", cfg.Registrar.AccessKeySecret)
}

func TestParse_Invalid(t *testing.T) {
	withRegistrar := func(registrar, extra string) string {
		return `
registrar: ` + registrar + `
domain: example.com
testDomains: [www.example.com]
cronExpression: "*/1 * * * *"
` + extra
	}
	base := func(extra string) string {
		return withRegistrar("{accessKeyId: id, accessKeySecret: secret}", extra)
	}

	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "no rules",
			doc:   base(""),
			field: "cdnRecords",
		},
		{
			name:  "bad regex",
			doc:   base("cdnRecords: [{match: \"(\", port: 443}]"),
			field: "cdnRecords[0].match",
		},
		{
			name:  "bad port",
			doc:   base("cdnRecords: [{match: \"^cdn\", port: 70000}]"),
			field: "cdnRecords[0].port",
		},
		{
			name:  "negative retry count",
			doc:   base("cdnRecords: [{match: \"^cdn\", port: 443}]\nretryCount: -1"),
			field: "retryCount",
		},
		{
			name:  "page size too large",
			doc:   base("cdnRecords: [{match: \"^cdn\", port: 443}]\npageSize: 1000"),
			field: "pageSize",
		},
		{
			name:  "unknown timezone",
			doc:   base("cdnRecords: [{match: \"^cdn\", port: 443}]\ntimezone: Mars/Olympus"),
			field: "timezone",
		},
		{
			name:  "unknown provider",
			doc:   withRegistrar("{provider: route53}", "cdnRecords: [{match: \"^cdn\", port: 443}]"),
			field: "registrar.provider",
		},
		{
			name:  "bolt without path",
			doc:   withRegistrar("{provider: bolt}", "cdnRecords: [{match: \"^cdn\", port: 443}]"),
			field: "registrar.path",
		},
		{
			name:  "bad log level",
			doc:   base("cdnRecords: [{match: \"^cdn\", port: 443}]\nlog: {level: loud}"),
			field: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)

			var cfgErr *types.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %T", err)
			if tt.field != "" {
				assert.Equal(t, tt.field, cfgErr.Field)
			}
		})
	}
}

func TestParse_BadCronExpression(t *testing.T) {
	doc := `
registrar: {accessKeyId: id, accessKeySecret: secret}
domain: example.com
cdnRecords: [{match: "^cdn", port: 443}]
testDomains: [www.example.com]
cronExpression: "not a schedule"
`
	_, err := Parse([]byte(doc))
	var cfgErr *types.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "cronExpression", cfgErr.Field)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com", cfg.Domain)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogSummary_OmitsSecrets(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	summary := cfg.LogSummary()
	for _, v := range summary {
		assert.NotEqual(t, "secret", v)
	}
	assert.Equal(t, []string{"^cdn=>443", "^cdn-hk=>8443"}, summary["cdnRecords"])
}
