package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "0 3 * * *", cfg.AuditVerifyCron)
	assert.Equal(t, 10*time.Minute, cfg.RulesCacheTTL)
	assert.Equal(t, "en", cfg.ComplianceLang)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("EXPORT_MAX_RANGE", "720h")
	t.Setenv("COMPLIANCE_LANG", "de")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 720*time.Hour, cfg.ExportMaxRange)
	assert.Equal(t, "de", cfg.ComplianceLang)
}

func TestLoadConfigRejectsInvalidCron(t *testing.T) {
	t.Setenv("AUDIT_VERIFY_CRON", "every night")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "AUDIT_VERIFY_CRON")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel(" Warning ").String())
	assert.Equal(t, "INFO", parseLevel("verbose").String())
}

func TestInTestMode(t *testing.T) {
	t.Cleanup(RefreshTestMode)
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
