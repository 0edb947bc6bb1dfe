package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 30, cfg.Seats.RenewalWindowDays)
	assert.Equal(t, 50, cfg.Payments.MaxFetch)
	assert.Equal(t, 10, cfg.Payments.PageSize)
	assert.Equal(t, "free", cfg.Redemption.FreePlanID)
	assert.Equal(t, 15*time.Minute, cfg.Redemption.OrphanTimeout)
	assert.Equal(t, "admin", cfg.Auth.AdminScope)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := chdirTemp(t)

	yml := []byte("app:\n  port: \"9090\"\npayments:\n  pageSize: 25\nseats:\n  renewalWindowDays: 14\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o600))
	t.Setenv("SEATS_RENEWALWINDOWDAYS", "7")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 25, cfg.Payments.PageSize)
	assert.Equal(t, 7, cfg.Seats.RenewalWindowDays)
}

func TestLoadConfigMissingEnvFileIsIgnored(t *testing.T) {
	chdirTemp(t)

	_, err := LoadConfig(".env.missing")
	assert.NoError(t, err)
}
