package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/config"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxy-deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
management:
  org: org
  api: gulp-v1
  username: file-user
  password: file-password
environments:
  test: {}
`), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Cleanup(viper.Reset)

	path := writeConfig(t)
	t.Setenv("PROXY_CONFIG", path)
	t.Setenv("PROXY_PASSWORD", "env-password")
	t.Setenv("PROXY_SRC", "build/apiproxy")
	loadEnv()

	assert.Equal(t, path, ConfigFile())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-user", cfg.Management.Username)
	assert.Equal(t, "env-password", cfg.Management.Password)
	assert.Equal(t, "build/apiproxy", cfg.Proxy.Source)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	assert.Equal(t, DefaultConfigFile, ConfigFile())
	assert.Empty(t, Environment())
	assert.False(t, Verbose())
}

func TestRequireEnvironment(t *testing.T) {
	t.Cleanup(viper.Reset)
	cfg := &config.Config{Environments: map[string]config.EnvironmentConfig{"test": {}, "prod": {}}}

	_, err := RequireEnvironment(cfg)
	assert.EqualError(t, err, "environment is required (set --env or PROXY_ENV; configured: prod, test)")

	viper.Set("env", "test")
	env, err := RequireEnvironment(cfg)
	require.NoError(t, err)
	assert.Equal(t, "test", env)
}

func TestPromptPassword_NonInteractive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	opts := &models.DeploymentOptions{Username: "username"}
	require.NoError(t, PromptPassword(opts, f, os.Stderr))
	assert.Empty(t, opts.Password)

	opts.Password = "set"
	require.NoError(t, PromptPassword(opts, nil, os.Stderr))
	assert.Equal(t, "set", opts.Password)
}

func TestValidateRemote(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	assert.EqualError(t, ValidateRemote(), "proxyd URL is required (set PROXY_SERVER or --server)")

	t.Setenv("PROXY_SERVER", "http://proxyd:8080")
	t.Setenv("PROXY_API_KEY", "secret")
	loadEnv()

	require.NoError(t, ValidateRemote())
	assert.Equal(t, "http://proxyd:8080", ServerURL())
	assert.Equal(t, "secret", APIKey())
}
