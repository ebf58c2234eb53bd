package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(contents), 0644))
	return configFile
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		env         map[string]string
		expectError bool
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "complete valid config",
			configYAML: `
server:
  port: 8080
  api_keys:
    - name: "test-key"
      key: "test-secret"

management:
  base_url: "https://apigee.internal/v1"
  timeout: 30s
  org: "org"
  api: "gulp-v1"
  username: "username"
  password: "password"
  override: true
  delay: 5

proxy:
  source: "src/apiproxy"
  base: "src"
  bundle: "gulp-v1.zip"

git:
  path: "/tmp/repo"

environments:
  test:
    replace:
      apiproxy/gulp-v1.xml:
        - xpath: /APIProxy/Description
          value: "example api $tags on commit $shortHash at $committedDate"
  prod:
    env: "production"
    delay: 0

database:
  path: "/tmp/test.db"

logging:
  level: "debug"
  format: "json"
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Len(t, cfg.Server.APIKeys, 1)
				assert.Equal(t, "https://apigee.internal/v1", cfg.Management.BaseURL)
				assert.Equal(t, 30*time.Second, cfg.Management.Timeout)
				assert.Equal(t, "src/apiproxy", cfg.Proxy.Source)
				assert.Equal(t, "src", cfg.Proxy.Base)
				assert.Equal(t, "gulp-v1.zip", cfg.Proxy.Bundle)
				assert.Equal(t, "/tmp/repo", cfg.Git.Path)
				assert.Equal(t, []string{"prod", "test"}, cfg.EnvironmentNames())
				assert.Equal(t, []models.ReplacementRule{{
					Locator: "/APIProxy/Description",
					Value:   "example api $tags on commit $shortHash at $committedDate",
				}}, cfg.Environments["test"].Replace["apiproxy/gulp-v1.xml"])
				assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "config with environment variables",
			configYAML: `
management:
  username: "${TEST_APIGEE_USERNAME}"
  password: "${TEST_APIGEE_PASSWORD}"
server:
  port: ${TEST_PORT}
`,
			env: map[string]string{
				"TEST_APIGEE_USERNAME": "envuser",
				"TEST_APIGEE_PASSWORD": "envpass",
				"TEST_PORT":            "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "envuser", cfg.Management.Username)
				assert.Equal(t, "envpass", cfg.Management.Password)
				assert.Equal(t, 9090, cfg.Server.Port)
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  port: 8080
  invalid: [unclosed
`,
			expectError: true,
		},
		{
			name:        "invalid timeout",
			configYAML:  "management:\n  timeout: soon\n",
			expectError: true,
		},
		{
			name:       "empty config file",
			configYAML: "",
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "https://api.enterprise.apigee.com/v1", cfg.Management.BaseURL)
				assert.Equal(t, 60*time.Second, cfg.Management.Timeout)
				assert.Equal(t, "apiproxy", cfg.Proxy.Source)
				assert.Equal(t, ".", cfg.Proxy.Base)
				assert.Equal(t, "apiproxy.zip", cfg.Proxy.Bundle)
				assert.Equal(t, ".", cfg.Git.Path)
				assert.Equal(t, "/data/deployments.db", cfg.Database.Path)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
				assert.Empty(t, cfg.EnvironmentNames())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, tt.configYAML))

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_ORG", "acme")

	assert.Equal(t, "org: acme", expandEnv("org: ${TEST_ORG}"))
	assert.Equal(t, "value: $shortHash on $TEST_ORG", expandEnv("value: $shortHash on $TEST_ORG"))
	assert.Equal(t, "missing: ", expandEnv("missing: ${TEST_UNSET_VARIABLE}"))
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/non/existent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfigOptions(t *testing.T) {
	override := true
	delay := 5
	zero := 0

	cfg := &Config{
		Management: ManagementConfig{
			Org:      "org",
			API:      "gulp-v1",
			Username: "username",
			Password: "password",
			Override: &override,
			Delay:    &delay,
		},
		Environments: map[string]EnvironmentConfig{
			"test": {},
			"prod": {
				Env:      "production",
				Username: "prod-user",
				Delay:    &zero,
				Verbose:  true,
			},
		},
	}

	opts, err := cfg.Options("test")
	require.NoError(t, err)
	assert.Equal(t, &models.DeploymentOptions{
		Org:      "org",
		API:      "gulp-v1",
		Env:      "test",
		Username: "username",
		Password: "password",
		Override: &override,
		Delay:    &delay,
	}, opts)
	assert.NoError(t, models.Validate(models.OpDeploy, opts, &models.Bundle{Contents: []byte("x")}))

	opts, err = cfg.Options("prod")
	require.NoError(t, err)
	assert.Equal(t, "production", opts.Env)
	assert.Equal(t, "prod-user", opts.Username)
	assert.Equal(t, "password", opts.Password)
	assert.Equal(t, 0, *opts.Delay)
	assert.True(t, opts.Verbose)

	_, err = cfg.Options("staging")
	assert.True(t, errors.Is(err, ErrUnknownEnvironment))
}

func TestConfigReplacements(t *testing.T) {
	rules := map[string][]models.ReplacementRule{
		"apiproxy/gulp-v1.xml": {{Locator: "/APIProxy/Description", Value: "test123"}},
	}
	cfg := &Config{Environments: map[string]EnvironmentConfig{
		"test": {Replace: rules},
		"prod": {},
	}}

	got, err := cfg.Replacements("test")
	require.NoError(t, err)
	assert.Equal(t, rules, got)

	got, err = cfg.Replacements("prod")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = cfg.Replacements("staging")
	assert.ErrorIs(t, err, ErrUnknownEnvironment)
}

func TestConfigValidateAPIKey(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			APIKeys: []APIKey{
				{Name: "test1", Key: "secret1"},
				{Name: "test2", Key: "secret2"},
			},
		},
	}

	assert.True(t, cfg.ValidateAPIKey("secret1"))
	assert.True(t, cfg.ValidateAPIKey("secret2"))
	assert.False(t, cfg.ValidateAPIKey("invalid-key"))
	assert.False(t, cfg.ValidateAPIKey(""))
}
