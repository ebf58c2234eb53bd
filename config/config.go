package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// ErrUnknownEnvironment is returned for environment names missing from the config.
var ErrUnknownEnvironment = errors.New("unknown environment")

// envReference matches ${NAME}. Bare $name is left alone because description
// tokens in replacement values use that form.
var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envReference.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

type Config struct {
	Server       ServerConfig                 `yaml:"server"`
	Management   ManagementConfig             `yaml:"management"`
	Proxy        ProxyConfig                  `yaml:"proxy"`
	Git          GitConfig                    `yaml:"git"`
	Environments map[string]EnvironmentConfig `yaml:"environments"`
	Database     DatabaseConfig               `yaml:"database"`
	Logging      LoggingConfig                `yaml:"logging"`
}

type ServerConfig struct {
	Port    int      `yaml:"port"`
	APIKeys []APIKey `yaml:"api_keys"`
}

type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// ManagementConfig holds the platform endpoint and the defaults shared by
// every environment.
type ManagementConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Org      string        `yaml:"org"`
	API      string        `yaml:"api"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Override *bool         `yaml:"override"`
	Delay    *int          `yaml:"delay"`
}

type ProxyConfig struct {
	Source string `yaml:"source"` // proxy tree to package
	Base   string `yaml:"base"`   // record paths are relative to this directory
	Bundle string `yaml:"bundle"` // archive name
}

type GitConfig struct {
	Path string `yaml:"path"`
}

// EnvironmentConfig overrides the management defaults for one environment.
type EnvironmentConfig struct {
	Env      string                              `yaml:"env"` // platform name, defaults to the map key
	Org      string                              `yaml:"org"`
	API      string                              `yaml:"api"`
	Username string                              `yaml:"username"`
	Password string                              `yaml:"password"`
	Override *bool                               `yaml:"override"`
	Delay    *int                                `yaml:"delay"`
	Verbose  bool                                `yaml:"verbose"`
	Replace  map[string][]models.ReplacementRule `yaml:"replace"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dataStr := expandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(dataStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Management.BaseURL == "" {
		c.Management.BaseURL = "https://api.enterprise.apigee.com/v1"
	}
	if c.Management.Timeout == 0 {
		c.Management.Timeout = 60 * time.Second
	}
	if c.Proxy.Source == "" {
		c.Proxy.Source = "apiproxy"
	}
	if c.Proxy.Base == "" {
		c.Proxy.Base = "."
	}
	if c.Proxy.Bundle == "" {
		c.Proxy.Bundle = "apiproxy.zip"
	}
	if c.Git.Path == "" {
		c.Git.Path = "."
	}
	if c.Database.Path == "" {
		c.Database.Path = "/data/deployments.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// EnvironmentNames lists the configured environments in sorted order.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options builds the deployment options for the environment called name.
// Environment values take precedence over the management defaults.
func (c *Config) Options(name string) (*models.DeploymentOptions, error) {
	env, ok := c.Environments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
	}

	opts := &models.DeploymentOptions{
		Org:      firstNonEmpty(env.Org, c.Management.Org),
		API:      firstNonEmpty(env.API, c.Management.API),
		Env:      firstNonEmpty(env.Env, name),
		Username: firstNonEmpty(env.Username, c.Management.Username),
		Password: firstNonEmpty(env.Password, c.Management.Password),
		Override: env.Override,
		Delay:    env.Delay,
		Verbose:  env.Verbose,
	}
	if opts.Override == nil {
		opts.Override = c.Management.Override
	}
	if opts.Delay == nil {
		opts.Delay = c.Management.Delay
	}
	return opts, nil
}

// Replacements returns the replacement rules of the environment called name.
// The result is never nil for a configured environment.
func (c *Config) Replacements(name string) (map[string][]models.ReplacementRule, error) {
	env, ok := c.Environments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
	}
	if env.Replace == nil {
		return map[string][]models.ReplacementRule{}, nil
	}
	return env.Replace, nil
}

func (c *Config) ValidateAPIKey(key string) bool {
	for _, ak := range c.Server.APIKeys {
		if ak.Key == key {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
