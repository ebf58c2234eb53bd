// Package settings resolves CLI flags, PROXY_* environment variables and the
// deployment config file.
package settings

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/config"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// DefaultConfigFile is read when neither --config nor PROXY_CONFIG is set.
const DefaultConfigFile = "proxy-deploy.yaml"

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "PROXY"

// InitConfig initializes the shared configuration system
func InitConfig() {
	cobra.OnInitialize(loadEnv)
}

// AddFlags adds common configuration flags to a cobra command
func AddFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./"+DefaultConfigFile+")")
	flags.StringP("env", "e", "", "target environment")
	flags.String("src", "", "proxy source tree (overrides proxy.source)")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "log raw management API responses")

	for _, name := range []string{"config", "env", "src", "output", "verbose"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// loadEnv lets PROXY_CONFIG, PROXY_ENV, PROXY_USERNAME, PROXY_PASSWORD and
// friends stand in for flags and config values.
func loadEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// ConfigFile returns the configured config file path
func ConfigFile() string {
	if path := viper.GetString("config"); path != "" {
		return path
	}
	return DefaultConfigFile
}

// Environment returns the selected environment name
func Environment() string {
	return viper.GetString("env")
}

// OutputFormat returns the output format
func OutputFormat() string {
	return viper.GetString("output")
}

// Verbose reports whether raw responses should be logged
func Verbose() bool {
	return viper.GetBool("verbose")
}

// Load reads the config file and applies the source, username and password
// overrides.
func Load() (*config.Config, error) {
	cfg, err := config.Load(ConfigFile())
	if err != nil {
		return nil, err
	}

	if src := viper.GetString("src"); src != "" {
		cfg.Proxy.Source = src
	}
	if username := viper.GetString("username"); username != "" {
		cfg.Management.Username = username
	}
	if password := viper.GetString("password"); password != "" {
		cfg.Management.Password = password
	}
	return cfg, nil
}

// RequireEnvironment returns the selected environment or explains how to set one.
func RequireEnvironment(cfg *config.Config) (string, error) {
	env := Environment()
	if env == "" {
		return "", fmt.Errorf("environment is required (set --env or %s_ENV; configured: %s)",
			EnvPrefix, strings.Join(cfg.EnvironmentNames(), ", "))
	}
	return env, nil
}

// PromptPassword asks for the management password when opts has none and in
// is a terminal. Non-interactive runs are left to validation.
func PromptPassword(opts *models.DeploymentOptions, in *os.File, out io.Writer) error {
	if opts.Password != "" || in == nil {
		return nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprintf(out, "Password for %s: ", opts.Username)
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	opts.Password = strings.TrimSpace(string(bytePassword))
	return nil
}

// AddRemoteFlags adds the proxyd endpoint flags to a cobra command
func AddRemoteFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("server", "", "proxyd API endpoint")
	flags.String("api-key", "", "proxyd API key")

	viper.BindPFlag("server", flags.Lookup("server"))
	viper.BindPFlag("api-key", flags.Lookup("api-key"))
}

// ServerURL returns the configured proxyd URL
func ServerURL() string {
	return viper.GetString("server")
}

// APIKey returns the configured proxyd API key
func APIKey() string {
	return viper.GetString("api-key")
}

// ValidateRemote validates that the proxyd endpoint is configured
func ValidateRemote() error {
	if ServerURL() == "" {
		return fmt.Errorf("proxyd URL is required (set %s_SERVER or --server)", EnvPrefix)
	}
	if APIKey() == "" {
		return fmt.Errorf("proxyd API key is required (set %s_API_KEY or --api-key)", EnvPrefix)
	}
	return nil
}
