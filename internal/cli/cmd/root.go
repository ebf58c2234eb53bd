package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
)

var rootCmd = &cobra.Command{
	Use:   "proxyctl",
	Short: "Package and deploy API proxies to the management API",
	Long: `proxyctl packages an API proxy source tree and drives the management API
import, deploy, update and promote workflows.

Configuration:
  Config file (./proxy-deploy.yaml, or --config / PROXY_CONFIG):
    management:
      org: my-org
      api: my-api-v1
      username: deployer@example.com
    environments:
      test:
        replace:
          apiproxy/my-api-v1.xml:
            - xpath: /APIProxy/Description
              value: "my api $tags on commit $shortHash"
      prod: {}

  Environment variables:
    PROXY_ENV        - target environment
    PROXY_USERNAME   - management API username
    PROXY_PASSWORD   - management API password (prompted for when unset)

  CLI flags override environment variables and the config file.

Example usage:
  proxyctl deploy --env test
  proxyctl update --env test
  proxyctl promote --from test --to prod
  proxyctl history --output json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	settings.InitConfig()
	settings.AddFlags(rootCmd)
}
