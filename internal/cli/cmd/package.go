package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/output"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/logging"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Write the proxy bundle to disk",
	Long: `Package the proxy source tree into the zip bundle the management API
imports. With --env, that environment's replacement rules are applied.

Example:
  proxyctl package
  proxyctl package --env prod --out build/gulp-v1.zip`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings.Load()
		if err != nil {
			return err
		}
		log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, cmd.ErrOrStderr())

		rules := map[string][]models.ReplacementRule{}
		if env := settings.Environment(); env != "" {
			if rules, err = cfg.Replacements(env); err != nil {
				return err
			}
		}

		rec, err := buildBundle(cfg, rules, log)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("out")
		if path == "" {
			path = rec.Path
		}
		if err := os.WriteFile(path, rec.Contents, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		output.Success(cmd.OutOrStdout(), fmt.Sprintf("Wrote %s (%d bytes)", path, len(rec.Contents)))
		return nil
	},
}

func init() {
	packageCmd.Flags().String("out", "", "bundle path (default is proxy.bundle from the config)")

	rootCmd.AddCommand(packageCmd)
}
