package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/workflow"
)

// recordStage is one of the runner's record-level workflows.
type recordStage func(ctx context.Context, rec *models.FileRecord, opts *models.DeploymentOptions) (*models.FileRecord, *workflow.Outcome, error)

// runBundleWorkflow packages the proxy for the selected environment and hands
// it to the workflow picked by pick.
func runBundleWorkflow(cmd *cobra.Command, pick func(*workflow.Runner) recordStage) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	env, err := settings.RequireEnvironment(s.cfg)
	if err != nil {
		return err
	}
	opts, err := s.options(env)
	if err != nil {
		return err
	}

	rec, err := environmentBundle(s.cfg, env, s.log)
	if err != nil {
		return err
	}

	_, out, err := pick(s.runner)(cmd.Context(), rec, opts)
	if out == nil && err == nil {
		s.log.Infof("nothing to deploy from %s", rec.Path)
		return nil
	}
	return s.finish(out, opts, err)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the proxy as a new revision",
	Long: `Package the proxy source tree and import it as a new revision without
deploying it.

Example:
  proxyctl import --env test`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBundleWorkflow(cmd, func(r *workflow.Runner) recordStage { return r.ImportRecord })
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Import the proxy and deploy the new revision",
	Long: `Package the proxy source tree, import it as a new revision and deploy
that revision to the environment.

Example:
  proxyctl deploy --env test
  PROXY_ENV=prod proxyctl deploy --src build/apiproxy`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBundleWorkflow(cmd, func(r *workflow.Runner) recordStage { return r.DeployRecord })
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Overwrite the revision deployed to an environment",
	Long: `Package the proxy source tree and overwrite the revision currently
deployed to the environment in place.

Example:
  proxyctl update --env test`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBundleWorkflow(cmd, func(r *workflow.Runner) recordStage { return r.UpdateRecord })
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Deploy an existing revision to an environment",
	Long: `Deploy a revision that was imported earlier.

Example:
  proxyctl activate --env test --revision 4`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		env, err := settings.RequireEnvironment(s.cfg)
		if err != nil {
			return err
		}
		opts, err := s.options(env)
		if err != nil {
			return err
		}
		opts.Revision, _ = cmd.Flags().GetString("revision")

		_, out, err := s.runner.ActivateRecord(cmd.Context(), nil, opts)
		return s.finish(out, opts, err)
	},
}

func init() {
	activateCmd.Flags().String("revision", "", "revision to deploy")
	activateCmd.MarkFlagRequired("revision")

	rootCmd.AddCommand(importCmd, deployCmd, updateCmd, activateCmd)
}
