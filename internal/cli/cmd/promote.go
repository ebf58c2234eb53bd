package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/output"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/workflow"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Deploy the revision running in one environment to another",
	Long: `Look up the revision deployed to the source environment and deploy it
to the target environment. With --input, the revision is read from a file
written by "proxyctl deployed" instead.

Example:
  proxyctl promote --from test --to prod
  proxyctl deployed --env test -o json > deployed-revision.json
  proxyctl promote --input deployed-revision.json --to prod`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		input, _ := cmd.Flags().GetString("input")

		if to == "" {
			return fmt.Errorf("--to is required")
		}
		if (from == "") == (input == "") {
			return fmt.Errorf("exactly one of --from or --input is required")
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		target, err := s.options(to)
		if err != nil {
			return err
		}

		if input != "" {
			return promoteFromFile(s, input, target)
		}

		source, err := s.options(from)
		if err != nil {
			return err
		}
		out, err := s.runner.Promote(cmd.Context(), source, target)
		return s.finish(out, target, err)
	},
}

func promoteFromFile(s *session, path string, target *models.DeploymentOptions) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	rec := &models.FileRecord{Path: path, Contents: contents}
	_, status, err := s.runner.PromoteRecord(s.cmd.Context(), rec, target)
	if errors.Is(err, workflow.ErrInvalidPromoteInput) {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err != nil {
		return err
	}
	return printStatus(s.cmd.OutOrStdout(), s.format, status, target)
}

func printStatus(w io.Writer, format output.Format, status *models.DeploymentStatus, opts *models.DeploymentOptions) error {
	return output.Print(w, format, status, func(w io.Writer) error {
		rows := [][]string{}
		for _, d := range status.Deployments {
			rows = append(rows, []string{
				firstNonEmpty(status.API, opts.API),
				output.OrDash(firstNonEmpty(d.Env, opts.Env)),
				output.OrDash(d.Revision),
				output.OrDash(d.State),
			})
		}
		return output.PrintTable(w, []string{"API", "ENVIRONMENT", "REVISION", "STATE"}, rows)
	})
}

var deployedCmd = &cobra.Command{
	Use:   "deployed",
	Short: "Show the revisions deployed to an environment",
	Long: `Show the revisions of the proxy deployed to an environment. The JSON
output can be passed to "proxyctl promote --input".

Example:
  proxyctl deployed --env test`,
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

		rec, ok := s.runner.DeployedRevisionRecord(cmd.Context(), opts)
		if !ok {
			return fmt.Errorf("failed to look up the revision of %s deployed to %s", opts.API, opts.Env)
		}

		var descriptor models.DeploymentDescriptor
		if err := json.Unmarshal(rec.Contents, &descriptor); err != nil {
			return fmt.Errorf("failed to decode %s: %w", rec.Path, err)
		}

		return output.Print(cmd.OutOrStdout(), s.format, descriptor, func(w io.Writer) error {
			rows := [][]string{}
			for _, r := range descriptor.Revisions {
				rows = append(rows, []string{
					firstNonEmpty(descriptor.API, opts.API),
					firstNonEmpty(descriptor.Environment, opts.Env),
					r.Name,
					output.OrDash(r.State),
				})
			}
			if len(rows) == 0 {
				output.Info(w, fmt.Sprintf("No revision of %s is deployed to %s", opts.API, opts.Env))
				return nil
			}
			return output.PrintTable(w, []string{"API", "ENVIRONMENT", "REVISION", "STATE"}, rows)
		})
	},
}

func init() {
	promoteCmd.Flags().String("from", "", "environment to promote from")
	promoteCmd.Flags().String("to", "", "environment to promote to")
	promoteCmd.Flags().String("input", "", "deployed revision file to promote")

	rootCmd.AddCommand(promoteCmd, deployedCmd)
}
