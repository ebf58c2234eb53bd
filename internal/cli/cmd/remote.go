package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/client"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/output"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Work with a proxyd deployment server",
	Long: `Query the deployment history kept by a proxyd server and ask it to
promote revisions between environments.

The server is selected with --server / PROXY_SERVER and authenticated with
--api-key / PROXY_API_KEY.`,
}

// remoteClient validates the endpoint settings and returns a client for them.
func remoteClient() (*client.Client, output.Format, error) {
	format, err := output.ParseFormat(settings.OutputFormat())
	if err != nil {
		return nil, "", err
	}
	if err := settings.ValidateRemote(); err != nil {
		return nil, "", err
	}
	return client.NewClient(settings.ServerURL(), settings.APIKey()), format, nil
}

var remoteStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, format, err := remoteClient()
		if err != nil {
			return err
		}
		defer c.Close()

		health, err := c.Health(cmd.Context())
		if err != nil {
			return err
		}

		return output.Print(cmd.OutOrStdout(), format, health, func(w io.Writer) error {
			return output.PrintTable(w, []string{"STATUS", "VERSION", "DATABASE"}, [][]string{{
				health.Status,
				health.Version,
				fmt.Sprintf("%t", health.DatabaseAccessible),
			}})
		})
	},
}

var remoteHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "View the deployment history kept by the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, format, err := remoteClient()
		if err != nil {
			return err
		}
		defer c.Close()

		api, _ := cmd.Flags().GetString("api")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		list, err := c.ListDeployments(cmd.Context(), api, limit, offset)
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), format, list)
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [deployment-id]",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, format, err := remoteClient()
		if err != nil {
			return err
		}
		defer c.Close()

		dep, err := c.GetDeployment(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printDeployment(cmd.OutOrStdout(), format, dep)
	},
}

var remoteCurrentCmd = &cobra.Command{
	Use:   "current [api]",
	Short: "Show the last successful run that deployed the proxy to an environment",
	Long: `Show the last successful run that deployed the proxy to an environment.

Example:
  proxyctl remote current gulp-v1 --env prod`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := settings.Environment()
		if env == "" {
			return fmt.Errorf("--env is required")
		}

		c, format, err := remoteClient()
		if err != nil {
			return err
		}
		defer c.Close()

		dep, err := c.CurrentDeployment(cmd.Context(), args[0], env)
		if err != nil {
			return err
		}
		return printDeployment(cmd.OutOrStdout(), format, dep)
	},
}

var remotePromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Ask the server to promote a revision",
	Long: `Ask the server to deploy the revision running in one environment to
another.

Example:
  proxyctl remote promote --from test --to prod
  proxyctl remote promote --api gulp-v2 --from test --to prod --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.PromoteRequest{}
		req.API, _ = cmd.Flags().GetString("api")
		req.From, _ = cmd.Flags().GetString("from")
		req.To, _ = cmd.Flags().GetString("to")
		skipConfirm, _ := cmd.Flags().GetBool("yes")

		if req.From == "" || req.To == "" {
			return fmt.Errorf("--from and --to are required")
		}

		c, format, err := remoteClient()
		if err != nil {
			return err
		}
		defer c.Close()

		w := cmd.OutOrStdout()
		if !skipConfirm {
			fmt.Fprintln(w, "You are about to promote:")
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  API:  %s\n", output.OrDash(req.API))
			fmt.Fprintf(w, "  From: %s\n", req.From)
			fmt.Fprintf(w, "  To:   %s\n", req.To)
			fmt.Fprintln(w)
			fmt.Fprint(w, "Continue? (y/n): ")

			reader := bufio.NewReader(cmd.InOrStdin())
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))

			if response != "y" && response != "yes" {
				output.Info(w, "Promotion cancelled")
				return nil
			}
		}

		resp, err := c.Promote(cmd.Context(), req)
		if err != nil {
			return err
		}

		return output.Print(w, format, resp, func(w io.Writer) error {
			output.Success(w, fmt.Sprintf("Promoted %s to %s", resp.Deployment.API, resp.Deployment.Environment))
			fmt.Fprintf(w, "  Deployment ID: %s\n", resp.Deployment.ID)
			fmt.Fprintf(w, "  Revision:      %s\n", output.OrDash(resp.Deployment.Revision))
			return nil
		})
	},
}

func printDeployment(w io.Writer, format output.Format, dep *models.Deployment) error {
	return output.Print(w, format, dep, func(w io.Writer) error {
		fmt.Fprintf(w, "ID:          %s\n", dep.ID)
		fmt.Fprintf(w, "Workflow:    %s\n", dep.Workflow)
		fmt.Fprintf(w, "API:         %s\n", dep.API)
		fmt.Fprintf(w, "Environment: %s\n", output.OrDash(dep.Environment))
		fmt.Fprintf(w, "Revision:    %s\n", output.OrDash(dep.Revision))
		fmt.Fprintf(w, "State:       %s\n", dep.State)
		fmt.Fprintf(w, "Deployed:    %s by %s\n", output.FormatTime(dep.DeployedAt), output.OrDash(dep.DeployedBy))
		if dep.Message != "" {
			fmt.Fprintf(w, "Message:     %s\n", dep.Message)
		}
		if len(dep.Transitions) > 0 {
			fmt.Fprintf(w, "Transitions: %s\n", strings.Join(dep.Transitions, " -> "))
		}
		return nil
	})
}

func init() {
	settings.AddRemoteFlags(remoteCmd)

	remoteHistoryCmd.Flags().String("api", "", "only show deployments of this proxy")
	remoteHistoryCmd.Flags().Int("limit", 20, "number of deployments to show")
	remoteHistoryCmd.Flags().Int("offset", 0, "number of deployments to skip")

	remotePromoteCmd.Flags().String("api", "", "proxy to promote (default is the server's configured proxy)")
	remotePromoteCmd.Flags().String("from", "", "environment to promote from")
	remotePromoteCmd.Flags().String("to", "", "environment to promote to")
	remotePromoteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	remoteCmd.AddCommand(remoteStatusCmd, remoteHistoryCmd, remoteShowCmd, remoteCurrentCmd, remotePromoteCmd)
	rootCmd.AddCommand(remoteCmd)
}
