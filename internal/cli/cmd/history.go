package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/db"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/output"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View deployment history",
	Long: `List recorded workflow runs, newest first.

Example:
  proxyctl history
  proxyctl history --api gulp-v1 --limit 5 -o yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(settings.OutputFormat())
		if err != nil {
			return err
		}
		cfg, err := settings.Load()
		if err != nil {
			return err
		}

		database, err := db.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("deployment history is unavailable: %w", err)
		}
		defer database.Close()

		api, _ := cmd.Flags().GetString("api")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		deployments, total, err := database.GetDeployments(api, limit, offset)
		if err != nil {
			return err
		}

		resp := models.ListDeploymentsResponse{
			Deployments: deployments,
			Total:       total,
			Limit:       limit,
			Offset:      offset,
		}
		return printHistory(cmd.OutOrStdout(), format, &resp)
	},
}

func printHistory(w io.Writer, format output.Format, list *models.ListDeploymentsResponse) error {
	return output.Print(w, format, list, func(w io.Writer) error {
		if len(list.Deployments) == 0 {
			output.Info(w, "No deployments found")
			return nil
		}

		rows := make([][]string, 0, len(list.Deployments))
		for _, d := range list.Deployments {
			rows = append(rows, []string{
				d.ID[:min(8, len(d.ID))],
				d.Workflow,
				d.API,
				output.OrDash(d.Environment),
				output.OrDash(d.Revision),
				d.State,
				output.FormatTimeAgo(d.DeployedAt),
			})
		}
		if err := output.PrintTable(w, []string{"ID", "WORKFLOW", "API", "ENVIRONMENT", "REVISION", "STATE", "WHEN"}, rows); err != nil {
			return err
		}
		if list.Total > list.Offset+len(list.Deployments) {
			output.Info(w, fmt.Sprintf("\nShowing %d of %d deployments", len(list.Deployments), list.Total))
		}
		return nil
	})
}

func init() {
	historyCmd.Flags().String("api", "", "only show deployments of this proxy")
	historyCmd.Flags().Int("limit", 20, "number of deployments to show")
	historyCmd.Flags().Int("offset", 0, "number of deployments to skip")

	rootCmd.AddCommand(historyCmd)
}
