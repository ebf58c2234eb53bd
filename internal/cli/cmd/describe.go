package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/bundle"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/git"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/logging"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/templating"
)

var describeCmd = &cobra.Command{
	Use:   "describe [text]",
	Short: "Preview description tokens expanded from the last commit",
	Long: `Expand $tokens with the metadata of the last commit without deploying
anything. Given text, print its expansion. Otherwise print every proxy
definition whose Description changes.

Tokens: $hash $shortHash $fullHash $committer $committer.name $committer.email
$committedDate $commitDate $committedOn $tags

Example:
  proxyctl describe
  proxyctl describe 'built from $shortHash ($tags)'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings.Load()
		if err != nil {
			return err
		}
		log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, cmd.ErrOrStderr())
		commits := git.NewCommitReader(cfg.Git.Path)
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			commit, err := commits.LastCommit()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, templating.ExpandTokens(args[0], commit))
			return nil
		}

		records, err := bundle.Collect(cfg.Proxy.Source, cfg.Proxy.Base)
		if err != nil {
			return err
		}
		engine := templating.New(commits, log)

		changed := 0
		for _, rec := range records {
			next, err := engine.SetDescription(rec)
			if err != nil {
				return fmt.Errorf("%s: %w", rec.Path, err)
			}
			if next == rec || bytes.Equal(next.Contents, rec.Contents) {
				continue
			}
			changed++
			fmt.Fprintf(out, "==> %s <==\n%s\n", next.Path, strings.TrimRight(string(next.Contents), "\n"))
		}
		if changed == 0 {
			log.Infof("no description tokens under %s", cfg.Proxy.Source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
