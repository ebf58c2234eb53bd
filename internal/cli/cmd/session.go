package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/apigee"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/config"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/db"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/output"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/settings"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/logging"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/workflow"
)

// session holds what a single command invocation needs.
type session struct {
	cmd     *cobra.Command
	cfg     *config.Config
	log     *logrus.Logger
	format  output.Format
	client  *apigee.Client
	runner  *workflow.Runner
	history *db.Database
}

func newSession(cmd *cobra.Command) (*session, error) {
	format, err := output.ParseFormat(settings.OutputFormat())
	if err != nil {
		return nil, err
	}

	cfg, err := settings.Load()
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, cmd.ErrOrStderr())
	if settings.Verbose() {
		log.SetLevel(logrus.DebugLevel)
	}

	client := apigee.NewClient(cfg.Management.BaseURL, cfg.Management.Timeout, log)
	s := &session{
		cmd:    cmd,
		cfg:    cfg,
		log:    log,
		format: format,
		client: client,
		runner: workflow.New(client, log),
	}

	if history, err := db.New(cfg.Database.Path); err != nil {
		log.Debugf("deployment history disabled: %v", err)
	} else {
		s.history = history
	}
	return s, nil
}

func (s *session) Close() {
	if s.history != nil {
		s.history.Close()
	}
	s.client.Close()
}

// options resolves the deployment options of env, prompting for a missing
// password on a terminal.
func (s *session) options(env string) (*models.DeploymentOptions, error) {
	opts, err := s.cfg.Options(env)
	if err != nil {
		return nil, err
	}
	if settings.Verbose() {
		opts.Verbose = true
	}
	if err := settings.PromptPassword(opts, os.Stdin, s.cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return opts, nil
}

func (s *session) store() workflow.HistoryStore {
	if s.history == nil {
		return nil
	}
	return s.history
}

// finish records the run and prints its outcome.
func (s *session) finish(out *workflow.Outcome, opts *models.DeploymentOptions, runErr error) error {
	dep := s.runner.Record(s.store(), out, opts, runErr)
	if runErr != nil {
		if dep != nil {
			s.log.Debugf("recorded failed %s as %s", dep.Workflow, dep.ID)
		}
		return runErr
	}
	return printOutcome(s.cmd.OutOrStdout(), s.format, out, opts)
}
