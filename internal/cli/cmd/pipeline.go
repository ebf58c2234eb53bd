package cmd

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/bundle"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/config"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/git"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/cli/output"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/templating"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/workflow"
)

// buildBundle collects the proxy tree, applies the replacement rules and the
// description tokens, and packages the result.
func buildBundle(cfg *config.Config, rules map[string][]models.ReplacementRule, log logrus.FieldLogger) (*models.FileRecord, error) {
	records, err := bundle.Collect(cfg.Proxy.Source, cfg.Proxy.Base)
	if err != nil {
		return nil, err
	}

	engine := templating.New(git.NewCommitReader(cfg.Git.Path), log)
	records, err = bundle.Transform(records,
		func(rec *models.FileRecord) (*models.FileRecord, error) {
			return engine.Replace(rec, rules)
		},
		engine.SetDescription,
	)
	if err != nil {
		return nil, err
	}

	rec, err := bundle.Package(records, cfg.Proxy.Bundle)
	if err != nil {
		return nil, err
	}
	log.Debugf("packaged %s (%d bytes)", rec.Path, len(rec.Contents))
	return rec, nil
}

// environmentBundle builds the bundle with the replacement rules of env.
func environmentBundle(cfg *config.Config, env string, log logrus.FieldLogger) (*models.FileRecord, error) {
	rules, err := cfg.Replacements(env)
	if err != nil {
		return nil, err
	}
	return buildBundle(cfg, rules, log)
}

func printOutcome(w io.Writer, format output.Format, out *workflow.Outcome, opts *models.DeploymentOptions) error {
	return output.Print(w, format, out, func(w io.Writer) error {
		rows := [][]string{}
		if out.Status != nil && len(out.Status.Deployments) > 0 {
			for _, d := range out.Status.Deployments {
				rows = append(rows, []string{
					string(out.Workflow),
					opts.API,
					output.OrDash(firstNonEmpty(d.Env, opts.Env)),
					output.OrDash(d.Revision),
					output.OrDash(d.State),
				})
			}
		} else {
			env := opts.Env
			if out.Workflow == workflow.KindImport {
				env = ""
			}
			rows = append(rows, []string{
				string(out.Workflow),
				opts.API,
				output.OrDash(env),
				output.OrDash(out.Revision),
				string(out.State),
			})
		}
		return output.PrintTable(w, []string{"WORKFLOW", "API", "ENVIRONMENT", "REVISION", "STATE"}, rows)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
