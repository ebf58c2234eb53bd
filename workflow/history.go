package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// HistoryStore persists finished workflow runs.
type HistoryStore interface {
	CreateDeployment(dep *models.Deployment) error
}

// History converts a finished run into its history record. runErr is the
// error the workflow returned, if any.
func (o *Outcome) History(opts *models.DeploymentOptions, runErr error) *models.Deployment {
	dep := &models.Deployment{
		ID:          uuid.New().String(),
		Workflow:    string(o.Workflow),
		Revision:    o.Revision,
		State:       string(o.State),
		Transitions: make([]string, 0, len(o.Transitions)),
		DeployedAt:  time.Now(),
	}
	for _, s := range o.Transitions {
		dep.Transitions = append(dep.Transitions, string(s))
	}
	if opts != nil {
		dep.API = opts.API
		dep.Environment = opts.Env
		dep.DeployedBy = opts.Username
	}
	if runErr != nil {
		dep.Message = runErr.Error()
	}
	return dep
}

// Record stores the run in history. A nil store records nothing. Storage
// failures are logged and never change the workflow result.
func (r *Runner) Record(store HistoryStore, out *Outcome, opts *models.DeploymentOptions, runErr error) *models.Deployment {
	if store == nil || out == nil {
		return nil
	}
	dep := out.History(opts, runErr)
	if err := store.CreateDeployment(dep); err != nil {
		r.log.Warnf("failed to record %s of %s: %v", dep.Workflow, dep.API, err)
		return nil
	}
	return dep
}
