// Package workflow sequences management API calls into the import, deploy,
// update, activate and promote workflows.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// ErrRevisionUnknown is returned when a call needs a revision that no
// earlier stage produced.
var ErrRevisionUnknown = errors.New("revision is not known")

// ManagementClient is the subset of the management API the workflows drive.
type ManagementClient interface {
	Import(ctx context.Context, opts *models.DeploymentOptions, bundle *models.Bundle) (*models.RevisionResult, error)
	Update(ctx context.Context, opts *models.DeploymentOptions, bundle *models.Bundle) (*models.RevisionResult, error)
	Activate(ctx context.Context, opts *models.DeploymentOptions) (*models.DeploymentStatus, error)
	GetDeployedRevision(ctx context.Context, opts *models.DeploymentOptions) (*models.DeploymentDescriptor, error)
}

// Kind names a workflow.
type Kind string

const (
	KindImport   Kind = "import"
	KindDeploy   Kind = "deploy"
	KindUpdate   Kind = "update"
	KindActivate Kind = "activate"
	KindPromote  Kind = "promote"
)

// State is a step of a workflow run.
type State string

const (
	StateStart     State = "start"
	StateValidated State = "validated"
	StateImported  State = "imported"
	StateActivated State = "activated"
	StateUpdated   State = "updated"
	StatePromoted  State = "promoted"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Outcome is the record of one workflow run. It carries the revision between
// stages so caller options are never modified.
type Outcome struct {
	Workflow    Kind                     `json:"workflow"`
	State       State                    `json:"state"`
	Transitions []State                  `json:"transitions"`
	Revision    string                   `json:"revision,omitempty"`
	Result      *models.RevisionResult   `json:"result,omitempty"`
	Status      *models.DeploymentStatus `json:"status,omitempty"`
}

func newOutcome(kind Kind) *Outcome {
	return &Outcome{
		Workflow:    kind,
		State:       StateStart,
		Transitions: []State{StateStart},
	}
}

func (o *Outcome) advance(s State) {
	o.State = s
	o.Transitions = append(o.Transitions, s)
}

func (o *Outcome) fail(err error) error {
	o.advance(StateFailed)
	return err
}

// Succeeded reports whether the run reached StateDone.
func (o *Outcome) Succeeded() bool {
	return o.State == StateDone
}

// Runner executes workflows against a management client. Calls within a
// workflow are strictly sequential and never retried.
type Runner struct {
	client ManagementClient
	log    logrus.FieldLogger
}

// New creates a workflow runner
func New(client ManagementClient, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		client: client,
		log:    log,
	}
}

func (r *Runner) verbose(opts *models.DeploymentOptions, v any) {
	if opts == nil || !opts.Verbose {
		return
	}
	switch raw := v.(type) {
	case json.RawMessage:
		r.log.Info(string(raw))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			r.log.Warnf("failed to encode response: %v", err)
			return
		}
		r.log.Info(string(data))
	}
}

func (r *Runner) deployed(opts *models.DeploymentOptions, status *models.DeploymentStatus) {
	r.log.Infof("deployed %s", status.Summary())
	if len(status.Raw) > 0 {
		r.verbose(opts, status.Raw)
	}
}

// Import uploads bundle as a new revision.
func (r *Runner) Import(ctx context.Context, opts *models.DeploymentOptions, bundle *models.Bundle) (*Outcome, error) {
	out := newOutcome(KindImport)
	if err := models.Validate(models.OpImport, opts, bundle); err != nil {
		return out, out.fail(err)
	}
	out.advance(StateValidated)

	if err := r.importRevision(ctx, out, opts, bundle); err != nil {
		return out, out.fail(err)
	}

	out.advance(StateDone)
	return out, nil
}

func (r *Runner) importRevision(ctx context.Context, out *Outcome, opts *models.DeploymentOptions, bundle *models.Bundle) error {
	result, err := r.client.Import(ctx, opts, bundle)
	if err != nil {
		return err
	}
	if result.Revision == "" {
		return fmt.Errorf("import of %s returned no revision: %w", opts.API, ErrRevisionUnknown)
	}

	out.Result = result
	out.Revision = result.Revision
	out.advance(StateImported)

	r.log.Infof("imported %s", importSummary(result))
	r.verbose(opts, result)
	return nil
}

func importSummary(result *models.RevisionResult) string {
	data, _ := json.Marshal(struct {
		API      string `json:"api"`
		Revision string `json:"revision"`
	}{result.API, result.Revision})
	return string(data)
}

// Deploy imports bundle and activates the new revision in opts.Env.
func (r *Runner) Deploy(ctx context.Context, opts *models.DeploymentOptions, bundle *models.Bundle) (*Outcome, error) {
	out := newOutcome(KindDeploy)
	if err := models.Validate(models.OpDeploy, opts, bundle); err != nil {
		return out, out.fail(err)
	}
	out.advance(StateValidated)

	if err := r.importRevision(ctx, out, opts, bundle); err != nil {
		return out, out.fail(err)
	}

	if err := r.activateRevision(ctx, out, opts); err != nil {
		return out, out.fail(err)
	}

	out.advance(StateDone)
	return out, nil
}

func (r *Runner) activateRevision(ctx context.Context, out *Outcome, opts *models.DeploymentOptions) error {
	if out.Revision == "" {
		return ErrRevisionUnknown
	}

	target := opts.WithRevision(out.Revision)
	status, err := r.client.Activate(ctx, &target)
	if err != nil {
		return err
	}

	out.Status = status
	out.advance(StateActivated)
	r.deployed(opts, status)
	return nil
}

// Activate deploys the revision named in opts.
func (r *Runner) Activate(ctx context.Context, opts *models.DeploymentOptions) (*Outcome, error) {
	out := newOutcome(KindActivate)
	if opts != nil && opts.Revision == "" {
		return out, out.fail(ErrRevisionUnknown)
	}
	if err := models.Validate(models.OpActivate, opts, nil); err != nil {
		return out, out.fail(err)
	}
	out.advance(StateValidated)
	out.Revision = opts.Revision

	if err := r.activateRevision(ctx, out, opts); err != nil {
		return out, out.fail(err)
	}

	out.advance(StateDone)
	return out, nil
}

// Update overwrites the revision currently deployed in opts.Env with bundle.
func (r *Runner) Update(ctx context.Context, opts *models.DeploymentOptions, bundle *models.Bundle) (*Outcome, error) {
	out := newOutcome(KindUpdate)
	if err := models.Validate(models.OpUpdateDeployed, opts, bundle); err != nil {
		return out, out.fail(err)
	}
	out.advance(StateValidated)

	revision, err := r.deployedRevision(ctx, opts)
	if err != nil {
		return out, out.fail(err)
	}
	out.Revision = revision

	target := opts.WithRevision(revision)
	result, err := r.client.Update(ctx, &target, bundle)
	if err != nil {
		return out, out.fail(err)
	}

	out.Result = result
	out.Status = &models.DeploymentStatus{
		Deployments: []models.DeploymentEntry{{Revision: revision}},
	}
	out.advance(StateUpdated)
	r.log.Infof("deployed %s", out.Status.Summary())
	r.verbose(opts, result)

	out.advance(StateDone)
	return out, nil
}

// deployedRevision returns the first revision deployed to opts.Env.
func (r *Runner) deployedRevision(ctx context.Context, opts *models.DeploymentOptions) (string, error) {
	descriptor, err := r.client.GetDeployedRevision(ctx, opts)
	if err != nil {
		return "", err
	}

	revision, ok := descriptor.CurrentRevision()
	if !ok {
		return "", fmt.Errorf("no revision of %s deployed to %s: %w", opts.API, opts.Env, ErrRevisionUnknown)
	}
	return revision, nil
}

// Promote activates the revision deployed to source.Env in target.Env.
func (r *Runner) Promote(ctx context.Context, source, target *models.DeploymentOptions) (*Outcome, error) {
	out := newOutcome(KindPromote)

	var errs models.ValidationErrors
	for _, check := range []struct {
		name string
		op   models.Operation
		opts *models.DeploymentOptions
	}{
		{"source", models.OpGetDeployedRevision, source},
		{"target", models.OpPromote, target},
	} {
		if err := models.Validate(check.op, check.opts, nil); err != nil {
			var verrs models.ValidationErrors
			if !errors.As(err, &verrs) {
				return out, out.fail(err)
			}
			for _, ve := range verrs {
				ve.Field = check.name + "." + ve.Field
				errs = append(errs, ve)
			}
		}
	}
	if len(errs) > 0 {
		return out, out.fail(errs)
	}
	out.advance(StateValidated)

	revision, err := r.deployedRevision(ctx, source)
	if err != nil {
		return out, out.fail(err)
	}
	out.Revision = revision

	if err := r.promoteRevision(ctx, out, target); err != nil {
		return out, out.fail(err)
	}

	out.advance(StateDone)
	return out, nil
}

func (r *Runner) promoteRevision(ctx context.Context, out *Outcome, target *models.DeploymentOptions) error {
	r.log.Infof("promoting revision %s to %s", out.Revision, target.Env)

	opts := target.WithRevision(out.Revision)
	status, err := r.client.Activate(ctx, &opts)
	if err != nil {
		return err
	}

	out.Status = status
	out.advance(StatePromoted)
	r.deployed(target, status)
	return nil
}
