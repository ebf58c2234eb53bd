package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// DeployedRevisionPath names the record emitted by DeployedRevisionRecord.
const DeployedRevisionPath = "deployed-revision.json"

var (
	// ErrNullRecord is returned when a bundle is expected but the record is empty.
	ErrNullRecord = errors.New("cannot do anything useful with a null record")

	ErrStreamNotSupported = models.ErrStreamNotSupported

	// ErrInvalidPromoteInput is returned when the record handed to promotion
	// is not a deployed revision record.
	ErrInvalidPromoteInput = errors.New("invalid record passed to promote: a deployed revision record is required")
)

// BundleFromRecord wraps the contents of a packaged bundle record.
func BundleFromRecord(rec *models.FileRecord) (*models.Bundle, error) {
	switch {
	case rec == nil || rec.IsNull():
		return nil, ErrNullRecord
	case rec.IsStream():
		return nil, ErrStreamNotSupported
	case rec.IsDir():
		return nil, fmt.Errorf("%s is a directory, not a bundle", rec.Path)
	}
	return &models.Bundle{
		Contents:    rec.Contents,
		ContentType: models.DefaultBundleContentType,
	}, nil
}

// ImportRecord imports the bundle held by rec and passes rec along.
func (r *Runner) ImportRecord(ctx context.Context, rec *models.FileRecord, opts *models.DeploymentOptions) (*models.FileRecord, *Outcome, error) {
	bundle, err := BundleFromRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	out, err := r.Import(ctx, opts, bundle)
	if err != nil {
		return nil, out, err
	}
	return rec, out, nil
}

// DeployRecord imports and activates the bundle held by rec.
func (r *Runner) DeployRecord(ctx context.Context, rec *models.FileRecord, opts *models.DeploymentOptions) (*models.FileRecord, *Outcome, error) {
	bundle, err := BundleFromRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	out, err := r.Deploy(ctx, opts, bundle)
	if err != nil {
		return nil, out, err
	}
	return rec, out, nil
}

// UpdateRecord updates the deployed revision with the bundle held by rec.
// Null records pass through without any call.
func (r *Runner) UpdateRecord(ctx context.Context, rec *models.FileRecord, opts *models.DeploymentOptions) (*models.FileRecord, *Outcome, error) {
	if rec != nil && rec.IsNull() {
		return rec, nil, nil
	}
	bundle, err := BundleFromRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	out, err := r.Update(ctx, opts, bundle)
	if err != nil {
		return nil, out, err
	}
	return rec, out, nil
}

// ActivateRecord activates opts.Revision and passes rec along unchanged.
func (r *Runner) ActivateRecord(ctx context.Context, rec *models.FileRecord, opts *models.DeploymentOptions) (*models.FileRecord, *Outcome, error) {
	out, err := r.Activate(ctx, opts)
	if err != nil {
		return nil, out, err
	}
	return rec, out, nil
}

// DeployedRevisionRecord queries the revisions deployed to opts.Env and emits
// them as a JSON record. A failed query is logged and yields no record.
func (r *Runner) DeployedRevisionRecord(ctx context.Context, opts *models.DeploymentOptions) (*models.FileRecord, bool) {
	descriptor, err := r.client.GetDeployedRevision(ctx, opts)
	if err != nil {
		r.log.Error(err)
		return nil, false
	}

	data, err := json.Marshal(descriptor)
	if err != nil {
		r.log.Errorf("failed to encode deployed revision: %v", err)
		return nil, false
	}
	r.verbose(opts, json.RawMessage(data))

	return &models.FileRecord{Path: DeployedRevisionPath, Contents: data}, true
}

// PromoteRecord activates the revision named in a deployed revision record in
// target.Env. Null records pass through without any call.
func (r *Runner) PromoteRecord(ctx context.Context, rec *models.FileRecord, target *models.DeploymentOptions) (*models.FileRecord, *models.DeploymentStatus, error) {
	switch {
	case rec == nil || rec.IsNull():
		return rec, nil, nil
	case rec.IsStream():
		return nil, nil, ErrStreamNotSupported
	}

	var descriptor models.DeploymentDescriptor
	if err := json.Unmarshal(rec.Contents, &descriptor); err != nil {
		return nil, nil, ErrInvalidPromoteInput
	}
	revision, ok := descriptor.CurrentRevision()
	if !ok {
		return nil, nil, ErrInvalidPromoteInput
	}

	if err := models.Validate(models.OpPromote, target, nil); err != nil {
		return nil, nil, err
	}

	out := newOutcome(KindPromote)
	out.Revision = revision
	if err := r.promoteRevision(ctx, out, target); err != nil {
		return nil, nil, err
	}
	return rec, out.Status, nil
}
