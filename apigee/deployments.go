package apigee

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// revisionID accepts revisions encoded as JSON strings or numbers.
type revisionID string

func (r *revisionID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = revisionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid revision %s", data)
	}
	*r = revisionID(n.String())
	return nil
}

type revisionResponse struct {
	Name     string     `json:"name"`
	Revision revisionID `json:"revision"`
}

type deploymentResponse struct {
	APIProxy    string     `json:"aPIProxy"`
	Environment string     `json:"environment"`
	Revision    revisionID `json:"revision"`
	State       string     `json:"state"`
}

func (d deploymentResponse) entry() models.DeploymentEntry {
	return models.DeploymentEntry{
		Env:      d.Environment,
		Revision: string(d.Revision),
		State:    d.State,
	}
}

// normalizeDeployments turns an activation response, which is a single object
// or an array depending on deployment topology, into an ordered status.
func normalizeDeployments(data []byte) (*models.DeploymentStatus, error) {
	status := &models.DeploymentStatus{
		Deployments: []models.DeploymentEntry{},
		Raw:         json.RawMessage(data),
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return status, nil
	}

	var items []deploymentResponse
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode deployments: %w", err)
		}
	} else {
		var single deploymentResponse
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("failed to decode deployment: %w", err)
		}
		items = append(items, single)
	}

	for _, item := range items {
		if status.API == "" {
			status.API = item.APIProxy
		}
		status.Deployments = append(status.Deployments, item.entry())
	}
	return status, nil
}

func decodeRevision(data []byte) (*models.RevisionResult, error) {
	var resp revisionResponse
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode revision: %w", err)
		}
	}
	return &models.RevisionResult{API: resp.Name, Revision: string(resp.Revision)}, nil
}

func decodeDescriptor(data []byte) (*models.DeploymentDescriptor, error) {
	var d models.DeploymentDescriptor
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to decode deployments: %w", err)
		}
	}
	return &d, nil
}
