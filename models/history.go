package models

import "time"

// Deployment is the recorded history of one workflow run.
type Deployment struct {
	ID          string    `json:"id" yaml:"id"`
	Workflow    string    `json:"workflow" yaml:"workflow"`
	API         string    `json:"api" yaml:"api"`
	Environment string    `json:"environment" yaml:"environment"`
	Revision    string    `json:"revision,omitempty" yaml:"revision,omitempty"`
	State       string    `json:"state" yaml:"state"` // done or failed
	Transitions []string  `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	DeployedBy  string    `json:"deployedBy,omitempty" yaml:"deployedBy,omitempty"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"` // error text of a failed run
	DeployedAt  time.Time `json:"deployedAt" yaml:"deployedAt"`
}

// Succeeded reports whether the run completed.
func (d *Deployment) Succeeded() bool {
	return d.State == "done"
}

// ListDeploymentsResponse is the response for listing deployments
type ListDeploymentsResponse struct {
	Deployments []Deployment `json:"deployments"`
	Total       int          `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}
