package models

import "time"

// HealthResponse is the response for the health check endpoint
type HealthResponse struct {
	Status             string `json:"status"`
	Version            string `json:"version"`
	DatabaseAccessible bool   `json:"database_accessible"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error        string            `json:"error"`
	Details      string            `json:"details,omitempty"`
	Fields       []ValidationError `json:"fields,omitempty"`
	DeploymentID string            `json:"deployment_id,omitempty"`
	Time         time.Time         `json:"time"`
}

// PromoteRequest asks for the revision deployed in From to be deployed in To.
// API overrides the proxy name configured for both environments.
type PromoteRequest struct {
	API  string `json:"api,omitempty"`
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// PromoteResponse is the response for a completed promotion
type PromoteResponse struct {
	Deployment *Deployment       `json:"deployment"`
	Status     *DeploymentStatus `json:"status,omitempty"`
}
