// Package client talks to the proxyd deployment API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// Client is a proxyd API client
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a new proxyd API client
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetAuthToken(apiKey).
			SetHeader("Accept", "application/json"),
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// StatusError reports a response with an unexpected status code.
type StatusError struct {
	StatusCode int
	Response   models.ErrorResponse
	Body       string
}

func (e *StatusError) Error() string {
	msg := e.Body
	if e.Response.Error != "" {
		msg = e.Response.Error
		if e.Response.Details != "" {
			msg += ": " + e.Response.Details
		}
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, msg)
}

// do sends req and decodes a response carrying want into v.
func (c *Client) do(req *resty.Request, method, path string, want int, v any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	body := resp.Bytes()
	if resp.StatusCode() != want {
		statusErr := &StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(string(body))}
		// error bodies that are not JSON keep only the raw text
		_ = json.Unmarshal(body, &statusErr.Response)
		return statusErr
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health reports the server status. It needs no API key.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var health models.HealthResponse
	if err := c.do(c.http.R().SetContext(ctx), http.MethodGet, "/health", http.StatusOK, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ListDeployments lists recorded runs, newest first. An empty api lists every proxy.
func (c *Client) ListDeployments(ctx context.Context, api string, limit, offset int) (*models.ListDeploymentsResponse, error) {
	req := c.http.R().SetContext(ctx)
	if api != "" {
		req.SetQueryParam("api", api)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		req.SetQueryParam("offset", strconv.Itoa(offset))
	}

	var list models.ListDeploymentsResponse
	if err := c.do(req, http.MethodGet, "/api/v1/deployments", http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetDeployment gets a recorded run by ID
func (c *Client) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	req := c.http.R().SetContext(ctx).SetPathParam("id", id)

	var dep models.Deployment
	if err := c.do(req, http.MethodGet, "/api/v1/deployments/{id}", http.StatusOK, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// CurrentDeployment gets the last successful run that left a revision of api
// deployed to env.
func (c *Client) CurrentDeployment(ctx context.Context, api, env string) (*models.Deployment, error) {
	req := c.http.R().SetContext(ctx).SetPathParams(map[string]string{
		"api": api,
		"env": env,
	})

	var dep models.Deployment
	if err := c.do(req, http.MethodGet, "/api/v1/apis/{api}/environments/{env}/current", http.StatusOK, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// Promote asks the server to deploy the revision running in req.From to req.To.
func (c *Client) Promote(ctx context.Context, req models.PromoteRequest) (*models.PromoteResponse, error) {
	r := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req)

	var resp models.PromoteResponse
	if err := c.do(r, http.MethodPost, "/api/v1/promotions", http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
