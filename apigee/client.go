package apigee

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// DefaultBaseURL is the management API of the hosted platform.
const DefaultBaseURL = "https://api.enterprise.apigee.com/v1"

// DefaultTimeout bounds every management API call.
const DefaultTimeout = 60 * time.Second

// Client is a management API client
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a new management API client
func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if log != nil {
		httpClient.SetLogger(log)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the management API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) request(ctx context.Context, opts *models.DeploymentOptions) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetBasicAuth(opts.Username, opts.Password)
}

// execute sends req and returns the body of a response carrying want.
func (c *Client) execute(op models.Operation, req *resty.Request, method, path string, want int) ([]byte, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &TransportError{Operation: string(op), Err: err}
	}

	body := resp.Bytes()
	if resp.StatusCode() != want {
		return nil, &APIError{
			Operation:  string(op),
			StatusCode: resp.StatusCode(),
			Body:       decodeBody(body),
		}
	}
	return body, nil
}

func contentType(bundle *models.Bundle) string {
	if bundle.ContentType != "" {
		return bundle.ContentType
	}
	return models.DefaultBundleContentType
}

// Import uploads bundle as a new revision of opts.API.
func (c *Client) Import(ctx context.Context, opts *models.DeploymentOptions, bundle *models.Bundle) (*models.RevisionResult, error) {
	if err := models.Validate(models.OpImport, opts, bundle); err != nil {
		return nil, err
	}

	req := c.request(ctx, opts).
		SetHeader("Content-Type", contentType(bundle)).
		SetPathParam("org", opts.Org).
		SetQueryParam("action", "import").
		SetQueryParam("name", opts.API).
		SetBody(bundle.Contents)

	body, err := c.execute(models.OpImport, req, http.MethodPost, "/organizations/{org}/apis", http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return decodeRevision(body)
}

// Update replaces the contents of opts.Revision with bundle.
func (c *Client) Update(ctx context.Context, opts *models.DeploymentOptions, bundle *models.Bundle) (*models.RevisionResult, error) {
	if err := models.Validate(models.OpUpdate, opts, bundle); err != nil {
		return nil, err
	}

	req := c.request(ctx, opts).
		SetHeader("Content-Type", contentType(bundle)).
		SetPathParams(map[string]string{
			"org":      opts.Org,
			"api":      opts.API,
			"revision": opts.Revision,
		}).
		SetQueryParam("validate", "true").
		SetBody(bundle.Contents)

	body, err := c.execute(models.OpUpdate, req, http.MethodPost, "/organizations/{org}/apis/{api}/revisions/{revision}", http.StatusOK)
	if err != nil {
		return nil, err
	}
	return decodeRevision(body)
}

// Activate deploys opts.Revision into opts.Env.
func (c *Client) Activate(ctx context.Context, opts *models.DeploymentOptions) (*models.DeploymentStatus, error) {
	if err := models.Validate(models.OpActivate, opts, nil); err != nil {
		return nil, err
	}

	req := c.request(ctx, opts).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetPathParams(map[string]string{
			"org":      opts.Org,
			"env":      opts.Env,
			"api":      opts.API,
			"revision": opts.Revision,
		}).
		SetQueryParam("override", strconv.FormatBool(*opts.Override)).
		SetQueryParam("delay", strconv.Itoa(*opts.Delay))

	body, err := c.execute(models.OpActivate, req, http.MethodPost,
		"/organizations/{org}/environments/{env}/apis/{api}/revisions/{revision}/deployments", http.StatusOK)
	if err != nil {
		return nil, err
	}
	return normalizeDeployments(body)
}

// GetDeployedRevision describes the revisions of opts.API deployed in opts.Env.
func (c *Client) GetDeployedRevision(ctx context.Context, opts *models.DeploymentOptions) (*models.DeploymentDescriptor, error) {
	if err := models.Validate(models.OpGetDeployedRevision, opts, nil); err != nil {
		return nil, err
	}

	req := c.request(ctx, opts).
		SetPathParams(map[string]string{
			"org": opts.Org,
			"env": opts.Env,
			"api": opts.API,
		})

	body, err := c.execute(models.OpGetDeployedRevision, req, http.MethodGet,
		"/organizations/{org}/environments/{env}/apis/{api}/deployments", http.StatusOK)
	if err != nil {
		return nil, err
	}
	return decodeDescriptor(body)
}
