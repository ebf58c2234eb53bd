package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.URL+"/", "secret")
	t.Cleanup(func() { c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestListDeployments(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/deployments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "gulp-v1", r.URL.Query().Get("api"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("offset"))

		writeJSON(w, http.StatusOK, models.ListDeploymentsResponse{
			Deployments: []models.Deployment{{ID: "abc", Workflow: "deploy", API: "gulp-v1", State: "done"}},
			Total:       1,
			Limit:       5,
		})
	})

	list, err := c.ListDeployments(context.Background(), "gulp-v1", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Deployments, 1)
	assert.Equal(t, "abc", list.Deployments[0].ID)
}

func TestGetDeployment(t *testing.T) {
	deployedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/deployments/abc":
			writeJSON(w, http.StatusOK, models.Deployment{ID: "abc", Revision: "3", DeployedAt: deployedAt})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "deployment not found"})
		}
	})

	dep, err := c.GetDeployment(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "3", dep.Revision)
	assert.True(t, deployedAt.Equal(dep.DeployedAt))

	_, err = c.GetDeployment(context.Background(), "missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.EqualError(t, err, "API returned status 404: deployment not found")
}

func TestCurrentDeployment(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/apis/gulp-v1/environments/prod/current", r.URL.Path)
		writeJSON(w, http.StatusOK, models.Deployment{ID: "abc", API: "gulp-v1", Environment: "prod", Revision: "7"})
	})

	dep, err := c.CurrentDeployment(context.Background(), "gulp-v1", "prod")
	require.NoError(t, err)
	assert.Equal(t, "7", dep.Revision)
}

func TestPromote(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/promotions", r.URL.Path)

		var req models.PromoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.To == "qa" {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown environment", Details: `unknown environment: "qa"`})
			return
		}
		writeJSON(w, http.StatusOK, models.PromoteResponse{
			Deployment: &models.Deployment{ID: "abc", API: "gulp-v1", Environment: req.To, Revision: "3", State: "done"},
		})
	})

	resp, err := c.Promote(context.Background(), models.PromoteRequest{From: "test", To: "prod"})
	require.NoError(t, err)
	assert.Equal(t, "prod", resp.Deployment.Environment)

	_, err = c.Promote(context.Background(), models.PromoteRequest{From: "test", To: "qa"})
	assert.EqualError(t, err, `API returned status 400: Unknown environment: unknown environment: "qa"`)
}

func TestHealth(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.HealthResponse{Status: "healthy", Version: "1.0.0", DatabaseAccessible: true})
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.DatabaseAccessible)
}

func TestStatusError_PlainBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.Health(context.Background())
	assert.EqualError(t, err, "API returned status 502: bad gateway")
}

func TestTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "secret")
	defer c.Close()

	_, err := c.Health(context.Background())
	assert.ErrorContains(t, err, "failed to send request")
}
