package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/apigee"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/config"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/db"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/workflow"
)

type Server struct {
	config *config.Config
	db     *db.Database
	runner *workflow.Runner
	router *gin.Engine
	log    logrus.FieldLogger
}

const Version = "1.0.0"

func NewServer(cfg *config.Config, database *db.Database, runner *workflow.Runner, log logrus.FieldLogger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		config: cfg,
		db:     database,
		runner: runner,
		router: gin.New(),
		log:    log,
	}
	s.router.Use(gin.Recovery(), s.requestLogger())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check (no auth)
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.Use(s.authMiddleware())
	{
		api.GET("/deployments", s.handleGetDeployments)
		api.GET("/deployments/:id", s.handleGetDeployment)
		api.GET("/apis/:api/environments/:env/current", s.handleGetCurrent)

		api.POST("/promotions", s.handlePromote)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("request")
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(auth, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		if !s.config.ValidateAPIKey(parts[1]) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	dbOK := s.db != nil && s.db.Ping() == nil

	status := "healthy"
	if !dbOK {
		status = "degraded"
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:             status,
		Version:            Version,
		DatabaseAccessible: dbOK,
	})
}

func (s *Server) handleGetDeployments(c *gin.Context) {
	api := c.Query("api")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	deployments, total, err := s.db.GetDeployments(api, limit, offset)
	if err != nil {
		s.log.Errorf("Error listing deployments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get deployments"})
		return
	}

	c.JSON(http.StatusOK, models.ListDeploymentsResponse{
		Deployments: deployments,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}

func (s *Server) handleGetDeployment(c *gin.Context) {
	dep, err := s.db.GetDeployment(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "deployment not found"})
		return
	}
	if err != nil {
		s.log.Errorf("Error getting deployment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get deployment"})
		return
	}

	c.JSON(http.StatusOK, dep)
}

func (s *Server) handleGetCurrent(c *gin.Context) {
	api, env := c.Param("api"), c.Param("env")

	current, err := s.db.GetCurrentDeployment(api, env)
	if err != nil {
		s.log.Errorf("Error getting current deployment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get current deployment"})
		return
	}
	if current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no deployment found"})
		return
	}

	c.JSON(http.StatusOK, current)
}

func (s *Server) handlePromote(c *gin.Context) {
	var req models.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
			Time:    time.Now(),
		})
		return
	}

	source, err := s.config.Options(req.From)
	if err != nil {
		s.badEnvironment(c, err)
		return
	}
	target, err := s.config.Options(req.To)
	if err != nil {
		s.badEnvironment(c, err)
		return
	}
	if req.API != "" {
		source.API = req.API
		target.API = req.API
	}

	out, runErr := s.runner.Promote(c.Request.Context(), source, target)
	dep := s.runner.Record(s.db, out, target, runErr)

	if runErr != nil {
		s.log.Errorf("Promotion of %s from %s to %s failed: %v", target.API, req.From, req.To, runErr)
		resp := models.ErrorResponse{
			Error:   "Promotion failed",
			Details: runErr.Error(),
			Time:    time.Now(),
		}
		if dep != nil {
			resp.DeploymentID = dep.ID
		}
		var verrs models.ValidationErrors
		if errors.As(runErr, &verrs) {
			resp.Fields = verrs
		}
		c.JSON(promoteStatus(runErr), resp)
		return
	}

	c.JSON(http.StatusOK, models.PromoteResponse{
		Deployment: dep,
		Status:     out.Status,
	})
}

func (s *Server) badEnvironment(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "Unknown environment",
		Details: err.Error(),
		Time:    time.Now(),
	})
}

// promoteStatus maps a workflow failure to the response status code.
func promoteStatus(err error) int {
	var (
		verrs     models.ValidationErrors
		apiErr    *apigee.APIError
		transport *apigee.TransportError
	)
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrRevisionUnknown):
		return http.StatusConflict
	case errors.As(err, &apiErr), errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Handler exposes the router for embedding in another http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	s.log.Infof("Starting server on %s", addr)
	return s.router.Run(addr)
}
