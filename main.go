package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/api"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/apigee"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/config"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/db"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/internal/logging"
	"github.com/sorenmh/infrastructure-shared/proxy-deploy/workflow"
)

func main() {
	configPath := flag.String("config", "/etc/proxy-deploy/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(logging.Config{}, nil).Fatalf("Failed to load config: %v", err)
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, os.Stdout)
	log.Infof("Loaded configuration for %d environments", len(cfg.Environments))

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	log.Infof("Database initialized at %s", cfg.Database.Path)

	client := apigee.NewClient(cfg.Management.BaseURL, cfg.Management.Timeout, log)
	defer client.Close()

	log.Infof("Management API client initialized (base: %s, timeout: %s)", client.BaseURL(), cfg.Management.Timeout)

	server := api.NewServer(cfg, database, workflow.New(client, log), log)

	log.Infof("Starting proxy deploy API v%s", api.Version)

	if err := server.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
