package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// ErrNotFound is returned when no deployment has the requested id.
var ErrNotFound = errors.New("deployment not found")

type Database struct {
	db *sql.DB
}

func New(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deployments (
		id TEXT PRIMARY KEY,
		workflow TEXT NOT NULL,
		api TEXT NOT NULL,
		environment TEXT NOT NULL,
		revision TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		deployed_by TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		deployed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_api ON deployments(api);
	CREATE INDEX IF NOT EXISTS idx_deployed_at ON deployments(deployed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_state ON deployments(state);

	CREATE TABLE IF NOT EXISTS deployment_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		deployment_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		details TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (deployment_id) REFERENCES deployments(id)
	);

	CREATE INDEX IF NOT EXISTS idx_deployment_id ON deployment_events(deployment_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

const deploymentColumns = `id, workflow, api, environment, revision, state, deployed_by, message, deployed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row scanner) (*models.Deployment, error) {
	var dep models.Deployment
	err := row.Scan(&dep.ID, &dep.Workflow, &dep.API, &dep.Environment, &dep.Revision, &dep.State, &dep.DeployedBy, &dep.Message, &dep.DeployedAt)
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

// CreateDeployment stores dep and one event per state transition.
func (d *Database) CreateDeployment(dep *models.Deployment) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO deployments (`+deploymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, dep.ID, dep.Workflow, dep.API, dep.Environment, dep.Revision, dep.State, dep.DeployedBy, dep.Message, dep.DeployedAt)
	if err != nil {
		return fmt.Errorf("failed to insert deployment %s: %w", dep.ID, err)
	}

	for i, state := range dep.Transitions {
		// the failure message belongs to the final failed transition
		details := ""
		if i == len(dep.Transitions)-1 && state == "failed" {
			details = dep.Message
		}
		if err := addEvent(tx, dep.ID, state, details, dep.DeployedAt); err != nil {
			return fmt.Errorf("failed to insert event for %s: %w", dep.ID, err)
		}
	}

	return tx.Commit()
}

func (d *Database) GetDeployment(id string) (*models.Deployment, error) {
	dep, err := scanDeployment(d.db.QueryRow(`
		SELECT `+deploymentColumns+`
		FROM deployments WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	dep.Transitions, err = d.transitions(id)
	if err != nil {
		return nil, err
	}
	return dep, nil
}

func (d *Database) transitions(id string) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT event_type FROM deployment_events
		WHERE deployment_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []string
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// GetDeployments lists deployments of api, newest first. An empty api lists
// every deployment.
func (d *Database) GetDeployments(api string, limit, offset int) ([]models.Deployment, int, error) {
	var total int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM deployments WHERE ? = '' OR api = ?`, api, api).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := d.db.Query(`
		SELECT `+deploymentColumns+`
		FROM deployments
		WHERE ? = '' OR api = ?
		ORDER BY deployed_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, api, api, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	deployments := []models.Deployment{}
	for rows.Next() {
		dep, err := scanDeployment(rows)
		if err != nil {
			return nil, 0, err
		}
		deployments = append(deployments, *dep)
	}

	return deployments, total, rows.Err()
}

// GetCurrentDeployment returns the latest completed run that activated a
// revision in environment, or nil when there is none. Imports are skipped
// since they deploy nothing.
func (d *Database) GetCurrentDeployment(api, environment string) (*models.Deployment, error) {
	dep, err := scanDeployment(d.db.QueryRow(`
		SELECT `+deploymentColumns+`
		FROM deployments
		WHERE api = ? AND environment = ? AND state = 'done' AND revision != '' AND workflow != 'import'
		ORDER BY deployed_at DESC, rowid DESC
		LIMIT 1
	`, api, environment))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return dep, err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func addEvent(db execer, deploymentID, eventType, details string, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO deployment_events (deployment_id, event_type, details, timestamp)
		VALUES (?, ?, ?, ?)
	`, deploymentID, eventType, details, at)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Ping() error {
	return d.db.Ping()
}
