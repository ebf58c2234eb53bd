package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DeploymentOptions holds the target coordinates, credentials and policy for
// one management API operation.
type DeploymentOptions struct {
	Org      string `yaml:"org" json:"org" validate:"required"`
	API      string `yaml:"api" json:"api" validate:"required"`
	Env      string `yaml:"env" json:"env" validate:"required"`
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
	Revision string `yaml:"revision,omitempty" json:"revision" validate:"required"`
	Override *bool  `yaml:"override,omitempty" json:"override" validate:"required"`
	Delay    *int   `yaml:"delay,omitempty" json:"delay" validate:"required,min=0"`
	Verbose  bool   `yaml:"verbose,omitempty" json:"verbose"`
}

// WithRevision returns a copy of the options targeting revision.
func (o DeploymentOptions) WithRevision(revision string) DeploymentOptions {
	o.Revision = revision
	return o
}

// Bundle is a packaged proxy ready for upload.
type Bundle struct {
	Contents    []byte `json:"contents" validate:"required"`
	ContentType string `json:"contentType,omitempty"`
}

const DefaultBundleContentType = "application/octet-stream"

// ErrStreamNotSupported is returned for records whose contents are not buffered.
var ErrStreamNotSupported = errors.New("stream is not supported")

// FileRecord is one file flowing through the proxy source pipeline.
type FileRecord struct {
	Path      string
	Contents  []byte
	Directory bool
	Stream    bool
}

func (f *FileRecord) IsNull() bool {
	return f.Contents == nil && !f.Stream
}

func (f *FileRecord) IsDir() bool {
	return f.Directory
}

func (f *FileRecord) IsStream() bool {
	return f.Stream
}

// WithContents returns a copy of the record carrying contents.
func (f *FileRecord) WithContents(contents []byte) *FileRecord {
	c := *f
	c.Contents = contents
	return &c
}

// ReplacementRule overwrites the node addressed by Locator with Value.
type ReplacementRule struct {
	Locator string `yaml:"xpath" json:"xpath" mapstructure:"xpath"`
	Value   string `yaml:"value" json:"value" mapstructure:"value"`
}

// Person identifies a commit author or committer.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CommitMetadata is a snapshot of version control state at build time.
type CommitMetadata struct {
	Hash          string    `json:"hash"`
	ShortHash     string    `json:"shortHash"`
	Committer     Person    `json:"committer"`
	CommittedDate time.Time `json:"committedDate"`
	Tags          []string  `json:"tags"`
}

// RevisionResult is the outcome of an import or update.
type RevisionResult struct {
	API      string `json:"name"`
	Revision string `json:"revision"`
}

// DeploymentEntry is one revision's state within an environment.
type DeploymentEntry struct {
	Env      string `json:"env,omitempty"`
	Revision string `json:"revision,omitempty"`
	State    string `json:"state,omitempty"`
}

// DeploymentStatus summarizes an activation or update.
type DeploymentStatus struct {
	API         string            `json:"api,omitempty"`
	Deployments []DeploymentEntry `json:"deployments"`

	// Raw is the platform response the status was built from.
	Raw json.RawMessage `json:"-" yaml:"-"`
}

// Summary renders the status as compact JSON for log lines.
func (s *DeploymentStatus) Summary() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%+v", *s)
	}
	return string(data)
}

// DeployedRevision is a revision entry of a deployment descriptor.
type DeployedRevision struct {
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}

// RevisionList accepts the platform's array, single object or bare string
// revision shapes.
type RevisionList []DeployedRevision

func (l *RevisionList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "" || trimmed == "null":
		*l = nil
		return nil
	case strings.HasPrefix(trimmed, "["):
		var list []DeployedRevision
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var single DeployedRevision
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = RevisionList{single}
		return nil
	default:
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("unsupported revision shape: %s", trimmed)
		}
		*l = RevisionList{{Name: name}}
		return nil
	}
}

// DeploymentDescriptor is the get-deployed-revision response.
type DeploymentDescriptor struct {
	API          string       `json:"name,omitempty"`
	Environment  string       `json:"environment,omitempty"`
	Organization string       `json:"organization,omitempty"`
	Revisions    RevisionList `json:"revision"`
}

// CurrentRevision returns the first listed revision.
func (d *DeploymentDescriptor) CurrentRevision() (string, bool) {
	if d == nil || len(d.Revisions) == 0 || d.Revisions[0].Name == "" {
		return "", false
	}
	return d.Revisions[0].Name, true
}
