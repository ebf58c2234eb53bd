// Package templating rewrites proxy bundle XML before it is packaged:
// configured node replacements and commit metadata in the proxy description.
package templating

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

var (
	// ErrNoRules is returned by Replace when no rule set was configured.
	ErrNoRules = errors.New("replacement rules cannot be nil")

	ErrStreamNotSupported = models.ErrStreamNotSupported

	// ErrNoDescription is returned when a proxy definition has no Description.
	ErrNoDescription = errors.New("couldn't locate Description element")
)

// CommitSource provides version control metadata for description tokens.
type CommitSource interface {
	LastCommit() (*models.CommitMetadata, error)
}

// Engine applies replacement rules and description tokens to file records.
// Records are never modified in place.
type Engine struct {
	commits CommitSource
	log     logrus.FieldLogger
}

// New creates a templating engine. commits may be nil when only Replace is used.
func New(commits CommitSource, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		commits: commits,
		log:     log,
	}
}

// passThrough reports whether rec is forwarded untouched by every stage.
func passThrough(rec *models.FileRecord) (bool, error) {
	switch {
	case rec == nil, rec.IsDir(), rec.IsNull():
		return true, nil
	case rec.IsStream():
		return false, ErrStreamNotSupported
	default:
		return false, nil
	}
}
