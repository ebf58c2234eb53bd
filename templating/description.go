package templating

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

var (
	descriptionPath = etree.MustCompilePath("/APIProxy/Description")

	tokenPattern = regexp.MustCompile(`\$[A-Za-z]+(?:\.[A-Za-z]+)*`)
	spaceRun     = regexp.MustCompile(` {2,}`)
)

// commitTokens maps description placeholders to commit fields.
var commitTokens = map[string]func(*models.CommitMetadata) string{
	"shortHash":       func(c *models.CommitMetadata) string { return c.ShortHash },
	"hash":            func(c *models.CommitMetadata) string { return c.ShortHash },
	"fullHash":        func(c *models.CommitMetadata) string { return c.Hash },
	"committer":       func(c *models.CommitMetadata) string { return c.Committer.Email },
	"committer.name":  func(c *models.CommitMetadata) string { return c.Committer.Name },
	"committer.email": func(c *models.CommitMetadata) string { return c.Committer.Email },
	"committedDate":   formatDate(time.RFC3339),
	"commitDate":      formatDate(time.RFC3339),
	"committedOn":     formatDate(time.DateOnly),
	"tags":            func(c *models.CommitMetadata) string { return strings.Join(c.Tags, ",") },
}

func formatDate(layout string) func(*models.CommitMetadata) string {
	return func(c *models.CommitMetadata) string {
		if c.CommittedDate.IsZero() {
			return ""
		}
		return c.CommittedDate.Format(layout)
	}
}

// isProxyDefinition reports whether rec is a proxy root definition.
func isProxyDefinition(rec *models.FileRecord) bool {
	return strings.EqualFold(path.Ext(filepath.ToSlash(rec.Path)), ".xml") &&
		bytes.Contains(rec.Contents, []byte("<APIProxy"))
}

// SetDescription expands $tokens in the proxy Description with the metadata
// of the last commit. Files other than proxy definitions pass through.
func (e *Engine) SetDescription(rec *models.FileRecord) (*models.FileRecord, error) {
	skip, err := passThrough(rec)
	if err != nil {
		return nil, err
	}
	if skip {
		return rec, nil
	}
	if !isProxyDefinition(rec) {
		return rec, nil
	}

	doc, err := parseDocument(rec.Contents)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rec.Path, err)
	}

	description := doc.FindElementPath(descriptionPath)
	if description == nil {
		return nil, fmt.Errorf("%w in %s", ErrNoDescription, rec.Path)
	}

	text := description.Text()
	if !tokenPattern.MatchString(text) {
		e.log.Debugf("no description tokens in %s, leaving it unchanged", rec.Path)
		return rec, nil
	}

	if e.commits == nil {
		return nil, fmt.Errorf("%s: no commit source configured", rec.Path)
	}
	commit, err := e.commits.LastCommit()
	if err != nil {
		return nil, fmt.Errorf("failed to read commit metadata for %s: %w", rec.Path, err)
	}

	expanded := ExpandTokens(text, commit)
	setTextContent(description, expanded)
	e.log.Infof("set description of %s to %q", rec.Path, expanded)

	out, err := serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Path, err)
	}
	return rec.WithContents(out), nil
}

// lookupToken resolves the longest known dotted prefix of name. The remainder,
// dot included, is returned as literal text.
func lookupToken(name string) (func(*models.CommitMetadata) string, string, bool) {
	parts := strings.Split(name, ".")
	for n := len(parts); n > 0; n-- {
		if field, ok := commitTokens[strings.Join(parts[:n], ".")]; ok {
			rest := ""
			if n < len(parts) {
				rest = "." + strings.Join(parts[n:], ".")
			}
			return field, rest, true
		}
	}
	return nil, "", false
}

// ExpandTokens replaces every $token in text with its commit field. Unknown
// tokens are dropped and the space runs they leave collapse to one space.
func ExpandTokens(text string, commit *models.CommitMetadata) string {
	if commit == nil {
		commit = &models.CommitMetadata{}
	}
	unresolved := false
	out := tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		field, rest, ok := lookupToken(token[1:])
		if !ok {
			unresolved = true
			return ""
		}
		return field(commit) + rest
	})
	if unresolved {
		out = spaceRun.ReplaceAllString(out, " ")
	}
	return out
}
