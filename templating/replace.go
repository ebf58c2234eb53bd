package templating

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	attributeNode
	commentNode
)

// locator is a replacement location split into the element path and the
// node selected on the matched elements.
type locator struct {
	path string
	kind nodeKind
	attr string
}

func parseLocator(s string) locator {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return locator{path: s, kind: elementNode}
	}

	last := s[idx+1:]
	switch {
	case strings.HasPrefix(last, "@"):
		return locator{path: s[:idx], kind: attributeNode, attr: last[1:]}
	case last == "comment()":
		return locator{path: s[:idx], kind: commentNode}
	case last == "text()":
		return locator{path: s[:idx], kind: textNode}
	default:
		return locator{path: s, kind: elementNode}
	}
}

// Replace overwrites the nodes named by the rules registered for rec's path.
// Records without rules are returned unchanged. Locators that match nothing
// are logged and skipped.
func (e *Engine) Replace(rec *models.FileRecord, rules map[string][]models.ReplacementRule) (*models.FileRecord, error) {
	if rules == nil {
		return nil, ErrNoRules
	}
	skip, err := passThrough(rec)
	if err != nil {
		return nil, err
	}
	if skip {
		return rec, nil
	}

	fileRules := rules[filepath.ToSlash(rec.Path)]
	if len(fileRules) == 0 {
		return rec, nil
	}

	e.log.Infof("replacing content in %s", rec.Path)

	doc, err := parseDocument(rec.Contents)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rec.Path, err)
	}

	for _, rule := range fileRules {
		if !apply(doc, rule) {
			e.log.Warnf("couldn't resolve replacement xpath %s in %s", rule.Locator, rec.Path)
		}
	}

	out, err := serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Path, err)
	}
	return rec.WithContents(out), nil
}

// apply sets rule.Value on every node the locator matches and reports
// whether anything matched.
func apply(doc *etree.Document, rule models.ReplacementRule) bool {
	loc := parseLocator(rule.Locator)
	if loc.path == "" {
		return false
	}

	path, err := etree.CompilePath(loc.path)
	if err != nil {
		return false
	}

	resolved := false
	for _, el := range doc.FindElementsPath(path) {
		if el == &doc.Element {
			continue
		}

		switch loc.kind {
		case attributeNode:
			if attr := el.SelectAttr(loc.attr); attr != nil {
				attr.Value = rule.Value
				resolved = true
			}
		case commentNode:
			for _, tok := range el.Child {
				if c, ok := tok.(*etree.Comment); ok {
					c.Data = rule.Value
					resolved = true
				}
			}
		case textNode:
			el.SetText(rule.Value)
			resolved = true
		default:
			setTextContent(el, rule.Value)
			resolved = true
		}
	}
	return resolved
}
