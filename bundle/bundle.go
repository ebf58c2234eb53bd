// Package bundle reads proxy source trees into file records and packages
// records into the zip archive the management API imports.
package bundle

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

// DefaultName is the archive name used when Package is given none.
const DefaultName = "apiproxy.zip"

// entryTime is stamped on every archive entry so packaging the same records
// twice produces identical bytes.
var entryTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Stage transforms one record. Returning a nil record drops it.
type Stage func(*models.FileRecord) (*models.FileRecord, error)

// Collect walks root and returns a record per file and directory, with
// slash-separated paths relative to base, in lexical order.
func Collect(root, base string) ([]*models.FileRecord, error) {
	if base == "" {
		base = root
	}

	var records []*models.FileRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s against %s: %w", path, base, err)
		}
		if rel == "." {
			return nil
		}

		rec := &models.FileRecord{Path: filepath.ToSlash(rel)}
		if d.IsDir() {
			rec.Directory = true
			records = append(records, rec)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		contents, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		rec.Contents = contents
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect %s: %w", root, err)
	}
	return records, nil
}

// Transform runs every record through stages in order. The first failing
// stage aborts the run.
func Transform(records []*models.FileRecord, stages ...Stage) ([]*models.FileRecord, error) {
	out := make([]*models.FileRecord, 0, len(records))

records:
	for _, rec := range records {
		current := rec
		for _, stage := range stages {
			next, err := stage(current)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", rec.Path, err)
			}
			if next == nil {
				continue records
			}
			current = next
		}
		out = append(out, current)
	}
	return out, nil
}

// Package zips the file records into a single record called name. Directories
// and null records are skipped.
func Package(records []*models.FileRecord, name string) (*models.FileRecord, error) {
	if name == "" {
		name = DefaultName
	}

	files := make([]*models.FileRecord, 0, len(records))
	for _, rec := range records {
		switch {
		case rec == nil, rec.IsDir(), rec.IsNull():
			continue
		case rec.IsStream():
			return nil, fmt.Errorf("%s: %w", rec.Path, models.ErrStreamNotSupported)
		}
		files = append(files, rec)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, rec := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     rec.Path,
			Method:   zip.Deflate,
			Modified: entryTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", rec.Path, err)
		}
		if _, err := w.Write(rec.Contents); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", rec.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	return &models.FileRecord{Path: name, Contents: buf.Bytes()}, nil
}
