// Package storage defines the blob storage used to keep copies of store backups off the
// local disk. Backends live in the local, memory and gcs subpackages.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore persists an object and returns a URI for it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// CSVContentType is attached to archived store backups.
const CSVContentType = "text/csv; charset=utf-8"

// Archiver uploads local backup files to a BlobStore under a fixed prefix.
type Archiver struct {
	blobs  BlobStore
	prefix string
}

// NewArchiver wraps blobs. Objects are named <prefix>/<backup file name>.
func NewArchiver(blobs BlobStore, prefix string) (*Archiver, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Archiver{blobs: blobs, prefix: strings.Trim(prefix, "/")}, nil
}

// Archive copies the file at backupPath into the blob store.
func (a *Archiver) Archive(ctx context.Context, backupPath string) (string, error) {
	if strings.TrimSpace(backupPath) == "" {
		return "", fmt.Errorf("backup path is required")
	}
	// #nosec G304 -- backup paths are produced by the store itself.
	f, err := os.Open(backupPath)
	if err != nil {
		return "", fmt.Errorf("open backup: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(backupPath)
	if a.prefix != "" {
		name = path.Join(a.prefix, name)
	}
	uri, err := a.blobs.PutObject(ctx, name, CSVContentType, f)
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", name, err)
	}
	return uri, nil
}
