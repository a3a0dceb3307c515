// Package storage provides the blob-store backends for uploaded statements.
// Stored objects are append-only: names carry a timestamp and a random
// suffix so concurrent uploads never overwrite each other's bytes.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Disk stores uploaded files under a local directory.
type Disk struct {
	dir string
}

// NewDisk creates the upload directory if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Put writes content under a collision-free name and returns the path.
func (d *Disk) Put(_ context.Context, filename string, content []byte) (string, error) {
	path := filepath.Join(d.dir, objectName(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// objectName builds a unique, filesystem-safe object name:
// <unix-nanos>-<short uuid>-<sanitized original name>.
func objectName(filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.New().String()[:8], base)
}
