package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store receives rendered artifacts as (name, bytes). Upload protocols are
// external concerns; the rendering core only ever sees this interface.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Dir stores artifacts on the local filesystem. Good enough for single-node
// deployments; a cloud-backed Store drops in behind the same interface.
type Dir struct {
	Root string
}

func NewDir(root string) *Dir { return &Dir{Root: root} }

func (d *Dir) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	path := filepath.Join(d.Root, filepath.Base(name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("storage: finalize %s: %w", name, err)
	}
	return path, nil
}
