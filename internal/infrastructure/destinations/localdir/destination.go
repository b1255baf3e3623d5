package localdir

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Destination mirrors processed documents into a local directory. It is
// the reference destination; remote providers plug in behind the same
// interface.
type Destination struct {
	dir string
}

func New(dir string) *Destination {
	return &Destination{dir: dir}
}

func (d *Destination) Name() string {
	return "localdir"
}

func (d *Destination) IsConfigured() bool {
	return d.dir != ""
}

func (d *Destination) Upload(_ context.Context, filePath, fileID string) error {
	if d.dir == "" {
		return fmt.Errorf("localdir destination is not configured")
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	src, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open processed file: %w", err)
	}
	defer src.Close()

	target := filepath.Join(d.dir, fileID+"_"+filepath.Base(filePath))
	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy to destination: %w", err)
	}
	return nil
}
