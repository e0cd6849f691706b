package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

// Mover relocates rejected bill files into the quarantine directory,
// preserving the base name. An existing file with the same name is
// overwritten.
type Mover struct {
	dir    string
	logger *logger.Logger
}

func NewMover(dir string, log *logger.Logger) *Mover {
	return &Mover{
		dir:    dir,
		logger: log,
	}
}

func (m *Mover) Quarantine(ctx context.Context, path string) error {
	target := filepath.Join(m.dir, filepath.Base(path))

	if err := moveFile(path, target); err != nil {
		m.logger.Error(ctx, "Failed to quarantine file",
			"path", path,
			"target", target,
			"error", err,
		)
		return err
	}

	m.logger.Info(ctx, "File quarantined",
		"path", path,
		"target", target,
	)

	return nil
}

// moveFile renames when possible and falls back to copy-then-delete when
// source and target live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush target: %w", err)
	}

	return os.Remove(src)
}
