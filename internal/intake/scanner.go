package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prasetya88/billing-pipeline/internal/domain"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

const billExtension = ".json"

// Scanner lists the intake directory for candidate bill files and parses
// them. Files that cannot be parsed are quarantined immediately and never
// retried; this also covers the producer race where a file is read while
// still being written.
type Scanner struct {
	dir    string
	mover  *Mover
	logger *logger.Logger
}

func NewScanner(dir string, mover *Mover, log *logger.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		mover:  mover,
		logger: log,
	}
}

// Scan returns the full paths of candidate files in directory order. The
// order is whatever the OS reports; callers must not depend on it.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills directory: %w", err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), billExtension) {
			continue
		}
		candidates = append(candidates, filepath.Join(s.dir, entry.Name()))
	}

	return candidates, nil
}

// Parse reads and unmarshals one candidate. On any read or decode failure
// the file is moved to quarantine and a structural error is returned.
func (s *Scanner) Parse(ctx context.Context, path string) (*domain.Bill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error(ctx, "Failed to read bill file",
			"path", path,
			"error", err,
		)
		s.mover.Quarantine(ctx, path)
		return nil, domain.Structural(fmt.Errorf("%w: %v", domain.ErrUnreadableBill, err))
	}

	var bill domain.Bill
	if err := json.Unmarshal(data, &bill); err != nil {
		s.logger.Error(ctx, "Bill file is not valid JSON",
			"path", path,
			"error", err,
		)
		s.mover.Quarantine(ctx, path)
		return nil, domain.Structural(fmt.Errorf("%w: %v", domain.ErrUnreadableBill, err))
	}

	return &bill, nil
}
