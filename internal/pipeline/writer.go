package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prasetya88/billing-pipeline/internal/domain"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

// Writer serializes finished invoices to the output directory and removes
// the source bill. Any failure leaves the source file in place so the bill
// is retried on the next cycle.
type Writer struct {
	dir    string
	logger *logger.Logger
}

func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: log,
	}
}

func (w *Writer) Write(ctx context.Context, invoice *domain.Invoice, sourcePath string) error {
	data, err := json.MarshalIndent(invoice, "", "    ")
	if err != nil {
		return domain.IOError(fmt.Errorf("failed to serialize invoice: %w", err))
	}

	target := filepath.Join(w.dir, invoice.BillID+".json")
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return domain.IOError(fmt.Errorf("failed to write invoice: %w", err))
	}

	if err := os.Remove(sourcePath); err != nil {
		return domain.IOError(fmt.Errorf("failed to remove processed bill: %w", err))
	}

	w.logger.Info(ctx, "Invoice saved",
		"target", target,
		"total", invoice.TotalAmount,
	)

	return nil
}
