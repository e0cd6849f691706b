package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/prasetya88/billing-pipeline/internal/domain"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
	"github.com/prasetya88/billing-pipeline/pkg/retry"
)

// Calculator prices a validated bill against the catalog snapshot and,
// when a ledger is configured, mirrors the invoice header and lines with
// idempotent upserts. Any failure aborts invoice creation and leaves the
// source file for the next cycle.
type Calculator struct {
	ledger domain.Ledger
	logger *logger.Logger
}

func NewCalculator(ledger domain.Ledger, log *logger.Logger) *Calculator {
	return &Calculator{
		ledger: ledger,
		logger: log,
	}
}

func (c *Calculator) Compute(ctx context.Context, bill *domain.Bill, catalog domain.Catalog) (*domain.Invoice, error) {
	billID := bill.ID()
	billDate := *bill.BillDate

	storeID, err := strconv.ParseInt(strings.TrimSpace(string(*bill.StoreID)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("store id not coercible: %w", err)
	}

	if c.ledger != nil {
		// Provisional header with a zero total; corrected once the full
		// computation completes.
		err := retry.Do(ctx, func() error {
			return c.ledger.UpsertInvoiceHeader(ctx, billID, billDate, storeID, decimal.Zero)
		}, retry.WithMaxAttempts(3))
		if err != nil {
			return nil, domain.IOError(fmt.Errorf("failed to upsert invoice header: %w", err))
		}
	}

	total := decimal.Zero
	lines := make([]domain.InvoiceLine, 0, len(*bill.BillDetails))

	for i, item := range *bill.BillDetails {
		seq := i + 1

		if item.ProductID == nil {
			return nil, fmt.Errorf("line %d missing ProductID", seq)
		}
		if item.Quantity == nil {
			return nil, fmt.Errorf("line %d missing Quantity", seq)
		}

		product, ok := catalog.Lookup(*item.ProductID)
		if !ok {
			return nil, fmt.Errorf("line %d references unknown product %d", seq, *item.ProductID)
		}

		amount := product.UnitPrice.Mul(*item.Quantity)
		total = total.Add(amount)

		lines = append(lines, domain.InvoiceLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    *item.Quantity,
			UnitPrice:   product.UnitPrice,
			Amount:      amount,
		})

		if c.ledger != nil {
			detailID := fmt.Sprintf("%s_%d", billID, seq)
			quantity := *item.Quantity
			err := retry.Do(ctx, func() error {
				return c.ledger.UpsertInvoiceLine(ctx, detailID, billID, product.ID, quantity, amount)
			}, retry.WithMaxAttempts(3))
			if err != nil {
				return nil, domain.IOError(fmt.Errorf("failed to upsert invoice line %d: %w", seq, err))
			}
		}
	}

	if c.ledger != nil {
		err := retry.Do(ctx, func() error {
			return c.ledger.UpdateInvoiceTotal(ctx, billID, total)
		}, retry.WithMaxAttempts(3))
		if err != nil {
			return nil, domain.IOError(fmt.Errorf("failed to update invoice total: %w", err))
		}
	}

	return &domain.Invoice{
		BillID:      billID,
		BillDate:    billDate,
		StoreID:     storeID,
		TotalAmount: total,
		Lines:       lines,
	}, nil
}
