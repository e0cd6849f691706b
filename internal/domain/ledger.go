package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger is the durable mirror for products and invoices. All writes are
// idempotent: upserts insert only when the key is absent, and the total
// update is keyed by bill id. Implementations live in internal/ledger.
type Ledger interface {
	// Product mirror
	UpsertProduct(ctx context.Context, p Product) error

	// Invoice mirror
	UpsertInvoiceHeader(ctx context.Context, billID, billDate string, storeID int64, total decimal.Decimal) error
	UpsertInvoiceLine(ctx context.Context, detailID, billID string, productID int64, quantity, lineTotal decimal.Decimal) error
	UpdateInvoiceTotal(ctx context.Context, billID string, total decimal.Decimal) error

	Close() error
}
