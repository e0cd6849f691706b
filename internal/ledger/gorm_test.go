package ledger

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prasetya88/billing-pipeline/internal/domain"
)

func newSQLiteLedger(t *testing.T) *GormLedger {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	store, err := NewWithDB(db)
	require.NoError(t, err)
	return store
}

func TestGormLedger_UpsertProductIsIdempotent(t *testing.T) {
	store := newSQLiteLedger(t)
	ctx := context.Background()

	p := domain.Product{ID: 1, Name: "Pen", Category: "Stationery", UnitPrice: decimal.RequireFromString("2.50")}
	require.NoError(t, store.UpsertProduct(ctx, p))
	require.NoError(t, store.UpsertProduct(ctx, p))

	var count int64
	require.NoError(t, store.db.Model(&productRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormLedger_HeaderTotalLifecycle(t *testing.T) {
	store := newSQLiteLedger(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertInvoiceHeader(ctx, "B1", "01/01/2024 10:00:00", 2, decimal.Zero))
	require.NoError(t, store.UpsertInvoiceLine(ctx, "B1_1", "B1", 1, decimal.RequireFromString("4"), decimal.RequireFromString("10.00")))
	require.NoError(t, store.UpdateInvoiceTotal(ctx, "B1", decimal.RequireFromString("10.00")))

	var header invoiceRow
	require.NoError(t, store.db.Where("bill_id = ?", "B1").First(&header).Error)
	assert.True(t, header.BillTotal.Equal(decimal.RequireFromString("10.00")), "got total %s", header.BillTotal)

	// Replaying the header upsert must not reset the corrected total.
	require.NoError(t, store.UpsertInvoiceHeader(ctx, "B1", "01/01/2024 10:00:00", 2, decimal.Zero))
	require.NoError(t, store.db.Where("bill_id = ?", "B1").First(&header).Error)
	assert.True(t, header.BillTotal.Equal(decimal.RequireFromString("10.00")))
}

func TestGormLedger_DetailRowsIdempotent(t *testing.T) {
	store := newSQLiteLedger(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertInvoiceLine(ctx, "B1_1", "B1", 1, decimal.RequireFromString("4"), decimal.RequireFromString("10.00")))
	require.NoError(t, store.UpsertInvoiceLine(ctx, "B1_1", "B1", 1, decimal.RequireFromString("4"), decimal.RequireFromString("10.00")))
	require.NoError(t, store.UpsertInvoiceLine(ctx, "B1_2", "B1", 2, decimal.RequireFromString("1"), decimal.RequireFromString("5.00")))

	var count int64
	require.NoError(t, store.db.Model(&invoiceDetailRow{}).Where("bill_id = ?", "B1").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}
