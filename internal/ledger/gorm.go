package ledger

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/prasetya88/billing-pipeline/internal/domain"
)

type productRow struct {
	ProductID       int64           `gorm:"column:product_id;primaryKey"`
	ProductName     string          `gorm:"column:product_name"`
	ProductCategory string          `gorm:"column:product_category"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric"`
}

func (productRow) TableName() string { return "products" }

type invoiceRow struct {
	BillID    string          `gorm:"column:bill_id;primaryKey"`
	BillDate  string          `gorm:"column:bill_date"`
	StoreID   int64           `gorm:"column:store_id"`
	BillTotal decimal.Decimal `gorm:"column:bill_total;type:numeric"`
}

func (invoiceRow) TableName() string { return "invoices" }

type invoiceDetailRow struct {
	DetailID  string          `gorm:"column:detail_id;primaryKey"`
	BillID    string          `gorm:"column:bill_id;index"`
	ProductID int64           `gorm:"column:product_id"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric"`
}

func (invoiceDetailRow) TableName() string { return "invoice_details" }

// GormLedger mirrors products and invoices into a relational store.
// Conflicting inserts are silently skipped, which makes every write safe
// to replay when a bill is reprocessed.
type GormLedger struct {
	db *gorm.DB
}

// Open connects to the configured ledger backend and migrates the three
// mirror tables. Supported drivers: sqlite, postgres.
func Open(driver, dsn string) (*GormLedger, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	if err := db.AutoMigrate(&productRow{}, &invoiceRow{}, &invoiceDetailRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}

	return &GormLedger{db: db}, nil
}

// NewWithDB wraps an existing gorm connection; tests use this with an
// in-memory sqlite database.
func NewWithDB(db *gorm.DB) (*GormLedger, error) {
	if err := db.AutoMigrate(&productRow{}, &invoiceRow{}, &invoiceDetailRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return &GormLedger{db: db}, nil
}

func (l *GormLedger) UpsertProduct(ctx context.Context, p domain.Product) error {
	row := productRow{
		ProductID:       p.ID,
		ProductName:     p.Name,
		ProductCategory: p.Category,
		UnitPrice:       p.UnitPrice,
	}

	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (l *GormLedger) UpsertInvoiceHeader(ctx context.Context, billID, billDate string, storeID int64, total decimal.Decimal) error {
	row := invoiceRow{
		BillID:    billID,
		BillDate:  billDate,
		StoreID:   storeID,
		BillTotal: total,
	}

	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (l *GormLedger) UpsertInvoiceLine(ctx context.Context, detailID, billID string, productID int64, quantity, lineTotal decimal.Decimal) error {
	row := invoiceDetailRow{
		DetailID:  detailID,
		BillID:    billID,
		ProductID: productID,
		Quantity:  quantity,
		LineTotal: lineTotal,
	}

	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (l *GormLedger) UpdateInvoiceTotal(ctx context.Context, billID string, total decimal.Decimal) error {
	return l.db.WithContext(ctx).
		Model(&invoiceRow{}).
		Where("bill_id = ?", billID).
		Update("bill_total", total).Error
}

func (l *GormLedger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
