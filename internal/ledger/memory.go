package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/prasetya88/billing-pipeline/internal/domain"
)

// InvoiceHeader is the mirrored invoice header row.
type InvoiceHeader struct {
	BillID    string
	BillDate  string
	StoreID   int64
	BillTotal decimal.Decimal
}

// InvoiceDetail is one mirrored invoice line, keyed by bill id plus a
// 1-based sequence counter.
type InvoiceDetail struct {
	DetailID  string
	BillID    string
	ProductID int64
	Quantity  decimal.Decimal
	LineTotal decimal.Decimal
}

// MemoryLedger keeps the mirror in process memory. Used by tests and by
// LEDGER_DRIVER=memory runs where durability is not needed.
type MemoryLedger struct {
	products map[int64]domain.Product
	headers  map[string]InvoiceHeader
	details  map[string]InvoiceDetail
	mu       sync.RWMutex
}

func NewMemory() *MemoryLedger {
	return &MemoryLedger{
		products: make(map[int64]domain.Product),
		headers:  make(map[string]InvoiceHeader),
		details:  make(map[string]InvoiceDetail),
	}
}

func (m *MemoryLedger) UpsertProduct(ctx context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[p.ID]; !exists {
		m.products[p.ID] = p
	}

	return nil
}

func (m *MemoryLedger) UpsertInvoiceHeader(ctx context.Context, billID, billDate string, storeID int64, total decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.headers[billID]; !exists {
		m.headers[billID] = InvoiceHeader{
			BillID:    billID,
			BillDate:  billDate,
			StoreID:   storeID,
			BillTotal: total,
		}
	}

	return nil
}

func (m *MemoryLedger) UpsertInvoiceLine(ctx context.Context, detailID, billID string, productID int64, quantity, lineTotal decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.details[detailID]; !exists {
		m.details[detailID] = InvoiceDetail{
			DetailID:  detailID,
			BillID:    billID,
			ProductID: productID,
			Quantity:  quantity,
			LineTotal: lineTotal,
		}
	}

	return nil
}

func (m *MemoryLedger) UpdateInvoiceTotal(ctx context.Context, billID string, total decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	header, exists := m.headers[billID]
	if !exists {
		return nil
	}

	header.BillTotal = total
	m.headers[billID] = header

	return nil
}

func (m *MemoryLedger) Close() error {
	return nil
}

// ProductCount reports how many distinct products have been mirrored.
func (m *MemoryLedger) ProductCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.products)
}

// Header returns the mirrored header for a bill, if present.
func (m *MemoryLedger) Header(billID string) (InvoiceHeader, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	header, ok := m.headers[billID]
	return header, ok
}

// DetailCount reports how many detail rows exist for a bill.
func (m *MemoryLedger) DetailCount(billID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, d := range m.details {
		if d.BillID == billID {
			count++
		}
	}

	return count
}
