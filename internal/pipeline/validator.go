package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prasetya88/billing-pipeline/internal/domain"
)

// billDateLayout is the fixed textual format of BillDate
// (MM/DD/YYYY HH:MM:SS).
const billDateLayout = "01/02/2006 15:04:05"

const (
	minStoreID = 0
	maxStoreID = 4
)

// ValidateBill checks a parsed bill against the catalog. Checks run in a
// fixed order and stop at the first failure; the returned error carries
// the classification that decides the file's disposition.
func ValidateBill(bill *domain.Bill, catalog domain.Catalog) error {
	if bill.BillID == nil {
		return domain.Structural(fmt.Errorf("%w: BillID", domain.ErrMissingField))
	}
	if bill.BillDate == nil {
		return domain.Structural(fmt.Errorf("%w: BillDate", domain.ErrMissingField))
	}
	if bill.StoreID == nil {
		return domain.Structural(fmt.Errorf("%w: StoreID", domain.ErrMissingField))
	}
	if bill.BillDetails == nil {
		return domain.Structural(fmt.Errorf("%w: BillDetails", domain.ErrMissingField))
	}

	storeID, err := strconv.ParseInt(strings.TrimSpace(string(*bill.StoreID)), 10, 64)
	if err != nil {
		return domain.DomainError(fmt.Errorf("%w: %q", domain.ErrBadStoreID, string(*bill.StoreID)))
	}
	if storeID < minStoreID || storeID > maxStoreID {
		return domain.DomainError(fmt.Errorf("%w: %d", domain.ErrStoreOutOfRange, storeID))
	}

	if _, err := time.Parse(billDateLayout, *bill.BillDate); err != nil {
		return domain.Structural(fmt.Errorf("%w: %q", domain.ErrBadBillDate, *bill.BillDate))
	}

	for i, line := range *bill.BillDetails {
		if line.ProductID == nil {
			return domain.Structural(fmt.Errorf("%w: line %d", domain.ErrMissingProductID, i+1))
		}
		if _, ok := catalog.Lookup(*line.ProductID); !ok {
			return domain.DomainError(fmt.Errorf("%w: %d", domain.ErrUnknownProduct, *line.ProductID))
		}
	}

	return nil
}
