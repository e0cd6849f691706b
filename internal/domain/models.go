package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

func init() {
	// Invoice amounts are emitted as JSON numbers, matching the
	// interchange format of the output files.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is one row of the reference catalog, loaded once at startup.
type Product struct {
	ID        int64
	Name      string
	Category  string
	UnitPrice decimal.Decimal
}

// Catalog maps product id to its catalog entry. It is built once per run
// and never mutated afterwards; prices are frozen at load time.
type Catalog map[int64]Product

func (c Catalog) Lookup(id int64) (Product, bool) {
	p, ok := c[id]
	return p, ok
}

// FlexString accepts either a JSON string or a JSON number. Bill producers
// are inconsistent about whether identifiers are quoted.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// Bill is a raw incoming purchase record as parsed from an intake file.
// Fields are pointers so that absent keys are distinguishable from zero
// values during validation.
type Bill struct {
	BillID      *FlexString `json:"BillID"`
	BillDate    *string     `json:"BillDate"`
	StoreID     *FlexString `json:"StoreID"`
	BillDetails *[]BillLine `json:"BillDetails"`
}

type BillLine struct {
	ProductID *int64           `json:"ProductID"`
	Quantity  *decimal.Decimal `json:"Quantity"`
}

// ID returns the bill identifier or an empty string when absent.
func (b *Bill) ID() string {
	if b == nil || b.BillID == nil {
		return ""
	}
	return string(*b.BillID)
}

// Invoice is the priced result derived from a validated bill. It is never
// mutated after creation; TotalAmount always equals the sum of line amounts.
type Invoice struct {
	BillID      string          `json:"BillID"`
	BillDate    string          `json:"BillDate"`
	StoreID     int64           `json:"StoreID"`
	TotalAmount decimal.Decimal `json:"Total Amount"`
	Lines       []InvoiceLine   `json:"Bill Details"`
}

type InvoiceLine struct {
	ProductID   int64           `json:"ProductID"`
	ProductName string          `json:"ProductName"`
	Quantity    decimal.Decimal `json:"Quantity"`
	UnitPrice   decimal.Decimal `json:"Unit Price"`
	Amount      decimal.Decimal `json:"Amount"`
}
