package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/prasetya88/billing-pipeline/internal/domain"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
	"github.com/prasetya88/billing-pipeline/pkg/retry"
)

// Loader reads the product reference CSV into an in-memory catalog and,
// when a ledger is configured, mirrors each product with insert-if-absent
// semantics.
type Loader struct {
	path   string
	ledger domain.Ledger
	logger *logger.Logger
}

func NewLoader(path string, ledger domain.Ledger, log *logger.Logger) *Loader {
	return &Loader{
		path:   path,
		ledger: ledger,
		logger: log,
	}
}

// Load parses the reference file. A malformed row aborts the whole load
// and returns no catalog. A missing file is not fatal: it returns an empty
// catalog with ErrCatalogUnavailable, and downstream validation will then
// reject every product reference until the file appears and the process is
// restarted.
func (l *Loader) Load(ctx context.Context) (domain.Catalog, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Error(ctx, "Products file not found",
				"path", l.path,
			)
			return domain.Catalog{}, domain.ErrCatalogUnavailable
		}
		return nil, fmt.Errorf("failed to open products file: %w", err)
	}
	defer file.Close()

	csvReader := csv.NewReader(file)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read products header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	catalog := domain.Catalog{}
	line := 1

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read products row %d: %w", line, err)
		}

		line++

		product, err := parseProduct(record, columns)
		if err != nil {
			return nil, fmt.Errorf("invalid products row %d: %w", line, err)
		}

		catalog[product.ID] = product

		if l.ledger != nil {
			err := retry.Do(ctx, func() error {
				return l.ledger.UpsertProduct(ctx, product)
			}, retry.WithMaxAttempts(3))
			if err != nil {
				// The mirror is best effort; the in-memory catalog is
				// authoritative for this run.
				l.logger.Error(ctx, "Failed to mirror product to ledger",
					"product_id", product.ID,
					"error", err,
				)
			}
		}
	}

	l.logger.Info(ctx, "Catalog loaded",
		"path", l.path,
		"products", len(catalog),
	)

	return catalog, nil
}

type columnIndexes struct {
	id       int
	name     int
	category int
	price    int
}

func mapColumns(header []string) (columnIndexes, error) {
	columns := columnIndexes{id: -1, name: -1, category: -1, price: -1}

	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "product_id":
			columns.id = i
		case "product_name":
			columns.name = i
		case "product_category":
			columns.category = i
		case "unit_price":
			columns.price = i
		}
	}

	if columns.id < 0 || columns.name < 0 || columns.category < 0 || columns.price < 0 {
		return columns, fmt.Errorf("products header missing required columns: %v", header)
	}

	return columns, nil
}

func parseProduct(record []string, columns columnIndexes) (domain.Product, error) {
	max := columns.id
	for _, idx := range []int{columns.name, columns.category, columns.price} {
		if idx > max {
			max = idx
		}
	}
	if len(record) <= max {
		return domain.Product{}, fmt.Errorf("expected at least %d fields, got %d", max+1, len(record))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(record[columns.id]), 10, 64)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid product_id: %w", err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[columns.price]))
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid unit_price: %w", err)
	}
	if price.IsNegative() {
		return domain.Product{}, fmt.Errorf("negative unit_price: %s", price)
	}

	return domain.Product{
		ID:        id,
		Name:      strings.TrimSpace(record[columns.name]),
		Category:  strings.TrimSpace(record[columns.category]),
		UnitPrice: price,
	}, nil
}
