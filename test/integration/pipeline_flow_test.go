package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasetya88/billing-pipeline/internal/catalog"
	"github.com/prasetya88/billing-pipeline/internal/config"
	"github.com/prasetya88/billing-pipeline/internal/domain"
	"github.com/prasetya88/billing-pipeline/internal/handler"
	"github.com/prasetya88/billing-pipeline/internal/intake"
	"github.com/prasetya88/billing-pipeline/internal/ledger"
	"github.com/prasetya88/billing-pipeline/internal/metrics"
	"github.com/prasetya88/billing-pipeline/internal/pipeline"
	"github.com/prasetya88/billing-pipeline/internal/server"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

type env struct {
	pipeline   *pipeline.Pipeline
	ledger     *ledger.MemoryLedger
	billsDir   string
	invoices   string
	quarantine string
	server     *httptest.Server
}

func setupPipeline(t *testing.T, productsCSV string) *env {
	t.Helper()

	log := logger.NewNop()
	billsDir := t.TempDir()
	invoicesDir := t.TempDir()
	quarantineDir := t.TempDir()

	productsPath := filepath.Join(t.TempDir(), "products.csv")
	if productsCSV != "" {
		require.NoError(t, os.WriteFile(productsPath, []byte(productsCSV), 0o644))
	}

	store := ledger.NewMemory()
	pipelineMetrics := metrics.NewPipeline()

	loader := catalog.NewLoader(productsPath, store, log)
	mover := intake.NewMover(quarantineDir, log)
	scanner := intake.NewScanner(billsDir, mover, log)
	calculator := pipeline.NewCalculator(store, log)
	writer := pipeline.NewWriter(invoicesDir, log)

	proc := pipeline.New(loader, scanner, mover, calculator, writer, pipelineMetrics, log, pipeline.Options{})
	require.NoError(t, proc.LoadCatalog(context.Background()))

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "0.0.0.0", Port: "8080"},
	}
	srv := server.New(cfg, log, handler.NewHealthHandler(), handler.NewStatsHandler(proc, log), pipelineMetrics.Registry())
	testServer := httptest.NewServer(srv.Handler())
	t.Cleanup(testServer.Close)

	return &env{
		pipeline:   proc,
		ledger:     store,
		billsDir:   billsDir,
		invoices:   invoicesDir,
		quarantine: quarantineDir,
		server:     testServer,
	}
}

func (e *env) drop(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.billsDir, name), []byte(content), 0o644))
}

const penCatalog = "product_id,product_name,product_category,unit_price\n1,Pen,Stationery,2.50\n"

func TestPipelineFlow_PenScenario(t *testing.T) {
	e := setupPipeline(t, penCatalog)
	e.drop(t, "B1.json", `{"BillID":"B1","BillDate":"01/01/2024 10:00:00","StoreID":2,"BillDetails":[{"ProductID":1,"Quantity":4}]}`)

	e.pipeline.Cycle(context.Background())

	assert.NoFileExists(t, filepath.Join(e.billsDir, "B1.json"))

	data, err := os.ReadFile(filepath.Join(e.invoices, "B1.json"))
	require.NoError(t, err)

	var invoice domain.Invoice
	require.NoError(t, json.Unmarshal(data, &invoice))
	assert.Equal(t, "B1", invoice.BillID)
	assert.Equal(t, int64(2), invoice.StoreID)
	assert.True(t, invoice.TotalAmount.Equal(decimal.RequireFromString("10.00")), "got total %s", invoice.TotalAmount)
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, "Pen", invoice.Lines[0].ProductName)
	assert.True(t, invoice.Lines[0].UnitPrice.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, invoice.Lines[0].Amount.Equal(decimal.RequireFromString("10.00")))

	// Ledger mirror agrees with the written invoice.
	header, ok := e.ledger.Header("B1")
	require.True(t, ok)
	assert.True(t, header.BillTotal.Equal(invoice.TotalAmount))
	assert.Equal(t, 1, e.ledger.DetailCount("B1"))
	assert.Equal(t, 1, e.ledger.ProductCount())
}

func TestPipelineFlow_BadStoreQuarantined(t *testing.T) {
	e := setupPipeline(t, penCatalog)
	e.drop(t, "B2.json", `{"BillID":"B2","BillDate":"01/01/2024 10:00:00","StoreID":9,"BillDetails":[{"ProductID":1,"Quantity":4}]}`)

	e.pipeline.Cycle(context.Background())

	assert.FileExists(t, filepath.Join(e.quarantine, "B2.json"))
	assert.NoFileExists(t, filepath.Join(e.invoices, "B2.json"))

	_, ok := e.ledger.Header("B2")
	assert.False(t, ok, "rejected bill must not reach the ledger")
}

func TestPipelineFlow_MissingCatalogCascades(t *testing.T) {
	e := setupPipeline(t, "")
	e.drop(t, "B3.json", `{"BillID":"B3","BillDate":"01/01/2024 10:00:00","StoreID":2,"BillDetails":[{"ProductID":1,"Quantity":4}]}`)

	e.pipeline.Cycle(context.Background())

	assert.FileExists(t, filepath.Join(e.quarantine, "B3.json"))
	assert.Equal(t, int64(0), e.pipeline.Stats().InvoicesWritten)
}

func TestPipelineFlow_MixedBatch(t *testing.T) {
	e := setupPipeline(t, penCatalog)
	e.drop(t, "good.json", `{"BillID":"G1","BillDate":"01/01/2024 10:00:00","StoreID":0,"BillDetails":[{"ProductID":1,"Quantity":2}]}`)
	e.drop(t, "unknown-product.json", `{"BillID":"U1","BillDate":"01/01/2024 10:00:00","StoreID":0,"BillDetails":[{"ProductID":42,"Quantity":2}]}`)
	e.drop(t, "torn.json", `{"BillID":"T1","Bill`)

	e.pipeline.Cycle(context.Background())

	assert.FileExists(t, filepath.Join(e.invoices, "G1.json"))
	assert.FileExists(t, filepath.Join(e.quarantine, "unknown-product.json"))
	assert.FileExists(t, filepath.Join(e.quarantine, "torn.json"))

	stats := e.pipeline.Stats()
	assert.Equal(t, int64(1), stats.InvoicesWritten)
	assert.Equal(t, int64(2), stats.FilesQuarantined)
}

func TestOpsServer_HealthAndStats(t *testing.T) {
	e := setupPipeline(t, penCatalog)
	e.drop(t, "B1.json", `{"BillID":"B1","BillDate":"01/01/2024 10:00:00","StoreID":2,"BillDetails":[{"ProductID":1,"Quantity":4}]}`)
	e.pipeline.Cycle(context.Background())

	resp, err := http.Get(e.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(e.server.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats pipeline.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.InvoicesWritten)
	assert.Equal(t, 1, stats.CatalogSize)
}

func TestOpsServer_Metrics(t *testing.T) {
	e := setupPipeline(t, penCatalog)
	e.drop(t, "B1.json", `{"BillID":"B1","BillDate":"01/01/2024 10:00:00","StoreID":2,"BillDetails":[{"ProductID":1,"Quantity":4}]}`)
	e.pipeline.Cycle(context.Background())

	resp, err := http.Get(e.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "billing_invoices_written_total 1")
	assert.Contains(t, string(body), "billing_catalog_products 1")
}
