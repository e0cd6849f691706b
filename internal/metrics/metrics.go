package metrics

import "github.com/prometheus/client_golang/prometheus"

type Pipeline struct {
	reg *prometheus.Registry

	BillsScanned     prometheus.Counter
	InvoicesWritten  prometheus.Counter
	FilesQuarantined prometheus.Counter
	RetriesScheduled prometheus.Counter
	CatalogSize      prometheus.Gauge
	ProcessSeconds   prometheus.Histogram
}

func NewPipeline() *Pipeline {
	r := prometheus.NewRegistry()

	scanned := prometheus.NewCounter(prometheus.CounterOpts{Name: "billing_bills_scanned_total"})
	written := prometheus.NewCounter(prometheus.CounterOpts{Name: "billing_invoices_written_total"})
	quarantined := prometheus.NewCounter(prometheus.CounterOpts{Name: "billing_files_quarantined_total"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{Name: "billing_retries_scheduled_total"})
	catalogSize := prometheus.NewGauge(prometheus.GaugeOpts{Name: "billing_catalog_products"})
	processSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_bill_process_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(scanned, written, quarantined, retries, catalogSize, processSeconds)

	return &Pipeline{
		reg:              r,
		BillsScanned:     scanned,
		InvoicesWritten:  written,
		FilesQuarantined: quarantined,
		RetriesScheduled: retries,
		CatalogSize:      catalogSize,
		ProcessSeconds:   processSeconds,
	}
}

func (p *Pipeline) Registry() *prometheus.Registry { return p.reg }
