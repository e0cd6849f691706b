package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/prasetya88/billing-pipeline/internal/catalog"
	"github.com/prasetya88/billing-pipeline/internal/domain"
	"github.com/prasetya88/billing-pipeline/internal/intake"
	"github.com/prasetya88/billing-pipeline/internal/metrics"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

// Stats is a point-in-time snapshot of pipeline counters, served by the
// ops endpoint.
type Stats struct {
	BillsScanned     int64 `json:"bills_scanned"`
	InvoicesWritten  int64 `json:"invoices_written"`
	FilesQuarantined int64 `json:"files_quarantined"`
	RetriesScheduled int64 `json:"retries_scheduled"`
	CatalogSize      int   `json:"catalog_size"`
}

// Pipeline is the polling driver: load the catalog once, then repeatedly
// scan the intake directory and run each candidate through
// parse → validate → compute → persist. One bill is fully processed before
// the next; the only concurrency is with the external bill producer, and
// the filesystem is the sole coordination medium.
type Pipeline struct {
	loader     *catalog.Loader
	scanner    *intake.Scanner
	mover      *intake.Mover
	calculator *Calculator
	writer     *Writer
	logger     *logger.Logger
	metrics    *metrics.Pipeline

	pollInterval       time.Duration
	maxComputeAttempts int

	catalog domain.Catalog

	mu       sync.Mutex
	attempts map[string]int
	stats    Stats
}

type Options struct {
	PollInterval       time.Duration
	MaxComputeAttempts int
}

func New(
	loader *catalog.Loader,
	scanner *intake.Scanner,
	mover *intake.Mover,
	calculator *Calculator,
	writer *Writer,
	m *metrics.Pipeline,
	log *logger.Logger,
	opts Options,
) *Pipeline {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}

	return &Pipeline{
		loader:             loader,
		scanner:            scanner,
		mover:              mover,
		calculator:         calculator,
		writer:             writer,
		logger:             log,
		metrics:            m,
		pollInterval:       opts.PollInterval,
		maxComputeAttempts: opts.MaxComputeAttempts,
		attempts:           make(map[string]int),
	}
}

// LoadCatalog builds the in-memory catalog. A missing products file is
// logged but not fatal: the pipeline keeps running with an empty catalog
// and every bill fails its product lookups.
func (p *Pipeline) LoadCatalog(ctx context.Context) error {
	cat, err := p.loader.Load(ctx)
	if err != nil {
		if err == domain.ErrCatalogUnavailable {
			p.logger.Error(ctx, "Catalog unavailable, all product references will be rejected")
			p.catalog = cat
			return nil
		}
		return err
	}

	p.catalog = cat
	p.metrics.CatalogSize.Set(float64(len(cat)))

	p.mu.Lock()
	p.stats.CatalogSize = len(cat)
	p.mu.Unlock()

	return nil
}

// Run drives the polling loop until ctx is cancelled. The fixed delay
// applies after every cycle, including cycles that find no files.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.LoadCatalog(ctx); err != nil {
		return err
	}

	p.logger.Info(ctx, "Bill processing started",
		"poll_interval", p.pollInterval.String(),
	)

	for {
		p.Cycle(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "Bill processing stopped")
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// Cycle runs one scan pass over the intake directory.
func (p *Pipeline) Cycle(ctx context.Context) {
	candidates, err := p.scanner.Scan(ctx)
	if err != nil {
		p.logger.Error(ctx, "Scan failed",
			"error", err,
		)
		return
	}

	if len(candidates) == 0 {
		p.logger.Info(ctx, "No new bills, waiting for new files")
		return
	}

	for _, path := range candidates {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processFile(ctx, path)
	}
}

func (p *Pipeline) processFile(ctx context.Context, path string) {
	start := time.Now()
	p.metrics.BillsScanned.Inc()
	p.addStat(func(s *Stats) { s.BillsScanned++ })

	bill, err := p.scanner.Parse(ctx, path)
	if err != nil {
		// Scanner already quarantined the file.
		p.metrics.FilesQuarantined.Inc()
		p.addStat(func(s *Stats) { s.FilesQuarantined++ })
		p.clearAttempts(path)
		return
	}

	if id := bill.ID(); id != "" {
		ctx = logger.WithBillID(ctx, id)
	}

	if err := ValidateBill(bill, p.catalog); err != nil {
		p.logger.Error(ctx, "Bill validation failed",
			"path", path,
			"error", err,
		)
		p.mover.Quarantine(ctx, path)
		p.metrics.FilesQuarantined.Inc()
		p.addStat(func(s *Stats) { s.FilesQuarantined++ })
		p.clearAttempts(path)
		return
	}

	invoice, err := p.calculator.Compute(ctx, bill, p.catalog)
	if err != nil {
		p.logger.Error(ctx, "Error processing bill",
			"path", path,
			"error", err,
		)
		p.scheduleRetry(ctx, path)
		return
	}

	if err := p.writer.Write(ctx, invoice, path); err != nil {
		p.logger.Error(ctx, "Error saving invoice",
			"path", path,
			"error", err,
		)
		p.scheduleRetry(ctx, path)
		return
	}

	p.metrics.InvoicesWritten.Inc()
	p.metrics.ProcessSeconds.Observe(time.Since(start).Seconds())
	p.addStat(func(s *Stats) { s.InvoicesWritten++ })
	p.clearAttempts(path)
}

// scheduleRetry leaves the file in place so the next cycle picks it up
// again. When a retry cap is configured, a file that keeps failing is
// dead-lettered to quarantine instead of looping forever.
func (p *Pipeline) scheduleRetry(ctx context.Context, path string) {
	p.mu.Lock()
	p.attempts[path]++
	attempts := p.attempts[path]
	p.mu.Unlock()

	if p.maxComputeAttempts > 0 && attempts >= p.maxComputeAttempts {
		p.logger.Error(ctx, "Retry budget exhausted, dead-lettering bill",
			"path", path,
			"attempts", attempts,
		)
		p.mover.Quarantine(ctx, path)
		p.metrics.FilesQuarantined.Inc()
		p.addStat(func(s *Stats) { s.FilesQuarantined++ })
		p.clearAttempts(path)
		return
	}

	p.metrics.RetriesScheduled.Inc()
	p.addStat(func(s *Stats) { s.RetriesScheduled++ })
}

func (p *Pipeline) clearAttempts(path string) {
	p.mu.Lock()
	delete(p.attempts, path)
	p.mu.Unlock()
}

func (p *Pipeline) addStat(apply func(*Stats)) {
	p.mu.Lock()
	apply(&p.stats)
	p.mu.Unlock()
}

// Stats returns a copy of the current counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
