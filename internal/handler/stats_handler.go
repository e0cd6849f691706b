package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prasetya88/billing-pipeline/internal/pipeline"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

// StatsHandler exposes a snapshot of the pipeline's run counters.
type StatsHandler struct {
	pipeline *pipeline.Pipeline
	logger   *logger.Logger
}

func NewStatsHandler(p *pipeline.Pipeline, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		pipeline: p,
		logger:   log,
	}
}

func (h *StatsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	stats := h.pipeline.Stats()

	h.logger.Debug(ctx, "Stats requested",
		"invoices_written", stats.InvoicesWritten,
		"files_quarantined", stats.FilesQuarantined,
	)

	return c.JSON(http.StatusOK, stats)
}
