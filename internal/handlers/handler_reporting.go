package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportingHandler serves dashboard aggregates.
type reportingHandler struct {
	reportingService portssvc.ReportingSvcFacade
}

func newReportingHandler(rs portssvc.ReportingSvcFacade) *reportingHandler {
	return &reportingHandler{reportingService: rs}
}

// registerReportingRoutes registers the reporting routes.
func registerReportingRoutes(rg *gin.RouterGroup, reportingService portssvc.ReportingSvcFacade) {
	h := newReportingHandler(reportingService)

	reports := rg.Group("/reports")
	{
		reports.GET("/summary", h.getSummary)
	}
}

// getSummary godoc
// @Summary Get the reconciliation summary
// @Description Computes item counts, open exceptions, pending approvals, and the auto-match rate.
// @Tags reports
// @Produce json
// @Success 200 {object} domain.ReconciliationSummary
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *reportingHandler) getSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	summary, err := h.reportingService.GetSummary(c.Request.Context())
	if err != nil {
		logger.Error("Failed to compute reconciliation summary", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to compute summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
