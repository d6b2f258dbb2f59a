package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ingestionHandler handles HTTP requests for transaction feeds. Payloads are
// already parsed upstream; this boundary only persists and lists.
type ingestionHandler struct {
	ingestionService portssvc.IngestionSvcFacade
}

func newIngestionHandler(is portssvc.IngestionSvcFacade) *ingestionHandler {
	return &ingestionHandler{ingestionService: is}
}

// registerIngestionRoutes registers statement line and ledger entry routes.
func registerIngestionRoutes(rg *gin.RouterGroup, ingestionService portssvc.IngestionSvcFacade) {
	h := newIngestionHandler(ingestionService)

	statements := rg.Group("/statement-lines")
	{
		statements.POST("/import", h.importStatementLines)
		statements.GET("", h.listStatementLines)
	}

	ledger := rg.Group("/ledger-entries")
	{
		ledger.POST("/import", h.importLedgerEntries)
		ledger.GET("", h.listLedgerEntries)
	}
}

// importStatementLines godoc
// @Summary Import bank statement lines
// @Description Persists a parsed batch of statement lines as unmatched.
// @Tags ingestion
// @Accept json
// @Produce json
// @Param batch body dto.ImportStatementLinesRequest true "Parsed statement lines"
// @Success 201 {object} dto.ImportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Duplicate line in batch"
// @Security BearerAuth
// @Router /statement-lines/import [post]
func (h *ingestionHandler) importStatementLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ImportStatementLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	imported, err := h.ingestionService.ImportStatementLines(c.Request.Context(), req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Batch contains an already imported line"})
		} else {
			logger.Error("Failed to import statement lines", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to import statement lines"})
		}
		return
	}

	logger.Info("Statement lines imported", slog.Int("count", imported), slog.String("source_file", req.SourceFile))
	c.JSON(http.StatusCreated, dto.ImportResponse{Imported: imported})
}

// importLedgerEntries godoc
// @Summary Import general ledger entries
// @Description Persists a parsed batch of ledger entries as unmatched.
// @Tags ingestion
// @Accept json
// @Produce json
// @Param batch body dto.ImportLedgerEntriesRequest true "Parsed ledger entries"
// @Success 201 {object} dto.ImportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Duplicate entry in batch"
// @Security BearerAuth
// @Router /ledger-entries/import [post]
func (h *ingestionHandler) importLedgerEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ImportLedgerEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	imported, err := h.ingestionService.ImportLedgerEntries(c.Request.Context(), req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Batch contains an already imported entry"})
		} else {
			logger.Error("Failed to import ledger entries", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to import ledger entries"})
		}
		return
	}

	logger.Info("Ledger entries imported", slog.Int("count", imported), slog.String("source_system", req.SourceSystem))
	c.JSON(http.StatusCreated, dto.ImportResponse{Imported: imported})
}

// listStatementLines godoc
// @Summary List bank statement lines
// @Description Retrieves a filtered, cursor-paginated list of statement lines.
// @Tags ingestion
// @Produce json
// @Param status query string false "Filter by item status (UNMATCHED, MATCHED, EXCEPTION)"
// @Param currencyCode query string false "Filter by currency code"
// @Param search query string false "Substring search on description and account"
// @Param dateFrom query string false "Inclusive lower bound (RFC 3339)"
// @Param dateTo query string false "Inclusive upper bound (RFC 3339)"
// @Param limit query int false "Page size" default(50)
// @Param nextToken query string false "Pagination cursor"
// @Success 200 {object} dto.ListStatementLinesResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /statement-lines [get]
func (h *ingestionHandler) listStatementLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	params, err := bindListItemsParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.ingestionService.ListStatementLines(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list statement lines", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list statement lines"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listLedgerEntries godoc
// @Summary List general ledger entries
// @Description Retrieves a filtered, cursor-paginated list of ledger entries.
// @Tags ingestion
// @Produce json
// @Param status query string false "Filter by item status (UNMATCHED, MATCHED, EXCEPTION)"
// @Param currencyCode query string false "Filter by currency code"
// @Param search query string false "Substring search on description and GL account"
// @Param dateFrom query string false "Inclusive lower bound (RFC 3339)"
// @Param dateTo query string false "Inclusive upper bound (RFC 3339)"
// @Param limit query int false "Page size" default(50)
// @Param nextToken query string false "Pagination cursor"
// @Success 200 {object} dto.ListLedgerEntriesResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /ledger-entries [get]
func (h *ingestionHandler) listLedgerEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	params, err := bindListItemsParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.ingestionService.ListLedgerEntries(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list ledger entries", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list ledger entries"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindListItemsParams extracts the shared listing filters for both item kinds.
func bindListItemsParams(c *gin.Context) (dto.ListItemsParams, error) {
	params := dto.ListItemsParams{
		CurrencyCode: optionalQuery(c, "currencyCode"),
		Search:       optionalQuery(c, "search"),
		Limit:        parseLimit(c),
		NextToken:    optionalQuery(c, "nextToken"),
	}
	if s := optionalQuery(c, "status"); s != nil {
		status := domain.ItemStatus(*s)
		if !status.Valid() {
			return params, errors.New("unknown item status: " + *s)
		}
		params.Status = &status
	}
	var err error
	if params.DateFrom, err = optionalTimeQuery(c, "dateFrom"); err != nil {
		return params, err
	}
	if params.DateTo, err = optionalTimeQuery(c, "dateTo"); err != nil {
		return params, err
	}
	return params, nil
}
