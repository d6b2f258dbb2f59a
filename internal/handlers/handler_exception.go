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

// exceptionHandler handles HTTP requests for the exception queue.
type exceptionHandler struct {
	exceptionService portssvc.ExceptionSvcFacade
}

func newExceptionHandler(es portssvc.ExceptionSvcFacade) *exceptionHandler {
	return &exceptionHandler{exceptionService: es}
}

// registerExceptionRoutes registers all exception-related routes.
func registerExceptionRoutes(rg *gin.RouterGroup, exceptionService portssvc.ExceptionSvcFacade) {
	h := newExceptionHandler(exceptionService)

	exceptions := rg.Group("/exceptions")
	{
		exceptions.POST("", h.createException)
		exceptions.GET("", h.listExceptions)
		exceptions.GET("/:id", h.getException)
		exceptions.POST("/:id/transition", h.transitionException)
		exceptions.PUT("/:id/assignee", h.reassignException)
	}
}

// createException godoc
// @Summary Open an exception
// @Description Opens an exception for an unmatched transaction. At most one active exception per transaction.
// @Tags exceptions
// @Accept json
// @Produce json
// @Param exception body dto.CreateExceptionRequest true "Exception details"
// @Success 201 {object} dto.ExceptionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Active exception already exists for the transaction"
// @Security BearerAuth
// @Router /exceptions [post]
func (h *exceptionHandler) createException(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	exception, err := h.exceptionService.CreateException(c.Request.Context(), req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateException) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "An active exception already exists for this transaction"})
		} else {
			logger.Error("Failed to create exception", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create exception"})
		}
		return
	}

	logger.Info("Exception opened", slog.String("exception_id", exception.ExceptionID), slog.String("type", string(exception.Type)))
	c.JSON(http.StatusCreated, h.exceptionService.ToResponse(exception))
}

// getException godoc
// @Summary Get an exception
// @Tags exceptions
// @Produce json
// @Param id path string true "Exception ID"
// @Success 200 {object} dto.ExceptionResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /exceptions/{id} [get]
func (h *exceptionHandler) getException(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	exceptionID := c.Param("id")

	exception, err := h.exceptionService.GetExceptionByID(c.Request.Context(), exceptionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Exception not found"})
		} else {
			logger.Error("Failed to get exception", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve exception"})
		}
		return
	}

	c.JSON(http.StatusOK, h.exceptionService.ToResponse(exception))
}

// listExceptions godoc
// @Summary List exceptions
// @Description Retrieves a filtered, cursor-paginated list of exceptions with derived aging and priority, oldest first.
// @Tags exceptions
// @Produce json
// @Param type query string false "Filter by exception type"
// @Param status query string false "Filter by status (OPEN, INVESTIGATING, RESOLVED)"
// @Param assignedTo query string false "Filter by assignee"
// @Param limit query int false "Page size" default(50)
// @Param nextToken query string false "Pagination cursor"
// @Success 200 {object} dto.ListExceptionsResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /exceptions [get]
func (h *exceptionHandler) listExceptions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	params := dto.ListExceptionsParams{
		AssignedTo: optionalQuery(c, "assignedTo"),
		Limit:      parseLimit(c),
		NextToken:  optionalQuery(c, "nextToken"),
	}
	if t := optionalQuery(c, "type"); t != nil {
		exceptionType := domain.ExceptionType(*t)
		if !exceptionType.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown exception type: " + *t})
			return
		}
		params.Type = &exceptionType
	}
	if s := optionalQuery(c, "status"); s != nil {
		status := domain.ExceptionStatus(*s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown exception status: " + *s})
			return
		}
		params.Status = &status
	}

	resp, err := h.exceptionService.ListExceptions(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list exceptions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list exceptions"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// transitionException godoc
// @Summary Transition an exception
// @Description Moves an exception through OPEN, INVESTIGATING, RESOLVED. RESOLVED is terminal.
// @Tags exceptions
// @Accept json
// @Produce json
// @Param id path string true "Exception ID"
// @Param transition body dto.TransitionExceptionRequest true "Target status and optional note"
// @Success 200 {object} dto.ExceptionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Transition not allowed from current status"
// @Security BearerAuth
// @Router /exceptions/{id}/transition [post]
func (h *exceptionHandler) transitionException(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	exceptionID := c.Param("id")
	var req dto.TransitionExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	exception, err := h.exceptionService.Transition(c.Request.Context(), exceptionID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Exception not found"})
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Transition not allowed from the current status"})
		default:
			logger.Error("Failed to transition exception", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to transition exception"})
		}
		return
	}

	logger.Info("Exception transitioned", slog.String("exception_id", exceptionID), slog.String("status", string(exception.Status)))
	c.JSON(http.StatusOK, h.exceptionService.ToResponse(exception))
}

// reassignException godoc
// @Summary Reassign an exception
// @Tags exceptions
// @Accept json
// @Produce json
// @Param id path string true "Exception ID"
// @Param assignee body dto.ReassignExceptionRequest true "New assignee"
// @Success 200 {object} dto.ExceptionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Exception already resolved"
// @Security BearerAuth
// @Router /exceptions/{id}/assignee [put]
func (h *exceptionHandler) reassignException(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	exceptionID := c.Param("id")
	var req dto.ReassignExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	exception, err := h.exceptionService.Reassign(c.Request.Context(), exceptionID, req.AssignedTo, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Exception not found"})
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "A resolved exception cannot be reassigned"})
		default:
			logger.Error("Failed to reassign exception", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to reassign exception"})
		}
		return
	}

	logger.Info("Exception reassigned", slog.String("exception_id", exceptionID), slog.String("assigned_to", req.AssignedTo))
	c.JSON(http.StatusOK, h.exceptionService.ToResponse(exception))
}

