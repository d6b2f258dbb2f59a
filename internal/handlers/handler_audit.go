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

// auditHandler serves the read side of the audit trail. Writes happen only
// inside repository transactions; there is no write endpoint.
type auditHandler struct {
	auditService portssvc.AuditSvcFacade
}

func newAuditHandler(as portssvc.AuditSvcFacade) *auditHandler {
	return &auditHandler{auditService: as}
}

// registerAuditRoutes registers the audit trail routes. Reading the trail
// requires AUDITOR or above.
func registerAuditRoutes(rg *gin.RouterGroup, auditService portssvc.AuditSvcFacade) {
	h := newAuditHandler(auditService)

	audit := rg.Group("/audit-events", middleware.RequireRole(domain.RoleAuditor))
	{
		audit.GET("", h.listAuditEvents)
	}
}

// listAuditEvents godoc
// @Summary List audit events
// @Description Retrieves a filtered, cursor-paginated page of the audit trail, newest first.
// @Tags audit
// @Produce json
// @Param userID query string false "Filter by acting user"
// @Param action query string false "Filter by action"
// @Param entity query string false "Filter by entity kind"
// @Param entityID query string false "Filter by entity ID"
// @Param from query string false "Inclusive lower bound (RFC 3339)"
// @Param to query string false "Inclusive upper bound (RFC 3339)"
// @Param limit query int false "Page size" default(50)
// @Param nextToken query string false "Pagination cursor"
// @Success 200 {object} dto.ListAuditResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /audit-events [get]
func (h *auditHandler) listAuditEvents(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	params := dto.ListAuditParams{
		UserID:    optionalQuery(c, "userID"),
		EntityID:  optionalQuery(c, "entityID"),
		Limit:     parseLimit(c),
		NextToken: optionalQuery(c, "nextToken"),
	}
	if a := optionalQuery(c, "action"); a != nil {
		action := domain.AuditAction(*a)
		params.Action = &action
	}
	if e := optionalQuery(c, "entity"); e != nil {
		entity := domain.AuditEntity(*e)
		params.Entity = &entity
	}
	var err error
	if params.From, err = optionalTimeQuery(c, "from"); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if params.To, err = optionalTimeQuery(c, "to"); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.auditService.ListAuditTrail(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list audit events", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list audit events"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
