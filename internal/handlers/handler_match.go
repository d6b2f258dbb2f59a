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

// matchHandler handles HTTP requests for match records: candidate runs, manual
// matches, and the maker-checker approval endpoints.
type matchHandler struct {
	matchingService portssvc.MatchingSvcFacade
	approvalService portssvc.ApprovalSvcFacade
}

func newMatchHandler(ms portssvc.MatchingSvcFacade, as portssvc.ApprovalSvcFacade) *matchHandler {
	return &matchHandler{
		matchingService: ms,
		approvalService: as,
	}
}

// RegisterMatchRoutes registers all match-related routes. Approval and
// rejection require MANAGER or above; proposing is open to any analyst.
func RegisterMatchRoutes(rg *gin.RouterGroup, matchingService portssvc.MatchingSvcFacade, approvalService portssvc.ApprovalSvcFacade) {
	h := newMatchHandler(matchingService, approvalService)
	managerOnly := middleware.RequireRole(domain.RoleManager)

	matches := rg.Group("/matches")
	{
		matches.POST("/auto-run", h.runAutoMatch)
		matches.POST("", h.createManualMatch)
		matches.GET("", h.listMatches)
		matches.GET("/pending", h.listPendingMatches)
		matches.GET("/:id", h.getMatch)
		matches.POST("/:id/approve", managerOnly, h.approveMatch)
		matches.POST("/:id/reject", managerOnly, h.rejectMatch)
		matches.POST("/bulk-approve", managerOnly, h.bulkApprove)
	}
}

// runAutoMatch godoc
// @Summary Run the auto-matching engine
// @Description Evaluates unmatched items in scope and creates pending match records.
// @Tags matches
// @Accept json
// @Produce json
// @Param scope body dto.RunAutoMatchRequest false "Run scope; empty means all unmatched items"
// @Success 200 {object} domain.MatchRunSummary
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /matches/auto-run [post]
func (h *matchHandler) runAutoMatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RunAutoMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
			return
		}
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	summary, err := h.matchingService.RunAutoMatch(c.Request.Context(), req.ToScope(), userID)
	if err != nil {
		logger.Error("Auto-match run failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Auto-match run failed"})
		return
	}

	logger.Info("Auto-match run completed",
		slog.Int("lines_examined", summary.LinesExamined),
		slog.Int("matches_proposed", summary.MatchesProposed),
		slog.Int("exceptions_opened", summary.ExceptionsOpened))
	c.JSON(http.StatusOK, summary)
}

// createManualMatch godoc
// @Summary Create a manual match
// @Description Creates a pending match from explicitly selected items, bypassing the rule evaluator.
// @Tags matches
// @Accept json
// @Produce json
// @Param match body dto.CreateManualMatchRequest true "Item IDs to group"
// @Success 201 {object} dto.MatchResponse
// @Failure 400 {object} ErrorResponse "Unknown or non-unmatched items"
// @Failure 409 {object} ErrorResponse "Items already claimed by another match"
// @Security BearerAuth
// @Router /matches [post]
func (h *matchHandler) createManualMatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	record, err := h.matchingService.CreateManualMatch(c.Request.Context(), req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCandidateSet):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "All items must exist and be unmatched"})
		case errors.Is(err, apperrors.ErrConcurrentClaim):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "One or more items are already claimed by a pending match"})
		default:
			logger.Error("Failed to create manual match", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create match"})
		}
		return
	}

	logger.Info("Manual match created", slog.String("match_id", record.MatchID))
	c.JSON(http.StatusCreated, dto.ToMatchResponse(record))
}

// getMatch godoc
// @Summary Get a match record
// @Tags matches
// @Produce json
// @Param id path string true "Match ID"
// @Success 200 {object} dto.MatchResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /matches/{id} [get]
func (h *matchHandler) getMatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	matchID := c.Param("id")

	record, err := h.matchingService.GetMatchByID(c.Request.Context(), matchID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Match not found"})
		} else {
			logger.Error("Failed to get match", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve match"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToMatchResponse(record))
}

// listMatches godoc
// @Summary List match records
// @Tags matches
// @Produce json
// @Param status query string false "Filter by match status (PENDING, APPROVED, REJECTED)"
// @Param limit query int false "Page size" default(50)
// @Param nextToken query string false "Pagination cursor"
// @Success 200 {object} dto.ListMatchesResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /matches [get]
func (h *matchHandler) listMatches(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	params := dto.ListMatchesParams{
		Limit:     parseLimit(c),
		NextToken: optionalQuery(c, "nextToken"),
	}
	if s := optionalQuery(c, "status"); s != nil {
		status := domain.MatchStatus(*s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown match status: " + *s})
			return
		}
		params.Status = &status
	}

	resp, err := h.matchingService.ListMatches(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list matches", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list matches"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listPendingMatches godoc
// @Summary List pending matches awaiting approval
// @Tags matches
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param nextToken query string false "Pagination cursor"
// @Success 200 {object} dto.ListMatchesResponse
// @Security BearerAuth
// @Router /matches/pending [get]
func (h *matchHandler) listPendingMatches(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	resp, err := h.matchingService.ListPending(c.Request.Context(), parseLimit(c), optionalQuery(c, "nextToken"))
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list pending matches", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list pending matches"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// approveMatch godoc
// @Summary Approve a pending match
// @Description Commits the match: items flip to MATCHED. The approver must differ from the match creator.
// @Tags matches
// @Produce json
// @Param id path string true "Match ID"
// @Success 200 {object} dto.MatchResponse
// @Failure 403 {object} ErrorResponse "Self-approval forbidden"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Match not pending, or items claimed concurrently"
// @Security BearerAuth
// @Router /matches/{id}/approve [post]
func (h *matchHandler) approveMatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	matchID := c.Param("id")

	approverID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	record, err := h.approvalService.Approve(c.Request.Context(), matchID, approverID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Match not found"})
		case errors.Is(err, apperrors.ErrSelfApproval):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "A match cannot be approved by its creator"})
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Match is not pending"})
		case errors.Is(err, apperrors.ErrConcurrentClaim):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Match items were claimed concurrently"})
		default:
			logger.Error("Failed to approve match", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to approve match"})
		}
		return
	}

	logger.Info("Match approved", slog.String("match_id", matchID), slog.String("approver_id", approverID))
	c.JSON(http.StatusOK, dto.ToMatchResponse(record))
}

// rejectMatch godoc
// @Summary Reject a pending match
// @Description Rejects the match and frees its items for re-matching. A problemType opens an exception for the items.
// @Tags matches
// @Accept json
// @Produce json
// @Param id path string true "Match ID"
// @Param rejection body dto.RejectMatchRequest true "Rejection reason"
// @Success 200 {object} dto.MatchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Match not pending"
// @Security BearerAuth
// @Router /matches/{id}/reject [post]
func (h *matchHandler) rejectMatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	matchID := c.Param("id")
	var req dto.RejectMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	approverID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	record, err := h.approvalService.Reject(c.Request.Context(), matchID, approverID, req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Match not found"})
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Match is not pending"})
		default:
			logger.Error("Failed to reject match", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to reject match"})
		}
		return
	}

	logger.Info("Match rejected", slog.String("match_id", matchID), slog.String("approver_id", approverID))
	c.JSON(http.StatusOK, dto.ToMatchResponse(record))
}

// bulkApprove godoc
// @Summary Approve multiple pending matches
// @Description Applies approval to each match independently and reports per-match outcomes.
// @Tags matches
// @Accept json
// @Produce json
// @Param matches body dto.BulkApproveRequest true "Match IDs to approve"
// @Success 200 {array} dto.BulkApproveResult
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /matches/bulk-approve [post]
func (h *matchHandler) bulkApprove(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	approverID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	results, err := h.approvalService.BulkApprove(c.Request.Context(), req.MatchIDs, approverID)
	if err != nil {
		logger.Error("Bulk approval aborted", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Bulk approval aborted"})
		return
	}

	c.JSON(http.StatusOK, results)
}
