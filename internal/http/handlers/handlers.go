package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helpdesk-dispatch/backend/internal/db"
	"github.com/helpdesk-dispatch/backend/internal/models"
	"github.com/helpdesk-dispatch/backend/internal/service"
)

// Dispatcher is the write side used by the admin endpoints.
type Dispatcher interface {
	AssignTicket(ctx context.Context, ticketID int64, mode string) (service.Outcome, error)
	EscalateTicket(ctx context.Context, ticketID int64, reason string) (service.Outcome, error)
	PreviewTicket(ctx context.Context, ticketID int64, mode string) (service.Outcome, error)
	ProcessPending(ctx context.Context) (service.RunSummary, error)
}

type Reader interface {
	Ping(ctx context.Context) error
	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	ListEscalations(ctx context.Context, ticketID int64) ([]models.Escalation, error)
	ListTechnicians(ctx context.Context, area models.Area) ([]models.Candidate, error)
	CreateRun(ctx context.Context, status string) (int64, error)
	FinishRun(ctx context.Context, runID int64, status string, summary []byte) error
	GetLatestRun(ctx context.Context) (models.Run, error)
}

type Handler struct {
	Store      Reader
	Dispatcher Dispatcher
	Blender    service.PriorityBlender
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

const finishRunTimeout = 5 * time.Second

type AssignRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=rules catalog auto"`
}

type EscalateRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Get ticket
// @Tags tickets
// @Produce json
// @Param id path int true "ticket id"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} map[string]any
// @Router /api/tickets/{id} [get]
func (h *Handler) TicketDetails(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	ticket, err := h.Store.GetTicket(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to get ticket")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// @Summary List ticket escalations
// @Tags tickets
// @Produce json
// @Param id path int true "ticket id"
// @Success 200 {array} models.Escalation
// @Router /api/tickets/{id}/escalations [get]
func (h *Handler) TicketEscalations(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	items, err := h.Store.ListEscalations(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to list escalations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary List technicians with live load
// @Tags technicians
// @Produce json
// @Param area query string false "specialty area"
// @Success 200 {array} models.Candidate
// @Router /api/technicians [get]
func (h *Handler) TechniciansList(c *gin.Context) {
	area := models.Area(strings.ToUpper(strings.TrimSpace(c.Query("area"))))
	if area != "" && !area.Valid() {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown area", string(area))
		return
	}
	items, err := h.Store.ListTechnicians(c.Request.Context(), area)
	if err != nil {
		h.fail(c, err, "Failed to list technicians")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", nil)
			return
		}
		h.fail(c, err, "Failed to load run")
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Blend a technical priority with a requester role
// @Tags priority
// @Produce json
// @Param technical query string true "critica|alta|media|baja"
// @Param role query string false "administrador|tecnico|empleado"
// @Success 200 {object} service.PriorityScore
// @Router /api/priority [get]
func (h *Handler) Priority(c *gin.Context) {
	technical := c.Query("technical")
	if strings.TrimSpace(technical) == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "technical is required", nil)
		return
	}
	c.JSON(http.StatusOK, h.Blender.Blend(technical, models.Role(c.Query("role"))))
}

// @Summary Assign a ticket
// @Tags dispatch
// @Accept json
// @Produce json
// @Param id path int true "ticket id"
// @Param payload body AssignRequest false "assignment mode"
// @Success 200 {object} service.Outcome
// @Failure 409 {object} map[string]any
// @Router /api/tickets/{id}/assign [post]
func (h *Handler) Assign(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	var req AssignRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	out, err := h.Dispatcher.AssignTicket(c.Request.Context(), id, req.Mode)
	if err != nil {
		h.fail(c, err, "Assignment failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Escalate a ticket
// @Tags dispatch
// @Accept json
// @Produce json
// @Param id path int true "ticket id"
// @Param payload body EscalateRequest true "escalation reason"
// @Success 200 {object} service.Outcome
// @Router /api/tickets/{id}/escalate [post]
func (h *Handler) Escalate(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	var req EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	out, err := h.Dispatcher.EscalateTicket(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.fail(c, err, "Escalation failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Assign every pending ticket
// @Tags dispatch
// @Produce json
// @Success 200 {object} service.RunSummary
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	runID, err := h.Store.CreateRun(c.Request.Context(), "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	summary, err := h.Dispatcher.ProcessPending(c.Request.Context())
	if err == nil {
		// a dispatcher that swallowed the deadline still produced a cut-short run
		err = c.Request.Context().Err()
	}
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
	}
	b, _ := json.Marshal(summary)

	// the run row must be closed even when the request deadline has passed
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), finishRunTimeout)
	defer cancel()
	if finishErr := h.Store.FinishRun(finishCtx, runID, status, b); finishErr != nil {
		h.Logger.Error().Err(finishErr).Int64("run_id", runID).Msg("failed to finish run")
	}

	if err != nil {
		h.Logger.Error().Err(err).Int64("run_id", runID).Msg("processing failed")
		details := gin.H{"run_id": runID, "summary": summary, "error": err.Error()}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(c, http.StatusGatewayTimeout, "TIMEOUT", "Processing cut short", details)
			return
		}
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Processing failed", details)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "summary": summary})
}

// @Summary Preview the decision for a ticket without saving it
// @Tags dispatch
// @Produce json
// @Param ticket_id query int true "ticket id"
// @Param mode query string false "rules|catalog|auto"
// @Success 200 {object} service.Outcome
// @Router /api/debug/decision [get]
func (h *Handler) DebugDecision(c *gin.Context) {
	raw := c.Query("ticket_id")
	if raw == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "ticket_id is required", nil)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "ticket_id must be a positive integer", raw)
		return
	}
	req := AssignRequest{Mode: c.Query("mode")}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	out, err := h.Dispatcher.PreviewTicket(c.Request.Context(), id, req.Mode)
	if err != nil {
		h.fail(c, err, "Decision failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

// fail maps domain errors onto the error envelope; anything unknown is a 500.
func (h *Handler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Not found", err.Error())
	case errors.Is(err, service.ErrTicketAssigned), errors.Is(err, service.ErrTicketClosed):
		writeError(c, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidMode):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "TIMEOUT", message, err.Error())
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, err.Error())
	}
}

func ticketID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a positive integer", c.Param("id"))
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
