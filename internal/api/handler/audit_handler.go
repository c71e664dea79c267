package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pressify/reprint-hub/internal/api/middleware"
	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

// nopAudit is used until a handler is given a real audit trail.
type nopAudit struct{}

func (nopAudit) Record(context.Context, domain.AuthEvent) {}

func (nopAudit) History(context.Context, int64, int) ([]domain.AuthEvent, error) {
	return nil, nil
}

// record fills in the client address and hands event to audit.
func record(c echo.Context, audit ports.AuditService, event domain.AuthEvent) {
	event.IP = c.RealIP()
	audit.Record(c.Request().Context(), event)
}

// AuditHandler exposes the caller's own auth history.
type AuditHandler struct {
	audit ports.AuditService
}

func NewAuditHandler(audit ports.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

type historyResponse struct {
	Events []domain.AuthEvent `json:"events"`
}

// History lists the newest auth events of the bearer token owner.
//
// @Summary      Auth history
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum number of events (1-100, default 20)"
// @Success      200    {object}  historyResponse
// @Failure      401    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Router       /api/auth/history [get]
func (h *AuditHandler) History(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return validationError("The limit field must be an integer.")
		}
		limit = n
	}

	events, err := h.audit.History(c.Request().Context(), middleware.UserFrom(c).ID, limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.AuthEvent{}
	}
	return c.JSON(http.StatusOK, historyResponse{Events: events})
}
