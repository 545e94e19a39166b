package alerts

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/server"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// CountsResponse is the body of GET /alerts/counts.
type CountsResponse struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
	Total    int `json:"total"`
}

// Handler serves the alert endpoints.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHandler creates an alert Handler.
func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes registers alert routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/alerts", h.handleList)
	mux.HandleFunc("GET /api/v1/alerts/counts", h.handleCounts)
	mux.HandleFunc("GET /api/v1/residents/{id}/alerts", h.handleResidentAlerts)
	mux.HandleFunc("POST /api/v1/alerts/{id}/acknowledge", h.handleAcknowledge)
	mux.HandleFunc("POST /api/v1/alerts/{id}/resolve", h.handleResolve)
}

// handleList returns alerts visible to the caller. Without filters it
// returns the non-resolved alerts, most severe first.
//
//	@Summary		List alerts
//	@Tags			alerts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			type	query		string	false	"HEALTH, ENVIRONMENT or SYSTEM"
//	@Param			status	query		string	false	"ACTIVE, ACKNOWLEDGED or RESOLVED"
//	@Param			limit	query		int		false	"Maximum results for filtered queries (default 100)"
//	@Success		200		{array}		models.Alert
//	@Failure		401		{object}	models.APIProblem
//	@Router			/alerts [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller := access.IdentityFromContext(r.Context())
	q := r.URL.Query()
	typ := models.AlertType(strings.ToUpper(q.Get("type")))
	status := models.AlertStatus(strings.ToUpper(q.Get("status")))

	if typ == "" && status == "" {
		list, err := h.manager.Active(r.Context(), caller)
		if err != nil {
			server.WriteError(w, r, h.logger, err)
			return
		}
		server.WriteJSON(w, http.StatusOK, list)
		return
	}

	switch typ {
	case "", models.AlertTypeHealth, models.AlertTypeEnvironment, models.AlertTypeSystem:
	default:
		server.BadRequest(w, "invalid alert type", r.URL.Path)
		return
	}
	switch status {
	case "", models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusResolved:
	default:
		server.BadRequest(w, "invalid alert status", r.URL.Path)
		return
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			server.BadRequest(w, "limit must be between 1 and 1000", r.URL.Path)
			return
		}
		limit = n
	}

	list, err := h.manager.Search(r.Context(), caller, typ, status, limit)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

// handleCounts returns non-resolved alert counts by severity.
//
//	@Summary	Alert counts
//	@Tags		alerts
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	alerts.CountsResponse
//	@Router		/alerts/counts [get]
func (h *Handler) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.manager.CountsFor(r.Context(), access.IdentityFromContext(r.Context()))
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, CountsResponse{
		Low:      counts.Get(models.SeverityLow),
		Medium:   counts.Get(models.SeverityMedium),
		High:     counts.Get(models.SeverityHigh),
		Critical: counts.Get(models.SeverityCritical),
		Total:    counts.Total(),
	})
}

func (h *Handler) handleResidentAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.manager.ForResident(r.Context(), access.IdentityFromContext(r.Context()), id)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

// handleAcknowledge moves an alert to ACKNOWLEDGED.
//
//	@Summary	Acknowledge alert
//	@Tags		alerts
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Alert ID"
//	@Success	200	{object}	models.Alert
//	@Failure	403	{object}	models.APIProblem
//	@Failure	409	{object}	models.APIProblem
//	@Router		/alerts/{id}/acknowledge [post]
func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.manager.Acknowledge(r.Context(), access.IdentityFromContext(r.Context()), id)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, a)
}

// handleResolve moves an alert to RESOLVED.
//
//	@Summary	Resolve alert
//	@Tags		alerts
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Alert ID"
//	@Success	200	{object}	models.Alert
//	@Failure	409	{object}	models.APIProblem
//	@Router		/alerts/{id}/resolve [post]
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.manager.Resolve(r.Context(), access.IdentityFromContext(r.Context()), id)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, a)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		server.BadRequest(w, "invalid id", r.URL.Path)
		return 0, false
	}
	return id, true
}
