package readings

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/server"
	"go.uber.org/zap"
)

// defaultHistoryWindow is used when a history request names no range.
const defaultHistoryWindow = 24 * time.Hour

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the readings endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a readings Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers readings routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/residents/{id}/health", h.handleHealth)
	mux.HandleFunc("GET /api/v1/residents/{id}/environment", h.handleEnvironment)
	mux.HandleFunc("GET /api/v1/residents/{id}/readings/latest", h.handleLatest)
	mux.HandleFunc("GET /api/v1/residents/{id}/readings/averages", h.handleAverages)
	mux.HandleFunc("GET /api/v1/residents/{id}/history.xlsx", h.handleExport)
}

// handleHealth returns health readings in a time range.
//
//	@Summary		Health history
//	@Description	Returns health readings with start <= timestamp < end. Defaults to the last 24 hours.
//	@Tags			readings
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int		true	"Resident ID"
//	@Param			start	query		string	false	"RFC 3339 start"
//	@Param			end		query		string	false	"RFC 3339 end"
//	@Success		200		{array}		models.HealthReading
//	@Failure		403		{object}	models.APIProblem
//	@Router			/residents/{id}/health [get]
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	id, start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	list, err := h.service.HealthHistory(r.Context(), access.IdentityFromContext(r.Context()), id, start, end)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	id, start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	list, err := h.service.EnvironmentHistory(r.Context(), access.IdentityFromContext(r.Context()), id, start, end)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	latest, err := h.service.Latest(r.Context(), access.IdentityFromContext(r.Context()), id)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, latest)
}

// handleAverages returns reading averages over the last N days.
//
//	@Summary	Reading averages
//	@Tags		readings
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int	true	"Resident ID"
//	@Param		days	query		int	false	"Window in days (default 7)"
//	@Success	200		{object}	readings.Averages
//	@Failure	400		{object}	models.APIProblem
//	@Router		/residents/{id}/readings/averages [get]
func (h *Handler) handleAverages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			server.BadRequest(w, "invalid days", r.URL.Path)
			return
		}
		days = n
	}
	avg, err := h.service.Averages(r.Context(), access.IdentityFromContext(r.Context()), id, days)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, avg)
}

// handleExport streams the reading history as a workbook. The workbook is
// buffered so that a failure can still be reported as a problem response.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id, start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.ExportHistory(r.Context(), access.IdentityFromContext(r.Context()), id, start, end, &buf); err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="resident-%d-history.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// rangeParams parses the resident ID and optional start/end query values,
// writing a 400 on failure.
func (h *Handler) rangeParams(w http.ResponseWriter, r *http.Request) (id int64, start, end time.Time, ok bool) {
	id, ok = pathID(w, r)
	if !ok {
		return 0, start, end, false
	}
	q := r.URL.Query()
	end = time.Now().UTC()
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			server.BadRequest(w, "invalid end: expected RFC 3339", r.URL.Path)
			return 0, start, end, false
		}
		end = t
	}
	start = end.Add(-defaultHistoryWindow)
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			server.BadRequest(w, "invalid start: expected RFC 3339", r.URL.Path)
			return 0, start, end, false
		}
		start = t
	}
	return id, start, end, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		server.BadRequest(w, "invalid resident id", r.URL.Path)
		return 0, false
	}
	return id, true
}
