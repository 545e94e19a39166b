package residents

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/server"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// Handler serves the resident and care-team endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a resident Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers resident routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/residents", h.handleList)
	mux.HandleFunc("POST /api/v1/residents", h.handleCreate)
	mux.HandleFunc("GET /api/v1/residents/{id}", h.handleGet)
	mux.HandleFunc("PUT /api/v1/residents/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/residents/{id}", h.handleDelete)
	mux.HandleFunc("GET /api/v1/residents/{id}/care-team", h.handleCareTeam)
	mux.HandleFunc("POST /api/v1/residents/{id}/care-team/{user_id}", h.handleAssign)
	mux.HandleFunc("DELETE /api/v1/residents/{id}/care-team/{user_id}", h.handleUnassign)
}

// handleList returns the residents visible to the caller.
//
//	@Summary		List residents
//	@Description	Admins receive every resident; other roles receive their assigned residents.
//	@Tags			residents
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		models.Resident
//	@Failure		401	{object}	models.APIProblem
//	@Router			/residents [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), access.IdentityFromContext(r.Context()))
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

// handleCreate adds a resident.
//
//	@Summary		Create resident
//	@Tags			residents
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		models.Resident	true	"Resident"
//	@Success		201		{object}	models.Resident
//	@Failure		400		{object}	models.APIProblem
//	@Failure		403		{object}	models.APIProblem
//	@Router			/residents [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.Resident
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	created, err := h.service.Create(r.Context(), access.IdentityFromContext(r.Context()), req)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.service.Get(r.Context(), access.IdentityFromContext(r.Context()), id)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

// handleUpdate replaces a resident's details.
//
//	@Summary		Update resident
//	@Tags			residents
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int				true	"Resident ID"
//	@Param			request	body		models.Resident	true	"Resident"
//	@Success		200		{object}	models.Resident
//	@Failure		403		{object}	models.APIProblem
//	@Failure		404		{object}	models.APIProblem
//	@Router			/residents/{id} [put]
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.Resident
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	req.ID = id
	updated, err := h.service.Update(r.Context(), access.IdentityFromContext(r.Context()), req)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), access.IdentityFromContext(r.Context()), id); err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCareTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	team, err := h.service.CareTeam(r.Context(), access.IdentityFromContext(r.Context()), id)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, team)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	if err := h.service.Assign(r.Context(), access.IdentityFromContext(r.Context()), id, userID); err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	if err := h.service.Unassign(r.Context(), access.IdentityFromContext(r.Context()), id, userID); err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses an int64 path parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		server.BadRequest(w, "invalid "+name, r.URL.Path)
		return 0, false
	}
	return id, true
}
