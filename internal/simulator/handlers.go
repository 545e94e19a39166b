package simulator

import (
	"net/http"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/server"
	"go.uber.org/zap"
)

// Handler serves the simulation endpoints.
type Handler struct {
	sim    *Simulator
	logger *zap.Logger
}

// NewHandler creates a simulation Handler.
func NewHandler(sim *Simulator, logger *zap.Logger) *Handler {
	return &Handler{sim: sim, logger: logger}
}

// RegisterRoutes registers simulation routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/simulation/generate", h.handleGenerate)
	mux.HandleFunc("GET /api/v1/simulation/status", h.handleStatus)
}

// handleGenerate runs one simulation pass synchronously.
//
//	@Summary		Generate readings now
//	@Description	Runs one simulation pass for every resident and returns its summary.
//	@Tags			simulation
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	simulator.PassResult
//	@Failure		403	{object}	models.APIProblem
//	@Failure		409	{object}	models.APIProblem
//	@Router			/simulation/generate [post]
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := access.Require(access.IdentityFromContext(r.Context()), access.TriggerSimulator); err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	res, err := h.sim.GenerateNow(r.Context())
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

// handleStatus reports the simulator state to any authenticated caller.
//
//	@Summary	Simulator status
//	@Tags		simulation
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	simulator.Status
//	@Router		/simulation/status [get]
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if access.IdentityFromContext(r.Context()) == nil {
		server.WriteError(w, r, h.logger, access.ErrUnauthenticated)
		return
	}
	server.WriteJSON(w, http.StatusOK, h.sim.Status())
}
