package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/server"
	_ "github.com/HerbHall/havenwatch/pkg/models" // swagger type reference
	"go.uber.org/zap"
)

// Handler provides HTTP handlers for authentication and user endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an auth Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers auth-related routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Public auth endpoints (no JWT required).
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/setup", h.handleSetup)
	mux.HandleFunc("GET /api/v1/auth/setup/status", h.handleSetupStatus)

	mux.HandleFunc("GET /api/v1/auth/me", h.handleMe)
	mux.HandleFunc("POST /api/v1/auth/password", h.handleChangePassword)

	// User management; permission checks happen in the service.
	mux.HandleFunc("GET /api/v1/users", h.handleListUsers)
	mux.HandleFunc("POST /api/v1/users", h.handleCreateUser)
	mux.HandleFunc("GET /api/v1/users/{id}", h.handleGetUser)
	mux.HandleFunc("PUT /api/v1/users/{id}", h.handleUpdateUser)
	mux.HandleFunc("DELETE /api/v1/users/{id}", h.handleDeleteUser)
}

// Middleware returns the JWT authentication middleware.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return AuthMiddleware(h.service.Tokens())
}

// handleLogin authenticates a user and returns an access token.
//
//	@Summary		Login
//	@Description	Authenticate with username and password to receive a JWT access token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Login credentials"
//	@Success		200		{object}	TokenResponse
//	@Failure		400		{object}	models.APIProblem
//	@Failure		401		{object}	models.APIProblem
//	@Router			/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if req.Username == "" || req.Password == "" {
		server.BadRequest(w, "username and password are required", r.URL.Path)
		return
	}

	resp, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			server.Unauthorized(w, "invalid username or password", r.URL.Path)
			return
		}
		server.WriteError(w, r, h.logger, err)
		return
	}

	server.WriteJSON(w, http.StatusOK, resp)
}

// handleRegister creates a non-admin account without authentication.
//
//	@Summary		Register
//	@Description	Self-registration. Administrator accounts cannot be self-registered.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		NewUser	true	"Account details"
//	@Success		201		{object}	models.User
//	@Failure		400		{object}	models.APIProblem
//	@Failure		403		{object}	models.APIProblem
//	@Failure		409		{object}	models.APIProblem
//	@Router			/auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	user, err := h.service.Register(r.Context(), nil, req)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, user)
}

// handleSetup creates the first administrator.
//
//	@Summary		Initial setup
//	@Description	Create the first administrator account. Fails once any user exists.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		NewUser	true	"Administrator details"
//	@Success		201		{object}	models.User
//	@Failure		409		{object}	models.APIProblem
//	@Router			/auth/setup [post]
func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	user, err := h.service.Setup(r.Context(), req)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, user)
}

// handleSetupStatus reports whether initial setup is still required.
//
//	@Summary		Setup status
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	map[string]bool
//	@Router			/auth/setup/status [get]
func (h *Handler) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	needs, err := h.service.NeedsSetup(r.Context())
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"setup_required": needs})
}

// handleMe returns the authenticated user's account.
//
//	@Summary		Current user
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	models.User
//	@Failure		401	{object}	models.APIProblem
//	@Router			/auth/me [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), access.IdentityFromContext(r.Context()))
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	err := h.service.ChangePassword(r.Context(), access.IdentityFromContext(r.Context()), req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			server.Forbidden(w, "current password is incorrect", r.URL.Path)
			return
		}
		server.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListUsers returns all users.
//
//	@Summary		List users
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		models.User
//	@Failure		403	{object}	models.APIProblem
//	@Router			/users [get]
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context(), access.IdentityFromContext(r.Context()))
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, users)
}

// handleCreateUser creates an account of any role.
//
//	@Summary		Create user
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		NewUser	true	"Account details"
//	@Success		201		{object}	models.User
//	@Failure		403		{object}	models.APIProblem
//	@Failure		409		{object}	models.APIProblem
//	@Router			/users [post]
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	user, err := h.service.Create(r.Context(), access.IdentityFromContext(r.Context()), req)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), access.IdentityFromContext(r.Context()), id)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, user)
}

// handleUpdateUser updates a user's profile and, for admins, role.
//
//	@Summary		Update user
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int			true	"User ID"
//	@Param			request	body		UserUpdate	true	"Profile fields"
//	@Success		200		{object}	models.User
//	@Failure		403		{object}	models.APIProblem
//	@Failure		404		{object}	models.APIProblem
//	@Router			/users/{id} [put]
func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	user, err := h.service.Update(r.Context(), access.IdentityFromContext(r.Context()), id, req)
	if err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, user)
}

// handleDeleteUser deletes an account.
//
//	@Summary		Delete user
//	@Tags			users
//	@Security		BearerAuth
//	@Param			id	path	int	true	"User ID"
//	@Success		204
//	@Failure		403	{object}	models.APIProblem
//	@Failure		409	{object}	models.APIProblem
//	@Router			/users/{id} [delete]
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
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

// pathID parses an int64 path parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		server.BadRequest(w, "invalid "+name, r.URL.Path)
		return 0, false
	}
	return id, true
}
