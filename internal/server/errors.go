package server

import (
	"errors"
	"net/http"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// WriteError maps a service error onto a problem response. Store failures
// are logged and reported without driver detail.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	instance := r.URL.Path
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		Unauthorized(w, "authentication required", instance)
	case errors.Is(err, access.ErrDenied):
		Forbidden(w, err.Error(), instance)
	case errors.Is(err, models.ErrValidation):
		BadRequest(w, err.Error(), instance)
	case errors.Is(err, store.ErrNotFound):
		NotFound(w, err.Error(), instance)
	case errors.Is(err, store.ErrConflict):
		Conflict(w, err.Error(), instance)
	default:
		logger.Error("request failed",
			zap.String("path", instance),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		InternalError(w, "an unexpected error occurred", instance)
	}
}
