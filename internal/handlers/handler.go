package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"table-cache-api/internal/auth"
	"table-cache-api/internal/kvtable"
	"table-cache-api/internal/logging"
	"table-cache-api/internal/realtime"
	"table-cache-api/internal/registry"

	"github.com/gin-gonic/gin"
)

// Handler serves the HTTP API on top of a table registry.
type Handler struct {
	reg    *registry.Registry
	hub    *realtime.Hub
	signer *auth.Signer
	creds  *auth.Credentials
	log    *slog.Logger
}

// New returns a Handler. hub may be nil, in which case the websocket endpoint
// answers 503.
func New(reg *registry.Registry, hub *realtime.Hub, signer *auth.Signer, creds *auth.Credentials, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		reg:    reg,
		hub:    hub,
		signer: signer,
		creds:  creds,
		log:    log,
	}
}

// respondError maps registry and table errors onto HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, registry.ErrTableNotFound), errors.Is(err, kvtable.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrClosed), errors.Is(err, kvtable.ErrClosed):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Error("handlers: request failed",
			slog.String("path", c.FullPath()),
			logging.Err(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
