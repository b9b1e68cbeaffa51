package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping         func(ctx context.Context) error
	shuttingDown func() bool
}

// Either func may be nil.
func NewHealthHandler(ping func(ctx context.Context) error, shuttingDown func() bool) *HealthHandler {
	return &HealthHandler{ping: ping, shuttingDown: shuttingDown}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	// stop taking traffic before the listener closes
	if h.shuttingDown != nil && h.shuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	if h.ping != nil {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.ping(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
