package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := gin.H{}

	if err := h.db.Ping(ctx); err != nil {
		status = "degraded"
		checks["postgres"] = err.Error()
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.cache.Ping(ctx).Err(); err != nil {
		status = "degraded"
		checks["redis"] = err.Error()
	} else {
		checks["redis"] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
