package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports liveness plus the state of every backing service.
func (ctrl *Controller) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{
		"postgres": "ok",
		"redis":    "ok",
		"storage":  "ok",
	}
	healthy := true

	if err := ctrl.Infra.Postgres.Ping(); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if err := ctrl.Infra.Redis.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}
	if err := ctrl.Infra.Minio.StorageHealthy(ctx); err != nil {
		checks["storage"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ok":     healthy,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
	})
}
