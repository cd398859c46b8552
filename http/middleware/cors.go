package middlewares

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/auroramedia/gramflow/config"
)

func CORSMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if cfg.CORS.AllowDomains == "" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		for _, domain := range strings.Split(cfg.CORS.AllowDomains, ",") {
			domain = strings.TrimSpace(domain)
			if domain != "" {
				corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, domain)
			}
		}
	}

	return cors.New(corsConfig)
}
