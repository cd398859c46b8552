package middlewares

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/utils"
)

// AdminAuthMiddleware guards operator endpoints. It accepts the raw admin
// key (X-Admin-Key header or ?key=) or an operator JWT issued by the token
// endpoint. With no admin key configured it fails closed; AUTH_OPEN_MODE is
// the explicit opt-in for keyless local setups.
func AdminAuthMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Auth.OpenMode {
			c.Next()
			return
		}

		adminKey := cfg.Auth.AdminAPIKey
		if adminKey != "" {
			key := c.GetHeader("X-Admin-Key")
			if key == "" {
				key = c.Query("key")
			}
			if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1 {
				c.Next()
				return
			}
		}

		tokenStr := utils.ExtractToken(c)
		if tokenStr != "" && cfg.JWT.SecretKey != "" {
			parsedToken, err := utils.ParseToken(tokenStr, cfg)
			if err == nil && parsedToken.Valid {
				if claims, ok := parsedToken.Claims.(jwt.MapClaims); ok {
					if err := utils.InjectClaimsToContext(c, claims); err == nil {
						c.Next()
						return
					}
				}
			}
		}

		utils.JSON401(c, "Unauthorized")
		c.Abort()
	}
}
