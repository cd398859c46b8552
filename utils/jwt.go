package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/auroramedia/gramflow/config"
)

func ExtractToken(c *gin.Context) string {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}

// MintOperatorToken issues a short-lived operator token after the admin key
// has been verified.
func MintOperatorToken(config *config.EnvConfig) (string, error) {
	if config.JWT.SecretKey == "" {
		return "", errors.New("JWT secret key is not configured")
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"role": "operator",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Duration(config.JWT.Expire) * time.Second).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWT.SecretKey))
}

func ParseToken(tokenString string, config *config.EnvConfig) (*jwt.Token, error) {
	secret := []byte(config.JWT.SecretKey)
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
}

func InjectClaimsToContext(c *gin.Context, claims jwt.MapClaims) error {
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return errors.New("invalid role claim")
	}
	c.Set("role", role)
	return nil
}
