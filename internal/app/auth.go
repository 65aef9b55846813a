package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware accepts bearer tokens that are either one of staticTokens
// or an HS256 JWT signed with jwtSecret. With neither configured every
// request passes.
func AuthMiddleware(staticTokens []string, jwtSecret string) gin.HandlerFunc {
	tokens := make(map[string]struct{}, len(staticTokens))
	for _, t := range staticTokens {
		if t = strings.TrimSpace(t); t != "" {
			tokens[t] = struct{}{}
		}
	}
	jwtSecret = strings.TrimSpace(jwtSecret)

	if len(tokens) == 0 && jwtSecret == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Detail: "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Detail: "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		// JWT path
		if jwtSecret != "" {
			_, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(jwtSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				c.Next()
				return
			}
		}

		// static tokens
		if _, ok := tokens[tokenStr]; ok {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Detail: "invalid token"})
	}
}
