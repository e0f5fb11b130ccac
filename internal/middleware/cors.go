package middleware

import (
	"net/http"
	"slices"
	"strings"

	"solitaire-cipher/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// CORS allows credentialed requests from loopback origins in development and
// from WS_ALLOWED_ORIGINS in every environment.
func CORS(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if origin == "" {
			c.Next()
			return
		}

		allowed := slices.Contains(cfg.WSAllowedOrigins, origin) ||
			(cfg.IsDevelopment() && isLoopbackOrigin(origin))
		if !allowed {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isLoopbackOrigin(origin string) bool {
	for _, p := range []string{
		"http://localhost:", "http://127.0.0.1:", "http://[::1]:",
		"https://localhost:", "https://127.0.0.1:", "https://[::1]:",
	} {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}
