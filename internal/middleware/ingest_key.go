package middleware

import (
	"net/http"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/response"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// HeaderIngestKey carries the collector ingest key.
const HeaderIngestKey = "X-Ingest-Key"

// RequireIngestKey guards the telemetry collector endpoint with a shared
// ingest key, compared against its bcrypt hash from configuration. An
// empty configured hash leaves the endpoint open (dev default), matching
// the allow-all CORS posture.
func RequireIngestKey(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IngestKeyHash == "" {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIngestKey)
		if key == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrInvalidIngestKey)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(cfg.IngestKeyHash), []byte(key)); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrInvalidIngestKey)
			return
		}

		c.Next()
	}
}
