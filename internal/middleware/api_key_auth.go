package middleware

import (
	"fmt"

	"github.com/SscSPs/settlement_engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries service credentials for machine callers (payroll trigger, transfer worker).
const APIKeyHeader = "X-API-Key"

// APIKeyAuth authenticates service callers against bcrypt hashes of their keys.
// Requests without a matching key fall through to JWT auth.
func APIKeyAuth(keyHashes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" || len(keyHashes) == 0 {
			c.Next()
			return
		}

		for i, hash := range keyHashes {
			if utils.CheckSecretHash(key, hash) {
				setAuthenticated(c, fmt.Sprintf("service-key-%d", i), "api_key")
				c.Next()
				return
			}
		}

		GetLoggerFromCtx(c.Request.Context()).Warn("API key did not match any configured hash")
		c.Next()
	}
}
