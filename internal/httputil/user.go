package httputil

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	conversionDomain "github.com/echocipher/carrier/internal/conversion/domain"
)

// UserIDHeader carries the caller identity.
const UserIDHeader = "X-User-ID"

const userIDContextKey = "carrier.user_id"

// RequireUserID rejects requests without a valid X-User-ID header and stores
// the trimmed value for UserID.
func RequireUserID(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if err := conversionDomain.ValidateUserID(userID); err != nil {
			HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// UserID returns the caller set by RequireUserID, or "" when absent.
func UserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}
