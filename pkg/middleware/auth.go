package middleware

import (
	"strings"

	"boostpanel/pkg/errutil"
	"boostpanel/pkg/rediskey"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// AccountIDKey is the gin context key holding the authenticated account id.
const AccountIDKey = "account_id"

// Auth resolves the bearer token against the redis session store and
// injects the owning account id into the request context.
func Auth(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{
				"code":    errutil.StatusUnauthorized,
				"message": "missing bearer token",
			}})
			return
		}

		accountID, err := rdb.Get(c.Request.Context(), rediskey.BuildSessionKey(token)).Result()
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{
				"code":    errutil.StatusUnauthorized,
				"message": "invalid or expired session",
			}})
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Next()
	}
}

// AccountID returns the authenticated account id set by Auth.
func AccountID(c *gin.Context) string {
	return c.GetString(AccountIDKey)
}
