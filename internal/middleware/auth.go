package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/apikey"
	"github.com/semanticallynull/carpool-backend/internal/ratelimit"
	"github.com/semanticallynull/carpool-backend/user"
)

// UserKey for storing the authenticated user in Gin context
const UserKey = "user"

// KeyStore resolves bearer credentials.
type KeyStore interface {
	GetByKey(ctx context.Context, key string) (apikey.Key, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}

// UserStore resolves the identity a credential points at.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

// Auth authenticates the bearer token against the credential store and runs
// the request through the rate limiter before any handler executes. A
// rate-limit rejection is 429 with Retry-After semantics, not an auth
// failure. The last-used timestamp on the credential is updated
// fire-and-forget.
func Auth(keys KeyStore, users UserStore, limiter *ratelimit.Limiter, rule ratelimit.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"code": "UNAUTHORIZED", "message": "Missing or invalid Authorization header"})
			return
		}

		key, err := keys.GetByKey(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"code": "UNAUTHORIZED", "message": "Invalid API key"})
			return
		}

		u, err := users.GetByID(c.Request.Context(), key.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"code": "UNAUTHORIZED", "message": "Unknown user"})
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
			defer cancel()
			if err := keys.TouchLastUsed(ctx, key.ID); err != nil {
				logger.Warn("failed to touch api key", "error", err)
			}
		}()

		res := limiter.Check(u.ID.String(), c.FullPath(), rule)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"code": "RATE_LIMITED", "message": "Too many requests"})
			return
		}

		c.Set(UserKey, u)
		c.Next()
	}
}

// GetUser extracts the authenticated user set by Auth.
func GetUser(c *gin.Context) (user.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
