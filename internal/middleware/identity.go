package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/models"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing the resolved caller.
	ContextUserKey = "currentUser"

	legacyHeader = "X-User-Id"
	legacyQuery  = "userId"
)

// Caller is the identity attached to a request. Legacy callers asserted their id
// without a token.
type Caller struct {
	UserID string
	Role   models.UserRole
	Email  string
	Legacy bool
}

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// IdentityOptions configures Identity.
type IdentityOptions struct {
	AllowLegacy bool
	Logger      *zap.Logger
}

// Identity resolves the caller from a bearer token, or from the legacy x-user-id header or
// userId query parameter when enabled. Legacy ids that are not UUIDs are ignored. It never
// blocks anonymous requests; a bearer token that fails validation is rejected.
func Identity(auth tokenValidator, opts IdentityOptions) gin.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
				c.Abort()
				return
			}
			claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				response.Error(c, err)
				c.Abort()
				return
			}
			c.Set(ContextUserKey, &Caller{UserID: claims.UserID, Role: claims.Role, Email: claims.Email})
			c.Next()
			return
		}

		if opts.AllowLegacy {
			userID := strings.TrimSpace(c.GetHeader(legacyHeader))
			if userID == "" {
				userID = strings.TrimSpace(c.Query(legacyQuery))
			}
			if userID != "" {
				if _, err := uuid.Parse(userID); err != nil {
					logger.Warn("legacy identity ignored: not a user id", zap.String("user_id", userID), zap.String("path", c.FullPath()))
					c.Next()
					return
				}
				c.Header("Deprecation", "true")
				logger.Warn("legacy identity used",
					zap.String("user_id", userID),
					zap.String("path", c.FullPath()),
					zap.String("ip", c.ClientIP()),
				)
				c.Set(ContextUserKey, &Caller{UserID: userID, Legacy: true})
			}
		}
		c.Next()
	}
}

// RequireIdentity rejects requests without a resolved caller.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentCaller(c); !ok {
			response.Error(c, appErrors.ErrMissingIdentity)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentCaller returns the caller resolved by Identity.
func CurrentCaller(c *gin.Context) (*Caller, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	caller, ok := value.(*Caller)
	if !ok || caller == nil || caller.UserID == "" {
		return nil, false
	}
	return caller, true
}
