package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/models"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type teacherChecker interface {
	CanTeach(ctx context.Context, classID, userID string) (bool, error)
}

// ClassResolver extracts the class a request targets.
type ClassResolver func(c *gin.Context) (string, error)

// ClassParam resolves the class id from a path parameter.
func ClassParam(name string) ClassResolver {
	return func(c *gin.Context) (string, error) {
		return c.Param(name), nil
	}
}

// RequireClassTeacher lets through admins and the owner or instructors of the targeted class.
func RequireClassTeacher(checker teacherChecker, resolve ClassResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		if !ok {
			response.Error(c, appErrors.ErrMissingIdentity)
			c.Abort()
			return
		}
		if caller.Role == models.RoleAdmin {
			c.Next()
			return
		}

		classID, err := resolve(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		allowed, err := checker.CanTeach(c.Request.Context(), classID, caller.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only the class teachers can do this"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles lets through token callers holding one of roles. Legacy callers carry no
// role and are always refused.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		if !ok {
			response.Error(c, appErrors.ErrMissingIdentity)
			c.Abort()
			return
		}
		if _, ok := allowed[caller.Role]; !ok || caller.Legacy {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
