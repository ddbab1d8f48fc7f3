package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/service"
	"github.com/diegoferreirapinto/document-management-system/pkg/response"
)

// Context keys set by RequireAuth
const (
	ContextUserKey     = "user"
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// RequireAuth validates the bearer token and loads the authenticated user
// into the request context. Requests without a valid token get 401.
func RequireAuth(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "Authorization header must be a bearer token")
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				response.Unauthorized(c, "Token has expired")
			} else {
				response.Unauthorized(c, "Invalid token")
			}
			c.Abort()
			return
		}

		user, err := authService.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				response.Unauthorized(c, "User no longer exists")
			} else {
				response.InternalError(c, err)
			}
			c.Abort()
			return
		}
		if !user.IsActive {
			response.Forbidden(c, "User account is inactive")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUsernameKey, user.Username)
		c.Next()
	}
}

// RequireAnyRole allows the request only when the authenticated user holds
// at least one of the given roles. Must run after RequireAuth.
func RequireAnyRole(roles ...domain.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	required := strings.Join(names, ", ")

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}
		if !user.HasAnyRole(roles...) {
			response.Forbidden(c, "Requires one of the following roles: "+required)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by RequireAuth, or nil
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*domain.User)
	if !ok {
		return nil
	}
	return user
}
