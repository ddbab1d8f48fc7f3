package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/diegoferreirapinto/document-management-system/internal/dto"
	"github.com/diegoferreirapinto/document-management-system/internal/middleware"
	"github.com/diegoferreirapinto/document-management-system/internal/service"
	"github.com/diegoferreirapinto/document-management-system/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user login. The request body is form-encoded in the OAuth2
// password grant shape: username, password, grant_type.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Unauthorized(c, "Invalid username or password")
		case errors.Is(err, service.ErrUserInactive):
			response.Forbidden(c, "User account is inactive")
		case errors.Is(err, service.ErrTooManyAttempts):
			response.TooManyRequests(c, "Too many failed login attempts, try again later")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.Success(c, result)
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.ValidateUsername(); !valid {
		response.Error(c, 400, "INVALID_USERNAME", msg, "")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			response.Conflict(c, "A user with this username or email already exists")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Created(c, dto.ToUserResponse(user))
}

// Me returns the authenticated user
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}
	response.Success(c, dto.ToUserResponse(user))
}
