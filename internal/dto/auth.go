package dto

import (
	"regexp"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
)

// LoginRequest is the OAuth2-password-style login form
type LoginRequest struct {
	Username  string `form:"username" binding:"required"`
	Password  string `form:"password" binding:"required"`
	GrantType string `form:"grant_type"`
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"required,min=2"`
}

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.\-]+$`)

// ValidateUsername checks the username charset: lowercase letters, digits,
// underscore, dot and hyphen
func (r *RegisterRequest) ValidateUsername() (bool, string) {
	if !usernameRegex.MatchString(r.Username) {
		return false, "Username may only contain lowercase letters, digits, '_', '.' and '-'"
	}
	return true, ""
}

// TokenResponse represents a successful login
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
	IsActive bool     `json:"is_active"`
}

// ToUserResponse converts a domain user
func ToUserResponse(user *domain.User) UserResponse {
	roles := make([]string, len(user.Roles))
	for i, r := range user.Roles {
		roles[i] = string(r)
	}
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    roles,
		IsActive: user.IsActive,
	}
}
