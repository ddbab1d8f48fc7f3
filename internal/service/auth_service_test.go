package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/dto"
)

// mockUserRepository is an in-memory UserRepository for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, _ := m.GetByUsername(ctx, username)
	return u != nil, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int, error) {
	return len(m.users), nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

// mockLoginLimiter counts failures in memory
type mockLoginLimiter struct {
	failures  map[string]int
	threshold int
}

func newMockLoginLimiter() *mockLoginLimiter {
	return &mockLoginLimiter{failures: make(map[string]int), threshold: 5}
}

func (m *mockLoginLimiter) RecordFailure(ctx context.Context, username string) (int, error) {
	m.failures[username]++
	return m.failures[username], nil
}

func (m *mockLoginLimiter) IsBlocked(ctx context.Context, username string) (bool, error) {
	return m.failures[username] >= m.threshold, nil
}

func (m *mockLoginLimiter) Reset(ctx context.Context, username string) error {
	delete(m.failures, username)
	return nil
}

func newTestAuthService(repo *mockUserRepository, limiter *mockLoginLimiter) AuthService {
	return NewAuthService(repo, limiter, &AuthServiceConfig{
		JWTSecret:         "test-secret",
		AccessTokenExpiry: time.Hour,
		BcryptCost:        bcrypt.MinCost,
	})
}

func seedUser(t *testing.T, repo *mockUserRepository, username, password string, roles ...domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	user := &domain.User{
		ID:           "user-" + username,
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: string(hash),
		Roles:        roles,
		IsActive:     true,
	}
	repo.users[user.ID] = user
	return user
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := newMockUserRepository()
		limiter := newMockLoginLimiter()
		svc := newTestAuthService(repo, limiter)
		seedUser(t, repo, "alice", "secret123", domain.RoleAuthor)

		resp, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if resp.AccessToken == "" {
			t.Error("expected access token")
		}
		if resp.TokenType != "bearer" {
			t.Errorf("TokenType = %s, want bearer", resp.TokenType)
		}
		if resp.User.Username != "alice" {
			t.Errorf("User.Username = %s, want alice", resp.User.Username)
		}
	})

	t.Run("wrong password records failure", func(t *testing.T) {
		repo := newMockUserRepository()
		limiter := newMockLoginLimiter()
		svc := newTestAuthService(repo, limiter)
		seedUser(t, repo, "alice", "secret123", domain.RoleAuthor)

		_, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
		}
		if limiter.failures["alice"] != 1 {
			t.Errorf("failures = %d, want 1", limiter.failures["alice"])
		}
	})

	t.Run("unknown user counts against limiter", func(t *testing.T) {
		repo := newMockUserRepository()
		limiter := newMockLoginLimiter()
		svc := newTestAuthService(repo, limiter)

		_, err := svc.Login(ctx, &dto.LoginRequest{Username: "ghost", Password: "x"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
		}
		if limiter.failures["ghost"] != 1 {
			t.Errorf("failures = %d, want 1", limiter.failures["ghost"])
		}
	})

	t.Run("blocked after threshold", func(t *testing.T) {
		repo := newMockUserRepository()
		limiter := newMockLoginLimiter()
		svc := newTestAuthService(repo, limiter)
		seedUser(t, repo, "alice", "secret123", domain.RoleAuthor)

		for i := 0; i < 5; i++ {
			_, _ = svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong"})
		}
		_, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
		if !errors.Is(err, ErrTooManyAttempts) {
			t.Errorf("Login() error = %v, want ErrTooManyAttempts", err)
		}
	})

	t.Run("successful login resets limiter", func(t *testing.T) {
		repo := newMockUserRepository()
		limiter := newMockLoginLimiter()
		svc := newTestAuthService(repo, limiter)
		seedUser(t, repo, "alice", "secret123", domain.RoleAuthor)

		for i := 0; i < 3; i++ {
			_, _ = svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong"})
		}
		if _, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if limiter.failures["alice"] != 0 {
			t.Errorf("failures = %d, want 0 after reset", limiter.failures["alice"])
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		repo := newMockUserRepository()
		limiter := newMockLoginLimiter()
		svc := newTestAuthService(repo, limiter)
		user := seedUser(t, repo, "alice", "secret123", domain.RoleAuthor)
		user.IsActive = false

		_, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
		if !errors.Is(err, ErrUserInactive) {
			t.Errorf("Login() error = %v, want ErrUserInactive", err)
		}
	})
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns author role", func(t *testing.T) {
		repo := newMockUserRepository()
		svc := newTestAuthService(repo, newMockLoginLimiter())

		user, err := svc.Register(ctx, &dto.RegisterRequest{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "Password1!",
			FullName: "Bob Builder",
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if len(user.Roles) != 1 || user.Roles[0] != domain.RoleAuthor {
			t.Errorf("Roles = %v, want [author]", user.Roles)
		}
		if !user.IsActive {
			t.Error("expected active user")
		}
		if user.PasswordHash == "Password1!" {
			t.Error("password must be hashed")
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo := newMockUserRepository()
		svc := newTestAuthService(repo, newMockLoginLimiter())
		seedUser(t, repo, "bob", "x", domain.RoleAuthor)

		_, err := svc.Register(ctx, &dto.RegisterRequest{
			Username: "bob",
			Email:    "other@example.com",
			Password: "Password1!",
			FullName: "Bob Two",
		})
		if !errors.Is(err, ErrUserAlreadyExists) {
			t.Errorf("Register() error = %v, want ErrUserAlreadyExists", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newMockUserRepository()
		svc := newTestAuthService(repo, newMockLoginLimiter())
		seedUser(t, repo, "bob", "x", domain.RoleAuthor)

		_, err := svc.Register(ctx, &dto.RegisterRequest{
			Username: "robert",
			Email:    "bob@example.com",
			Password: "Password1!",
			FullName: "Bob Two",
		})
		if !errors.Is(err, ErrUserAlreadyExists) {
			t.Errorf("Register() error = %v, want ErrUserAlreadyExists", err)
		}
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := newTestAuthService(repo, newMockLoginLimiter())
	seedUser(t, repo, "alice", "secret123", domain.RoleAuthor, domain.RoleReviewer)

	resp, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := svc.ValidateToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %s, want alice", claims.Username)
	}
	hasReviewer := false
	for _, r := range claims.Roles {
		if r == domain.RoleReviewer {
			hasReviewer = true
		}
	}
	if !hasReviewer {
		t.Errorf("Roles = %v, want reviewer included", claims.Roles)
	}

	t.Run("garbage token", func(t *testing.T) {
		if _, err := svc.ValidateToken(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(repo, newMockLoginLimiter(), &AuthServiceConfig{
			JWTSecret: "different-secret",
		})
		if _, err := other.ValidateToken(ctx, resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestAuthService_SeedAdminUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates admin on empty table", func(t *testing.T) {
		repo := newMockUserRepository()
		svc := newTestAuthService(repo, newMockLoginLimiter())

		if err := svc.SeedAdminUser(ctx, "admin", "admin123"); err != nil {
			t.Fatalf("SeedAdminUser() error = %v", err)
		}
		admin, _ := repo.GetByUsername(ctx, "admin")
		if admin == nil {
			t.Fatal("expected admin user")
		}
		if !admin.HasRole(domain.RoleAdmin) {
			t.Errorf("Roles = %v, want admin included", admin.Roles)
		}

		if _, err := svc.Login(ctx, &dto.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
			t.Errorf("Login() as seeded admin error = %v", err)
		}
	})

	t.Run("skips when users exist", func(t *testing.T) {
		repo := newMockUserRepository()
		svc := newTestAuthService(repo, newMockLoginLimiter())
		seedUser(t, repo, "alice", "x", domain.RoleAuthor)

		if err := svc.SeedAdminUser(ctx, "admin", "admin123"); err != nil {
			t.Fatalf("SeedAdminUser() error = %v", err)
		}
		admin, _ := repo.GetByUsername(ctx, "admin")
		if admin != nil {
			t.Error("admin must not be created when users exist")
		}
	})
}
