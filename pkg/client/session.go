package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Persisted session keys. Both are always written and cleared together so a
// restore never sees a token without its user or the other way round.
const (
	storeKeyToken = "access_token"
	storeKeyUser  = "user"
)

// SessionStore persists session state between runs
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is an in-memory SessionStore
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// RoleList is a user's role set. It decodes from either a JSON array or a
// comma-joined string and always normalizes to a trimmed, deduplicated list.
type RoleList []string

func (r *RoleList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = normalizeRoles(list)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*r = normalizeRoles(strings.Split(joined, ","))
	return nil
}

func normalizeRoles(roles []string) RoleList {
	out := make(RoleList, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		out = append(out, role)
	}
	return out
}

// User is the authenticated account as seen by the client
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    RoleList `json:"roles"`
	IsActive bool     `json:"is_active"`
}

// HasRole reports whether the user holds the given role.
// Checks are exact-match and case-sensitive.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of the given roles.
// An empty roles argument yields false.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// Session tracks the authenticated user and token
type Session struct {
	mu       sync.RWMutex
	store    SessionStore
	token    string
	user     *User
	restored bool
}

func newSession(store SessionStore) *Session {
	return &Session{store: store}
}

// Token returns the current access token, or ""
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns the authenticated user, or nil
func (s *Session) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether a user is logged in
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// Restored reports whether Restore has completed at least once
func (s *Session) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

// Restore loads a persisted session and validates it against the server.
// The persisted token is attached optimistically, then the current-user
// profile is fetched: on success the fresh profile replaces the cached one,
// a rejected token clears the whole session, and an unreachable server
// falls back to the cached profile. It resolves at most once per client;
// later calls return the already-restored user. It never fails — a missing
// or unusable persisted session just leaves the client logged out.
func (c *Client) Restore(ctx context.Context) *User {
	s := c.session

	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return s.CurrentUser()
	}
	s.restored = true

	token, ok := s.store.Get(storeKeyToken)
	if !ok || token == "" {
		s.mu.Unlock()
		return nil
	}
	s.token = token
	raw, _ := s.store.Get(storeKeyUser)
	s.mu.Unlock()

	user, err := c.Me(ctx)
	if err == nil {
		if data, merr := json.Marshal(user); merr == nil {
			s.store.Set(storeKeyUser, string(data))
		}
		return user
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		// the server rejected the persisted token, drop everything
		s.Clear()
		return nil
	}

	// server unreachable, fall back to the cached profile
	var cached User
	if raw == "" || json.Unmarshal([]byte(raw), &cached) != nil {
		s.Clear()
		return nil
	}
	s.mu.Lock()
	s.user = &cached
	s.mu.Unlock()
	return &cached
}

// set stores a fresh login in memory and in the persistent store
func (s *Session) set(token string, user *User) {
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.restored = true
	s.store.Set(storeKeyToken, token)
	s.store.Set(storeKeyUser, string(raw))
}

// Clear logs the session out. Both persisted keys are removed together and
// clearing an already-empty session is a no-op, so Clear is safe to call any
// number of times.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.store.Delete(storeKeyToken)
	s.store.Delete(storeKeyUser)
}

// loginResponse mirrors the server's login payload
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

// Login authenticates against the service with the OAuth2 password-grant
// form shape and persists the session
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("grant_type", "password")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result loginResponse
	if err := decodeEnvelope(resp, &result); err != nil {
		return nil, err
	}

	c.session.set(result.AccessToken, &result.User)
	return c.session.CurrentUser(), nil
}

// Logout clears the session. It is idempotent; logging out twice is fine.
func (c *Client) Logout() {
	c.session.Clear()
}

// Me fetches the authenticated user from the server and refreshes the
// session copy
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}

	c.session.mu.Lock()
	c.session.user = &user
	c.session.mu.Unlock()
	return &user, nil
}
