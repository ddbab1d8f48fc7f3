package client

// GuardState is the outcome of a route-protection check
type GuardState int

const (
	// GuardLoading means the persisted session has not been restored yet;
	// callers should wait, not redirect
	GuardLoading GuardState = iota
	// GuardLogin means there is no session; callers should send the user
	// to the login flow
	GuardLogin
	// GuardDenied means a session exists but lacks every required role
	GuardDenied
	// GuardAllowed means access is granted
	GuardAllowed
)

func (s GuardState) String() string {
	switch s {
	case GuardLoading:
		return "loading"
	case GuardLogin:
		return "login"
	case GuardDenied:
		return "denied"
	case GuardAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// GuardResult carries the decision plus, when denied, the roles that would
// have granted access so the caller can name them in the denial message
type GuardResult struct {
	State         GuardState
	RequiredRoles []string
}

// Guard decides whether the current session may access a resource gated by
// requiredRoles. With no required roles any authenticated session passes.
// Restore is resolved at most once per client; until then the result is
// GuardLoading and no redirect decision should be taken.
func (c *Client) Guard(requiredRoles ...string) GuardResult {
	s := c.session
	if !s.Restored() {
		return GuardResult{State: GuardLoading, RequiredRoles: requiredRoles}
	}
	if !s.IsAuthenticated() {
		return GuardResult{State: GuardLogin, RequiredRoles: requiredRoles}
	}
	if len(requiredRoles) > 0 && !s.CurrentUser().HasAnyRole(requiredRoles...) {
		return GuardResult{State: GuardDenied, RequiredRoles: requiredRoles}
	}
	return GuardResult{State: GuardAllowed, RequiredRoles: requiredRoles}
}
