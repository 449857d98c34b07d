package moderation

import "time"

// Scope names gating operations.  A token's scope set must be a
// superset of an operation's required scopes to proceed.
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"
)

// Token is the decoded identity token payload the pipeline consumes.
// It is stateless and never persisted: Scopes determine privilege,
// IssuedAt anchors the age-based rate-limit window, and Subject is the
// opaque per-session identifier used only for abuse correlation.
type Token struct {
	Scopes   []string
	IssuedAt time.Time
	Subject  string
}

// HasScope reports whether the token carries the given scope.  A nil
// token has no scopes.
func (t *Token) HasScope(scope string) bool {
	if t == nil {
		return false
	}
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the token carries the admin scope.
func (t *Token) IsAdmin() bool { return t.HasScope(ScopeAdmin) }

// Authorize checks that the token covers every required scope.  A
// missing token fails with an authentication error; a token lacking a
// scope fails with an authorization error.  Absence of scopes is never
// an error by itself; only scope-gated operations end up here.
func Authorize(t *Token, required ...string) error {
	if len(required) == 0 {
		return nil
	}
	if t == nil {
		return Authentication("authentication required")
	}
	for _, scope := range required {
		if !t.HasScope(scope) {
			return Authorization("insufficient scope")
		}
	}
	return nil
}
