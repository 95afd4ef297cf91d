package auth

import (
	"context"

	"github.com/geocoder89/admissionhub/internal/domain/user"
)

// Session is either anonymous or authenticated; handlers never see a partial identity.
type Session struct {
	authenticated bool
	id            string
	email         string
	role          user.Role
}

func Anonymous() Session { return Session{} }

func Authenticated(id, email string, role user.Role) Session {
	if id == "" || !role.IsValid() {
		return Session{}
	}
	return Session{authenticated: true, id: id, email: email, role: role}
}

// FromClaims builds a session from verified access-token claims.
func FromClaims(c *Claims) Session {
	if c == nil {
		return Anonymous()
	}
	return Authenticated(c.UserID, c.Email, user.Role(c.Role))
}

func (s Session) IsAuthenticated() bool { return s.authenticated }
func (s Session) UserID() string        { return s.id }
func (s Session) Email() string         { return s.email }
func (s Session) Role() user.Role       { return s.role }

// HasRole is false for anonymous sessions.
func (s Session) HasRole(r user.Role) bool {
	return s.authenticated && s.role == r
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns Anonymous when no session was attached.
func SessionFrom(ctx context.Context) Session {
	s, ok := ctx.Value(sessionKey{}).(Session)
	if !ok {
		return Anonymous()
	}
	return s
}
