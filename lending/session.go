package lending

import (
	"context"

	"github.com/google/uuid"
)

// Session is the explicit caller identity for lending engine calls.
//
// The session travels with the context rather than living in any process-wide
// "current user" state, so the engines never depend on ambient identity.
// Engines use the session for audit logging only - the acting patron of a
// loan is always the explicit patronID argument.
type Session struct {
	ID       uuid.UUID
	PatronID PatronIDInt
	Role     Role
}

// NewSession starts a session for the given patron.
func NewSession(patronID PatronIDInt, role Role) Session {
	return Session{
		ID:       uuid.New(),
		PatronID: patronID,
		Role:     role,
	}
}

// contextKey is a private type to prevent context key collisions.
type contextKey string

// sessionKey is the context key used to carry the caller session.
const sessionKey contextKey = "lending.session"

// WithSession returns a context carrying the given session.
//
// Example usage:
//
//	ctx = lending.WithSession(ctx, lending.NewSession(patronID, lending.RoleStaff))
//	loan, err := engine.CreateLoan(ctx, patronID, copyID, borrowDate, nil)
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFrom extracts the session from the context.
// The second return value reports whether a session was present; engines
// treat calls without a session as anonymous and proceed.
func SessionFrom(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey).(Session)
	return session, ok
}
