package domain

// Role distinguishes owner accounts from student accounts.
type Role string

// Account roles.
const (
	RoleOwner   Role = "owner"
	RoleStudent Role = "student"
)

// Session identifies the caller of a domain operation. Every repository call
// receives it explicitly; there is no ambient current user.
type Session struct {
	OwnerID   string
	UserID    string
	Email     string
	Role      Role
	StudentID string
}

// OwnerSession builds a session for an owner account.
func OwnerSession(ownerID string) Session {
	return Session{OwnerID: ownerID, UserID: ownerID, Role: RoleOwner}
}

// Authenticated returns ErrNotAuthenticated when the session has no owner scope.
func (s Session) Authenticated() error {
	if s.OwnerID == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// Owns reports whether a record with the given owner id is visible to the session.
func (s Session) Owns(ownerID string) bool {
	return s.OwnerID != "" && s.OwnerID == ownerID
}

// RequireOwner returns ErrNotAuthenticated for anonymous sessions and
// ErrForbidden for non-owner accounts.
func (s Session) RequireOwner() error {
	if err := s.Authenticated(); err != nil {
		return err
	}
	if s.Role != RoleOwner {
		return ErrForbidden
	}
	return nil
}
