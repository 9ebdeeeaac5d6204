package core

import (
	"context"

	pwhash "github.com/open-rails/coursekit/password"
)

// SetUserActive enables or disables a user account. Disabling is the
// soft-delete path: within one transaction the status flips, every
// session is revoked, and active course entitlements are set to revoked.
// Re-enabling only flips the status back; entitlements stay revoked until
// an admin grants them again.
func (s *Service) SetUserActive(ctx context.Context, userID string, active bool) error {
	if s.db == nil {
		return errNotConfigured
	}
	status := StatusDisabled
	if active {
		status = StatusActive
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE users SET status=$2, updated_at=now() WHERE id=$1`, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if !active {
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id=$1`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE enrollments SET status=$2, updated_at=now() WHERE user_id=$1 AND status=$3`,
			userID, EntitlementRevoked, EntitlementActive); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// AdminSetUserPassword sets a user's password unconditionally (including
// for accounts that never had one) and revokes the user's sessions so a
// possibly compromised credential cannot keep riding an old session.
func (s *Service) AdminSetUserPassword(ctx context.Context, userID, newPass string) error {
	if s.db == nil {
		return errNotConfigured
	}
	if err := pwhash.Validate(newPass); err != nil {
		return ErrInvalidInput
	}
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.setUserPassword(ctx, s.db, userID, newPass); err != nil {
		return err
	}
	return s.RevokeUserSessions(ctx, userID)
}

// RequireSuperAdmin gates operations reserved for the super_admin role.
func RequireSuperAdmin(a *Admin) error {
	if a == nil || a.Role != RoleSuperAdmin {
		return ErrForbidden
	}
	return nil
}
