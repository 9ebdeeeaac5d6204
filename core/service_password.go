package core

import (
	"context"
	"errors"
	"time"

	pwhash "github.com/open-rails/coursekit/password"
)

// LoginUser verifies email+password credentials and mints a user session.
//
// If the account has no stored password hash, the supplied password is
// adopted as the permanent password (first-login adoption). This is a
// deliberate UX shortcut for accounts provisioned by the purchase flow;
// it is security-sensitive (whoever logs in first claims the account) and
// is logged at WARN whenever it fires. Two concurrent first logins race;
// the single-row conditional update makes exactly one writer win and the
// loser falls back to normal verification.
func (s *Service) LoginUser(ctx context.Context, email, pass string, meta ClientMeta) (token string, expiresAt time.Time, user *User, err error) {
	if s.db == nil {
		return "", time.Time{}, nil, errNotConfigured
	}
	if pass == "" {
		return "", time.Time{}, nil, ErrInvalidInput
	}
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Same failure for unknown account and wrong password.
			return "", time.Time{}, nil, ErrInvalidCredentials
		}
		return "", time.Time{}, nil, err
	}
	if u.Status != StatusActive {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	if u.PasswordHash == nil {
		adopted, aerr := s.adoptPassword(ctx, u.ID, pass)
		if aerr != nil {
			return "", time.Time{}, nil, aerr
		}
		if adopted {
			s.log.Warn().Str("user_id", u.ID).Msg("password adopted on first login for passwordless account")
		} else {
			// Lost the adoption race; verify against whatever won.
			u, err = s.GetUserByID(ctx, u.ID)
			if err != nil {
				return "", time.Time{}, nil, err
			}
			if u.PasswordHash == nil || !pwhash.Verify(*u.PasswordHash, pass) {
				return "", time.Time{}, nil, ErrInvalidCredentials
			}
		}
	} else if !pwhash.Verify(*u.PasswordHash, pass) {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	token, expiresAt, err = s.CreateUserSession(ctx, u.ID, meta)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	_ = s.setUserLastLogin(ctx, s.db, u.ID, time.Now())
	return token, expiresAt, u, nil
}

// adoptPassword sets the first password for a hash-less account. The
// WHERE password_hash IS NULL guard is what decides the concurrent
// first-login race.
func (s *Service) adoptPassword(ctx context.Context, userID, pass string) (bool, error) {
	phc, err := pwhash.Hash(pass, pwhash.CostLogin)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1 AND password_hash IS NULL`,
		userID, phc)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// LoginAdmin verifies admin credentials and mints an admin session.
// Admin accounts never adopt a first-login password; an admin with no
// hash cannot log in until one is set via reset or by a super admin.
func (s *Service) LoginAdmin(ctx context.Context, email, pass string, meta ClientMeta) (token string, expiresAt time.Time, admin *Admin, err error) {
	if s.db == nil {
		return "", time.Time{}, nil, errNotConfigured
	}
	if pass == "" {
		return "", time.Time{}, nil, ErrInvalidInput
	}
	a, err := s.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, nil, ErrInvalidCredentials
		}
		return "", time.Time{}, nil, err
	}
	if a.Status != StatusActive || a.PasswordHash == nil || !pwhash.Verify(*a.PasswordHash, pass) {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	token, expiresAt, err = s.CreateAdminSession(ctx, a.ID, meta)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	_ = s.setAdminLastLogin(ctx, s.db, a.ID, time.Now())
	return token, expiresAt, a, nil
}

// ChangeUserPassword sets a new password for a user. If a password is
// already stored, current must verify first; otherwise the new password
// is set unconditionally (covers accounts that never had one). Every
// other session of the user is revoked afterwards; keepToken preserves
// the session performing the change.
func (s *Service) ChangeUserPassword(ctx context.Context, userID, current, newPass, keepToken string) error {
	if s.db == nil {
		return errNotConfigured
	}
	if err := pwhash.Validate(newPass); err != nil {
		return ErrInvalidInput
	}
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash != nil {
		if current == "" || !pwhash.Verify(*u.PasswordHash, current) {
			return ErrInvalidCredentials
		}
	}
	if err := s.setUserPassword(ctx, s.db, userID, newPass); err != nil {
		return err
	}
	return s.revokeUserSessionsExcept(ctx, s.db, userID, keepToken)
}

// ChangeAdminPassword is ChangeUserPassword for admin accounts.
func (s *Service) ChangeAdminPassword(ctx context.Context, adminID, current, newPass, keepToken string) error {
	if s.db == nil {
		return errNotConfigured
	}
	if err := pwhash.Validate(newPass); err != nil {
		return ErrInvalidInput
	}
	a, err := s.GetAdminByID(ctx, adminID)
	if err != nil {
		return err
	}
	if a.PasswordHash != nil {
		if current == "" || !pwhash.Verify(*a.PasswordHash, current) {
			return ErrInvalidCredentials
		}
	}
	if err := s.setAdminPassword(ctx, s.db, adminID, newPass); err != nil {
		return err
	}
	return s.revokeAdminSessionsExcept(ctx, s.db, adminID, keepToken)
}

func (s *Service) setUserPassword(ctx context.Context, q execer, userID, newPass string) error {
	phc, err := pwhash.Hash(newPass, pwhash.CostReset)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, userID, phc)
	return err
}

func (s *Service) setAdminPassword(ctx context.Context, q execer, adminID, newPass string) error {
	phc, err := pwhash.Hash(newPass, pwhash.CostReset)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `UPDATE admin_users SET password_hash=$2, updated_at=now() WHERE id=$1`, adminID, phc)
	return err
}
