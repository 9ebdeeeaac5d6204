package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	pwhash "github.com/open-rails/coursekit/password"
)

// One-time token kinds.
const (
	TokenMagicLink          = "magic_link"
	TokenPasswordReset      = "password_reset"
	TokenAdminPasswordReset = "admin_password_reset"
)

type authToken struct {
	ID      string
	Email   string
	UserID  *string
	AdminID *string
}

// issueToken stores a single-use token and returns its plaintext form.
// userID/adminID may both be nil for magic links addressed to emails that
// have no account yet; redemption provisions the user lazily.
func (s *Service) issueToken(ctx context.Context, kind, email string, userID, adminID *string, ttl time.Duration) (string, error) {
	token := randToken()
	_, err := s.db.Exec(ctx,
		`INSERT INTO auth_tokens (token_hash, kind, email, user_id, admin_id, expires_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		hashToken(token), kind, NormalizeEmail(email), userID, adminID, time.Now().Add(ttl))
	if err != nil {
		return "", err
	}
	return token, nil
}

// consumeToken marks a token used inside tx and returns its owner refs.
// The UPDATE only matches live tokens; a miss is classified by a second
// read so callers can tell the user to request a new link.
func (s *Service) consumeToken(ctx context.Context, tx pgx.Tx, token, kind string) (*authToken, error) {
	var t authToken
	err := tx.QueryRow(ctx,
		`UPDATE auth_tokens SET used_at=now()
         WHERE token_hash=$1 AND kind=$2 AND used_at IS NULL AND expires_at > now()
         RETURNING id, email, user_id, admin_id`,
		hashToken(token), kind).Scan(&t.ID, &t.Email, &t.UserID, &t.AdminID)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var usedAt *time.Time
	var expiresAt time.Time
	err = tx.QueryRow(ctx,
		`SELECT used_at, expires_at FROM auth_tokens WHERE token_hash=$1 AND kind=$2`,
		hashToken(token), kind).Scan(&usedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !expiresAt.After(time.Now()) {
		return nil, ErrExpired
	}
	if usedAt != nil {
		return nil, ErrAlreadyUsed
	}
	return nil, ErrNotFound
}

// RequestMagicLink issues a magic-link token for a known account and
// dispatches the email. Unknown emails are silently ignored so the
// endpoint's response never reveals whether an account exists.
func (s *Service) RequestMagicLink(ctx context.Context, email string) error {
	if s.db == nil {
		return errNotConfigured
	}
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if u.Status != StatusActive {
		return nil
	}
	token, err := s.issueToken(ctx, TokenMagicLink, u.Email, &u.ID, nil, s.opts.MagicLinkTTL)
	if err != nil {
		return err
	}
	return s.deliverMagicLink(ctx, u.Email, u.FullName, token)
}

// SendMagicLink is the admin/purchase-flow variant: it issues a link for
// any email, including ones with no account yet. Redemption provisions
// the user on first use.
func (s *Service) SendMagicLink(ctx context.Context, email, fullName string) error {
	if s.db == nil {
		return errNotConfigured
	}
	norm := NormalizeEmail(email)
	if norm == "" || !strings.Contains(norm, "@") {
		return ErrInvalidInput
	}
	var userID *string
	if u, err := s.GetUserByEmail(ctx, norm); err == nil {
		if u.Status != StatusActive {
			return ErrForbidden
		}
		userID = &u.ID
		if fullName == "" {
			fullName = u.FullName
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	token, err := s.issueToken(ctx, TokenMagicLink, norm, userID, nil, s.opts.MagicLinkTTL)
	if err != nil {
		return err
	}
	return s.deliverMagicLink(ctx, norm, fullName, token)
}

func (s *Service) deliverMagicLink(ctx context.Context, email, name, token string) error {
	link := s.buildLink("/magic", token)
	if !s.HasEmailSender() {
		s.log.Info().Str("email", email).Str("link", link).Msg("dev-email: magic link")
		return nil
	}
	if err := s.email.SendMagicLink(ctx, email, name, link); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("magic link delivery failed")
		return ErrDependency
	}
	return nil
}

// RedeemMagicLink consumes a magic-link token and mints a user session in
// the same transaction, creating the user first if the link was sent to a
// not-yet-provisioned email. Token spend and session creation commit or
// roll back together.
func (s *Service) RedeemMagicLink(ctx context.Context, token string, meta ClientMeta) (sessionToken string, expiresAt time.Time, user *User, err error) {
	if s.db == nil {
		return "", time.Time{}, nil, errNotConfigured
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := s.consumeToken(ctx, tx, token, TokenMagicLink)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if t.UserID != nil {
		user, err = s.getUserByID(ctx, tx, *t.UserID)
		if err != nil {
			return "", time.Time{}, nil, err
		}
		if user.Status != StatusActive {
			return "", time.Time{}, nil, ErrUnauthorized
		}
	} else {
		user, err = s.createUser(ctx, tx, t.Email, "")
		if err != nil {
			return "", time.Time{}, nil, err
		}
	}
	sessionToken, expiresAt, err = s.insertSession(ctx, tx, &user.ID, nil, s.opts.UserSessionTTL, meta)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if err := s.setUserLastLogin(ctx, tx, user.ID, time.Now()); err != nil {
		return "", time.Time{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", time.Time{}, nil, err
	}
	return sessionToken, expiresAt, user, nil
}

// RequestPasswordReset issues a reset token for a known user and sends
// the email. Unknown emails are silently ignored (no enumeration).
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s.db == nil {
		return errNotConfigured
	}
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if u.Status != StatusActive {
		return nil
	}
	token, err := s.issueToken(ctx, TokenPasswordReset, u.Email, &u.ID, nil, s.opts.ResetTokenTTL)
	if err != nil {
		return err
	}
	return s.deliverPasswordReset(ctx, u.Email, u.FullName, "/reset", token)
}

// RequestAdminPasswordReset is the admin flavor; same silence for unknown
// emails.
func (s *Service) RequestAdminPasswordReset(ctx context.Context, email string) error {
	if s.db == nil {
		return errNotConfigured
	}
	a, err := s.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if a.Status != StatusActive {
		return nil
	}
	token, err := s.issueToken(ctx, TokenAdminPasswordReset, a.Email, nil, &a.ID, s.opts.ResetTokenTTL)
	if err != nil {
		return err
	}
	return s.deliverPasswordReset(ctx, a.Email, a.FullName, "/admin/reset", token)
}

func (s *Service) deliverPasswordReset(ctx context.Context, email, name, path, token string) error {
	link := s.buildLink(path, token)
	if !s.HasEmailSender() {
		s.log.Info().Str("email", email).Str("link", link).Msg("dev-email: password reset")
		return nil
	}
	if err := s.email.SendPasswordReset(ctx, email, name, link); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("password reset delivery failed")
		return ErrDependency
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and writes the new password
// hash in the same transaction.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if s.db == nil {
		return errNotConfigured
	}
	if err := pwhash.Validate(newPassword); err != nil {
		return ErrInvalidInput
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := s.consumeToken(ctx, tx, token, TokenPasswordReset)
	if err != nil {
		return err
	}
	if t.UserID == nil {
		return ErrNotFound
	}
	if err := s.setUserPassword(ctx, tx, *t.UserID, newPassword); err != nil {
		return err
	}
	// A reset usually means the old credential is suspect; drop every
	// existing session along with it.
	if err := s.revokeUserSessions(ctx, tx, *t.UserID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ConfirmAdminPasswordReset is ConfirmPasswordReset against admin_users.
func (s *Service) ConfirmAdminPasswordReset(ctx context.Context, token, newPassword string) error {
	if s.db == nil {
		return errNotConfigured
	}
	if err := pwhash.Validate(newPassword); err != nil {
		return ErrInvalidInput
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := s.consumeToken(ctx, tx, token, TokenAdminPasswordReset)
	if err != nil {
		return err
	}
	if t.AdminID == nil {
		return ErrNotFound
	}
	if err := s.setAdminPassword(ctx, tx, *t.AdminID, newPassword); err != nil {
		return err
	}
	if err := s.revokeAdminSessions(ctx, tx, *t.AdminID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) buildLink(path, token string) string {
	base := strings.TrimRight(s.opts.BaseURL, "/")
	return fmt.Sprintf("%s%s?token=%s", base, path, token)
}
