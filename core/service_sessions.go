package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ClientMeta is optional request metadata recorded on a session row.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// CreateUserSession mints an opaque bearer token for a user and stores its
// hash. The plaintext token is returned exactly once.
func (s *Service) CreateUserSession(ctx context.Context, userID string, meta ClientMeta) (token string, expiresAt time.Time, err error) {
	if s.db == nil {
		return "", time.Time{}, errNotConfigured
	}
	return s.insertSession(ctx, s.db, &userID, nil, s.opts.UserSessionTTL, meta)
}

// CreateAdminSession mints a bearer token for an admin with the shorter
// admin TTL.
func (s *Service) CreateAdminSession(ctx context.Context, adminID string, meta ClientMeta) (token string, expiresAt time.Time, err error) {
	if s.db == nil {
		return "", time.Time{}, errNotConfigured
	}
	return s.insertSession(ctx, s.db, nil, &adminID, s.opts.AdminSessionTTL, meta)
}

func (s *Service) insertSession(ctx context.Context, q rowQuerier, userID, adminID *string, ttl time.Duration, meta ClientMeta) (string, time.Time, error) {
	token := randToken()
	exp := time.Now().Add(ttl)
	var id string
	err := q.QueryRow(ctx,
		`INSERT INTO sessions (token_hash, user_id, admin_id, expires_at, ip, user_agent)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id`,
		hashToken(token), userID, adminID, exp, meta.IP, meta.UserAgent).Scan(&id)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Resolve maps a bearer token to its principal. It is the single
// chokepoint every authenticated handler goes through. Absent, expired,
// and integrity-violating sessions all fail closed with ErrUnauthorized,
// as do sessions whose principal has been disabled.
func (s *Service) Resolve(ctx context.Context, token string) (*Principal, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}
	var userID, adminID *string
	var expiresAt time.Time
	row := s.db.QueryRow(ctx,
		`SELECT user_id, admin_id, expires_at FROM sessions WHERE token_hash=$1`, hashToken(token))
	if err := row.Scan(&userID, &adminID, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	// Expired rows may still exist until the purge job runs; reject
	// regardless of row presence.
	if !expiresAt.After(time.Now()) {
		return nil, ErrUnauthorized
	}
	switch {
	case userID != nil && adminID == nil:
		u, err := s.getUserByID(ctx, s.db, *userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, err
		}
		if u.Status != StatusActive {
			return nil, ErrUnauthorized
		}
		return &Principal{Kind: PrincipalUser, User: u}, nil
	case adminID != nil && userID == nil:
		a, err := s.getAdminByID(ctx, s.db, *adminID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, err
		}
		if a.Status != StatusActive {
			return nil, ErrUnauthorized
		}
		return &Principal{Kind: PrincipalAdmin, Admin: a}, nil
	default:
		// A session owned by both or neither principal type is a
		// data-integrity violation.
		s.log.Warn().Msg("session row violates single-owner invariant, failing closed")
		return nil, ErrUnauthorized
	}
}

// RevokeSession deletes the session for a bearer token. Revoking an
// absent token is not an error, so logout is always safe to repeat.
func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if s.db == nil {
		return errNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash=$1`, hashToken(token))
	return err
}

// RevokeUserSessions deletes every session owned by a user. Used by the
// disable and admin set-password paths.
func (s *Service) RevokeUserSessions(ctx context.Context, userID string) error {
	if s.db == nil {
		return errNotConfigured
	}
	return s.revokeUserSessions(ctx, s.db, userID)
}

func (s *Service) revokeUserSessions(ctx context.Context, q execer, userID string) error {
	_, err := q.Exec(ctx, `DELETE FROM sessions WHERE user_id=$1`, userID)
	return err
}

func (s *Service) revokeAdminSessions(ctx context.Context, q execer, adminID string) error {
	_, err := q.Exec(ctx, `DELETE FROM sessions WHERE admin_id=$1`, adminID)
	return err
}

// revokeUserSessionsExcept deletes a user's sessions except the one
// behind keepToken. An empty keepToken matches nothing, so every session
// goes.
func (s *Service) revokeUserSessionsExcept(ctx context.Context, q execer, userID, keepToken string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM sessions WHERE user_id=$1 AND token_hash <> $2`, userID, hashToken(keepToken))
	return err
}

func (s *Service) revokeAdminSessionsExcept(ctx context.Context, q execer, adminID, keepToken string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM sessions WHERE admin_id=$1 AND token_hash <> $2`, adminID, hashToken(keepToken))
	return err
}
