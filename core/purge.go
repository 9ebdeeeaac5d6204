package core

import (
	"context"
	"time"
)

// PurgeExpiredSessions deletes sessions whose expiry has passed, in
// batches. Resolve already rejects expired rows; this is housekeeping,
// not enforcement.
func (s *Service) PurgeExpiredSessions(ctx context.Context, now time.Time, batch int) (int64, error) {
	if s.db == nil {
		return 0, errNotConfigured
	}
	if batch <= 0 {
		batch = 500
	}
	tag, err := s.db.Exec(ctx, `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM sessions
			WHERE expires_at < $1
			ORDER BY expires_at ASC
			LIMIT $2
		)`, now, batch)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeSpentAuthTokens deletes one-time tokens that are expired or were
// redeemed before the cutoff. Used rows are kept for the retention window
// so a spent link can still be classified as "already used" for support.
func (s *Service) PurgeSpentAuthTokens(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if s.db == nil {
		return 0, errNotConfigured
	}
	if batch <= 0 {
		batch = 500
	}
	tag, err := s.db.Exec(ctx, `
		DELETE FROM auth_tokens
		WHERE id IN (
			SELECT id FROM auth_tokens
			WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)
			ORDER BY expires_at ASC
			LIMIT $2
		)`, cutoff, batch)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
