package core

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUserActive_DisableRevokesSessionsAndEnrollments(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET status=\$2`).
		WithArgs("u1", StatusDisabled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE user_id=\$1`).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`UPDATE enrollments SET status=\$2`).
		WithArgs("u1", EntitlementRevoked, EntitlementActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, svc.SetUserActive(context.Background(), "u1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUserActive_ReenableLeavesEnrollmentsRevoked(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET status=\$2`).
		WithArgs("u1", StatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, svc.SetUserActive(context.Background(), "u1", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUserActive_UnknownUser(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET status=\$2`).
		WithArgs("nope", StatusDisabled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.SetUserActive(context.Background(), "nope", false), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminSetUserPassword(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs("u1").
		WillReturnRows(userRow(mock, "u1", "a@example.com", nil, StatusActive))
	mock.ExpectExec(`UPDATE users SET password_hash=\$2`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE user_id=\$1`).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, svc.AdminSetUserPassword(context.Background(), "u1", "newpass123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminSetUserPassword_TooShort(t *testing.T) {
	svc, _ := newTestService(t)
	assert.ErrorIs(t, svc.AdminSetUserPassword(context.Background(), "u1", "short"), ErrInvalidInput)
}

func TestRequireSuperAdmin(t *testing.T) {
	assert.NoError(t, RequireSuperAdmin(&Admin{Role: RoleSuperAdmin}))
	assert.ErrorIs(t, RequireSuperAdmin(&Admin{Role: RoleAdmin}), ErrForbidden)
	assert.ErrorIs(t, RequireSuperAdmin(nil), ErrForbidden)
}

func TestHardDeleteRefused(t *testing.T) {
	svc, mock := newTestService(t)

	// No SQL expectations: the guard must refuse before touching the DB.
	assert.ErrorIs(t, svc.HardDeleteUser(context.Background(), "u1"), ErrProtectedDelete)
	assert.ErrorIs(t, svc.HardDeleteAdmin(context.Background(), "a1"), ErrProtectedDelete)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredSessions(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectExec(`DELETE FROM sessions`).
		WithArgs(now, 100).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := svc.PurgeExpiredSessions(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeSpentAuthTokens_DefaultBatch(t *testing.T) {
	svc, mock := newTestService(t)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM auth_tokens`).
		WithArgs(cutoff, 500).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := svc.PurgeSpentAuthTokens(context.Background(), cutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
