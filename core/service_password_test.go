package core

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pwhash "github.com/open-rails/coursekit/password"
)

func bcryptOf(t *testing.T, plain string) *string {
	t.Helper()
	h, err := pwhash.Hash(plain, pwhash.CostLogin)
	require.NoError(t, err)
	return &h
}

func TestLoginUser_Success(t *testing.T) {
	svc, mock := newTestService(t)
	hash := bcryptOf(t, "hunter22")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email=\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRow(mock, "u1", "alice@example.com", hash, StatusActive))
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectExec(`UPDATE users SET last_login_at`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	token, _, u, err := svc.LoginUser(context.Background(), "Alice@Example.com ", "hunter22", ClientMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "u1", u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUser_WrongPassword(t *testing.T) {
	svc, mock := newTestService(t)
	hash := bcryptOf(t, "hunter22")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email=\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRow(mock, "u1", "alice@example.com", hash, StatusActive))

	_, _, _, err := svc.LoginUser(context.Background(), "alice@example.com", "not-it", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUser_UnknownAndDisabledLookAlike(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email=\$1`).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)
	_, _, _, err := svc.LoginUser(context.Background(), "ghost@example.com", "whatever", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	hash := bcryptOf(t, "whatever")
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email=\$1`).
		WithArgs("off@example.com").
		WillReturnRows(userRow(mock, "u2", "off@example.com", hash, StatusDisabled))
	_, _, _, err = svc.LoginUser(context.Background(), "off@example.com", "whatever", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUser_EmptyPassword(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, _, err := svc.LoginUser(context.Background(), "alice@example.com", "", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginUser_FirstLoginAdoption(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email=\$1`).
		WithArgs("new@example.com").
		WillReturnRows(userRow(mock, "u3", "new@example.com", nil, StatusActive))
	mock.ExpectExec(`UPDATE users SET password_hash=\$2, updated_at=now\(\) WHERE id=\$1 AND password_hash IS NULL`).
		WithArgs("u3", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectExec(`UPDATE users SET last_login_at`).
		WithArgs("u3", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	token, _, _, err := svc.LoginUser(context.Background(), "new@example.com", "freshpass1", ClientMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUser_AdoptionRaceLoser(t *testing.T) {
	svc, mock := newTestService(t)
	winnerHash := bcryptOf(t, "winnerpass")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email=\$1`).
		WithArgs("raced@example.com").
		WillReturnRows(userRow(mock, "u4", "raced@example.com", nil, StatusActive))
	// Another login adopted a password first; the conditional update misses.
	mock.ExpectExec(`UPDATE users SET password_hash=\$2, updated_at=now\(\) WHERE id=\$1 AND password_hash IS NULL`).
		WithArgs("u4", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs("u4").
		WillReturnRows(userRow(mock, "u4", "raced@example.com", winnerHash, StatusActive))

	_, _, _, err := svc.LoginUser(context.Background(), "raced@example.com", "loserpass", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAdmin_NoPasswordNeverAdopts(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT (.+) FROM admin_users WHERE email=\$1`).
		WithArgs("root@example.com").
		WillReturnRows(adminRow(mock, "a1", "root@example.com", RoleAdmin, nil, StatusActive))

	_, _, _, err := svc.LoginAdmin(context.Background(), "root@example.com", "anything", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeUserPassword_RequiresCurrent(t *testing.T) {
	svc, mock := newTestService(t)
	hash := bcryptOf(t, "oldpass99")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs("u1").
		WillReturnRows(userRow(mock, "u1", "a@example.com", hash, StatusActive))
	err := svc.ChangeUserPassword(context.Background(), "u1", "", "newpass99", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs("u1").
		WillReturnRows(userRow(mock, "u1", "a@example.com", hash, StatusActive))
	err = svc.ChangeUserPassword(context.Background(), "u1", "wrong", "newpass99", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeUserPassword_TooShort(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.ChangeUserPassword(context.Background(), "u1", "oldpass99", "short", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangeUserPassword_Success(t *testing.T) {
	svc, mock := newTestService(t)
	hash := bcryptOf(t, "oldpass99")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs("u1").
		WillReturnRows(userRow(mock, "u1", "a@example.com", hash, StatusActive))
	mock.ExpectExec(`UPDATE users SET password_hash=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// Other sessions die with the old password; the current one stays.
	mock.ExpectExec(`DELETE FROM sessions WHERE user_id=\$1 AND token_hash <> \$2`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, svc.ChangeUserPassword(context.Background(), "u1", "oldpass99", "brandnew99", "current-token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeUserPassword_NoExistingHash(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs("u1").
		WillReturnRows(userRow(mock, "u1", "a@example.com", nil, StatusActive))
	mock.ExpectExec(`UPDATE users SET password_hash=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE user_id=\$1 AND token_hash <> \$2`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, svc.ChangeUserPassword(context.Background(), "u1", "", "brandnew99", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeAdminPassword_Success(t *testing.T) {
	svc, mock := newTestService(t)
	hash := bcryptOf(t, "oldpass99")

	mock.ExpectQuery(`SELECT (.+) FROM admin_users WHERE id=\$1`).
		WithArgs("a1").
		WillReturnRows(adminRow(mock, "a1", "root@example.com", RoleAdmin, hash, StatusActive))
	mock.ExpectExec(`UPDATE admin_users SET password_hash=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs("a1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE admin_id=\$1 AND token_hash <> \$2`).
		WithArgs("a1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, svc.ChangeAdminPassword(context.Background(), "a1", "oldpass99", "brandnew99", "current-token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeAdminPassword_WrongCurrent(t *testing.T) {
	svc, mock := newTestService(t)
	hash := bcryptOf(t, "oldpass99")

	mock.ExpectQuery(`SELECT (.+) FROM admin_users WHERE id=\$1`).
		WithArgs("a1").
		WillReturnRows(adminRow(mock, "a1", "root@example.com", RoleAdmin, hash, StatusActive))
	err := svc.ChangeAdminPassword(context.Background(), "a1", "nope", "brandnew99", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}
