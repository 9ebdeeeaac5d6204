package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB is the minimal query interface the service needs. Both *pgxpool.Pool
// and pgxmock.PgxPoolIface satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// rowQuerier is satisfied by DB and pgx.Tx; helpers that must run both
// inside and outside a transaction take it instead of DB.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmailSender delivers magic-link and password-reset email. Delivery is an
// external collaborator; coursekit builds the links and hands them over.
type EmailSender interface {
	SendMagicLink(ctx context.Context, email, name, link string) error
	SendPasswordReset(ctx context.Context, email, name, link string) error
}

// CheckoutProvider creates a hosted checkout for a pending purchase and
// returns the URL the customer is redirected to. Implementations wrap
// Stripe, Cryptomus, Airwallex, or a dev stub.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (redirectURL string, err error)
}

// CheckoutRequest carries everything a provider needs to open a checkout.
type CheckoutRequest struct {
	Provider    string
	OrderRef    string
	Email       string
	ProductID   string
	AmountCents int64
}

// Service is the credential, session, and entitlement core used by the
// HTTP adapters. All state lives in Postgres; the service itself holds no
// per-request memory.
type Service struct {
	opts     Options
	db       DB
	email    EmailSender
	payments CheckoutProvider
	log      zerolog.Logger
}

func NewService(opts Options) *Service {
	return &Service{opts: opts, log: zerolog.Nop()}
}

// NewFromConfig resolves defaults and constructs a Service.
func NewFromConfig(cfg Config) *Service {
	return NewService(optionsFromConfig(cfg))
}

// Options exposes the resolved configuration.
func (s *Service) Options() Options { return s.opts }

// WithPostgres attaches a pgx pool to the service.
func (s *Service) WithPostgres(pool *pgxpool.Pool) *Service { s.db = pool; return s }

// WithDB attaches any DB implementation (tests use pgxmock).
func (s *Service) WithDB(db DB) *Service { s.db = db; return s }

// WithEmailSender sets the email collaborator.
func (s *Service) WithEmailSender(es EmailSender) *Service { s.email = es; return s }

// WithCheckoutProvider sets the payment collaborator.
func (s *Service) WithCheckoutProvider(p CheckoutProvider) *Service { s.payments = p; return s }

// WithLogger sets the structured logger (defaults to a no-op logger).
func (s *Service) WithLogger(log zerolog.Logger) *Service { s.log = log; return s }

// HasEmailSender reports whether an email sender is configured.
func (s *Service) HasEmailSender() bool { return s.email != nil }

var errNotConfigured = errors.New("postgres not configured")

// --- Principals ---

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"

	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// User is a customer account. PasswordHash is nil until a password has
// been set or adopted on first login.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash *string
	Status       string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin is a dashboard account.
type Admin struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash *string
	Status       string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrincipalKind tags which branch of a Principal is populated.
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalAdmin PrincipalKind = "admin"
)

// Principal is the resolved owner of a session: exactly one branch is set.
type Principal struct {
	Kind  PrincipalKind
	User  *User
	Admin *Admin
}

const userColumns = `id, email, full_name, password_hash, status, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Status, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, NormalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*User, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	return s.getUserByID(ctx, s.db, id)
}

func (s *Service) getUserByID(ctx context.Context, q rowQuerier, id string) (*User, error) {
	row := q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

const adminColumns = `id, email, full_name, role, password_hash, status, last_login_at, created_at, updated_at`

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	if err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.Role, &a.PasswordHash, &a.Status, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	row := s.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE email=$1`, NormalizeEmail(email))
	a, err := scanAdmin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Service) GetAdminByID(ctx context.Context, id string) (*Admin, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	return s.getAdminByID(ctx, s.db, id)
}

func (s *Service) getAdminByID(ctx context.Context, q rowQuerier, id string) (*Admin, error) {
	row := q.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id=$1`, id)
	a, err := scanAdmin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// createUser provisions a customer account lazily (first magic-link
// redemption). Runs inside the redemption transaction.
func (s *Service) createUser(ctx context.Context, q rowQuerier, email, fullName string) (*User, error) {
	row := q.QueryRow(ctx,
		`INSERT INTO users (email, full_name, status) VALUES ($1, $2, $3) RETURNING `+userColumns,
		NormalizeEmail(email), fullName, StatusActive)
	return scanUser(row)
}

func (s *Service) setUserLastLogin(ctx context.Context, q execer, id string, t time.Time) error {
	_, err := q.Exec(ctx, `UPDATE users SET last_login_at=$2, updated_at=now() WHERE id=$1`, id, t)
	return err
}

func (s *Service) setAdminLastLogin(ctx context.Context, q execer, id string, t time.Time) error {
	_, err := q.Exec(ctx, `UPDATE admin_users SET last_login_at=$2, updated_at=now() WHERE id=$1`, id, t)
	return err
}

// execer is satisfied by DB and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// HardDeleteUser exists to refuse. Principal rows are never hard-deleted
// by automated code; disabling is the only supported removal.
func (s *Service) HardDeleteUser(ctx context.Context, id string) error {
	s.log.Error().Str("user_id", id).Msg("refusing hard delete of protected principal row")
	return ErrProtectedDelete
}

// HardDeleteAdmin exists to refuse, same as HardDeleteUser.
func (s *Service) HardDeleteAdmin(ctx context.Context, id string) error {
	s.log.Error().Str("admin_id", id).Msg("refusing hard delete of protected principal row")
	return ErrProtectedDelete
}

// --- helpers ---

// NormalizeEmail lower-cases and trims an email address. Every email that
// touches storage or a lookup goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// randToken returns a URL-safe opaque token with 32 bytes of entropy.
func randToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// hashToken is the at-rest form of session and one-time tokens; plaintext
// never hits a table.
func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	out := make([]byte, len(sum))
	copy(out, sum[:])
	return out
}
