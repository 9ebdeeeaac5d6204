package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Entitlement and purchase statuses.
const (
	EntitlementActive    = "active"
	EntitlementRevoked   = "revoked"
	EntitlementPending   = "pending"
	EntitlementCompleted = "completed"

	PurchasePending   = "pending"
	PurchaseCompleted = "completed"

	// ProviderAdminGranted tags zero-amount purchases created by an admin
	// grant, distinguishing them from paid ones.
	ProviderAdminGranted = "admin_granted"
)

// Course is a sellable course.
type Course struct {
	ID    string
	Title string
}

// Product is a sellable product (one-off purchase).
type Product struct {
	ID         string
	Name       string
	PriceCents int64
}

// Enrollment links a user to a course.
type Enrollment struct {
	ID          string
	UserID      string
	CourseID    string
	CourseTitle string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PurchaseResult reports the outcome of a purchase confirmation.
type PurchaseResult struct {
	PurchaseID       string
	AlreadyConfirmed bool
}

// CheckoutResult is returned to the caller initiating a checkout.
type CheckoutResult struct {
	OrderRef    string
	RedirectURL string
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// GrantCourseAccess gives a user active access to a course. A second
// grant for the same (user, course) pair updates the existing row in
// place; the unique index guarantees at most one row per pair.
func (s *Service) GrantCourseAccess(ctx context.Context, userID, courseID string) error {
	if s.db == nil {
		return errNotConfigured
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO enrollments (user_id, course_id, status)
         VALUES ($1, $2, $3)
         ON CONFLICT (user_id, course_id)
         DO UPDATE SET status=$3, updated_at=now()`,
		userID, courseID, EntitlementActive)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// GrantProductAccess records a zero-amount completed purchase for a user,
// tagged with its provenance. Fails with ErrAlreadyGranted when a
// completed purchase already exists for the pair.
func (s *Service) GrantProductAccess(ctx context.Context, userID, productID, providerTag string) error {
	if s.db == nil {
		return errNotConfigured
	}
	if providerTag == "" {
		providerTag = ProviderAdminGranted
	}
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id=$1 AND product_id=$2 AND status=$3)`,
		userID, productID, PurchaseCompleted).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyGranted
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO purchases (user_id, product_id, status, amount_cents, provider, order_ref, completed_at)
         VALUES ($1, $2, $3, 0, $4, $5, now())`,
		userID, productID, PurchaseCompleted, providerTag, uuid.NewString())
	if isUniqueViolation(err) {
		// A concurrent grant or payment callback won the insert race.
		return ErrAlreadyGranted
	}
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// ConfirmPurchase reconciles a pending purchase into completed. If no
// pending row exists (a provider callback arriving without a prior
// checkout), a completed purchase is inserted directly. Calling it again
// after completion reports AlreadyConfirmed instead of erroring or
// duplicating; completed never reverts.
func (s *Service) ConfirmPurchase(ctx context.Context, userID, productID, orderRef, provider string) (*PurchaseResult, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx,
		`UPDATE purchases SET status=$4, completed_at=now()
         WHERE user_id=$1 AND product_id=$2 AND status=$3
         RETURNING id`,
		userID, productID, PurchasePending, PurchaseCompleted).Scan(&id)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return &PurchaseResult{PurchaseID: id}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`SELECT id FROM purchases WHERE user_id=$1 AND product_id=$2 AND status=$3`,
		userID, productID, PurchaseCompleted).Scan(&id)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return &PurchaseResult{PurchaseID: id, AlreadyConfirmed: true}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	if orderRef == "" {
		orderRef = uuid.NewString()
	}
	var amount int64
	if err := tx.QueryRow(ctx, `SELECT price_cents FROM products WHERE id=$1`, productID).Scan(&amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO purchases (user_id, product_id, status, amount_cents, provider, order_ref, completed_at)
         VALUES ($1, $2, $3, $4, $5, $6, now())
         RETURNING id`,
		userID, productID, PurchaseCompleted, amount, provider, orderRef).Scan(&id)
	if isUniqueViolation(err) {
		// The partial unique index caught a concurrent confirmation.
		return &PurchaseResult{AlreadyConfirmed: true}, nil
	}
	if isForeignKeyViolation(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &PurchaseResult{PurchaseID: id}, nil
}

// CreateCheckout records a durable pending purchase and asks the payment
// collaborator for a redirect URL. The pending row is the correlation
// record the provider callback reconciles against; it survives instance
// restarts, unlike the in-memory map it replaces. Provider failure leaves
// the pending row in place for manual retry and surfaces ErrDependency.
func (s *Service) CreateCheckout(ctx context.Context, user *User, productID, provider string) (*CheckoutResult, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	if s.payments == nil {
		return nil, ErrDependency
	}
	var product Product
	err := s.db.QueryRow(ctx, `SELECT id, name, price_cents FROM products WHERE id=$1`, productID).
		Scan(&product.ID, &product.Name, &product.PriceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id=$1 AND product_id=$2 AND status=$3)`,
		user.ID, productID, PurchaseCompleted).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyGranted
	}

	// Reuse an open pending purchase before creating another.
	var orderRef string
	err = s.db.QueryRow(ctx,
		`SELECT order_ref FROM purchases WHERE user_id=$1 AND product_id=$2 AND status=$3 ORDER BY created_at DESC LIMIT 1`,
		user.ID, productID, PurchasePending).Scan(&orderRef)
	if errors.Is(err, pgx.ErrNoRows) {
		orderRef = uuid.NewString()
		_, err = s.db.Exec(ctx,
			`INSERT INTO purchases (user_id, product_id, status, amount_cents, provider, order_ref)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			user.ID, productID, PurchasePending, product.PriceCents, provider, orderRef)
	}
	if err != nil {
		return nil, err
	}

	redirect, err := s.payments.CreateCheckout(ctx, CheckoutRequest{
		Provider:    provider,
		OrderRef:    orderRef,
		Email:       user.Email,
		ProductID:   product.ID,
		AmountCents: product.PriceCents,
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("provider", provider).
			Str("order_ref", orderRef).
			Str("product_id", product.ID).
			Msg("checkout provider failed, pending purchase kept for retry")
		return nil, fmt.Errorf("%w: checkout provider: %v", ErrDependency, err)
	}
	return &CheckoutResult{OrderRef: orderRef, RedirectURL: redirect}, nil
}

// FindPurchaseByOrderRef resolves a provider callback's order reference
// to its owning (user, product) pair.
func (s *Service) FindPurchaseByOrderRef(ctx context.Context, orderRef string) (userID, productID string, err error) {
	if s.db == nil {
		return "", "", errNotConfigured
	}
	err = s.db.QueryRow(ctx,
		`SELECT user_id, product_id FROM purchases WHERE order_ref=$1`, orderRef).
		Scan(&userID, &productID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return userID, productID, err
}

// ListUserCourses returns the user's active enrollments with course
// titles for the portal.
func (s *Service) ListUserCourses(ctx context.Context, userID string) ([]Enrollment, error) {
	if s.db == nil {
		return nil, errNotConfigured
	}
	rows, err := s.db.Query(ctx,
		`SELECT e.id, e.user_id, e.course_id, c.title, e.status, e.created_at, e.updated_at
         FROM enrollments e
         JOIN courses c ON c.id = e.course_id
         WHERE e.user_id=$1 AND e.status=$2
         ORDER BY e.created_at`,
		userID, EntitlementActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.CourseTitle, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
