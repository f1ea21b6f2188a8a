package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknova/leadgen/internal/models"
)

type PaymentOrderRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentOrderRepo(pool *pgxpool.Pool) *PaymentOrderRepo {
	return &PaymentOrderRepo{pool: pool}
}

const paymentOrderColumns = `id, user_id, user_email, package_id, amount, currency, status, leads_count,
	gateway_order_id, payment_id, signature, customer_phone, lead_request_id, created_at, updated_at`

func scanPaymentOrder(row pgx.Row) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.PackageID, &o.Amount, &o.Currency, &o.Status, &o.LeadsCount,
		&o.GatewayOrderID, &o.PaymentID, &o.Signature, &o.CustomerPhone, &o.LeadRequestID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func scanPaymentOrders(rows pgx.Rows) ([]*models.PaymentOrder, error) {
	defer rows.Close()
	var list []*models.PaymentOrder
	for rows.Next() {
		o, err := scanPaymentOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Create inserts a new order in status created.
func (r *PaymentOrderRepo) Create(ctx context.Context, o *models.PaymentOrder) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_orders (user_id, user_email, package_id, amount, currency, status, leads_count)
		VALUES ($1, $2, $3, $4, $5, 'created', $6)
		RETURNING id, status, created_at, updated_at
	`, o.UserID, o.UserEmail, o.PackageID, o.Amount, o.Currency, o.LeadsCount).
		Scan(&o.ID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
}

func (r *PaymentOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	return scanPaymentOrder(r.pool.QueryRow(ctx, `SELECT `+paymentOrderColumns+` FROM payment_orders WHERE id = $1`, id))
}

func (r *PaymentOrderRepo) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_orders SET gateway_order_id = $2, updated_at = now() WHERE id = $1
	`, id, gatewayOrderID)
	return err
}

// MarkSuccess records the gateway's completion. Only a created order can
// succeed; the bool reports whether the row transitioned.
func (r *PaymentOrderRepo) MarkSuccess(ctx context.Context, id uuid.UUID, paymentID, signature string, phone *string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_orders
		SET status = 'success', payment_id = $2, signature = $3, customer_phone = COALESCE($4, customer_phone), updated_at = now()
		WHERE id = $1 AND status = 'created'
	`, id, paymentID, signature, phone)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves a created order to failed.
func (r *PaymentOrderRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_orders SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status = 'created'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser returns the account's orders, newest first.
func (r *PaymentOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PaymentOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentOrderColumns+`
		FROM payment_orders WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanPaymentOrders(rows)
}

// FindUnconsumedSuccess returns the oldest successful order not yet linked to a lead request.
func (r *PaymentOrderRepo) FindUnconsumedSuccess(ctx context.Context, userID uuid.UUID) (*models.PaymentOrder, error) {
	return scanPaymentOrder(r.pool.QueryRow(ctx, `
		SELECT `+paymentOrderColumns+`
		FROM payment_orders
		WHERE user_id = $1 AND status = 'success' AND lead_request_id IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`, userID))
}

// LinkToLeadRequestTx consumes a successful order for one lead request.
// The conditional UPDATE guarantees an order covers at most one request.
func (r *PaymentOrderRepo) LinkToLeadRequestTx(ctx context.Context, tx pgx.Tx, orderID, userID, leadRequestID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE payment_orders SET lead_request_id = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'success' AND lead_request_id IS NULL
	`, orderID, userID, leadRequestID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListMissingPhone returns orders that have a gateway payment but no captured phone.
func (r *PaymentOrderRepo) ListMissingPhone(ctx context.Context) ([]*models.PaymentOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentOrderColumns+`
		FROM payment_orders
		WHERE payment_id IS NOT NULL AND (customer_phone IS NULL OR customer_phone = '')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return scanPaymentOrders(rows)
}

func (r *PaymentOrderRepo) SetCustomerPhone(ctx context.Context, id uuid.UUID, phone string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_orders SET customer_phone = $2, updated_at = now() WHERE id = $1
	`, id, phone)
	return err
}

// GetByPaymentID returns the order the gateway payment belongs to, if owned by userID.
func (r *PaymentOrderRepo) GetByPaymentID(ctx context.Context, userID uuid.UUID, paymentID string) (*models.PaymentOrder, error) {
	return scanPaymentOrder(r.pool.QueryRow(ctx, `
		SELECT `+paymentOrderColumns+` FROM payment_orders WHERE payment_id = $1 AND user_id = $2
	`, paymentID, userID))
}
