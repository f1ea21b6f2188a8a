package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknova/leadgen/internal/models"
)

type LeadRequestRepo struct {
	pool *pgxpool.Pool
}

func NewLeadRequestRepo(pool *pgxpool.Pool) *LeadRequestRepo {
	return &LeadRequestRepo{pool: pool}
}

const leadRequestColumns = `id, user_id, user_email, COALESCE(user_name, ''), lead_description, status,
	is_free_request, lead_count, json_data, json_url, downloadable_url, created_at, updated_at`

func scanLeadRequest(row pgx.Row) (*models.LeadRequest, error) {
	var lr models.LeadRequest
	err := row.Scan(&lr.ID, &lr.UserID, &lr.UserEmail, &lr.UserName, &lr.LeadDescription, &lr.Status,
		&lr.IsFreeRequest, &lr.LeadCount, &lr.JSONData, &lr.JSONURL, &lr.DownloadableURL, &lr.CreatedAt, &lr.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &lr, nil
}

// CreateTx inserts the request inside the submitter's transaction. lr.ID must be set.
func (r *LeadRequestRepo) CreateTx(ctx context.Context, tx pgx.Tx, lr *models.LeadRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO lead_requests (id, user_id, user_email, user_name, lead_description, status, is_free_request, lead_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, lr.ID, lr.UserID, lr.UserEmail, lr.UserName, lr.LeadDescription, lr.Status, lr.IsFreeRequest, lr.LeadCount).
		Scan(&lr.CreatedAt, &lr.UpdatedAt)
}

func (r *LeadRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.LeadRequest, error) {
	return scanLeadRequest(r.pool.QueryRow(ctx, `SELECT `+leadRequestColumns+` FROM lead_requests WHERE id = $1`, id))
}

// GetOwned returns the request only if userID owns it.
func (r *LeadRequestRepo) GetOwned(ctx context.Context, userID, id uuid.UUID) (*models.LeadRequest, error) {
	return scanLeadRequest(r.pool.QueryRow(ctx,
		`SELECT `+leadRequestColumns+` FROM lead_requests WHERE id = $1 AND user_id = $2`, id, userID))
}

// ListByUser returns the account's requests, newest first.
func (r *LeadRequestRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LeadRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadRequestColumns+`
		FROM lead_requests WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LeadRequest
	for rows.Next() {
		lr, err := scanLeadRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, lr)
	}
	return list, rows.Err()
}

// ResultUpdate carries the fields the automation may write back.
type ResultUpdate struct {
	Status          string
	JSONData        json.RawMessage
	JSONURL         *string
	DownloadableURL *string
}

// UpdateResult applies an automation callback. Nil fields keep their stored value.
func (r *LeadRequestRepo) UpdateResult(ctx context.Context, id uuid.UUID, u ResultUpdate) (*models.LeadRequest, error) {
	var data any
	if len(u.JSONData) > 0 {
		data = u.JSONData
	}
	return scanLeadRequest(r.pool.QueryRow(ctx, `
		UPDATE lead_requests SET
			status = $2,
			json_data = COALESCE($3, json_data),
			json_url = COALESCE($4, json_url),
			downloadable_url = COALESCE($5, downloadable_url),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadRequestColumns, id, u.Status, data, u.JSONURL, u.DownloadableURL))
}
