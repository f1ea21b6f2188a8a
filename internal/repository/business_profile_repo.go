package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknova/leadgen/internal/models"
)

type BusinessProfileRepo struct {
	pool *pgxpool.Pool
}

func NewBusinessProfileRepo(pool *pgxpool.Pool) *BusinessProfileRepo {
	return &BusinessProfileRepo{pool: pool}
}

func (r *BusinessProfileRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *BusinessProfileRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.BusinessProfile, error) {
	var bp models.BusinessProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, business_name, role, industry, employee_count, business_goal,
		       referral_sources, phone, created_at, updated_at
		FROM business_profiles WHERE user_id = $1
	`, userID).Scan(&bp.ID, &bp.UserID, &bp.BusinessName, &bp.Role, &bp.Industry, &bp.EmployeeCount,
		&bp.BusinessGoal, &bp.ReferralSources, &bp.Phone, &bp.CreatedAt, &bp.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &bp, nil
}

// UpsertTx creates or replaces the account's single business profile.
func (r *BusinessProfileRepo) UpsertTx(ctx context.Context, tx pgx.Tx, bp *models.BusinessProfile) error {
	return tx.QueryRow(ctx, `
		INSERT INTO business_profiles
			(user_id, business_name, role, industry, employee_count, business_goal, referral_sources, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			business_name    = EXCLUDED.business_name,
			role             = EXCLUDED.role,
			industry         = EXCLUDED.industry,
			employee_count   = EXCLUDED.employee_count,
			business_goal    = EXCLUDED.business_goal,
			referral_sources = EXCLUDED.referral_sources,
			phone            = EXCLUDED.phone,
			updated_at       = now()
		RETURNING id, created_at, updated_at
	`, bp.UserID, bp.BusinessName, bp.Role, bp.Industry, bp.EmployeeCount, bp.BusinessGoal, bp.ReferralSources, bp.Phone).
		Scan(&bp.ID, &bp.CreatedAt, &bp.UpdatedAt)
}
