package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknova/leadgen/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const profileColumns = `id, COALESCE(email, ''), full_name, avatar_url, phone, free_leads_used, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Phone, &p.FreeLeadsUsed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CreateTx inserts the profile for a freshly registered account.
func (r *ProfileRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.Profile) error {
	return tx.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name)
		VALUES ($1, $2, $3)
		RETURNING free_leads_used, created_at, updated_at
	`, p.ID, p.Email, p.FullName).Scan(&p.FreeLeadsUsed, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// Update writes the user-editable display fields.
func (r *ProfileRepo) Update(ctx context.Context, p *models.Profile) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET full_name = $2, phone = $3, avatar_url = $4, updated_at = now()
		WHERE id = $1
	`, p.ID, p.FullName, p.Phone, p.AvatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPhoneTx copies the onboarding phone onto the profile.
func (r *ProfileRepo) SetPhoneTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, phone string) error {
	_, err := tx.Exec(ctx, `UPDATE profiles SET phone = $2, updated_at = now() WHERE id = $1`, id, phone)
	return err
}

// ConsumeFreeAllotment flips free_leads_used from false to true in a single
// conditional UPDATE. It reports whether this call performed the flip; a
// concurrent caller that lost the race gets false.
func (r *ProfileRepo) ConsumeFreeAllotment(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE profiles SET free_leads_used = TRUE, updated_at = now()
		WHERE id = $1 AND free_leads_used = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
