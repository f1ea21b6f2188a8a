package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknova/leadgen/internal/models"
)

type ContactListRepo struct {
	pool *pgxpool.Pool
}

func NewContactListRepo(pool *pgxpool.Pool) *ContactListRepo {
	return &ContactListRepo{pool: pool}
}

const contactListColumns = `id, user_id, name, description, total_contacts, created_at, updated_at`

func scanContactList(row pgx.Row) (*models.ContactList, error) {
	var l models.ContactList
	if err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Description, &l.TotalContacts, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *ContactListRepo) Create(ctx context.Context, l *models.ContactList) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO contact_lists (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, total_contacts, created_at, updated_at
	`, l.UserID, l.Name, l.Description).Scan(&l.ID, &l.TotalContacts, &l.CreatedAt, &l.UpdatedAt)
}

func (r *ContactListRepo) GetOwned(ctx context.Context, userID, id uuid.UUID) (*models.ContactList, error) {
	return scanContactList(r.pool.QueryRow(ctx,
		`SELECT `+contactListColumns+` FROM contact_lists WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *ContactListRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ContactList, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactListColumns+` FROM contact_lists WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.ContactList
	for rows.Next() {
		l, err := scanContactList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete removes an owned list and, by cascade, its contacts.
func (r *ContactListRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contact_lists WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ContactRepo struct {
	pool *pgxpool.Pool
}

func NewContactRepo(pool *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{pool: pool}
}

const contactColumns = `id, user_id, list_id, email, first_name, last_name, custom_fields, status, created_at`

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.UserID, &c.ListID, &c.Email, &c.FirstName, &c.LastName, &c.CustomFields, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListByList returns the list's contacts, newest first. A non-empty query
// filters on email, first or last name, case-insensitively.
func (r *ContactRepo) ListByList(ctx context.Context, userID, listID uuid.UUID, query string) ([]*models.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE list_id = $1 AND user_id = $2
		  AND ($3 = '' OR email ILIKE '%' || $3 || '%' OR first_name ILIKE '%' || $3 || '%' OR last_name ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
	`, listID, userID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Emails returns the lower-cased emails already stored in a list.
func (r *ContactRepo) Emails(ctx context.Context, listID uuid.UUID) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT lower(email) FROM contacts WHERE list_id = $1`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out[e] = struct{}{}
	}
	return out, rows.Err()
}

func (r *ContactRepo) Create(ctx context.Context, c *models.Contact) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO contacts (user_id, list_id, email, first_name, last_name, custom_fields, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, c.UserID, c.ListID, c.Email, c.FirstName, c.LastName, c.CustomFields, c.Status).Scan(&c.ID, &c.CreatedAt)
}

// CopyTx bulk-inserts contacts inside tx and returns the number written.
func (r *ContactRepo) CopyTx(ctx context.Context, tx pgx.Tx, contacts []*models.Contact) (int64, error) {
	return tx.CopyFrom(ctx,
		pgx.Identifier{"contacts"},
		[]string{"user_id", "list_id", "email", "first_name", "last_name", "custom_fields", "status"},
		pgx.CopyFromSlice(len(contacts), func(i int) ([]any, error) {
			c := contacts[i]
			return []any{c.UserID, c.ListID, c.Email, c.FirstName, c.LastName, c.CustomFields, c.Status}, nil
		}),
	)
}

// DeleteMany removes the caller's contacts among ids and reports how many went.
func (r *ContactRepo) DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
