package contacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tasknova/leadgen/internal/models"
)

var ErrValidation = errors.New("validation failed")

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ListStore interface {
	Create(ctx context.Context, l *models.ContactList) error
	GetOwned(ctx context.Context, userID, id uuid.UUID) (*models.ContactList, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ContactList, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type ContactStore interface {
	ListByList(ctx context.Context, userID, listID uuid.UUID, query string) ([]*models.Contact, error)
	Emails(ctx context.Context, listID uuid.UUID) (map[string]struct{}, error)
	Create(ctx context.Context, c *models.Contact) error
	CopyTx(ctx context.Context, tx pgx.Tx, contacts []*models.Contact) (int64, error)
	DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type Service struct {
	db       TxBeginner
	lists    ListStore
	contacts ContactStore
	log      *slog.Logger
}

func NewService(db TxBeginner, lists ListStore, contacts ContactStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{db: db, lists: lists, contacts: contacts, log: log}
}

type NewList struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) CreateList(ctx context.Context, userID uuid.UUID, in NewList) (*models.ContactList, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	l := &models.ContactList{UserID: userID, Name: name, Description: in.Description}
	if err := s.lists.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create contact list: %w", err)
	}
	return l, nil
}

func (s *Service) Lists(ctx context.Context, userID uuid.UUID) ([]*models.ContactList, error) {
	return s.lists.ListByUser(ctx, userID)
}

func (s *Service) DeleteList(ctx context.Context, userID, listID uuid.UUID) error {
	return s.lists.Delete(ctx, userID, listID)
}

func (s *Service) Contacts(ctx context.Context, userID, listID uuid.UUID, query string) ([]*models.Contact, error) {
	if _, err := s.lists.GetOwned(ctx, userID, listID); err != nil {
		return nil, err
	}
	return s.contacts.ListByList(ctx, userID, listID, strings.TrimSpace(query))
}

type NewContact struct {
	Email        string            `json:"email"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	CustomFields map[string]string `json:"custom_fields"`
}

func (s *Service) AddContact(ctx context.Context, userID, listID uuid.UUID, in NewContact) (*models.Contact, error) {
	list, err := s.lists.GetOwned(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	row := ImportRow{
		Email:        strings.TrimSpace(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		CustomFields: in.CustomFields,
	}
	if row.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !ValidEmail(row.Email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if row.CustomFields == nil {
		row.CustomFields = map[string]string{}
	}
	c := row.contact(list)
	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

func (s *Service) DeleteContacts(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids are required", ErrValidation)
	}
	return s.contacts.DeleteMany(ctx, userID, ids)
}

type ImportPreview struct {
	Rows      []ImportRow `json:"rows"`
	Valid     int         `json:"valid"`
	Invalid   int         `json:"invalid"`
	Duplicate int         `json:"duplicate"`
}

func (s *Service) parse(ctx context.Context, userID, listID uuid.UUID, data []byte) (*models.ContactList, []ImportRow, error) {
	list, err := s.lists.GetOwned(ctx, userID, listID)
	if err != nil {
		return nil, nil, err
	}
	existing, err := s.contacts.Emails(ctx, listID)
	if err != nil {
		return nil, nil, fmt.Errorf("load existing emails: %w", err)
	}
	rows, err := ParseImport(bytes.NewReader(data), existing)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return list, rows, nil
}

// Preview classifies each CSV row without writing anything.
func (s *Service) Preview(ctx context.Context, userID, listID uuid.UUID, data []byte) (*ImportPreview, error) {
	_, rows, err := s.parse(ctx, userID, listID, data)
	if err != nil {
		return nil, err
	}
	p := &ImportPreview{Rows: rows}
	for _, r := range rows {
		switch r.Status {
		case RowValid:
			p.Valid++
		case RowInvalid:
			p.Invalid++
		case RowDuplicate:
			p.Duplicate++
		}
	}
	if p.Rows == nil {
		p.Rows = []ImportRow{}
	}
	return p, nil
}

type ImportResult struct {
	Imported int64 `json:"imported"`
	Skipped  int   `json:"skipped"`
}

// Import writes the valid rows of a CSV in one transaction.
func (s *Service) Import(ctx context.Context, userID, listID uuid.UUID, data []byte) (*ImportResult, error) {
	list, rows, err := s.parse(ctx, userID, listID, data)
	if err != nil {
		return nil, err
	}
	var valid []*models.Contact
	for _, r := range rows {
		if r.Status == RowValid {
			valid = append(valid, r.contact(list))
		}
	}
	res := &ImportResult{Skipped: len(rows) - len(valid)}
	if len(valid) == 0 {
		return res, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if res.Imported, err = s.contacts.CopyTx(ctx, tx, valid); err != nil {
		return nil, fmt.Errorf("copy contacts: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.log.Info("contacts imported", "list_id", listID, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// Export renders every contact in the list as CSV and returns the
// attachment filename.
func (s *Service) Export(ctx context.Context, userID, listID uuid.UUID) (string, []byte, error) {
	list, err := s.lists.GetOwned(ctx, userID, listID)
	if err != nil {
		return "", nil, err
	}
	all, err := s.contacts.ListByList(ctx, userID, listID, "")
	if err != nil {
		return "", nil, err
	}
	buf, err := exportBuffer(all)
	if err != nil {
		return "", nil, err
	}
	return ExportFilename(list.Name), buf.Bytes(), nil
}
