package onboarding

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tasknova/leadgen/internal/models"
)

var ErrValidation = errors.New("validation failed")

//go:embed business_profile.schema.json
var businessProfileSchemaJSON string

var businessProfileSchema = jsonschema.MustCompileString("https://tasknova.io/schemas/business_profile", businessProfileSchemaJSON)

// Input is the onboarding form as submitted.
type Input struct {
	BusinessName    string   `json:"business_name"`
	Role            string   `json:"role"`
	Industry        string   `json:"industry"`
	EmployeeCount   *int     `json:"employee_count"`
	BusinessGoal    *string  `json:"business_goal"`
	ReferralSources []string `json:"referral_sources"`
	Phone           string   `json:"phone"`
}

func (in Input) normalize() Input {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.BusinessGoal != nil {
		g := strings.TrimSpace(*in.BusinessGoal)
		if g == "" {
			in.BusinessGoal = nil
		} else {
			in.BusinessGoal = &g
		}
	}
	if in.ReferralSources == nil {
		in.ReferralSources = []string{}
	}
	return in
}

// Validate checks the form against the embedded business profile schema.
func (in Input) Validate() error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := businessProfileSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type BusinessProfileStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.BusinessProfile, error)
	UpsertTx(ctx context.Context, tx pgx.Tx, bp *models.BusinessProfile) error
}

type PhoneSetter interface {
	SetPhoneTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, phone string) error
}

type Service struct {
	db       TxBeginner
	store    BusinessProfileStore
	profiles PhoneSetter
	log      *slog.Logger
}

func NewService(db TxBeginner, store BusinessProfileStore, profiles PhoneSetter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{db: db, store: store, profiles: profiles, log: log}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.BusinessProfile, error) {
	return s.store.GetByUser(ctx, userID)
}

// Save upserts the business profile and copies its phone onto the account
// profile in the same transaction.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, in Input) (*models.BusinessProfile, error) {
	in = in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	bp := &models.BusinessProfile{
		UserID:          userID,
		BusinessName:    in.BusinessName,
		Role:            in.Role,
		Industry:        in.Industry,
		EmployeeCount:   in.EmployeeCount,
		BusinessGoal:    in.BusinessGoal,
		ReferralSources: in.ReferralSources,
		Phone:           in.Phone,
	}
	if err := s.store.UpsertTx(ctx, tx, bp); err != nil {
		return nil, fmt.Errorf("upsert business profile: %w", err)
	}
	if err := s.profiles.SetPhoneTx(ctx, tx, userID, bp.Phone); err != nil {
		return nil, fmt.Errorf("copy phone: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.log.Info("business profile saved", "account_id", userID, "industry", bp.Industry)
	return bp, nil
}
