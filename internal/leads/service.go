package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tasknova/leadgen/internal/entitlement"
	"github.com/tasknova/leadgen/internal/metrics"
	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/notify"
	"github.com/tasknova/leadgen/internal/repository"
	"github.com/tasknova/leadgen/internal/targeting"
)

var (
	// ErrRequirePayment means neither the free allotment nor a paid order covers the submission.
	ErrRequirePayment = errors.New("payment required")
	ErrInvalidStatus  = errors.New("status is required")
)

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error)
	LinkToLeadRequestTx(ctx context.Context, tx pgx.Tx, orderID, userID, leadRequestID uuid.UUID) (bool, error)
}

type LeadRequestStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, lr *models.LeadRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LeadRequest, error)
	UpdateResult(ctx context.Context, id uuid.UUID, u repository.ResultUpdate) (*models.LeadRequest, error)
}

// Entitlements is the subset of *entitlement.Service the submitter uses.
type Entitlements interface {
	Check(ctx context.Context, accountID uuid.UUID) entitlement.Result
	ConsumeFree(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error)
}

// InsertNotifyTxFunc enqueues the automation notification within the given
// transaction. Provided by main using river.Client.InsertTx.
type InsertNotifyTxFunc func(ctx context.Context, tx pgx.Tx, args notify.AutomationArgs) error

// InsertLeadReadyFunc enqueues the completion email. Nil disables it.
type InsertLeadReadyFunc func(ctx context.Context, args notify.LeadReadyArgs) error

// LeadCounts are the allotment sizes recorded on new requests.
type LeadCounts struct {
	Free int
	Paid int
}

type SubmitInput struct {
	AccountID      uuid.UUID
	Description    targeting.Description
	PaymentOrderID *uuid.UUID
}

type SubmitResult struct {
	LeadRequest  *models.LeadRequest `json:"lead_request"`
	Notification string              `json:"notification"`
}

type Service struct {
	db           TxBeginner
	profiles     ProfileReader
	orders       OrderStore
	requests     LeadRequestStore
	entitlements Entitlements
	insertNotify InsertNotifyTxFunc
	insertReady  InsertLeadReadyFunc
	counts       LeadCounts
	log          *slog.Logger
}

type Deps struct {
	DB              TxBeginner
	Profiles        ProfileReader
	Orders          OrderStore
	Requests        LeadRequestStore
	Entitlements    Entitlements
	InsertNotify    InsertNotifyTxFunc
	InsertLeadReady InsertLeadReadyFunc
	Counts          LeadCounts
	Log             *slog.Logger
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Counts.Free <= 0 {
		d.Counts.Free = 10
	}
	if d.Counts.Paid <= 0 {
		d.Counts.Paid = 100
	}
	return &Service{
		db:           d.DB,
		profiles:     d.Profiles,
		orders:       d.Orders,
		requests:     d.Requests,
		entitlements: d.Entitlements,
		insertNotify: d.InsertNotify,
		insertReady:  d.InsertLeadReady,
		counts:       d.Counts,
		log:          d.Log,
	}
}

// Submit persists one lead request and queues its notification. The free
// flag flip or the paid order link, the insert and the enqueue share one
// transaction, so no entitlement is spent without a stored request.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	desc := in.Description.Normalize()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	encoded, err := desc.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode description: %w", err)
	}
	prof, err := s.profiles.GetByID(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	lr := &models.LeadRequest{
		ID:              uuid.New(),
		UserID:          in.AccountID,
		UserEmail:       prof.Email,
		UserName:        prof.DisplayName(),
		LeadDescription: encoded,
		Status:          models.LeadStatusRunning,
	}

	decision := s.entitlements.Check(ctx, in.AccountID)
	if decision.Decision == entitlement.GrantFree {
		flipped, err := s.entitlements.ConsumeFree(ctx, tx, in.AccountID)
		if err != nil {
			return nil, fmt.Errorf("consume free allotment: %w", err)
		}
		lr.IsFreeRequest = flipped
	}

	var order *models.PaymentOrder
	if lr.IsFreeRequest {
		lr.LeadCount = s.counts.Free
	} else {
		orderID := in.PaymentOrderID
		if orderID == nil {
			orderID = decision.CoveringOrderID
		}
		if orderID == nil {
			return nil, ErrRequirePayment
		}
		order, err = s.orders.GetByID(ctx, *orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequirePayment
		}
		if err != nil {
			return nil, fmt.Errorf("load payment order: %w", err)
		}
		if order.UserID != in.AccountID || order.Status != models.PaymentStatusSuccess || order.LeadRequestID != nil {
			return nil, ErrRequirePayment
		}
		lr.LeadCount = order.LeadsCount
		if lr.LeadCount <= 0 {
			lr.LeadCount = s.counts.Paid
		}
	}

	if err := s.requests.CreateTx(ctx, tx, lr); err != nil {
		return nil, fmt.Errorf("insert lead request: %w", err)
	}
	if order != nil {
		linked, err := s.orders.LinkToLeadRequestTx(ctx, tx, order.ID, in.AccountID, lr.ID)
		if err != nil {
			return nil, fmt.Errorf("link payment order: %w", err)
		}
		if !linked {
			return nil, ErrRequirePayment
		}
	}

	args := notify.AutomationArgs{Payload: notify.AutomationPayload{
		ID:              lr.ID,
		LeadDescription: desc.Readable(),
		UserName:        lr.UserName,
		UserEmail:       lr.UserEmail,
		RequestType:     desc.RequestType(),
		IsFreeRequest:   lr.IsFreeRequest,
		LeadCount:       lr.LeadCount,
	}}
	if err := s.insertNotify(ctx, tx, args); err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.RecordLeadRequest(desc.Mode, lr.IsFreeRequest)
	s.log.Info("lead request submitted",
		"lead_request_id", lr.ID, "account_id", in.AccountID, "free", lr.IsFreeRequest, "lead_count", lr.LeadCount)
	return &SubmitResult{LeadRequest: lr, Notification: "queued"}, nil
}

// ApplyResult records what the automation reports. Updates are applied in
// arrival order with no status monotonicity.
func (s *Service) ApplyResult(ctx context.Context, id uuid.UUID, u repository.ResultUpdate) (*models.LeadRequest, error) {
	if u.Status == "" {
		return nil, ErrInvalidStatus
	}
	lr, err := s.requests.UpdateResult(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("lead request updated by automation", "lead_request_id", id, "status", lr.Status)

	if lr.Status == models.LeadStatusCompleted && s.insertReady != nil {
		args := notify.LeadReadyArgs{
			LeadRequestID: lr.ID,
			To:            lr.UserEmail,
			Name:          lr.UserName,
			Summary:       targeting.Parse(lr.LeadDescription).Summary(),
		}
		if lr.DownloadableURL != nil {
			args.DownloadableURL = *lr.DownloadableURL
		}
		if err := s.insertReady(ctx, args); err != nil {
			s.log.Warn("enqueue lead ready email failed", "lead_request_id", lr.ID, "error", err)
		}
	}
	return lr, nil
}
