package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tasknova/leadgen/internal/metrics"
	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/razorpay"
	"github.com/tasknova/leadgen/internal/repository"
)

const (
	CheckoutName        = "Tasknova Lead Generator"
	CheckoutDescription = "Lead Generation Service"
)

var (
	ErrUnknownPackage   = errors.New("unknown package")
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrOrderNotPayable is returned when an order has already left the created state.
	ErrOrderNotPayable = errors.New("order is not awaiting payment")
)

// Gateway is the payment provider; *razorpay.Client implements it.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, in razorpay.CreateOrderInput) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.PaymentOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error)
	GetByPaymentID(ctx context.Context, userID uuid.UUID, paymentID string) (*models.PaymentOrder, error)
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
	MarkSuccess(ctx context.Context, id uuid.UUID, paymentID, signature string, phone *string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PaymentOrder, error)
	ListMissingPhone(ctx context.Context) ([]*models.PaymentOrder, error)
	SetCustomerPhone(ctx context.Context, id uuid.UUID, phone string) error
}

type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Checkout carries what the client widget needs to open a payment.
type Checkout struct {
	OrderID        uuid.UUID `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	KeyID          string    `json:"key_id"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Prefill        Prefill   `json:"prefill"`
}

type VerifyResult struct {
	Verified      bool    `json:"verified"`
	Message       string  `json:"message"`
	CustomerPhone *string `json:"customer_phone,omitempty"`
}

type PaymentDetails struct {
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Method    string `json:"method"`
	CreatedAt int64  `json:"created_at"`
}

type BackfillReport struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

type Service struct {
	orders   OrderRepo
	profiles ProfileReader
	gateway  Gateway
	log      *slog.Logger
}

func NewService(orders OrderRepo, profiles ProfileReader, gateway Gateway, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{orders: orders, profiles: profiles, gateway: gateway, log: log}
}

// CreateOrder records a created order for the package and registers it with
// the gateway.
func (s *Service) CreateOrder(ctx context.Context, accountID uuid.UUID, packageID string) (*Checkout, error) {
	pkg, ok := LookupPackage(packageID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, packageID)
	}
	prof, err := s.profiles.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	o := &models.PaymentOrder{
		UserID:     accountID,
		UserEmail:  prof.Email,
		PackageID:  pkg.ID,
		Amount:     pkg.Amount,
		Currency:   pkg.Currency,
		LeadsCount: pkg.Leads,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	gw, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderInput{
		Amount:   pkg.Amount,
		Currency: pkg.Currency,
		Receipt:  o.ID.String(),
		Notes:    map[string]string{"package_id": pkg.ID, "user_id": accountID.String()},
	})
	if err != nil {
		if _, markErr := s.orders.MarkFailed(ctx, o.ID); markErr != nil {
			s.log.Error("mark order failed after gateway error", "order_id", o.ID, "error", markErr)
		}
		return nil, fmt.Errorf("gateway order: %w", err)
	}
	if err := s.orders.SetGatewayOrderID(ctx, o.ID, gw.ID); err != nil {
		return nil, fmt.Errorf("store gateway order: %w", err)
	}
	metrics.RecordPayment(models.PaymentStatusCreated)
	s.log.Info("payment order created", "order_id", o.ID, "account_id", accountID, "package_id", pkg.ID)
	return &Checkout{
		OrderID:        o.ID,
		GatewayOrderID: gw.ID,
		KeyID:          s.gateway.KeyID(),
		Amount:         pkg.Amount,
		Currency:       pkg.Currency,
		Name:           CheckoutName,
		Description:    CheckoutDescription,
		Prefill:        Prefill{Name: prof.DisplayName(), Email: prof.Email},
	}, nil
}

// ownedOrder loads an order and hides other accounts' orders as not found.
func (s *Service) ownedOrder(ctx context.Context, accountID, orderID uuid.UUID) (*models.PaymentOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != accountID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

// Verify handles the checkout success callback. A bad signature fails the
// order; a good one moves it from created to success with the payer phone.
func (s *Service) Verify(ctx context.Context, accountID, orderID uuid.UUID, paymentID, signature string) (*VerifyResult, error) {
	o, err := s.ownedOrder(ctx, accountID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.PaymentStatusCreated {
		return nil, ErrOrderNotPayable
	}
	gatewayOrderID := ""
	if o.GatewayOrderID != nil {
		gatewayOrderID = *o.GatewayOrderID
	}
	if paymentID == "" || gatewayOrderID == "" || !s.gateway.VerifyPaymentSignature(gatewayOrderID, paymentID, signature) {
		if _, err := s.orders.MarkFailed(ctx, o.ID); err != nil {
			return nil, fmt.Errorf("mark failed: %w", err)
		}
		metrics.RecordPayment(models.PaymentStatusFailed)
		s.log.Warn("payment signature mismatch", "order_id", o.ID, "account_id", accountID)
		return &VerifyResult{Verified: false, Message: "Payment verification failed"}, ErrInvalidSignature
	}

	var phone *string
	if p, err := s.gateway.FetchPayment(ctx, paymentID); err != nil {
		s.log.Warn("fetch payment details failed", "order_id", o.ID, "error", err)
	} else if p.Contact != "" {
		phone = &p.Contact
	}

	ok, err := s.orders.MarkSuccess(ctx, o.ID, paymentID, signature, phone)
	if err != nil {
		return nil, fmt.Errorf("mark success: %w", err)
	}
	if !ok {
		return nil, ErrOrderNotPayable
	}
	metrics.RecordPayment(models.PaymentStatusSuccess)
	s.log.Info("payment verified", "order_id", o.ID, "account_id", accountID)
	return &VerifyResult{Verified: true, Message: "Payment verified successfully", CustomerPhone: phone}, nil
}

// Dismiss handles the checkout being closed without paying. The order stays
// created; no transition happens.
func (s *Service) Dismiss(ctx context.Context, accountID, orderID uuid.UUID) (*models.PaymentOrder, error) {
	o, err := s.ownedOrder(ctx, accountID, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("checkout dismissed", "order_id", o.ID, "status", o.Status)
	return o, nil
}

// Fail records a gateway-reported failure.
func (s *Service) Fail(ctx context.Context, accountID, orderID uuid.UUID, reason string) error {
	o, err := s.ownedOrder(ctx, accountID, orderID)
	if err != nil {
		return err
	}
	ok, err := s.orders.MarkFailed(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if !ok {
		return ErrOrderNotPayable
	}
	metrics.RecordPayment(models.PaymentStatusFailed)
	s.log.Info("payment failed", "order_id", o.ID, "reason", reason)
	return nil
}

func (s *Service) ListOrders(ctx context.Context, accountID uuid.UUID) ([]*models.PaymentOrder, error) {
	return s.orders.ListByUser(ctx, accountID)
}

// Details fetches gateway details for a payment the account owns.
func (s *Service) Details(ctx context.Context, accountID uuid.UUID, paymentID string) (*PaymentDetails, error) {
	if _, err := s.orders.GetByPaymentID(ctx, accountID, paymentID); err != nil {
		return nil, err
	}
	p, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &PaymentDetails{
		Phone:     p.Contact,
		Email:     p.Email,
		Name:      p.Name,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    p.Status,
		Method:    p.Method,
		CreatedAt: p.CreatedAt,
	}, nil
}

// BackfillPhones fills customer_phone on paid orders that lack it. Per-order
// failures are collected and do not stop the run.
func (s *Service) BackfillPhones(ctx context.Context) (*BackfillReport, error) {
	orders, err := s.orders.ListMissingPhone(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	report := &BackfillReport{Errors: []string{}}
	for _, o := range orders {
		if o.PaymentID == nil {
			continue
		}
		p, err := s.gateway.FetchPayment(ctx, *o.PaymentID)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", o.ID, err))
			continue
		}
		if p.Contact == "" {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: no contact on payment %s", o.ID, p.ID))
			continue
		}
		if err := s.orders.SetCustomerPhone(ctx, o.ID, p.Contact); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", o.ID, err))
			continue
		}
		report.Updated++
	}
	s.log.Info("phone backfill finished", "updated", report.Updated, "failed", report.Failed)
	return report, nil
}
