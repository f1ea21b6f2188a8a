package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/repository"
)

type Decision string

const (
	GrantFree      Decision = "grant_free"
	RequirePayment Decision = "require_payment"
)

// Result is the outcome of a policy decision. CoveringOrderID is set when a
// successful, not-yet-used payment order can pay for the next submission.
type Result struct {
	Decision        Decision   `json:"decision"`
	FreeLeadsUsed   bool       `json:"free_leads_used"`
	CoveringOrderID *uuid.UUID `json:"covering_order_id,omitempty"`
}

// ProfileReader loads the entitlement flag.
type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// OrderFinder locates a successful order that has not been spent yet.
type OrderFinder interface {
	FindUnconsumedSuccess(ctx context.Context, userID uuid.UUID) (*models.PaymentOrder, error)
}

// FreeConsumer performs the atomic false -> true flip of the free flag.
type FreeConsumer interface {
	ConsumeFreeAllotment(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// Policy decides whether the account's next submission is free.
type Policy interface {
	Decide(ctx context.Context, accountID uuid.UUID) (Result, error)
}

// FlagPolicy grants free only while the flag is unset.
type FlagPolicy struct {
	Profiles ProfileReader
}

func (p FlagPolicy) Decide(ctx context.Context, accountID uuid.UUID) (Result, error) {
	prof, err := p.Profiles.GetByID(ctx, accountID)
	if err != nil {
		return Result{Decision: RequirePayment}, fmt.Errorf("load profile: %w", err)
	}
	if !prof.FreeLeadsUsed {
		return Result{Decision: GrantFree}, nil
	}
	return Result{Decision: RequirePayment, FreeLeadsUsed: true}, nil
}

// PaymentHistoryPolicy additionally looks for an unspent successful order
// once the free allotment is gone.
type PaymentHistoryPolicy struct {
	Profiles ProfileReader
	Orders   OrderFinder
}

func (p PaymentHistoryPolicy) Decide(ctx context.Context, accountID uuid.UUID) (Result, error) {
	res, err := FlagPolicy{Profiles: p.Profiles}.Decide(ctx, accountID)
	if err != nil || res.Decision == GrantFree {
		return res, err
	}
	order, err := p.Orders.FindUnconsumedSuccess(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("find paid order: %w", err)
	}
	res.CoveringOrderID = &order.ID
	return res, nil
}

// NewPolicy returns the policy named by ENTITLEMENT_POLICY.
func NewPolicy(name string, profiles ProfileReader, orders OrderFinder) (Policy, error) {
	switch name {
	case "flag-only":
		return FlagPolicy{Profiles: profiles}, nil
	case "payment-history", "":
		return PaymentHistoryPolicy{Profiles: profiles, Orders: orders}, nil
	}
	return nil, fmt.Errorf("unknown entitlement policy %q", name)
}
