package entitlement

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	policy   Policy
	consumer FreeConsumer
	log      *slog.Logger
}

func NewService(policy Policy, consumer FreeConsumer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{policy: policy, consumer: consumer, log: log}
}

// Check never fails open: a lookup error yields RequirePayment.
func (s *Service) Check(ctx context.Context, accountID uuid.UUID) Result {
	res, err := s.policy.Decide(ctx, accountID)
	if err != nil {
		s.log.Error("entitlement lookup failed, requiring payment", "account_id", accountID, "error", err)
		return Result{Decision: RequirePayment, FreeLeadsUsed: res.FreeLeadsUsed}
	}
	return res
}

// ConsumeFree runs inside the caller's transaction and reports whether this
// call consumed the free allotment.
func (s *Service) ConsumeFree(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error) {
	return s.consumer.ConsumeFreeAllotment(ctx, tx, accountID)
}
