package entitlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.Profile
	err      error
}

func newStubProfiles(ps ...*models.Profile) *stubProfiles {
	s := &stubProfiles{profiles: make(map[uuid.UUID]*models.Profile)}
	for _, p := range ps {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *stubProfiles) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ConsumeFreeAllotment mirrors the conditional UPDATE: flip only if unset.
func (s *stubProfiles) ConsumeFreeAllotment(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok || p.FreeLeadsUsed {
		return false, nil
	}
	p.FreeLeadsUsed = true
	return true, nil
}

type stubOrders struct {
	order *models.PaymentOrder
	err   error
}

func (s *stubOrders) FindUnconsumedSuccess(_ context.Context, _ uuid.UUID) (*models.PaymentOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.order == nil {
		return nil, repository.ErrNotFound
	}
	return s.order, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestFlagPolicy(t *testing.T) {
	fresh := &models.Profile{ID: uuid.New()}
	used := &models.Profile{ID: uuid.New(), FreeLeadsUsed: true}
	p := FlagPolicy{Profiles: newStubProfiles(fresh, used)}

	res, err := p.Decide(context.Background(), fresh.ID)
	if err != nil || res.Decision != GrantFree {
		t.Fatalf("fresh account: got %+v, %v", res, err)
	}
	res, err = p.Decide(context.Background(), used.ID)
	if err != nil || res.Decision != RequirePayment || !res.FreeLeadsUsed {
		t.Fatalf("used account: got %+v, %v", res, err)
	}
}

func TestPaymentHistoryPolicy(t *testing.T) {
	used := &models.Profile{ID: uuid.New(), FreeLeadsUsed: true}
	orderID := uuid.New()

	t.Run("covering order", func(t *testing.T) {
		p := PaymentHistoryPolicy{
			Profiles: newStubProfiles(used),
			Orders:   &stubOrders{order: &models.PaymentOrder{ID: orderID, Status: models.PaymentStatusSuccess}},
		}
		res, err := p.Decide(context.Background(), used.ID)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		if res.Decision != RequirePayment || res.CoveringOrderID == nil || *res.CoveringOrderID != orderID {
			t.Errorf("expected require_payment covered by %s, got %+v", orderID, res)
		}
	})

	t.Run("no paid order", func(t *testing.T) {
		p := PaymentHistoryPolicy{Profiles: newStubProfiles(used), Orders: &stubOrders{}}
		res, err := p.Decide(context.Background(), used.ID)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		if res.Decision != RequirePayment || res.CoveringOrderID != nil {
			t.Errorf("expected uncovered require_payment, got %+v", res)
		}
	})

	t.Run("free still available ignores orders", func(t *testing.T) {
		fresh := &models.Profile{ID: uuid.New()}
		p := PaymentHistoryPolicy{Profiles: newStubProfiles(fresh), Orders: &stubOrders{err: errors.New("must not be called")}}
		res, err := p.Decide(context.Background(), fresh.ID)
		if err != nil || res.Decision != GrantFree {
			t.Errorf("got %+v, %v", res, err)
		}
	})
}

func TestCheck_FailsClosed(t *testing.T) {
	profiles := newStubProfiles()
	profiles.err = errors.New("connection refused")
	svc := NewService(FlagPolicy{Profiles: profiles}, profiles, nil)

	res := svc.Check(context.Background(), uuid.New())
	if res.Decision != RequirePayment {
		t.Fatalf("expected require_payment on lookup failure, got %+v", res)
	}
}

func TestCheck_UnknownAccountFailsClosed(t *testing.T) {
	profiles := newStubProfiles()
	svc := NewService(FlagPolicy{Profiles: profiles}, profiles, nil)

	if res := svc.Check(context.Background(), uuid.New()); res.Decision != RequirePayment {
		t.Fatalf("expected require_payment for missing profile, got %+v", res)
	}
}

// Concurrent submitters must see at most one successful flip.
func TestConsumeFree_AtMostOnce(t *testing.T) {
	prof := &models.Profile{ID: uuid.New()}
	profiles := newStubProfiles(prof)
	svc := NewService(FlagPolicy{Profiles: profiles}, profiles, nil)

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	flips := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.ConsumeFree(context.Background(), nil, prof.ID)
			if err != nil {
				t.Errorf("ConsumeFree: %v", err)
				return
			}
			if ok {
				mu.Lock()
				flips++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if flips != 1 {
		t.Fatalf("expected exactly 1 flip, got %d", flips)
	}
	if res := svc.Check(context.Background(), prof.ID); res.Decision != RequirePayment {
		t.Errorf("expected require_payment after consumption, got %+v", res)
	}
}

func TestNewPolicy(t *testing.T) {
	profiles := newStubProfiles()
	if _, err := NewPolicy("flag-only", profiles, &stubOrders{}); err != nil {
		t.Errorf("flag-only: %v", err)
	}
	if _, err := NewPolicy("payment-history", profiles, &stubOrders{}); err != nil {
		t.Errorf("payment-history: %v", err)
	}
	if _, err := NewPolicy("always-free", profiles, &stubOrders{}); err == nil {
		t.Error("expected error for unknown policy")
	}
}
