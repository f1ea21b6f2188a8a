package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/razorpay"
	"github.com/tasknova/leadgen/internal/repository"
)

// ---------------------------------------------------------------------------
// Doubles
// ---------------------------------------------------------------------------

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) KeyID() string { return "rzp_test_key" }

func (m *mockGateway) CreateOrder(ctx context.Context, in razorpay.CreateOrderInput) (*razorpay.Order, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*razorpay.Order)
	return o, args.Error(1)
}

func (m *mockGateway) FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(*razorpay.Payment)
	return p, args.Error(1)
}

func (m *mockGateway) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	return m.Called(gatewayOrderID, paymentID, signature).Bool(0)
}

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.PaymentOrder
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*models.PaymentOrder)}
}

func (m *memOrders) Create(_ context.Context, o *models.PaymentOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	o.Status = models.PaymentStatusCreated
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) GetByPaymentID(_ context.Context, userID uuid.UUID, paymentID string) (*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID == userID && o.PaymentID != nil && *o.PaymentID == paymentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memOrders) SetGatewayOrderID(_ context.Context, id uuid.UUID, gw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].GatewayOrderID = &gw
	return nil
}

func (m *memOrders) MarkSuccess(_ context.Context, id uuid.UUID, paymentID, signature string, phone *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	if o.Status != models.PaymentStatusCreated {
		return false, nil
	}
	o.Status = models.PaymentStatusSuccess
	o.PaymentID = &paymentID
	o.Signature = &signature
	if phone != nil {
		o.CustomerPhone = phone
	}
	return true, nil
}

func (m *memOrders) MarkFailed(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	if o.Status != models.PaymentStatusCreated {
		return false, nil
	}
	o.Status = models.PaymentStatusFailed
	return true, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PaymentOrder
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) ListMissingPhone(_ context.Context) ([]*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PaymentOrder
	for _, o := range m.orders {
		if o.PaymentID != nil && o.CustomerPhone == nil {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrders) SetCustomerPhone(_ context.Context, id uuid.UUID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].CustomerPhone = &phone
	return nil
}

type stubProfiles map[uuid.UUID]*models.Profile

func (s stubProfiles) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := s[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func setup(t *testing.T) (*Service, *memOrders, *mockGateway, uuid.UUID) {
	t.Helper()
	account := uuid.New()
	name := "Ana Lima"
	profiles := stubProfiles{account: {ID: account, Email: "ana@example.com", FullName: &name}}
	orders := newMemOrders()
	gw := &mockGateway{}
	return NewService(orders, profiles, gw, nil), orders, gw, account
}

// createdOrder runs CreateOrder against the mock and returns the checkout.
func createdOrder(t *testing.T, svc *Service, gw *mockGateway, account uuid.UUID) *Checkout {
	t.Helper()
	gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in razorpay.CreateOrderInput) bool {
		return in.Amount == 39900 && in.Currency == "INR"
	})).Return(&razorpay.Order{ID: "order_gw1"}, nil).Once()
	c, err := svc.CreateOrder(context.Background(), account, "pro")
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPackages(t *testing.T) {
	tests := []struct {
		id     string
		leads  int
		amount int64
		label  string
	}{
		{"basic", 100, 9900, "₹99"},
		{"pro", 500, 39900, "₹399"},
		{"enterprise", 1000, 69900, "₹699"},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			p, ok := LookupPackage(tc.id)
			require.True(t, ok)
			assert.Equal(t, tc.leads, p.Leads)
			assert.Equal(t, tc.amount, p.Amount)
			assert.Equal(t, tc.label, models.FormatRupees(p.Amount))
		})
	}
	_, ok := LookupPackage("platinum")
	assert.False(t, ok)
	assert.Equal(t, "₹1.50", models.FormatRupees(150))
}

func TestCreateOrder(t *testing.T) {
	svc, orders, gw, account := setup(t)
	c := createdOrder(t, svc, gw, account)

	assert.Equal(t, "order_gw1", c.GatewayOrderID)
	assert.Equal(t, "rzp_test_key", c.KeyID)
	assert.Equal(t, CheckoutName, c.Name)
	assert.Equal(t, CheckoutDescription, c.Description)
	assert.Equal(t, Prefill{Name: "Ana Lima", Email: "ana@example.com"}, c.Prefill)

	o := orders.orders[c.OrderID]
	assert.Equal(t, models.PaymentStatusCreated, o.Status)
	assert.Equal(t, 500, o.LeadsCount)
	require.NotNil(t, o.GatewayOrderID)
	gw.AssertExpectations(t)
}

func TestCreateOrder_UnknownPackage(t *testing.T) {
	svc, _, _, account := setup(t)
	_, err := svc.CreateOrder(context.Background(), account, "gold")
	assert.ErrorIs(t, err, ErrUnknownPackage)
}

func TestCreateOrder_GatewayFailureFailsOrder(t *testing.T) {
	svc, orders, gw, account := setup(t)
	gw.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, &razorpay.APIError{StatusCode: 500})

	_, err := svc.CreateOrder(context.Background(), account, "basic")
	require.ErrorIs(t, err, razorpay.ErrAPI)
	for _, o := range orders.orders {
		assert.Equal(t, models.PaymentStatusFailed, o.Status)
	}
}

func TestVerify_Success(t *testing.T) {
	svc, orders, gw, account := setup(t)
	c := createdOrder(t, svc, gw, account)
	gw.On("VerifyPaymentSignature", "order_gw1", "pay_1", "sig").Return(true)
	gw.On("FetchPayment", mock.Anything, "pay_1").Return(&razorpay.Payment{ID: "pay_1", Contact: "+919876543210"}, nil)

	res, err := svc.Verify(context.Background(), account, c.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	require.NotNil(t, res.CustomerPhone)
	assert.Equal(t, "+919876543210", *res.CustomerPhone)

	o := orders.orders[c.OrderID]
	assert.Equal(t, models.PaymentStatusSuccess, o.Status)
	assert.Equal(t, "pay_1", *o.PaymentID)

	// Success is terminal.
	_, err = svc.Verify(context.Background(), account, c.OrderID, "pay_1", "sig")
	assert.ErrorIs(t, err, ErrOrderNotPayable)
	assert.ErrorIs(t, svc.Fail(context.Background(), account, c.OrderID, "late"), ErrOrderNotPayable)
}

func TestVerify_PhoneLookupIsBestEffort(t *testing.T) {
	svc, orders, gw, account := setup(t)
	c := createdOrder(t, svc, gw, account)
	gw.On("VerifyPaymentSignature", "order_gw1", "pay_1", "sig").Return(true)
	gw.On("FetchPayment", mock.Anything, "pay_1").Return(nil, errors.New("timeout"))

	res, err := svc.Verify(context.Background(), account, c.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Nil(t, res.CustomerPhone)
	assert.Equal(t, models.PaymentStatusSuccess, orders.orders[c.OrderID].Status)
}

func TestVerify_BadSignatureFailsOrder(t *testing.T) {
	svc, orders, gw, account := setup(t)
	c := createdOrder(t, svc, gw, account)
	gw.On("VerifyPaymentSignature", "order_gw1", "pay_1", "forged").Return(false)

	res, err := svc.Verify(context.Background(), account, c.OrderID, "pay_1", "forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.False(t, res.Verified)
	assert.Equal(t, models.PaymentStatusFailed, orders.orders[c.OrderID].Status)
	gw.AssertNotCalled(t, "FetchPayment", mock.Anything, mock.Anything)
}

func TestVerify_OtherAccountsOrderIsHidden(t *testing.T) {
	svc, _, gw, account := setup(t)
	c := createdOrder(t, svc, gw, account)
	_, err := svc.Verify(context.Background(), uuid.New(), c.OrderID, "pay_1", "sig")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDismissLeavesOrderCreated(t *testing.T) {
	svc, orders, gw, account := setup(t)
	c := createdOrder(t, svc, gw, account)

	o, err := svc.Dismiss(context.Background(), account, c.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCreated, o.Status)
	assert.Equal(t, models.PaymentStatusCreated, orders.orders[c.OrderID].Status)
}

func TestBackfillPhones(t *testing.T) {
	svc, orders, gw, account := setup(t)
	mk := func(paymentID string) uuid.UUID {
		o := &models.PaymentOrder{UserID: account, PackageID: "basic"}
		require.NoError(t, orders.Create(context.Background(), o))
		orders.orders[o.ID].PaymentID = &paymentID
		return o.ID
	}
	okID := mk("pay_ok")
	mk("pay_err")
	mk("pay_nocontact")

	gw.On("FetchPayment", mock.Anything, "pay_ok").Return(&razorpay.Payment{ID: "pay_ok", Contact: "+911111111111"}, nil)
	gw.On("FetchPayment", mock.Anything, "pay_err").Return(nil, errors.New("boom"))
	gw.On("FetchPayment", mock.Anything, "pay_nocontact").Return(&razorpay.Payment{ID: "pay_nocontact"}, nil)

	report, err := svc.BackfillPhones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.Failed)
	assert.Len(t, report.Errors, 2)
	assert.Equal(t, "+911111111111", *orders.orders[okID].CustomerPhone)
}

func TestVerifyHandler_BadSignatureIs400(t *testing.T) {
	svc, _, gw, account := setup(t)
	c := createdOrder(t, svc, gw, account)
	gw.On("VerifyPaymentSignature", mock.Anything, mock.Anything, mock.Anything).Return(false)

	body := `{"order_id":"` + c.OrderID.String() + `","payment_id":"pay_1","signature":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(body))
	req = req.WithContext(middleware.WithSession(req.Context(), &middleware.Session{AccountID: account}))
	rec := httptest.NewRecorder()
	NewHandler(svc, nil).Verify(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"verified":false`)
}
