package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/repository"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type memRequests struct {
	mu   sync.Mutex
	rows []*models.LeadRequest
}

func (m *memRequests) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.LeadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LeadRequest
	for _, r := range m.rows {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRequests) GetOwned(_ context.Context, userID, id uuid.UUID) (*models.LeadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRequests) setStatus(id uuid.UUID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			r.Status = status
		}
	}
}

func (m *memRequests) add(lr *models.LeadRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, lr)
}

type memOrders struct {
	rows []*models.PaymentOrder
}

func (m *memOrders) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.PaymentOrder, error) {
	var out []*models.PaymentOrder
	for _, o := range m.rows {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) GetByID(_ context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	for _, o := range m.rows {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func withSession(accountID uuid.UUID, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithSession(r.Context(), &middleware.Session{AccountID: accountID})
		h(w, r.WithContext(ctx))
	})
}

// ---------------------------------------------------------------------------
// Status rendering
// ---------------------------------------------------------------------------

func TestViewStatus(t *testing.T) {
	cases := []struct {
		status string
		kind   StatusKind
		label  string
	}{
		{"running", StatusInProgress, "Running"},
		{"RUNNING", StatusInProgress, "Running"},
		{"completed", StatusSuccess, "Completed"},
		{"failed", StatusError, "Error. Our team will connect with you."},
		{"failed: upstream timeout", StatusError, "Error. Our team will connect with you."},
		{"error", StatusError, "Error. Our team will connect with you."},
		{"queued", StatusOther, "queued"},
		{"", StatusOther, "Pending"},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			v := ViewStatus(tc.status)
			assert.Equal(t, tc.kind, v.Kind)
			assert.Equal(t, tc.label, v.Label)
		})
	}
}

func TestOrderDisplayStatus(t *testing.T) {
	assert.Equal(t, "Paid", OrderDisplayStatus(models.PaymentStatusSuccess))
	assert.Equal(t, "Failed", OrderDisplayStatus(models.PaymentStatusFailed))
	assert.Equal(t, "Pending", OrderDisplayStatus(models.PaymentStatusCreated))
	assert.Equal(t, "Pending", OrderDisplayStatus("refunded"))
}

func TestNewLeadRequestView_MalformedDescription(t *testing.T) {
	lr := &models.LeadRequest{ID: uuid.New(), LeadDescription: `{"mode":"structured","criteria":`}
	v := NewLeadRequestView(lr)
	assert.Equal(t, lr.LeadDescription, v.Summary)
}

// ---------------------------------------------------------------------------
// Feed
// ---------------------------------------------------------------------------

type item struct {
	id    uuid.UUID
	value string
}

func TestFeedApply(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	f := NewFeed(func(i item) uuid.UUID { return i.id }, []item{{a, "a"}, {b, "b"}})

	op, ok := f.Apply(Change[item]{Op: OpInsert, ID: c, Item: item{c, "c"}})
	assert.True(t, ok)
	assert.Equal(t, OpInsert, op)
	require.Equal(t, 3, f.Len())
	assert.Equal(t, c, f.Items()[0].id, "insert prepends")

	f.Apply(Change[item]{Op: OpUpdate, ID: b, Item: item{b, "b2"}})
	assert.Equal(t, "b2", f.Items()[2].value)

	f.Apply(Change[item]{Op: OpDelete, ID: a})
	ids := []uuid.UUID{}
	for _, it := range f.Items() {
		ids = append(ids, it.id)
	}
	assert.Equal(t, []uuid.UUID{c, b}, ids)

	_, ok = f.Apply(Change[item]{Op: OpUpdate, ID: uuid.New(), Item: item{value: "ghost"}})
	assert.False(t, ok, "update for unknown id")
	_, ok = f.Apply(Change[item]{Op: OpDelete, ID: uuid.New()})
	assert.False(t, ok, "delete for unknown id")
	assert.Equal(t, 2, f.Len())

	op, ok = f.Apply(Change[item]{Op: OpInsert, ID: c, Item: item{c, "c2"}})
	assert.True(t, ok)
	assert.Equal(t, OpUpdate, op, "repeated insert becomes an update")
	assert.Equal(t, 2, f.Len(), "repeated insert does not duplicate")
	assert.Equal(t, "c2", f.Items()[0].value)
}

// ---------------------------------------------------------------------------
// Hub
// ---------------------------------------------------------------------------

func TestHub_ScopedByAccount(t *testing.T) {
	hub := NewHub(nil)
	alice, bob := uuid.New(), uuid.New()
	ch, unsubscribe := hub.Subscribe(alice)
	defer unsubscribe()

	hub.Publish(Event{Table: TableLeadRequests, Op: "insert", AccountID: bob, ID: uuid.New()})
	id := uuid.New()
	hub.Publish(Event{Table: TableLeadRequests, Op: "insert", AccountID: alice, ID: id})

	select {
	case ev := <-ch:
		assert.Equal(t, id, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	hub := NewHub(nil)
	acct := uuid.New()
	ch, unsubscribe := hub.Subscribe(acct)
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(Event{Table: TablePaymentOrders, Op: "update", AccountID: acct, ID: uuid.New()})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(nil)
	acct := uuid.New()
	ch, unsubscribe := hub.Subscribe(acct)
	require.Equal(t, 1, hub.Subscribers(acct))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Subscribers(acct))
	_, open := <-ch
	assert.False(t, open)

	hub.PublishSession(acct, "signed_out")
}

func TestParseNotification(t *testing.T) {
	acct, id := uuid.New(), uuid.New()
	payload := `{"table":"lead_requests","op":"update","account_id":"` + acct.String() + `","id":"` + id.String() + `"}`
	ev, err := ParseNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, Event{Table: TableLeadRequests, Op: "update", AccountID: acct, ID: id}, ev)

	_, err = ParseNotification("not json")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func TestGetLeadRequest_OwnershipAndID(t *testing.T) {
	owner, other := uuid.New(), uuid.New()
	lr := &models.LeadRequest{ID: uuid.New(), UserID: owner, Status: models.LeadStatusRunning, LeadDescription: "CTOs in Pune"}
	h := NewHandler(&memRequests{rows: []*models.LeadRequest{lr}}, &memOrders{}, NewHub(nil), nil)

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/lead-requests/{id}", withSession(other, h.GetLeadRequest))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lead-requests/"+lr.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lead-requests/nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mux = http.NewServeMux()
	mux.Handle("GET /api/v1/lead-requests/{id}", withSession(owner, h.GetLeadRequest))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lead-requests/"+lr.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "CTOs in Pune", body["summary"])
}

func TestGetDashboard(t *testing.T) {
	acct := uuid.New()
	reqs := &memRequests{rows: []*models.LeadRequest{{ID: uuid.New(), UserID: acct, Status: "completed"}}}
	orders := &memOrders{rows: []*models.PaymentOrder{{ID: uuid.New(), UserID: acct, Status: models.PaymentStatusSuccess, Amount: 39900}}}
	h := NewHandler(reqs, orders, NewHub(nil), nil)

	rec := httptest.NewRecorder()
	withSession(acct, h.GetDashboard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap struct {
		LeadRequests []struct {
			StatusView StatusView `json:"status_view"`
		} `json:"lead_requests"`
		Orders []struct {
			DisplayStatus string `json:"display_status"`
			AmountLabel   string `json:"amount_label"`
		} `json:"orders"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	require.Len(t, snap.LeadRequests, 1)
	assert.Equal(t, StatusSuccess, snap.LeadRequests[0].StatusView.Kind)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, "Paid", snap.Orders[0].DisplayStatus)
	assert.Equal(t, "₹399", snap.Orders[0].AmountLabel)
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" {
				return ev
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStream_ReflectsExternalStatusUpdate(t *testing.T) {
	acct := uuid.New()
	lr := &models.LeadRequest{ID: uuid.New(), UserID: acct, Status: models.LeadStatusRunning}
	reqs := &memRequests{rows: []*models.LeadRequest{lr}}
	hub := NewHub(nil)
	h := NewHandler(reqs, &memOrders{}, hub, nil)
	h.heartbeat = 10 * time.Millisecond

	srv := httptest.NewServer(withSession(acct, h.Stream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	snap := readEvent(t, body)
	require.Equal(t, "snapshot", snap.name)
	assert.Contains(t, snap.data, `"kind":"in_progress"`)

	reqs.setStatus(lr.ID, models.LeadStatusCompleted)
	hub.Publish(Event{Table: TableLeadRequests, Op: "update", AccountID: acct, ID: lr.ID})

	upd := readEvent(t, body)
	require.Equal(t, "update", upd.name)
	var msg struct {
		Table string `json:"table"`
		ID    uuid.UUID
		Row   struct {
			StatusView StatusView `json:"status_view"`
		} `json:"row"`
	}
	require.NoError(t, json.Unmarshal([]byte(upd.data), &msg))
	assert.Equal(t, TableLeadRequests, msg.Table)
	assert.Equal(t, lr.ID, msg.ID)
	assert.Equal(t, StatusSuccess, msg.Row.StatusView.Kind)

	// A second insert for a row the client already holds is sent as an update.
	hub.Publish(Event{Table: TableLeadRequests, Op: "insert", AccountID: acct, ID: lr.ID})
	again := readEvent(t, body)
	assert.Equal(t, "update", again.name)
	assert.Contains(t, again.data, `"total":1`)

	// The first delete empties the list; the repeat changes nothing and is not
	// sent, so the next message is the fresh insert.
	hub.Publish(Event{Table: TableLeadRequests, Op: "delete", AccountID: acct, ID: lr.ID})
	del := readEvent(t, body)
	assert.Equal(t, "delete", del.name)
	assert.Contains(t, del.data, `"total":0`)

	hub.Publish(Event{Table: TableLeadRequests, Op: "delete", AccountID: acct, ID: lr.ID})
	fresh := &models.LeadRequest{ID: uuid.New(), UserID: acct, Status: models.LeadStatusRunning}
	reqs.add(fresh)
	hub.Publish(Event{Table: TableLeadRequests, Op: "insert", AccountID: acct, ID: fresh.ID})
	ins := readEvent(t, body)
	assert.Equal(t, "insert", ins.name)
	assert.Contains(t, ins.data, fresh.ID.String())
	assert.Contains(t, ins.data, `"total":1`)

	hub.PublishSession(acct, "signed_out")
	sess := readEvent(t, body)
	assert.Equal(t, "session", sess.name)
	assert.JSONEq(t, `{"state":"signed_out"}`, sess.data)

	require.Eventually(t, func() bool { return hub.Subscribers(acct) == 0 }, time.Second, 10*time.Millisecond)
}
