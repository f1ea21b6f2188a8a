package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/repository"
)

const heartbeatInterval = 25 * time.Second

type LeadRequestStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LeadRequest, error)
	GetOwned(ctx context.Context, userID, id uuid.UUID) (*models.LeadRequest, error)
}

type OrderStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PaymentOrder, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error)
}

type Subscriber interface {
	Subscribe(accountID uuid.UUID) (<-chan Event, func())
}

type Handler struct {
	requests  LeadRequestStore
	orders    OrderStore
	events    Subscriber
	heartbeat time.Duration
	log       *slog.Logger
}

func NewHandler(requests LeadRequestStore, orders OrderStore, events Subscriber, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		requests:  requests,
		orders:    orders,
		events:    events,
		heartbeat: heartbeatInterval,
		log:       log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Snapshot is the full dashboard state for one account.
type Snapshot struct {
	LeadRequests []LeadRequestView `json:"lead_requests"`
	Orders       []OrderView       `json:"orders"`
}

func (h *Handler) snapshot(ctx context.Context, accountID uuid.UUID) (Snapshot, error) {
	var (
		requests []*models.LeadRequest
		orders   []*models.PaymentOrder
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		requests, err = h.requests.ListByUser(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = h.orders.ListByUser(gctx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{LeadRequests: LeadRequestViews(requests), Orders: OrderViews(orders)}, nil
}

// GET /api/v1/lead-requests
func (h *Handler) ListLeadRequests(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	list, err := h.requests.ListByUser(r.Context(), s.AccountID)
	if err != nil {
		h.log.Error("list lead requests failed", "account_id", s.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, LeadRequestViews(list))
}

// GET /api/v1/lead-requests/{id}
func (h *Handler) GetLeadRequest(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	lr, err := h.requests.GetOwned(r.Context(), s.AccountID, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "lead request not found")
		return
	}
	if err != nil {
		h.log.Error("get lead request failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, NewLeadRequestView(lr))
}

// GET /api/v1/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	snap, err := h.snapshot(r.Context(), s.AccountID)
	if err != nil {
		h.log.Error("dashboard snapshot failed", "account_id", s.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// StreamEvent is the data of one insert, update or delete SSE message.
// Total is the size of the client's list for Table after the change.
type StreamEvent struct {
	Table string    `json:"table"`
	ID    uuid.UUID `json:"id"`
	Row   any       `json:"row,omitempty"`
	Total int       `json:"total"`
}

type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s sseWriter) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.rc.Flush()
}

// GET /api/v1/dashboard/stream
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := middleware.SessionFromCtx(ctx)

	// Subscribe before the snapshot so no change between the two is lost.
	events, unsubscribe := h.events.Subscribe(s.AccountID)
	defer unsubscribe()

	snap, err := h.snapshot(ctx, s.AccountID)
	if err != nil {
		h.log.Error("dashboard snapshot failed", "account_id", s.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := sseWriter{w: w, rc: http.NewResponseController(w)}
	leads := NewFeed(func(v LeadRequestView) uuid.UUID { return v.ID }, snap.LeadRequests)
	orders := NewFeed(func(v OrderView) uuid.UUID { return v.ID }, snap.Orders)

	if err := out.send("snapshot", snap); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := out.comment("ping"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Table == TableSession {
				_ = out.send("session", map[string]string{"state": ev.Op})
				return
			}
			op, msg, send := h.applyEvent(ctx, s.AccountID, ev, leads, orders)
			if !send {
				continue
			}
			if err := out.send(string(op), msg); err != nil {
				return
			}
		}
	}
}

// applyEvent loads the changed row and merges it into the matching feed.
// It returns the operation the feed applied and the message to emit. Rows
// that vanished, belong to someone else or leave the feed unchanged are
// skipped.
func (h *Handler) applyEvent(ctx context.Context, accountID uuid.UUID, ev Event, leads *Feed[LeadRequestView], orders *Feed[OrderView]) (Op, StreamEvent, bool) {
	msg := StreamEvent{Table: ev.Table, ID: ev.ID}
	op := Op(ev.Op)
	switch ev.Table {
	case TableLeadRequests:
		change := Change[LeadRequestView]{Op: op, ID: ev.ID}
		if op != OpDelete {
			lr, err := h.requests.GetOwned(ctx, accountID, ev.ID)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					h.log.Warn("load changed lead request failed", "id", ev.ID, "error", err)
				}
				return op, msg, false
			}
			change.Item = NewLeadRequestView(lr)
			msg.Row = change.Item
		}
		applied, ok := leads.Apply(change)
		msg.Total = leads.Len()
		return applied, msg, ok
	case TablePaymentOrders:
		change := Change[OrderView]{Op: op, ID: ev.ID}
		if op != OpDelete {
			o, err := h.orders.GetByID(ctx, ev.ID)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					h.log.Warn("load changed order failed", "id", ev.ID, "error", err)
				}
				return op, msg, false
			}
			if o.UserID != accountID {
				return op, msg, false
			}
			change.Item = NewOrderView(o)
			msg.Row = change.Item
		}
		applied, ok := orders.Apply(change)
		msg.Total = orders.Len()
		return applied, msg, ok
	}
	return op, msg, false
}
