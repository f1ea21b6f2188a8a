package dashboard

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	TableLeadRequests  = "lead_requests"
	TablePaymentOrders = "payment_orders"
	TableSession       = "session"

	subscriberBuffer = 64
)

// Event is one change notification scoped to an owning account. For row
// events Op is insert, update or delete; for session events it is the new
// session state.
type Event struct {
	Table     string    `json:"table"`
	Op        string    `json:"op"`
	AccountID uuid.UUID `json:"account_id"`
	ID        uuid.UUID `json:"id"`
}

// Hub fans events out to per-account subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[chan Event]struct{}
	log    *slog.Logger
	closed bool
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{subs: make(map[uuid.UUID]map[chan Event]struct{}), log: log}
}

// Subscribe registers a subscriber for one account. The returned func
// unsubscribes and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(accountID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[chan Event]struct{})
	}
	h.subs[accountID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[accountID]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, accountID)
				}
			}
		})
	}
}

func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.AccountID] {
		select {
		case ch <- ev:
		default:
			h.log.Warn("dropping event for slow subscriber", "account_id", ev.AccountID, "table", ev.Table, "op", ev.Op)
		}
	}
}

// PublishSession tells the account's open streams that its session changed.
func (h *Hub) PublishSession(accountID uuid.UUID, state string) {
	h.Publish(Event{Table: TableSession, Op: state, AccountID: accountID})
}

// Subscribers reports the number of open subscriptions for an account.
func (h *Hub) Subscribers(accountID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}
