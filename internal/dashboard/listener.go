package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ChangeChannel   = "row_changes"
	listenerBackoff = 2 * time.Second
)

// Listen relays PostgreSQL row_changes notifications into the hub until ctx
// is cancelled, reconnecting after connection errors.
func Listen(ctx context.Context, pool *pgxpool.Pool, hub *Hub, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	for ctx.Err() == nil {
		if err := listenOnce(ctx, pool, hub, log); err != nil && ctx.Err() == nil {
			log.Error("change listener failed, reconnecting", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(listenerBackoff):
			}
		}
	}
}

func listenOnce(ctx context.Context, pool *pgxpool.Pool, hub *Hub, log *slog.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return err
	}
	log.Info("listening for row changes", "channel", ChangeChannel)
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := ParseNotification(n.Payload)
		if err != nil {
			log.Warn("bad change notification", "payload", n.Payload, "error", err)
			continue
		}
		hub.Publish(ev)
	}
}

// ParseNotification decodes the JSON emitted by the notify_row_change trigger.
func ParseNotification(payload string) (Event, error) {
	var ev Event
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
