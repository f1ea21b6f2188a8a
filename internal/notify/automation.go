// Package notify delivers lead request events to the external automation
// and to requesters by email. Both run as River jobs enqueued inside the
// transaction that produced the event.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/tasknova/leadgen/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// AutomationPayload is the JSON body the automation webhook receives.
type AutomationPayload struct {
	ID              uuid.UUID `json:"id"`
	LeadDescription string    `json:"lead_description"`
	UserName        string    `json:"user_name"`
	UserEmail       string    `json:"user_email"`
	RequestType     string    `json:"request_type"`
	IsFreeRequest   bool      `json:"is_free_request"`
	LeadCount       int       `json:"lead_count"`
}

type AutomationArgs struct {
	Payload AutomationPayload `json:"payload"`
}

func (AutomationArgs) Kind() string { return "notify_automation" }

// InsertOpts disables retries: a failed notification is logged and dropped.
func (AutomationArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

type AutomationWorker struct {
	river.WorkerDefaults[AutomationArgs]
	webhookURL string
	httpClient *http.Client
	log        *slog.Logger
}

func NewAutomationWorker(webhookURL string, timeout time.Duration, log *slog.Logger) *AutomationWorker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &AutomationWorker{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Work never returns an error: the lead request row is left as-is and the
// submitter has already answered the user.
func (w *AutomationWorker) Work(ctx context.Context, job *river.Job[AutomationArgs]) error {
	status, err := w.Deliver(ctx, job.Args.Payload)
	if err != nil {
		metrics.RecordNotification("failed")
		w.log.Warn("automation notification failed",
			"lead_request_id", job.Args.Payload.ID, "status", status, "error", err)
		return nil
	}
	metrics.RecordNotification("delivered")
	return nil
}

// Deliver POSTs the payload once. It returns the HTTP status (0 when no
// response arrived) and an error for any non-2xx outcome.
func (w *AutomationWorker) Deliver(ctx context.Context, p AutomationPayload) (int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call automation webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("automation returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
