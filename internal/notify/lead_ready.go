package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type LeadReadyArgs struct {
	LeadRequestID   uuid.UUID `json:"lead_request_id"`
	To              string    `json:"to"`
	Name            string    `json:"name"`
	Summary         string    `json:"summary"`
	DownloadableURL string    `json:"downloadable_url,omitempty"`
}

func (LeadReadyArgs) Kind() string { return "lead_ready_email" }

func (LeadReadyArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

// Mailer sends the "your leads are ready" email.
type Mailer interface {
	SendLeadReady(to, name, summary, downloadURL string) error
}

type LeadReadyWorker struct {
	river.WorkerDefaults[LeadReadyArgs]
	mailer Mailer
	log    *slog.Logger
}

func NewLeadReadyWorker(mailer Mailer, log *slog.Logger) *LeadReadyWorker {
	if log == nil {
		log = slog.Default()
	}
	return &LeadReadyWorker{mailer: mailer, log: log}
}

func (w *LeadReadyWorker) Work(ctx context.Context, job *river.Job[LeadReadyArgs]) error {
	a := job.Args
	if err := w.mailer.SendLeadReady(a.To, a.Name, a.Summary, a.DownloadableURL); err != nil {
		w.log.Warn("lead ready email failed", "lead_request_id", a.LeadRequestID, "error", err)
		return nil
	}
	w.log.Info("lead ready email sent", "lead_request_id", a.LeadRequestID)
	return nil
}
