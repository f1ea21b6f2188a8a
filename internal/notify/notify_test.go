package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

func testPayload() AutomationPayload {
	return AutomationPayload{
		ID:              uuid.New(),
		LeadDescription: "Job titles: CTO | Industries: Fintech | Locations: Berlin | Company size: 11-50 employees",
		UserName:        "Ana",
		UserEmail:       "ana@example.com",
		RequestType:     "dropdown",
		IsFreeRequest:   true,
		LeadCount:       10,
	}
}

func TestAutomationWorker_PostsPayload(t *testing.T) {
	var got AutomationPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewAutomationWorker(srv.URL, time.Second, nil)
	p := testPayload()
	if err := w.Work(context.Background(), &river.Job[AutomationArgs]{Args: AutomationArgs{Payload: p}}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if got != p {
		t.Errorf("webhook received %+v, want %+v", got, p)
	}
}

func TestAutomationWorker_FailureLogsOnceAndSwallows(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }, `"status":502`},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}, `"status":0`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))
			w := NewAutomationWorker(srv.URL, 50*time.Millisecond, log)

			err := w.Work(context.Background(), &river.Job[AutomationArgs]{Args: AutomationArgs{Payload: testPayload()}})
			if err != nil {
				t.Fatalf("Work must swallow delivery failures, got %v", err)
			}
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != 1 {
				t.Fatalf("expected exactly one log line, got %d: %s", len(lines), buf.String())
			}
			if !strings.Contains(lines[0], `"level":"WARN"`) || !strings.Contains(lines[0], tc.wantStatus) {
				t.Errorf("unexpected log line %s", lines[0])
			}
			if !strings.Contains(lines[0], "lead_request_id") {
				t.Errorf("log line missing lead_request_id: %s", lines[0])
			}
		})
	}
}

func TestAutomationWorker_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	w := NewAutomationWorker(url, 100*time.Millisecond, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	status, err := w.Deliver(context.Background(), testPayload())
	if err == nil || status != 0 {
		t.Fatalf("expected transport error with status 0, got %d %v", status, err)
	}
}

func TestAutomationArgs_NoRetry(t *testing.T) {
	if got := (AutomationArgs{}).InsertOpts().MaxAttempts; got != 1 {
		t.Fatalf("expected MaxAttempts 1, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Lead ready email
// ---------------------------------------------------------------------------

type stubMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *stubMailer) SendLeadReady(to, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func TestLeadReadyWorker(t *testing.T) {
	m := &stubMailer{}
	w := NewLeadReadyWorker(m, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	job := &river.Job[LeadReadyArgs]{Args: LeadReadyArgs{LeadRequestID: uuid.New(), To: "ana@example.com"}}
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(m.sent) != 1 || m.sent[0] != "ana@example.com" {
		t.Errorf("expected one mail to ana@example.com, got %v", m.sent)
	}

	m.err = errors.New("smtp down")
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("mail failures must not fail the job, got %v", err)
	}
}
