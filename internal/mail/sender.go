package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

var leadReadyTmpl = template.Must(template.ParseFS(templatesFS, "templates/lead_ready.html"))

type LeadReadyData struct {
	Name        string
	Summary     string
	DownloadURL string
}

// Dialer is the part of gomail.Dialer the sender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	From   string
	dialer Dialer
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{From: from, dialer: gomail.NewDialer(host, port, user, password)}
}

// SendLeadReady tells the requester their leads are available.
func (s *EmailSender) SendLeadReady(to, name, summary, downloadURL string) error {
	m, err := s.leadReadyMessage(to, name, summary, downloadURL)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send smtp: %w", err)
	}
	return nil
}

func (s *EmailSender) leadReadyMessage(to, name, summary, downloadURL string) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := leadReadyTmpl.Execute(&body, LeadReadyData{Name: name, Summary: summary, DownloadURL: downloadURL}); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your leads are ready")
	m.SetBody("text/html", body.String())
	return m, nil
}
