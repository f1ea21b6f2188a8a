package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultProxyDomains are the upstream hosts the JSON proxy may fetch from.
var DefaultProxyDomains = []string{
	"drive.google.com",
	"docs.google.com",
	"drive.usercontent.google.com",
	"supabase.co",
	"storage.googleapis.com",
	"amazonaws.com",
	"cloudfront.net",
	"jsonplaceholder.typicode.com",
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

type AutomationConfig struct {
	WebhookURL     string
	CallbackSecret string
	NotifyTimeout  time.Duration
}

type MailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Enabled reports whether outbound mail is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }

type Config struct {
	DatabaseURL         string
	JWTSecret           string
	Port                string
	LogLevel            slog.Level
	CORSAllowedOrigins  []string
	Razorpay            RazorpayConfig
	Automation          AutomationConfig
	FreeLeadCount       int
	PaidLeadCount       int
	EntitlementPolicy   string
	ProxyAllowedDomains []string
	Mail                MailConfig
}

// MissingError lists every required variable that was absent or blank.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "config: missing required environment variables: " + strings.Join(e.Keys, ", ")
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an env lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	var missing []string
	required := func(key string) string {
		v := get(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		DatabaseURL: required("DATABASE_URL"),
		JWTSecret:   required("JWT_SECRET"),
		Razorpay: RazorpayConfig{
			KeyID:     required("RAZORPAY_KEY_ID"),
			KeySecret: required("RAZORPAY_KEY_SECRET"),
			BaseURL:   orDefault(get("RAZORPAY_BASE_URL"), "https://api.razorpay.com"),
		},
		Automation: AutomationConfig{
			WebhookURL:     required("AUTOMATION_WEBHOOK_URL"),
			CallbackSecret: get("AUTOMATION_CALLBACK_SECRET"),
		},
		Port:              orDefault(get("PORT"), "8080"),
		EntitlementPolicy: orDefault(get("ENTITLEMENT_POLICY"), "payment-history"),
		Mail: MailConfig{
			Host: get("SMTP_HOST"),
			User: get("SMTP_USER"),
			Pass: get("SMTP_PASS"),
			From: orDefault(get("MAIL_FROM"), "no-reply@tasknova.io"),
		},
	}
	if len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}

	var err error
	if cfg.LogLevel, err = parseLevel(get("LOG_LEVEL")); err != nil {
		return nil, err
	}
	if cfg.Automation.NotifyTimeout, err = durationOr(get("NOTIFY_TIMEOUT"), 5*time.Second); err != nil {
		return nil, fmt.Errorf("config: NOTIFY_TIMEOUT: %w", err)
	}
	if cfg.FreeLeadCount, err = intOr(get("FREE_LEAD_COUNT"), 10); err != nil {
		return nil, fmt.Errorf("config: FREE_LEAD_COUNT: %w", err)
	}
	if cfg.PaidLeadCount, err = intOr(get("PAID_LEAD_COUNT"), 100); err != nil {
		return nil, fmt.Errorf("config: PAID_LEAD_COUNT: %w", err)
	}
	if cfg.Mail.Port, err = intOr(get("SMTP_PORT"), 587); err != nil {
		return nil, fmt.Errorf("config: SMTP_PORT: %w", err)
	}
	switch cfg.EntitlementPolicy {
	case "flag-only", "payment-history":
	default:
		return nil, fmt.Errorf("config: ENTITLEMENT_POLICY must be flag-only or payment-history, got %q", cfg.EntitlementPolicy)
	}

	cfg.CORSAllowedOrigins = splitList(get("CORS_ALLOWED_ORIGINS"))
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"http://localhost:5173"}
	}
	cfg.ProxyAllowedDomains = splitList(get("PROXY_ALLOWED_DOMAINS"))
	if len(cfg.ProxyAllowedDomains) == 0 {
		cfg.ProxyAllowedDomains = append([]string(nil), DefaultProxyDomains...)
	}
	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must be >= 0, got %d", n)
	}
	return n, nil
}

func durationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func parseLevel(v string) (slog.Level, error) {
	switch strings.ToLower(v) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: LOG_LEVEL must be debug, info, warn or error, got %q", v)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
