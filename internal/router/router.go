package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tasknova/leadgen/internal/auth"
	"github.com/tasknova/leadgen/internal/contacts"
	"github.com/tasknova/leadgen/internal/dashboard"
	"github.com/tasknova/leadgen/internal/entitlement"
	"github.com/tasknova/leadgen/internal/leads"
	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/onboarding"
	"github.com/tasknova/leadgen/internal/payments"
	"github.com/tasknova/leadgen/internal/profile"
	"github.com/tasknova/leadgen/internal/proxy"
	"github.com/tasknova/leadgen/internal/targeting"
)

type Middleware func(http.Handler) http.Handler

// Handlers groups every HTTP surface of the service.
type Handlers struct {
	Auth        *auth.Handler
	Profile     *profile.Handler
	Onboarding  *onboarding.Handler
	Targeting   *targeting.Handler
	Entitlement *entitlement.Handler
	Leads       *leads.Handler
	Payments    *payments.Handler
	Dashboard   *dashboard.Handler
	Contacts    *contacts.Handler
	Proxy       *proxy.Handler
}

// Guards are the session middlewares applied per route group.
type Guards struct {
	RequireSession    Middleware
	OptionalSession   Middleware
	RequireOnboarding Middleware
}

// New returns the API mux. Chains: public routes run bare; account routes
// run RequireSession; lead submission also runs RequireOnboarding.
func New(h Handlers, g Guards) http.Handler {
	mux := http.NewServeMux()
	const base = "/api/v1"

	authed := func(fn http.HandlerFunc) http.Handler { return g.RequireSession(fn) }
	onboarded := func(fn http.HandlerFunc) http.Handler {
		return g.RequireSession(g.RequireOnboarding(fn))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Session gate
	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)
	mux.Handle("GET "+base+"/auth/session", g.OptionalSession(http.HandlerFunc(h.Auth.Session)))
	mux.Handle("POST "+base+"/auth/logout", authed(h.Auth.Logout))

	mux.Handle("GET "+base+"/profile", authed(h.Profile.Get))
	mux.Handle("PATCH "+base+"/profile", authed(h.Profile.Update))
	mux.Handle("GET "+base+"/onboarding", authed(h.Onboarding.Get))
	mux.Handle("PUT "+base+"/onboarding", authed(h.Onboarding.Save))

	// Targeting, entitlement, submission
	mux.HandleFunc("GET "+base+"/targeting/options", h.Targeting.GetOptions)
	mux.Handle("GET "+base+"/entitlement", authed(h.Entitlement.Get))
	mux.Handle("POST "+base+"/lead-requests", onboarded(h.Leads.Submit))
	mux.HandleFunc("POST "+base+"/automation/lead-requests/{id}/result", h.Leads.Result)

	// Dashboard
	mux.Handle("GET "+base+"/lead-requests", authed(h.Dashboard.ListLeadRequests))
	mux.Handle("GET "+base+"/lead-requests/{id}", authed(h.Dashboard.GetLeadRequest))
	mux.Handle("GET "+base+"/dashboard", authed(h.Dashboard.GetDashboard))
	mux.Handle("GET "+base+"/dashboard/stream", authed(h.Dashboard.Stream))

	// Payments
	mux.HandleFunc("GET "+base+"/payments/packages", h.Payments.ListPackages)
	mux.Handle("POST "+base+"/payments/orders", authed(h.Payments.CreateOrder))
	mux.Handle("GET "+base+"/payments/orders", authed(h.Payments.ListOrders))
	mux.Handle("POST "+base+"/payments/verify", authed(h.Payments.Verify))
	mux.Handle("POST "+base+"/payments/orders/{id}/dismiss", authed(h.Payments.Dismiss))
	mux.Handle("POST "+base+"/payments/orders/{id}/fail", authed(h.Payments.Fail))
	mux.Handle("GET "+base+"/payments/details/{payment_id}", authed(h.Payments.Details))

	// Contacts
	mux.Handle("GET "+base+"/contact-lists", authed(h.Contacts.ListLists))
	mux.Handle("POST "+base+"/contact-lists", authed(h.Contacts.CreateList))
	mux.Handle("DELETE "+base+"/contact-lists/{id}", authed(h.Contacts.DeleteList))
	mux.Handle("GET "+base+"/contact-lists/{id}/contacts", authed(h.Contacts.ListContacts))
	mux.Handle("POST "+base+"/contact-lists/{id}/contacts", authed(h.Contacts.AddContact))
	mux.Handle("POST "+base+"/contact-lists/{id}/import/preview", authed(h.Contacts.PreviewImport))
	mux.Handle("POST "+base+"/contact-lists/{id}/import", authed(h.Contacts.Import))
	mux.Handle("GET "+base+"/contact-lists/{id}/export", authed(h.Contacts.Export))
	mux.Handle("DELETE "+base+"/contacts", authed(h.Contacts.DeleteContacts))

	// Browser fetch helpers
	mux.HandleFunc("GET /api/json-proxy", h.Proxy.JSONProxy)
	mux.HandleFunc("GET /api/csv-preview", h.Proxy.CSVPreview)

	return middleware.Metrics(mux)
}
