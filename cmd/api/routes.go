package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknova/leadgen/internal/auth"
	"github.com/tasknova/leadgen/internal/config"
	"github.com/tasknova/leadgen/internal/contacts"
	"github.com/tasknova/leadgen/internal/dashboard"
	"github.com/tasknova/leadgen/internal/entitlement"
	"github.com/tasknova/leadgen/internal/leads"
	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/onboarding"
	"github.com/tasknova/leadgen/internal/payments"
	"github.com/tasknova/leadgen/internal/profile"
	"github.com/tasknova/leadgen/internal/proxy"
	"github.com/tasknova/leadgen/internal/razorpay"
	"github.com/tasknova/leadgen/internal/repository"
	"github.com/tasknova/leadgen/internal/router"
	"github.com/tasknova/leadgen/internal/targeting"
)

// newAPI builds repositories, services and handlers and mounts them.
// Middleware chain: Metrics -> RequireSession -> (RequireOnboarding on lead submission) -> handler.
func newAPI(
	cfg *config.Config,
	pool *pgxpool.Pool,
	hub *dashboard.Hub,
	insertNotify leads.InsertNotifyTxFunc,
	insertReady leads.InsertLeadReadyFunc,
	logger *slog.Logger,
) (http.Handler, error) {
	authRepo := auth.NewRepository(pool)
	profileRepo := repository.NewProfileRepo(pool)
	businessRepo := repository.NewBusinessProfileRepo(pool)
	requestRepo := repository.NewLeadRequestRepo(pool)
	orderRepo := repository.NewPaymentOrderRepo(pool)
	listRepo := repository.NewContactListRepo(pool)
	contactRepo := repository.NewContactRepo(pool)

	authSvc := auth.NewService(authRepo, profileRepo, hub, cfg.JWTSecret)

	policy, err := entitlement.NewPolicy(cfg.EntitlementPolicy, profileRepo, orderRepo)
	if err != nil {
		return nil, err
	}
	entitlementSvc := entitlement.NewService(policy, profileRepo, logger)

	leadSvc := leads.NewService(leads.Deps{
		DB:              pool,
		Profiles:        profileRepo,
		Orders:          orderRepo,
		Requests:        requestRepo,
		Entitlements:    entitlementSvc,
		InsertNotify:    insertNotify,
		InsertLeadReady: insertReady,
		Counts:          leads.LeadCounts{Free: cfg.FreeLeadCount, Paid: cfg.PaidLeadCount},
		Log:             logger,
	})

	gateway := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.BaseURL)
	paymentSvc := payments.NewService(orderRepo, profileRepo, gateway, logger)

	options, err := targeting.LoadOptions()
	if err != nil {
		return nil, fmt.Errorf("targeting options: %w", err)
	}

	handlers := router.Handlers{
		Auth:        auth.NewHandler(authSvc, logger),
		Profile:     profile.NewHandler(profileRepo, logger),
		Onboarding:  onboarding.NewHandler(onboarding.NewService(pool, businessRepo, profileRepo, logger), logger),
		Targeting:   targeting.NewHandler(options),
		Entitlement: entitlement.NewHandler(entitlementSvc),
		Leads:       leads.NewHandler(leadSvc, cfg.Automation.CallbackSecret, logger),
		Payments:    payments.NewHandler(paymentSvc, logger),
		Dashboard:   dashboard.NewHandler(requestRepo, orderRepo, hub, logger),
		Contacts:    contacts.NewHandler(contacts.NewService(pool, listRepo, contactRepo, logger), logger),
		Proxy:       proxy.NewHandler(proxy.NewFetcher(cfg.ProxyAllowedDomains, nil), logger),
	}
	guards := router.Guards{
		RequireSession:    middleware.RequireSession(authSvc),
		OptionalSession:   middleware.OptionalSession(authSvc),
		RequireOnboarding: middleware.RequireBusinessProfile(pool),
	}
	return router.New(handlers, guards), nil
}
