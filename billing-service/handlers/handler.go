// Package handlers serves checkout, the customer portal, subscription
// status and the Stripe webhook.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/billing-service/payments"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/metrics"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
)

type Options struct {
	WebhookSecret string
	FrontendURL   string
}

type Handler struct {
	subscriptions store.SubscriptionStore
	users         store.UserStore
	usage         *usage.Checker
	catalog       *usage.Catalog
	payments      payments.Gateway
	notifier      clients.Notifier
	metrics       *metrics.Metrics
	opts          Options
	log           *zap.Logger
}

// New builds the billing handlers. gateway may be nil when Stripe is not
// configured; checkout and portal then answer 503.
func New(
	stores *store.Stores,
	usageChecker *usage.Checker,
	gateway payments.Gateway,
	notifier clients.Notifier,
	opts Options,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		subscriptions: stores.Subscriptions,
		users:         stores.Users,
		usage:         usageChecker,
		catalog:       usageChecker.Catalog(),
		payments:      gateway,
		notifier:      notifier,
		metrics:       metrics.NewMetrics(),
		opts:          opts,
		log:           log.Named("billing"),
	}
}

func (h *Handler) Register(router gin.IRouter, authn *auth.Authenticator) {
	router.POST("/api/webhooks/stripe", h.StripeWebhook)
	router.GET("/api/billing/plans", h.ListPlans)

	api := router.Group("/api", authn.RequireAuth())
	api.GET("/user/subscription-status", h.GetSubscriptionStatus)

	billing := api.Group("/billing")
	billing.POST("/checkout", h.CreateCheckout)
	billing.POST("/portal", h.CreatePortal)
	billing.GET("/downgrade-check", h.DowngradeCheck)
}
