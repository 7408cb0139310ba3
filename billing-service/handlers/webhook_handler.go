package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"surveyhub-backend/billing-service/payments"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
)

const maxWebhookBytes = 64 << 10

var (
	// errUnmatched means the event names no user or customer we know.
	errUnmatched = errors.New("event does not match a known user")
	// errStale means the event is for a subscription the user has replaced.
	errStale = errors.New("event refers to a replaced subscription")
)

// StripeWebhook applies subscription lifecycle events
// @Summary Stripe webhook
// @Description Verified with the Stripe-Signature header. Unknown event types are acknowledged and ignored.
// @Tags billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "Invalid payload or signature"
// @Failure 500 {object} map[string]string "Processing failed, Stripe retries"
// @Router /webhooks/stripe [post]
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.opts.WebhookSecret == "" {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Webhooks are not configured"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.opts.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.metrics.RecordWebhookEvent("unknown", "invalid_signature")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	log := logger.FromContext(c, h.log).With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
	ctx := c.Request.Context()

	outcome := "processed"
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		err = h.checkoutCompleted(ctx, event.Data.Raw)
	case stripe.EventTypeCustomerSubscriptionCreated, stripe.EventTypeCustomerSubscriptionUpdated:
		err = h.subscriptionChanged(ctx, event.Data.Raw, false)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		err = h.subscriptionChanged(ctx, event.Data.Raw, true)
	case stripe.EventTypeInvoicePaymentFailed:
		err = h.paymentFailed(ctx, event.Data.Raw)
	default:
		outcome = "ignored"
	}

	switch {
	case errors.Is(err, errUnmatched):
		log.Warn("Stripe event matched no user")
		outcome = "unmatched"
	case errors.Is(err, errStale):
		log.Info("Ignoring event for a replaced subscription")
		outcome = "ignored"
	case err != nil:
		h.metrics.RecordWebhookEvent(string(event.Type), "error")
		log.Error("Failed to process Stripe event", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	h.metrics.RecordWebhookEvent(string(event.Type), outcome)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) checkoutCompleted(ctx context.Context, raw json.RawMessage) error {
	done, err := payments.DecodeCheckoutSession(raw)
	if err != nil {
		return err
	}

	sub, err := h.resolve(ctx, done.UserID, done.CustomerID)
	if err != nil {
		return err
	}
	if done.CustomerID != "" {
		sub.StripeCustomerID = done.CustomerID
	}
	if done.SubscriptionID != "" {
		sub.StripeSubscriptionID = done.SubscriptionID
	}
	if tier, err := usage.ParseTier(done.Plan); err == nil {
		sub.Plan = string(tier)
	}
	if done.Paid {
		sub.Status = models.SubscriptionActive
	}

	if err := h.subscriptions.Upsert(ctx, sub); err != nil {
		return err
	}
	h.notify(ctx, sub, "Subscription started", fmt.Sprintf("You are now on the %s plan.", sub.Plan))
	return nil
}

func (h *Handler) subscriptionChanged(ctx context.Context, raw json.RawMessage, deleted bool) error {
	change, err := payments.DecodeSubscription(raw)
	if err != nil {
		return err
	}

	sub, err := h.resolve(ctx, change.UserID, change.CustomerID)
	if err != nil {
		return err
	}
	if sub.StripeSubscriptionID != "" && sub.StripeSubscriptionID != change.SubscriptionID && deleted {
		return errStale
	}
	before := *sub

	if change.CustomerID != "" {
		sub.StripeCustomerID = change.CustomerID
	}
	sub.StripeSubscriptionID = change.SubscriptionID
	if tier, ok := h.catalog.TierForPrice(change.PriceID); ok {
		sub.Plan = string(tier)
	} else if change.PriceID != "" {
		h.log.Warn("Subscription uses an unknown price, keeping plan",
			zap.String("price_id", change.PriceID), zap.String("plan", sub.Plan))
	}
	sub.Status = change.Status
	sub.CurrentPeriodEnd = change.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = change.CancelAtPeriodEnd
	if deleted {
		sub.Status = models.SubscriptionCanceled
		sub.CancelAtPeriodEnd = false
	}

	if err := h.subscriptions.Upsert(ctx, sub); err != nil {
		return err
	}

	switch {
	case deleted:
		h.notify(ctx, sub, "Subscription cancelled", "Your account is back on the free plan limits.")
	case before.Plan != sub.Plan || before.Status != sub.Status:
		h.notify(ctx, sub, "Subscription updated", fmt.Sprintf("Your %s plan is now %s.", sub.Plan, sub.Status))
	case !before.CancelAtPeriodEnd && sub.CancelAtPeriodEnd:
		h.notify(ctx, sub, "Cancellation scheduled", "Your plan stays active until the end of the billing period.")
	}
	return nil
}

func (h *Handler) paymentFailed(ctx context.Context, raw json.RawMessage) error {
	customerID, err := payments.DecodeInvoiceCustomer(raw)
	if err != nil {
		return err
	}

	sub, err := h.resolve(ctx, nil, customerID)
	if err != nil {
		return err
	}
	sub.Status = models.SubscriptionPastDue
	if err := h.subscriptions.Upsert(ctx, sub); err != nil {
		return err
	}
	h.notify(ctx, sub, "Payment failed", "Update your payment method to keep your plan.")
	return nil
}

// resolve finds the subscription row an event applies to, preferring the
// user id carried in metadata over the customer id.
func (h *Handler) resolve(ctx context.Context, userID *uuid.UUID, customerID string) (*models.Subscription, error) {
	if userID != nil {
		if _, err := h.users.GetByID(ctx, *userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, errUnmatched
			}
			return nil, err
		}
		sub, err := h.subscription(ctx, *userID)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			sub = &models.Subscription{
				UserID: *userID,
				Plan:   string(usage.TierFree),
				Status: models.SubscriptionIncomplete,
			}
		}
		return sub, nil
	}

	if customerID == "" {
		return nil, errUnmatched
	}
	sub, err := h.subscriptions.GetByCustomerID(ctx, customerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUnmatched
	}
	return sub, err
}

// notify emails the subscriber and pushes to open dashboards. Failures are
// logged; the webhook has already been applied.
func (h *Handler) notify(ctx context.Context, sub *models.Subscription, title, message string) {
	if h.notifier == nil {
		return
	}
	user, err := h.users.GetByID(ctx, sub.UserID)
	if err != nil {
		h.log.Warn("Skipping subscription notice", zap.String("user_id", sub.UserID.String()), zap.Error(err))
		return
	}

	email := clients.SubscriptionEmailRequest{
		Email:     user.Email,
		Name:      user.DisplayName(),
		Plan:      sub.Plan,
		Status:    string(sub.Status),
		ManageURL: h.opts.FrontendURL + "/billing",
	}
	if sub.CurrentPeriodEnd != nil {
		email.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format("January 2, 2006")
	}
	if err := h.notifier.SendSubscriptionEmail(ctx, email); err != nil {
		h.log.Warn("Failed to send subscription email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	level := "success"
	if !sub.IsActive() {
		level = "warning"
	}
	push := clients.PushRequest{
		UserID:  user.ID.String(),
		Type:    "subscription",
		Level:   level,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"plan":   sub.Plan,
			"status": sub.Status,
		},
	}
	if err := h.notifier.Push(ctx, push); err != nil {
		h.log.Warn("Failed to push subscription notice", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
