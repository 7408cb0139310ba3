package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"surveyhub-backend/billing-service/payments"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
)

type CheckoutRequest struct {
	Plan    string `json:"plan" binding:"required"`
	PriceID string `json:"price_id"`
}

type SessionURLResponse struct {
	URL string `json:"url"`
}

// SubscriptionStatus is the caller's plan as the dashboard renders it.
type SubscriptionStatus struct {
	Plan              usage.Tier                `json:"plan"`
	SubscribedPlan    string                    `json:"subscribed_plan,omitempty"`
	Status            models.SubscriptionStatus `json:"status,omitempty"`
	Active            bool                      `json:"active"`
	CurrentPeriodEnd  *time.Time                `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool                      `json:"cancel_at_period_end"`
	HasBillingAccount bool                      `json:"has_billing_account"`
	Limits            usage.PlanLimits          `json:"limits"`
}

type DowngradeCheckResponse struct {
	Plan         usage.Tier        `json:"plan"`
	CurrentPlan  usage.Tier        `json:"current_plan"`
	CanDowngrade bool              `json:"can_downgrade"`
	Violations   []usage.Violation `json:"violations"`
}

// ListPlans returns the configured plans
// @Summary List plans
// @Tags billing
// @Produce json
// @Success 200 {array} usage.Plan
// @Router /billing/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.catalog.Plans())
}

// GetSubscriptionStatus reports the caller's effective plan and limits
// @Summary Get subscription status
// @Tags billing
// @Produce json
// @Security CookieAuth
// @Success 200 {object} handlers.SubscriptionStatus
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /user/subscription-status [get]
func (h *Handler) GetSubscriptionStatus(c *gin.Context) {
	tier, sub, err := h.usage.EffectiveTier(c.Request.Context(), auth.MustUserID(c))
	if err != nil {
		httpx.Internal(c, h.log, "Failed to load subscription", err)
		return
	}

	status := SubscriptionStatus{Plan: tier, Limits: h.catalog.Limits(tier)}
	if sub != nil {
		status.SubscribedPlan = sub.Plan
		status.Status = sub.Status
		status.Active = sub.IsActive()
		status.CurrentPeriodEnd = sub.CurrentPeriodEnd
		status.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		status.HasBillingAccount = sub.StripeCustomerID != ""
	}
	c.JSON(http.StatusOK, status)
}

// CreateCheckout starts a hosted checkout for a paid plan
// @Summary Create checkout session
// @Tags billing
// @Accept json
// @Produce json
// @Param request body handlers.CheckoutRequest true "Plan to purchase"
// @Security CookieAuth
// @Success 200 {object} handlers.SessionURLResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 409 {object} map[string]string "Already subscribed"
// @Failure 503 {object} map[string]string "Billing not configured"
// @Router /billing/checkout [post]
func (h *Handler) CreateCheckout(c *gin.Context) {
	if h.payments == nil {
		httpx.Error(c, http.StatusServiceUnavailable, "Billing is not configured")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	tier, err := usage.ParseTier(req.Plan)
	if err != nil || tier == usage.TierFree {
		httpx.Error(c, http.StatusBadRequest, "Choose a paid plan")
		return
	}

	priceID := req.PriceID
	if priceID == "" {
		var ok bool
		if priceID, ok = h.catalog.PriceForTier(tier); !ok {
			httpx.Error(c, http.StatusBadRequest, "Plan has no price configured")
			return
		}
	} else if priced, ok := h.catalog.TierForPrice(priceID); !ok || priced != tier {
		httpx.Error(c, http.StatusBadRequest, "Price does not belong to the plan")
		return
	}

	user, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	sub, err := h.subscription(ctx, user.ID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to load subscription", err)
		return
	}
	checkout := payments.CheckoutRequest{
		UserID:     user.ID,
		Email:      user.Email,
		PriceID:    priceID,
		Plan:       string(tier),
		SuccessURL: h.opts.FrontendURL + "/billing?checkout=success",
		CancelURL:  h.opts.FrontendURL + "/billing?checkout=cancelled",
	}
	if sub != nil {
		if sub.IsActive() && sub.StripeSubscriptionID != "" {
			httpx.Error(c, http.StatusConflict, "Change an active subscription from the billing portal")
			return
		}
		checkout.CustomerID = sub.StripeCustomerID
	}

	url, err := h.payments.CreateCheckoutSession(ctx, checkout)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to start checkout", err)
		return
	}
	c.JSON(http.StatusOK, SessionURLResponse{URL: url})
}

// CreatePortal opens the Stripe customer portal
// @Summary Create portal session
// @Tags billing
// @Produce json
// @Security CookieAuth
// @Success 200 {object} handlers.SessionURLResponse
// @Failure 400 {object} map[string]string "No billing account"
// @Failure 503 {object} map[string]string "Billing not configured"
// @Router /billing/portal [post]
func (h *Handler) CreatePortal(c *gin.Context) {
	if h.payments == nil {
		httpx.Error(c, http.StatusServiceUnavailable, "Billing is not configured")
		return
	}
	ctx := c.Request.Context()

	sub, err := h.subscription(ctx, auth.MustUserID(c))
	if err != nil {
		httpx.Internal(c, h.log, "Failed to load subscription", err)
		return
	}
	if sub == nil || sub.StripeCustomerID == "" {
		httpx.Error(c, http.StatusBadRequest, "No billing account yet")
		return
	}

	url, err := h.payments.CreatePortalSession(ctx, sub.StripeCustomerID, h.opts.FrontendURL+"/billing")
	if err != nil {
		httpx.Internal(c, h.log, "Failed to open billing portal", err)
		return
	}
	c.JSON(http.StatusOK, SessionURLResponse{URL: url})
}

// DowngradeCheck lists what exceeds a target plan's limits
// @Summary Check a downgrade
// @Tags billing
// @Produce json
// @Param plan query string true "Target plan"
// @Security CookieAuth
// @Success 200 {object} handlers.DowngradeCheckResponse
// @Failure 400 {object} map[string]string "Unknown plan"
// @Router /billing/downgrade-check [get]
func (h *Handler) DowngradeCheck(c *gin.Context) {
	target, err := usage.ParseTier(c.Query("plan"))
	if err != nil {
		httpx.Error(c, http.StatusBadRequest, "Unknown plan")
		return
	}
	ctx := c.Request.Context()
	userID := auth.MustUserID(c)

	current, _, err := h.usage.EffectiveTier(ctx, userID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to resolve plan", err)
		return
	}
	snap, err := h.usage.Snapshot(ctx, userID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to compute usage", err)
		return
	}

	violations := usage.DetectDowngradeViolations(h.catalog.Limits(target), snap)
	c.JSON(http.StatusOK, DowngradeCheckResponse{
		Plan:         target,
		CurrentPlan:  current,
		CanDowngrade: len(violations) == 0,
		Violations:   violations,
	})
}

// subscription returns nil without error when the user never subscribed.
func (h *Handler) subscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := h.subscriptions.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}
