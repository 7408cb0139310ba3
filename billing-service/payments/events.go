package payments

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	"surveyhub-backend/shared/database/models"
)

// SubscriptionChange is the part of a Stripe subscription we persist.
type SubscriptionChange struct {
	SubscriptionID    string
	CustomerID        string
	PriceID           string
	UserID            *uuid.UUID
	Status            models.SubscriptionStatus
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// CheckoutCompleted is a finished checkout session in subscription mode.
type CheckoutCompleted struct {
	CustomerID     string
	SubscriptionID string
	UserID         *uuid.UUID
	Plan           string
	Paid           bool
}

func DecodeSubscription(raw json.RawMessage) (SubscriptionChange, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return SubscriptionChange{}, fmt.Errorf("decoding subscription: %w", err)
	}

	change := SubscriptionChange{
		SubscriptionID:    sub.ID,
		Status:            MapStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		UserID:            userFromMetadata(sub.Metadata),
	}
	if sub.Customer != nil {
		change.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			change.PriceID = item.Price.ID
		}
		if item.CurrentPeriodEnd > 0 {
			end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			change.CurrentPeriodEnd = &end
		}
	}
	return change, nil
}

func DecodeCheckoutSession(raw json.RawMessage) (CheckoutCompleted, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return CheckoutCompleted{}, fmt.Errorf("decoding checkout session: %w", err)
	}

	done := CheckoutCompleted{
		Plan: s.Metadata[MetadataPlan],
		Paid: s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
		UserID: userFromMetadata(s.Metadata),
	}
	if id, err := uuid.Parse(s.ClientReferenceID); err == nil {
		done.UserID = &id
	}
	if s.Customer != nil {
		done.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		done.SubscriptionID = s.Subscription.ID
	}
	return done, nil
}

// DecodeInvoiceCustomer returns the customer an invoice belongs to.
func DecodeInvoiceCustomer(raw json.RawMessage) (string, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return "", fmt.Errorf("decoding invoice: %w", err)
	}
	if inv.Customer == nil {
		return "", nil
	}
	return inv.Customer.ID, nil
}

// MapStatus folds Stripe's subscription states onto the ones we store.
func MapStatus(s stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusTrialing:
		return models.SubscriptionTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusPaused:
		return models.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionCanceled
	case stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionUnpaid
	default:
		return models.SubscriptionIncomplete
	}
}

func userFromMetadata(metadata map[string]string) *uuid.UUID {
	id, err := uuid.Parse(metadata[MetadataUserID])
	if err != nil {
		return nil
	}
	return &id
}
