package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the Stripe subscription states we persist.
type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
	SubscriptionUnpaid     SubscriptionStatus = "unpaid"
)

// Subscription ties a user to a plan tier. Organizations owned by the user
// inherit its limits.
type Subscription struct {
	ID                   uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID               uuid.UUID          `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	StripeCustomerID     string             `json:"-" gorm:"size:255;index:idx_subscriptions_customer,unique,where:stripe_customer_id <> ''"`
	StripeSubscriptionID string             `json:"-" gorm:"size:255;index"`
	Plan                 string             `json:"plan" gorm:"size:50;not null;default:'free'"`
	Status               SubscriptionStatus `json:"status" gorm:"type:varchar(20);not null"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end" gorm:"default:false;not null"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// IsActive reports whether the subscription currently grants its plan.
func (s Subscription) IsActive() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}
