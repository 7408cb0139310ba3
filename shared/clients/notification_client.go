package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers transactional email and dashboard pushes.
type Notifier interface {
	SendInvitationEmail(ctx context.Context, req InvitationEmailRequest) error
	SendSubscriptionEmail(ctx context.Context, req SubscriptionEmailRequest) error
	Push(ctx context.Context, req PushRequest) error
}

// NotificationClient handles communication with notification service
type NotificationClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewNotificationClient(baseURL string) *NotificationClient {
	return &NotificationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type InvitationEmailRequest struct {
	Email            string `json:"email" binding:"required,email"`
	OrganizationName string `json:"organization_name" binding:"required"`
	InviterName      string `json:"inviter_name"`
	RoleName         string `json:"role_name"`
	AcceptURL        string `json:"accept_url" binding:"required,url"`
	ExpiresAt        string `json:"expires_at"`
}

type SubscriptionEmailRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Name             string `json:"name"`
	Plan             string `json:"plan" binding:"required"`
	Status           string `json:"status" binding:"required"`
	CurrentPeriodEnd string `json:"current_period_end,omitempty"`
	ManageURL        string `json:"manage_url"`
}

// PushRequest targets one user's open dashboards.
type PushRequest struct {
	UserID  string                 `json:"user_id" binding:"required"`
	Type    string                 `json:"type" binding:"required"`
	Level   string                 `json:"level"`
	Title   string                 `json:"title"`
	Message string                 `json:"message" binding:"required"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func (nc *NotificationClient) SendInvitationEmail(ctx context.Context, req InvitationEmailRequest) error {
	return nc.post(ctx, "/api/notifications/email/invitation", req)
}

func (nc *NotificationClient) SendSubscriptionEmail(ctx context.Context, req SubscriptionEmailRequest) error {
	return nc.post(ctx, "/api/notifications/email/subscription", req)
}

func (nc *NotificationClient) Push(ctx context.Context, req PushRequest) error {
	return nc.post(ctx, "/ws/send", req)
}

func (nc *NotificationClient) post(ctx context.Context, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, nc.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := nc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification service returned status: %d", resp.StatusCode)
	}
	return nil
}
