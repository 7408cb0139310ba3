// Package config extends the shared configuration with delivery settings
// only the notification service reads.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	sharedConfig "surveyhub-backend/shared/config"
)

type NotificationConfig struct {
	*sharedConfig.Config

	Email EmailConfig
}

type EmailConfig struct {
	// Enabled false logs rendered messages instead of sending them.
	Enabled       bool          `env:"EMAIL_NOTIFICATION_ENABLE" envDefault:"true"`
	RetryAttempts int           `env:"EMAIL_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `env:"EMAIL_RETRY_DELAY" envDefault:"2s"`
	SendTimeout   time.Duration `env:"EMAIL_SEND_TIMEOUT" envDefault:"15s"`
}

// LoadNotificationConfig reads the email settings on top of base.
func LoadNotificationConfig(base *sharedConfig.Config) (*NotificationConfig, error) {
	c := &NotificationConfig{Config: base}
	if err := env.Parse(&c.Email); err != nil {
		return nil, fmt.Errorf("parse notification env: %w", err)
	}
	if c.Email.RetryAttempts < 1 {
		c.Email.RetryAttempts = 1
	}
	// Without credentials there is nothing to send through.
	if base.SMTPHost == "" || base.SMTPUsername == "" {
		c.Email.Enabled = false
	}
	return c, nil
}
