package auth

import (
	"fmt"

	"surveyhub-backend/shared/config"
)

// NewProvider builds the provider selected by AUTH_PROVIDER.
func NewProvider(cfg *config.Config, sessions *SessionManager) (Provider, error) {
	switch cfg.AuthProvider {
	case "", "hmac":
		return NewHMACProvider(sessions), nil
	case "jwks":
		p, err := NewJWKSProvider(cfg.JWKSIssuer)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}
}
