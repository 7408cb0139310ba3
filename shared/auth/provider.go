package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what a validated token says about its bearer.
type Identity struct {
	// UserID is set for sessions we issued ourselves.
	UserID *uuid.UUID
	// Subject is the external provider's user id, for provider tokens.
	Subject        string
	Email          string
	FirstName      string
	LastName       string
	AvatarURL      string
	ImpersonatorID *uuid.UUID
	SessionID      string
	ExpiresAt      time.Time
}

// Provider validates bearer tokens.
type Provider interface {
	Name() string
	ValidateToken(ctx context.Context, token string) (*Identity, error)
	Close() error
}

// HMACProvider validates sessions issued by the auth service.
type HMACProvider struct {
	sessions *SessionManager
}

func NewHMACProvider(sessions *SessionManager) *HMACProvider {
	return &HMACProvider{sessions: sessions}
}

func (p *HMACProvider) Name() string { return "hmac" }

func (p *HMACProvider) Close() error { return nil }

func (p *HMACProvider) ValidateToken(_ context.Context, token string) (*Identity, error) {
	claims, err := p.sessions.Parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	id := &Identity{
		UserID:    &userID,
		Email:     claims.Email,
		SessionID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.ImpersonatorID != "" {
		adminID, err := uuid.Parse(claims.ImpersonatorID)
		if err != nil {
			return nil, ErrUnauthorized
		}
		id.ImpersonatorID = &adminID
	}
	return id, nil
}

// JWKSProvider validates tokens from an external issuer (for example Clerk)
// against the issuer's published key set.
type JWKSProvider struct {
	issuer  string
	keyFunc func(ctx context.Context) jwt.Keyfunc
	cancel  context.CancelFunc
}

// NewJWKSProvider fetches the issuer's JWKS and keeps it refreshed until Close.
func NewJWKSProvider(issuer string) (*JWKSProvider, error) {
	if issuer == "" {
		return nil, fmt.Errorf("jwks issuer URL is required")
	}
	issuer = strings.TrimRight(issuer, "/")
	jwksURL := issuer + "/.well-known/jwks.json"

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
	}
	return &JWKSProvider{issuer: issuer, keyFunc: jwks.KeyfuncCtx, cancel: cancel}, nil
}

func (p *JWKSProvider) Name() string { return "jwks" }

// Close stops the JWKS background refresh.
func (p *JWKSProvider) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func (p *JWKSProvider) ValidateToken(ctx context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, p.keyFunc(ctx),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}
	sub := claimStr(claims, "sub")
	email := claimStr(claims, "email")
	if sub == "" || email == "" {
		return nil, ErrUnauthorized
	}

	id := &Identity{
		Subject:   sub,
		Email:     email,
		FirstName: claimStr(claims, "first_name"),
		LastName:  claimStr(claims, "last_name"),
		AvatarURL: claimStr(claims, "image_url"),
		SessionID: claimStr(claims, "sid"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

func claimStr(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
