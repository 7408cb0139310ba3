// Package invitation issues invitation tokens and applies the expiry and
// response rules of organization invitations.
package invitation

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"surveyhub-backend/shared/database/models"
)

const (
	DefaultTTL = 7 * 24 * time.Hour
	tokenBytes = 32
)

var (
	ErrExpired       = errors.New("invitation has expired")
	ErrNotPending    = errors.New("invitation is no longer pending")
	ErrEmailMismatch = errors.New("invitation was sent to a different email address")
)

// NewToken returns a URL-safe random token and the digest to persist.
func NewToken() (token, hash string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating invitation token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken is the BLAKE2b-256 hex digest stored in place of the token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ExpiresAt returns when an invitation created at now expires.
func ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl).UTC()
}

// IsInvitationExpired is true strictly after expiresAt; the boundary instant
// is still valid.
func IsInvitationExpired(inv *models.OrganizationInvitation, now time.Time) bool {
	return now.After(inv.ExpiresAt)
}

// EffectiveStatus reports expired for pending invitations past their expiry.
func EffectiveStatus(inv *models.OrganizationInvitation, now time.Time) models.InvitationStatus {
	if inv.Status == models.InvitationPending && IsInvitationExpired(inv, now) {
		return models.InvitationExpired
	}
	return inv.Status
}

// CanRespond checks that email may accept or decline inv at now.
func CanRespond(inv *models.OrganizationInvitation, email string, now time.Time) error {
	if !SameEmail(inv.Email, email) {
		return ErrEmailMismatch
	}
	if inv.Status != models.InvitationPending {
		return ErrNotPending
	}
	if IsInvitationExpired(inv, now) {
		return ErrExpired
	}
	return nil
}

// CanRevoke checks that inv is still open to revocation.
func CanRevoke(inv *models.OrganizationInvitation) error {
	if inv.Status != models.InvitationPending {
		return ErrNotPending
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
